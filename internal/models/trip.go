package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trip statuses in which geofence arrival detection applies.
const (
	TripStatusAssigned      = "assigned"
	TripStatusDriverEnRoute = "driver_en_route"
	TripStatusDriverArrived = "driver_arrived"
	TripStatusInProgress    = "in_progress"
	TripStatusCompleted     = "completed"
	TripStatusCancelled     = "cancelled"
)

// ActiveTripStatuses is the set of statuses considered live for geofence
// evaluation.
var ActiveTripStatuses = []string{
	TripStatusAssigned,
	TripStatusDriverEnRoute,
	TripStatusDriverArrived,
	TripStatusInProgress,
}

// Stop is one pickup or dropoff point on a dispatch trip.
type Stop struct {
	ID        string  `bson:"id" json:"id"`
	Sequence  int     `bson:"sequence" json:"sequence"`
	Address   string  `bson:"address" json:"address"`
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
	Completed bool    `bson:"completed" json:"completed"`
}

// Trip is the dispatch application's trip record. Owned by the trip
// management side; consumed read-only here for geofence evaluation.
type Trip struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID        string             `bson:"vehicle_id" json:"vehicleId"`
	DriverID         string             `bson:"driver_id" json:"driverId"`
	Status           string             `bson:"status" json:"status"`
	Stops            []Stop             `bson:"stops" json:"stops"`
	CurrentStopIndex int                `bson:"current_stop_index" json:"currentStopIndex"`
	ScheduledAt      time.Time          `bson:"scheduled_at" json:"scheduledAt"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updatedAt"`
}

// CurrentStop returns the stop the trip is heading to, or nil when the
// stop index is out of range.
func (t *Trip) CurrentStop() *Stop {
	if t.CurrentStopIndex < 0 || t.CurrentStopIndex >= len(t.Stops) {
		return nil
	}
	return &t.Stops[t.CurrentStopIndex]
}

// DeviceTrip is a provider-side trip record, distinct from the dispatch
// Trip above. Created on a trip_start event and finalized on trip_end.
type DeviceTrip struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IMEI           string             `bson:"imei" json:"imei"`
	ProviderTripID string             `bson:"provider_trip_id" json:"providerTripId"`
	StartTime      time.Time          `bson:"start_time" json:"startTime"`
	EndTime        *time.Time         `bson:"end_time,omitempty" json:"endTime,omitempty"`
	StartLatitude  float64            `bson:"start_latitude" json:"startLatitude"`
	StartLongitude float64            `bson:"start_longitude" json:"startLongitude"`
	EndLatitude    float64            `bson:"end_latitude" json:"endLatitude"`
	EndLongitude   float64            `bson:"end_longitude" json:"endLongitude"`
	DistanceKm     float64            `bson:"distance_km" json:"distanceKm"`
	DurationSec    int                `bson:"duration_sec" json:"durationSec"`
	MaxSpeed       float64            `bson:"max_speed" json:"maxSpeed"`
	AvgSpeed       float64            `bson:"avg_speed" json:"avgSpeed"`
	FuelUsed       float64            `bson:"fuel_used" json:"fuelUsed"`
	HardBrakes     int                `bson:"hard_brakes" json:"hardBrakes"`
	RapidAccels    int                `bson:"rapid_accels" json:"rapidAccels"`
	SpeedingEvents int                `bson:"speeding_events" json:"speedingEvents"`
	EncodedRoute   string             `bson:"encoded_route,omitempty" json:"encodedRoute,omitempty"`
	Completed      bool               `bson:"completed" json:"completed"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updatedAt"`
}
