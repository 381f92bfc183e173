package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeviceState is the durable record for one physical telemetry unit,
// keyed by its IMEI. It is written by both the sync engine and the
// webhook ingest path; location writes are last-write-wins by the event
// timestamp, so LocationUpdatedAt never moves backwards for a device.
type DeviceState struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IMEI      string             `bson:"imei" json:"imei" validate:"required"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`
	VehicleID string             `bson:"vehicle_id,omitempty" json:"vehicleId,omitempty"`
	Online    bool               `bson:"online" json:"online"`
	LastSeen  *time.Time         `bson:"last_seen,omitempty" json:"lastSeen,omitempty"`

	Latitude          float64    `bson:"latitude" json:"latitude"`
	Longitude         float64    `bson:"longitude" json:"longitude"`
	Speed             float64    `bson:"speed" json:"speed"`
	Heading           float64    `bson:"heading" json:"heading"`
	Altitude          float64    `bson:"altitude" json:"altitude"`
	Accuracy          float64    `bson:"accuracy" json:"accuracy"`
	LocationUpdatedAt *time.Time `bson:"location_updated_at,omitempty" json:"locationUpdatedAt,omitempty"`

	Diagnostics DeviceDiagnostics `bson:"diagnostics" json:"diagnostics"`
	Behavior    BehaviorCounters  `bson:"behavior" json:"behavior"`

	TripInProgress bool       `bson:"trip_in_progress" json:"tripInProgress"`
	TripStartedAt  *time.Time `bson:"trip_started_at,omitempty" json:"tripStartedAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasLocation reports whether the device ever reported a fix.
func (d *DeviceState) HasLocation() bool {
	return d.LocationUpdatedAt != nil
}

type DeviceDiagnostics struct {
	BatteryVoltage  float64    `bson:"battery_voltage" json:"batteryVoltage"`
	FuelLevel       float64    `bson:"fuel_level" json:"fuelLevel"`
	FuelRange       float64    `bson:"fuel_range" json:"fuelRange"`
	Odometer        float64    `bson:"odometer" json:"odometer"`
	CheckEngine     bool       `bson:"check_engine" json:"checkEngine"`
	DiagnosticCodes []string   `bson:"diagnostic_codes,omitempty" json:"diagnosticCodes,omitempty"`
	UpdatedAt       *time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

type BehaviorCounters struct {
	HardBraking       int        `bson:"hard_braking" json:"hardBraking"`
	RapidAcceleration int        `bson:"rapid_acceleration" json:"rapidAcceleration"`
	Speeding          int        `bson:"speeding" json:"speeding"`
	IdleMinutes       int        `bson:"idle_minutes" json:"idleMinutes"`
	UpdatedAt         *time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}
