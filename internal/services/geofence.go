package services

import (
	"context"
	"errors"
	"log"

	"medtransit-telemetry/internal/repository"
	"medtransit-telemetry/pkg/geo"
)

const defaultGeofenceRadiusM = 100

// ArrivalSignal is emitted when a vehicle's reported position falls
// inside the geofence around its current stop. Detection only; the
// trip management side decides what a status transition looks like.
type ArrivalSignal struct {
	TripID    string  `json:"tripId"`
	StopID    string  `json:"stopId"`
	VehicleID string  `json:"vehicleId"`
	Distance  float64 `json:"distance"`
}

// TripSignaler receives arrival signals. Implementations must not
// block; evaluation happens on the webhook ingest path.
type TripSignaler interface {
	SignalArrival(signal ArrivalSignal)
}

// LogSignaler logs arrival signals. Used until a real trip management
// consumer is wired in.
type LogSignaler struct{}

func (LogSignaler) SignalArrival(s ArrivalSignal) {
	log.Printf("Vehicle %s arrived at stop %s of trip %s (%.0fm)", s.VehicleID, s.StopID, s.TripID, s.Distance)
}

// GeofenceEvaluator checks fresh position fixes against the current
// stop of every active trip assigned to the reporting vehicle.
type GeofenceEvaluator struct {
	configs  *ConfigStore
	vehicles VehicleStore
	trips    TripStore
	signaler TripSignaler
}

func NewGeofenceEvaluator(configs *ConfigStore, vehicles VehicleStore, trips TripStore, signaler TripSignaler) *GeofenceEvaluator {
	if signaler == nil {
		signaler = LogSignaler{}
	}
	return &GeofenceEvaluator{
		configs:  configs,
		vehicles: vehicles,
		trips:    trips,
		signaler: signaler,
	}
}

// Evaluate runs geofence checks for one position fix. A device with no
// linked vehicle, or a vehicle with no active trip, is a quiet no-op.
func (g *GeofenceEvaluator) Evaluate(ctx context.Context, imei string, lat, lng float64) error {
	vehicle, err := g.vehicles.FindByDeviceIMEI(ctx, imei)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	trips, err := g.trips.FindActiveByVehicleID(ctx, vehicle.ID.Hex())
	if err != nil {
		return err
	}

	radius := g.radiusMeters(ctx)
	for _, trip := range trips {
		stop := trip.CurrentStop()
		if stop == nil {
			continue
		}
		distance := geo.DistanceMeters(lat, lng, stop.Latitude, stop.Longitude)
		if distance <= radius {
			g.signaler.SignalArrival(ArrivalSignal{
				TripID:    trip.ID.Hex(),
				StopID:    stop.ID,
				VehicleID: vehicle.ID.Hex(),
				Distance:  distance,
			})
		}
	}
	return nil
}

func (g *GeofenceEvaluator) radiusMeters(ctx context.Context) float64 {
	cfg, err := g.configs.Get(ctx)
	if err != nil || cfg == nil || cfg.GeofenceRadiusM <= 0 {
		return defaultGeofenceRadiusM
	}
	return cfg.GeofenceRadiusM
}
