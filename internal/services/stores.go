package services

import (
	"context"
	"time"

	"medtransit-telemetry/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store interfaces consumed by the telemetry services. The Mongo
// repositories satisfy them in production; tests use in-memory fakes.

type DeviceStore interface {
	FindByIMEI(ctx context.Context, imei string) (*models.DeviceState, error)
	FindByVehicleID(ctx context.Context, vehicleID string) (*models.DeviceState, error)
	FindAll(ctx context.Context) ([]*models.DeviceState, error)
	Upsert(ctx context.Context, device *models.DeviceState) error
	UpdateLocationIfNewer(ctx context.Context, imei string, lat, lng, speed, heading float64, ts time.Time) (bool, error)
	UpdateDiagnostics(ctx context.Context, imei string, diag models.DeviceDiagnostics) error
	IncrementBehavior(ctx context.Context, imei, counter string, delta int) error
	SetTripState(ctx context.Context, imei string, inProgress bool, startedAt *time.Time) error
	LinkVehicle(ctx context.Context, imei, vehicleID string) error
	UnlinkVehicle(ctx context.Context, imei string) error
}

type EventStore interface {
	Insert(ctx context.Context, event *models.TelemetryEvent) (*models.TelemetryEvent, error)
	MarkProcessed(ctx context.Context, id primitive.ObjectID) error
}

type DeviceTripStore interface {
	Create(ctx context.Context, trip *models.DeviceTrip) (*models.DeviceTrip, error)
	Finalize(ctx context.Context, imei, providerTripID string, end models.DeviceTrip) error
}

type VehicleStore interface {
	FindByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindByDeviceIMEI(ctx context.Context, imei string) (*models.Vehicle, error)
	FindActive(ctx context.Context) ([]*models.Vehicle, error)
	SetDeviceIMEI(ctx context.Context, id, imei string) error
}

type TripStore interface {
	FindActiveByVehicleID(ctx context.Context, vehicleID string) ([]*models.Trip, error)
}

type DriverStore interface {
	FindByID(ctx context.Context, id string) (*models.Driver, error)
}
