package services

import (
	"context"
	"errors"
	"fmt"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/repository"
)

// EventLogStore is the read side of the telemetry event log.
type EventLogStore interface {
	FindRecent(ctx context.Context, limit int64) ([]*models.TelemetryEvent, error)
	FindByIMEI(ctx context.Context, imei string, limit int64) ([]*models.TelemetryEvent, error)
}

// DeviceService is the admin surface over device state: listing,
// event history, and the device-to-vehicle linkage. Linking keeps both
// sides of the relation consistent so a device never points at one
// vehicle while another vehicle still claims its IMEI.
type DeviceService struct {
	devices  DeviceStore
	vehicles VehicleStore
	events   EventLogStore
}

func NewDeviceService(devices DeviceStore, vehicles VehicleStore, events EventLogStore) *DeviceService {
	return &DeviceService{devices: devices, vehicles: vehicles, events: events}
}

func (s *DeviceService) List(ctx context.Context) ([]*models.DeviceState, error) {
	return s.devices.FindAll(ctx)
}

func (s *DeviceService) Get(ctx context.Context, imei string) (*models.DeviceState, error) {
	return s.devices.FindByIMEI(ctx, imei)
}

// RecentEvents returns the newest event log rows, optionally filtered
// to one device.
func (s *DeviceService) RecentEvents(ctx context.Context, imei string, limit int64) ([]*models.TelemetryEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if imei != "" {
		return s.events.FindByIMEI(ctx, imei, limit)
	}
	return s.events.FindRecent(ctx, limit)
}

// Link attaches a device to a vehicle, detaching any previous pairing
// on either side first.
func (s *DeviceService) Link(ctx context.Context, imei, vehicleID string) error {
	device, err := s.devices.FindByIMEI(ctx, imei)
	if err != nil {
		return err
	}
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return err
	}

	if vehicle.DeviceIMEI != "" && vehicle.DeviceIMEI != imei {
		if err := s.devices.UnlinkVehicle(ctx, vehicle.DeviceIMEI); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to detach previous device: %w", err)
		}
	}
	if device.VehicleID != "" && device.VehicleID != vehicleID {
		if err := s.vehicles.SetDeviceIMEI(ctx, device.VehicleID, ""); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to detach previous vehicle: %w", err)
		}
	}

	if err := s.devices.LinkVehicle(ctx, imei, vehicleID); err != nil {
		return err
	}
	return s.vehicles.SetDeviceIMEI(ctx, vehicleID, imei)
}

// Unlink detaches a device from its vehicle. Unlinking an already
// unlinked device is a no-op.
func (s *DeviceService) Unlink(ctx context.Context, imei string) error {
	device, err := s.devices.FindByIMEI(ctx, imei)
	if err != nil {
		return err
	}
	if device.VehicleID != "" {
		if err := s.vehicles.SetDeviceIMEI(ctx, device.VehicleID, ""); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	return s.devices.UnlinkVehicle(ctx, imei)
}
