package services

import (
	"context"
	"errors"
	"log"
	"time"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/repository"
)

const defaultStalenessWindow = 300 * time.Second

// LocationResolver answers "where is this vehicle or driver right now"
// by walking a fixed fallback chain: a live provider fix, then the
// driver's self-reported phone position, then whatever stale provider
// fix is on record. Callers always get the best available answer plus
// an honest staleness label, never a hard failure because one tier is
// down.
type LocationResolver struct {
	configs  *ConfigStore
	devices  DeviceStore
	vehicles VehicleStore
	drivers  DriverStore
	window   time.Duration

	now func() time.Time
}

func NewLocationResolver(configs *ConfigStore, devices DeviceStore, vehicles VehicleStore, drivers DriverStore, window time.Duration) *LocationResolver {
	if window <= 0 {
		window = defaultStalenessWindow
	}
	return &LocationResolver{
		configs:  configs,
		devices:  devices,
		vehicles: vehicles,
		drivers:  drivers,
		window:   window,
		now:      time.Now,
	}
}

// ResolveVehicle returns the best current location for a vehicle, or
// (nil, nil) when no tier has any fix at all.
func (r *LocationResolver) ResolveVehicle(ctx context.Context, vehicleID string) (*models.ResolvedLocation, error) {
	vehicle, err := r.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, vehicle, vehicle.DriverID), nil
}

// ResolveDriver resolves through the driver's assigned vehicle when one
// exists, falling back to the driver's own self-reported fix.
func (r *LocationResolver) ResolveDriver(ctx context.Context, driverID string) (*models.ResolvedLocation, error) {
	driver, err := r.drivers.FindByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	var vehicle *models.Vehicle
	if driver.VehicleID != "" {
		vehicle, err = r.vehicles.FindByID(ctx, driver.VehicleID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	loc := r.resolve(ctx, vehicle, driverID)
	if loc != nil {
		loc.DriverID = driverID
	}
	return loc, nil
}

// FleetLocations resolves every non-offline vehicle. Vehicles with no
// fix in any tier are omitted rather than reported at (0, 0).
func (r *LocationResolver) FleetLocations(ctx context.Context) ([]*models.ResolvedLocation, error) {
	vehicles, err := r.vehicles.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	locations := make([]*models.ResolvedLocation, 0, len(vehicles))
	for _, vehicle := range vehicles {
		if loc := r.resolve(ctx, vehicle, vehicle.DriverID); loc != nil {
			locations = append(locations, loc)
		}
	}
	return locations, nil
}

func (r *LocationResolver) resolve(ctx context.Context, vehicle *models.Vehicle, driverID string) *models.ResolvedLocation {
	now := r.now()

	var device *models.DeviceState
	if vehicle != nil && vehicle.DeviceIMEI != "" {
		var err error
		device, err = r.devices.FindByIMEI(ctx, vehicle.DeviceIMEI)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Printf("Device lookup failed for %s: %v", vehicle.DeviceIMEI, err)
		}
	}

	// Tier 1: a live provider fix, only when real-time tracking is on
	// and the fix is both from an online device and inside the window.
	if device != nil && device.Online && device.HasLocation() &&
		r.configs.Features(ctx).RealTimeTracking &&
		now.Sub(*device.LocationUpdatedAt) <= r.window {
		loc := deviceLocation(vehicle, device)
		loc.Source = models.LocationSourceProvider
		return loc
	}

	// Tier 2: the driver's self-reported phone position. Accepted at
	// any age; the staleness flag tells the caller how old it is.
	if driverID != "" {
		driver, err := r.drivers.FindByID(ctx, driverID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Printf("Driver lookup failed for %s: %v", driverID, err)
		}
		if driver != nil && driver.LastFix != nil {
			loc := &models.ResolvedLocation{
				DriverID:  driverID,
				Latitude:  driver.LastFix.Latitude,
				Longitude: driver.LastFix.Longitude,
				Source:    models.LocationSourceSelfReported,
				IsStale:   now.Sub(driver.LastFix.ReportedAt) > r.window,
				Timestamp: driver.LastFix.ReportedAt,
			}
			if vehicle != nil {
				loc.VehicleID = vehicle.ID.Hex()
			}
			return loc
		}
	}

	// Tier 3: the last provider fix on record, however old. Always
	// labeled stale so the dispatcher knows it is history, not now.
	if device != nil && device.HasLocation() {
		loc := deviceLocation(vehicle, device)
		loc.Source = models.LocationSourceLastKnown
		loc.IsStale = true
		return loc
	}

	return nil
}

func deviceLocation(vehicle *models.Vehicle, device *models.DeviceState) *models.ResolvedLocation {
	loc := &models.ResolvedLocation{
		Latitude:  device.Latitude,
		Longitude: device.Longitude,
		Speed:     device.Speed,
		Heading:   device.Heading,
		Timestamp: *device.LocationUpdatedAt,
	}
	if vehicle != nil {
		loc.VehicleID = vehicle.ID.Hex()
	}
	return loc
}
