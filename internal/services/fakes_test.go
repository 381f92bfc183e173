package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory store fakes shared by the service tests. They mirror the
// repository semantics the services rely on, including last-write-wins
// location updates.

type fakeDeviceStore struct {
	mu        sync.Mutex
	devices   map[string]*models.DeviceState
	upsertErr map[string]error // per-IMEI injected failures
}

func newFakeDeviceStore(devices ...*models.DeviceState) *fakeDeviceStore {
	s := &fakeDeviceStore{
		devices:   make(map[string]*models.DeviceState),
		upsertErr: make(map[string]error),
	}
	for _, d := range devices {
		s.devices[d.IMEI] = d
	}
	return s
}

func (s *fakeDeviceStore) FindByIMEI(_ context.Context, imei string) (*models.DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[imei]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *fakeDeviceStore) FindByVehicleID(_ context.Context, vehicleID string) (*models.DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.VehicleID == vehicleID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeDeviceStore) FindAll(_ context.Context) ([]*models.DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DeviceState
	for _, d := range s.devices {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeDeviceStore) Upsert(_ context.Context, device *models.DeviceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.upsertErr[device.IMEI]; err != nil {
		return err
	}
	existing, ok := s.devices[device.IMEI]
	if !ok {
		cp := *device
		s.devices[device.IMEI] = &cp
		return nil
	}
	existing.Name = device.Name
	existing.Online = device.Online
	if device.LastSeen != nil {
		existing.LastSeen = device.LastSeen
	}
	if device.LocationUpdatedAt != nil && (existing.LocationUpdatedAt == nil ||
		existing.LocationUpdatedAt.Before(*device.LocationUpdatedAt)) {
		existing.Latitude = device.Latitude
		existing.Longitude = device.Longitude
		existing.Speed = device.Speed
		existing.Heading = device.Heading
		existing.LocationUpdatedAt = device.LocationUpdatedAt
	}
	if device.Diagnostics.UpdatedAt != nil {
		existing.Diagnostics = device.Diagnostics
	}
	return nil
}

func (s *fakeDeviceStore) UpdateLocationIfNewer(_ context.Context, imei string, lat, lng, speed, heading float64, ts time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[imei]
	if !ok {
		return false, repository.ErrNotFound
	}
	if d.LocationUpdatedAt != nil && !d.LocationUpdatedAt.Before(ts) {
		return false, nil
	}
	now := time.Now()
	d.Latitude = lat
	d.Longitude = lng
	d.Speed = speed
	d.Heading = heading
	d.LocationUpdatedAt = &ts
	d.Online = true
	d.LastSeen = &now
	return true, nil
}

func (s *fakeDeviceStore) UpdateDiagnostics(_ context.Context, imei string, diag models.DeviceDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[imei]
	if !ok {
		return repository.ErrNotFound
	}
	d.Diagnostics = diag
	return nil
}

func (s *fakeDeviceStore) IncrementBehavior(_ context.Context, imei, counter string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[imei]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	switch counter {
	case "hard_braking":
		d.Behavior.HardBraking += delta
	case "rapid_acceleration":
		d.Behavior.RapidAcceleration += delta
	case "speeding":
		d.Behavior.Speeding += delta
	case "idle_minutes":
		d.Behavior.IdleMinutes += delta
	default:
		return fmt.Errorf("unknown counter %q", counter)
	}
	d.Behavior.UpdatedAt = &now
	return nil
}

func (s *fakeDeviceStore) SetTripState(_ context.Context, imei string, inProgress bool, startedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[imei]
	if !ok {
		return repository.ErrNotFound
	}
	d.TripInProgress = inProgress
	d.TripStartedAt = startedAt
	return nil
}

func (s *fakeDeviceStore) LinkVehicle(_ context.Context, imei, vehicleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[imei]
	if !ok {
		return repository.ErrNotFound
	}
	d.VehicleID = vehicleID
	return nil
}

func (s *fakeDeviceStore) UnlinkVehicle(_ context.Context, imei string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[imei]
	if !ok {
		return repository.ErrNotFound
	}
	d.VehicleID = ""
	return nil
}

func (s *fakeDeviceStore) get(imei string) *models.DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices[imei]
}

type fakeEventStore struct {
	mu        sync.Mutex
	events    []*models.TelemetryEvent
	insertErr error
}

func (s *fakeEventStore) Insert(_ context.Context, event *models.TelemetryEvent) (*models.TelemetryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	event.ID = primitive.NewObjectID()
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}
	s.events = append(s.events, event)
	return event, nil
}

func (s *fakeEventStore) MarkProcessed(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id && e.ProcessedAt == nil {
			now := time.Now()
			e.ProcessedAt = &now
		}
	}
	return nil
}

func (s *fakeEventStore) FindRecent(_ context.Context, limit int64) ([]*models.TelemetryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]*models.TelemetryEvent(nil), s.events...)
	if int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

func (s *fakeEventStore) FindByIMEI(_ context.Context, imei string, limit int64) ([]*models.TelemetryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.TelemetryEvent
	for _, e := range s.events {
		if e.IMEI == imei {
			out = append(out, e)
		}
	}
	if int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

func (s *fakeEventStore) all() []*models.TelemetryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.TelemetryEvent(nil), s.events...)
}

type fakeDeviceTripStore struct {
	mu          sync.Mutex
	trips       []*models.DeviceTrip
	finalizeErr error
}

func (s *fakeDeviceTripStore) Create(_ context.Context, trip *models.DeviceTrip) (*models.DeviceTrip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip.ID = primitive.NewObjectID()
	s.trips = append(s.trips, trip)
	return trip, nil
}

func (s *fakeDeviceTripStore) Finalize(_ context.Context, imei, providerTripID string, end models.DeviceTrip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalizeErr != nil {
		return s.finalizeErr
	}
	for _, t := range s.trips {
		if t.IMEI == imei && t.ProviderTripID == providerTripID && !t.Completed {
			t.EndTime = end.EndTime
			t.EndLatitude = end.EndLatitude
			t.EndLongitude = end.EndLongitude
			t.DistanceKm = end.DistanceKm
			t.DurationSec = end.DurationSec
			t.Completed = true
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeVehicleStore struct {
	mu       sync.Mutex
	vehicles map[string]*models.Vehicle
}

func newFakeVehicleStore(vehicles ...*models.Vehicle) *fakeVehicleStore {
	s := &fakeVehicleStore{vehicles: make(map[string]*models.Vehicle)}
	for _, v := range vehicles {
		s.vehicles[v.ID.Hex()] = v
	}
	return s
}

func (s *fakeVehicleStore) FindByID(_ context.Context, id string) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *fakeVehicleStore) FindByDeviceIMEI(_ context.Context, imei string) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.vehicles {
		if v.DeviceIMEI == imei {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeVehicleStore) FindActive(_ context.Context) ([]*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Vehicle
	for _, v := range s.vehicles {
		if v.Status != models.VehicleStatusOffline {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeVehicleStore) SetDeviceIMEI(_ context.Context, id, imei string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.DeviceIMEI = imei
	return nil
}

type fakeTripStore struct {
	trips map[string][]*models.Trip // vehicleID -> active trips
}

func (s *fakeTripStore) FindActiveByVehicleID(_ context.Context, vehicleID string) ([]*models.Trip, error) {
	return s.trips[vehicleID], nil
}

type fakeDriverStore struct {
	drivers map[string]*models.Driver
}

func (s *fakeDriverStore) FindByID(_ context.Context, id string) (*models.Driver, error) {
	d, ok := s.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}
