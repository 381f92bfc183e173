package services

import (
	"context"
	"testing"
	"time"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type resolverFixture struct {
	resolver *LocationResolver
	vehicle  *models.Vehicle
	driver   *models.Driver
	devices  *fakeDeviceStore
	now      time.Time
}

func newResolverFixture(t *testing.T, tracking bool) *resolverFixture {
	t.Helper()

	repo := &fakeIntegrationStore{cfg: &models.IntegrationConfig{
		Enabled:  true,
		Features: models.FeatureFlags{RealTimeTracking: tracking},
	}}
	configs := NewConfigStore(repo, cache.NewMemoryStore(), time.Minute)

	driver := &models.Driver{ID: primitive.NewObjectID(), Name: "Jordan"}
	vehicle := &models.Vehicle{
		ID:         primitive.NewObjectID(),
		Name:       "Unit 12",
		DeviceIMEI: "867000000000001",
		DriverID:   driver.ID.Hex(),
		Status:     models.VehicleStatusActive,
	}
	driver.VehicleID = vehicle.ID.Hex()

	devices := newFakeDeviceStore(&models.DeviceState{IMEI: "867000000000001", VehicleID: vehicle.ID.Hex()})
	vehicles := newFakeVehicleStore(vehicle)
	drivers := &fakeDriverStore{drivers: map[string]*models.Driver{driver.ID.Hex(): driver}}

	now := time.Now()
	resolver := NewLocationResolver(configs, devices, vehicles, drivers, 300*time.Second)
	resolver.now = func() time.Time { return now }

	return &resolverFixture{resolver: resolver, vehicle: vehicle, driver: driver, devices: devices, now: now}
}

func (f *resolverFixture) setDeviceFix(age time.Duration, online bool, lat, lng float64) {
	ts := f.now.Add(-age)
	d := f.devices.get("867000000000001")
	d.Latitude = lat
	d.Longitude = lng
	d.Online = online
	d.LocationUpdatedAt = &ts
}

func (f *resolverFixture) setDriverFix(age time.Duration, lat, lng float64) {
	f.driver.LastFix = &models.DriverFix{
		Latitude:   lat,
		Longitude:  lng,
		ReportedAt: f.now.Add(-age),
	}
}

func TestResolver_FreshProviderFixWins(t *testing.T) {
	f := newResolverFixture(t, true)
	f.setDeviceFix(30*time.Second, true, 40.7, -74.0)
	f.setDriverFix(5*time.Second, 41.0, -75.0)

	loc, err := f.resolver.ResolveVehicle(context.Background(), f.vehicle.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, models.LocationSourceProvider, loc.Source)
	assert.False(t, loc.IsStale)
	assert.Equal(t, 40.7, loc.Latitude)
}

func TestResolver_StaleProviderFallsThroughToDriver(t *testing.T) {
	f := newResolverFixture(t, true)
	f.setDeviceFix(400*time.Second, true, 40.7, -74.0)
	f.setDriverFix(10*time.Second, 41.0, -75.0)

	loc, err := f.resolver.ResolveVehicle(context.Background(), f.vehicle.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, models.LocationSourceSelfReported, loc.Source)
	assert.False(t, loc.IsStale)
	assert.Equal(t, 41.0, loc.Latitude)
}

func TestResolver_OfflineDeviceSkipsProviderTier(t *testing.T) {
	f := newResolverFixture(t, true)
	f.setDeviceFix(30*time.Second, false, 40.7, -74.0)
	f.setDriverFix(10*time.Second, 41.0, -75.0)

	loc, err := f.resolver.ResolveVehicle(context.Background(), f.vehicle.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.LocationSourceSelfReported, loc.Source)
}

func TestResolver_TrackingDisabledSkipsProviderTier(t *testing.T) {
	f := newResolverFixture(t, false)
	f.setDeviceFix(30*time.Second, true, 40.7, -74.0)
	f.setDriverFix(10*time.Second, 41.0, -75.0)

	loc, err := f.resolver.ResolveVehicle(context.Background(), f.vehicle.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.LocationSourceSelfReported, loc.Source)
}

func TestResolver_OldDriverFixIsStaleNotSkipped(t *testing.T) {
	f := newResolverFixture(t, true)
	f.setDriverFix(20*time.Minute, 41.0, -75.0)

	loc, err := f.resolver.ResolveVehicle(context.Background(), f.vehicle.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, models.LocationSourceSelfReported, loc.Source)
	assert.True(t, loc.IsStale)
}

func TestResolver_LastKnownIsAlwaysStale(t *testing.T) {
	f := newResolverFixture(t, true)
	f.setDeviceFix(2*time.Hour, false, 40.7, -74.0)

	loc, err := f.resolver.ResolveVehicle(context.Background(), f.vehicle.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, models.LocationSourceLastKnown, loc.Source)
	assert.True(t, loc.IsStale)
	assert.Equal(t, 40.7, loc.Latitude)
}

func TestResolver_NoFixAnywhere(t *testing.T) {
	f := newResolverFixture(t, true)

	loc, err := f.resolver.ResolveVehicle(context.Background(), f.vehicle.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestResolver_UnknownVehicle(t *testing.T) {
	f := newResolverFixture(t, true)

	_, err := f.resolver.ResolveVehicle(context.Background(), primitive.NewObjectID().Hex())
	assert.Error(t, err)
}

func TestResolver_ResolveDriverThroughVehicle(t *testing.T) {
	f := newResolverFixture(t, true)
	f.setDeviceFix(30*time.Second, true, 40.7, -74.0)

	loc, err := f.resolver.ResolveDriver(context.Background(), f.driver.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, models.LocationSourceProvider, loc.Source)
	assert.Equal(t, f.driver.ID.Hex(), loc.DriverID)
	assert.Equal(t, f.vehicle.ID.Hex(), loc.VehicleID)
}

func TestResolver_FleetLocationsSkipsUnlocated(t *testing.T) {
	f := newResolverFixture(t, true)
	f.setDeviceFix(30*time.Second, true, 40.7, -74.0)

	// A second vehicle with no device and no driver fix.
	bare := &models.Vehicle{ID: primitive.NewObjectID(), Name: "Unit 13", Status: models.VehicleStatusActive}
	vehicles := newFakeVehicleStore(f.vehicle, bare)
	f.resolver.vehicles = vehicles

	locations, err := f.resolver.FleetLocations(context.Background())
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, f.vehicle.ID.Hex(), locations[0].VehicleID)
}
