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

type recordingSignaler struct {
	signals []ArrivalSignal
}

func (s *recordingSignaler) SignalArrival(signal ArrivalSignal) {
	s.signals = append(s.signals, signal)
}

func geofenceFixture(t *testing.T, radiusM float64) (*GeofenceEvaluator, *recordingSignaler, *models.Trip) {
	t.Helper()

	repo := &fakeIntegrationStore{cfg: &models.IntegrationConfig{
		Enabled:         true,
		GeofenceRadiusM: radiusM,
	}}
	configs := NewConfigStore(repo, cache.NewMemoryStore(), time.Minute)

	vehicle := &models.Vehicle{
		ID:         primitive.NewObjectID(),
		Name:       "Unit 12",
		DeviceIMEI: "867000000000001",
		Status:     models.VehicleStatusActive,
	}
	trip := &models.Trip{
		ID:        primitive.NewObjectID(),
		VehicleID: vehicle.ID.Hex(),
		Status:    models.TripStatusDriverEnRoute,
		Stops: []models.Stop{
			{ID: "stop-1", Sequence: 0, Latitude: 40.7128, Longitude: -74.0060},
			{ID: "stop-2", Sequence: 1, Latitude: 40.7306, Longitude: -73.9352},
		},
	}

	vehicles := newFakeVehicleStore(vehicle)
	trips := &fakeTripStore{trips: map[string][]*models.Trip{
		vehicle.ID.Hex(): {trip},
	}}
	signaler := &recordingSignaler{}
	return NewGeofenceEvaluator(configs, vehicles, trips, signaler), signaler, trip
}

func TestGeofence_SignalInsideRadius(t *testing.T) {
	evaluator, signaler, trip := geofenceFixture(t, 100)

	// Roughly 50m north of stop-1.
	err := evaluator.Evaluate(context.Background(), "867000000000001", 40.71325, -74.0060)
	require.NoError(t, err)

	require.Len(t, signaler.signals, 1)
	assert.Equal(t, trip.ID.Hex(), signaler.signals[0].TripID)
	assert.Equal(t, "stop-1", signaler.signals[0].StopID)
	assert.InDelta(t, 50, signaler.signals[0].Distance, 5)
}

func TestGeofence_NoSignalOutsideRadius(t *testing.T) {
	evaluator, signaler, _ := geofenceFixture(t, 100)

	// Roughly 500m north of stop-1.
	err := evaluator.Evaluate(context.Background(), "867000000000001", 40.7173, -74.0060)
	require.NoError(t, err)
	assert.Empty(t, signaler.signals)
}

func TestGeofence_CurrentStopOnly(t *testing.T) {
	evaluator, signaler, trip := geofenceFixture(t, 100)
	trip.CurrentStopIndex = 1

	// At stop-1 exactly, but the trip is heading to stop-2.
	err := evaluator.Evaluate(context.Background(), "867000000000001", 40.7128, -74.0060)
	require.NoError(t, err)
	assert.Empty(t, signaler.signals)

	err = evaluator.Evaluate(context.Background(), "867000000000001", 40.7306, -73.9352)
	require.NoError(t, err)
	require.Len(t, signaler.signals, 1)
	assert.Equal(t, "stop-2", signaler.signals[0].StopID)
}

func TestGeofence_ConfiguredRadius(t *testing.T) {
	evaluator, signaler, _ := geofenceFixture(t, 1000)

	// 500m out, inside the widened fence.
	err := evaluator.Evaluate(context.Background(), "867000000000001", 40.7173, -74.0060)
	require.NoError(t, err)
	assert.Len(t, signaler.signals, 1)
}

func TestGeofence_UnlinkedDeviceIsNoop(t *testing.T) {
	evaluator, signaler, _ := geofenceFixture(t, 100)

	err := evaluator.Evaluate(context.Background(), "860000000000099", 40.7128, -74.0060)
	require.NoError(t, err)
	assert.Empty(t, signaler.signals)
}
