package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters_IdenticalPoints(t *testing.T) {
	d := DistanceMeters(29.7604, -95.3698, 29.7604, -95.3698)
	assert.Equal(t, 0.0, d)
}

func TestDistanceMeters_Symmetry(t *testing.T) {
	d1 := DistanceMeters(29.7604, -95.3698, 29.7700, -95.3600)
	d2 := DistanceMeters(29.7700, -95.3600, 29.7604, -95.3698)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// One degree of latitude is roughly 111.2 km.
	d := DistanceMeters(29.0, -95.0, 30.0, -95.0)
	assert.InDelta(t, 111195, d, 200)
}

func TestDistanceMeters_ShortRange(t *testing.T) {
	// ~50m north of the reference point.
	d := DistanceMeters(29.7604, -95.3698, 29.76085, -95.3698)
	assert.InDelta(t, 50, d, 2)

	// ~500m away must not fall inside a 100m geofence.
	far := DistanceMeters(29.7604, -95.3698, 29.7649, -95.3698)
	assert.Greater(t, far, 450.0)
	assert.Less(t, far, 550.0)
}
