package services

import (
	"context"
	"testing"
	"time"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/repository"
	"medtransit-telemetry/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIntegrationStore counts store hits so the tests can observe cache
// behavior.
type fakeIntegrationStore struct {
	cfg       *models.IntegrationConfig
	findCalls int
	saveErr   error
}

func (f *fakeIntegrationStore) Find(ctx context.Context) (*models.IntegrationConfig, error) {
	f.findCalls++
	if f.cfg == nil {
		return nil, repository.ErrNotFound
	}
	cfg := *f.cfg
	return &cfg, nil
}

func (f *fakeIntegrationStore) Save(ctx context.Context, cfg *models.IntegrationConfig) (*models.IntegrationConfig, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	saved := *cfg
	f.cfg = &saved
	return &saved, nil
}

func (f *fakeIntegrationStore) UpdateSyncState(ctx context.Context, status, syncError string, lastSyncAt *time.Time) error {
	if f.cfg != nil {
		f.cfg.SyncStatus = status
		f.cfg.SyncError = syncError
		if lastSyncAt != nil {
			f.cfg.LastSyncAt = lastSyncAt
		}
	}
	return nil
}

func TestConfigStore_GetAbsentConfig(t *testing.T) {
	store := NewConfigStore(&fakeIntegrationStore{}, cache.NewMemoryStore(), time.Minute)

	cfg, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cfg)

	flags := store.Features(context.Background())
	assert.False(t, flags.RealTimeTracking)
	assert.False(t, flags.Geofencing)
}

func TestConfigStore_GetUsesCache(t *testing.T) {
	repo := &fakeIntegrationStore{cfg: &models.IntegrationConfig{
		Enabled:     true,
		AccessToken: "tok-1",
		SyncStatus:  models.SyncStatusConnected,
	}}
	store := NewConfigStore(repo, cache.NewMemoryStore(), time.Minute)

	for i := 0; i < 5; i++ {
		cfg, err := store.Get(context.Background())
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "tok-1", cfg.AccessToken)
	}
	assert.Equal(t, 1, repo.findCalls)
}

func TestConfigStore_CacheTTLExpires(t *testing.T) {
	repo := &fakeIntegrationStore{cfg: &models.IntegrationConfig{Enabled: true}}
	store := NewConfigStore(repo, cache.NewMemoryStore(), 10*time.Millisecond)

	_, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.findCalls)

	time.Sleep(20 * time.Millisecond)

	_, err = store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findCalls)
}

func TestConfigStore_SaveInvalidatesCache(t *testing.T) {
	repo := &fakeIntegrationStore{cfg: &models.IntegrationConfig{Enabled: true, AccessToken: "old"}}
	store := NewConfigStore(repo, cache.NewMemoryStore(), time.Minute)
	ctx := context.Background()

	cfg, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "old", cfg.AccessToken)

	cfg.AccessToken = "new"
	_, err = store.Save(ctx, cfg)
	require.NoError(t, err)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
}

func TestConfigStore_SaveFailureStillInvalidates(t *testing.T) {
	repo := &fakeIntegrationStore{cfg: &models.IntegrationConfig{Enabled: true}}
	store := NewConfigStore(repo, cache.NewMemoryStore(), time.Minute)
	ctx := context.Background()

	_, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.findCalls)

	repo.saveErr = assert.AnError
	_, err = store.Save(ctx, &models.IntegrationConfig{})
	require.Error(t, err)

	// The cache must have been cleared even though the save failed.
	_, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findCalls)
}

func TestConfigStore_FeaturesDisabledWhenIntegrationOff(t *testing.T) {
	repo := &fakeIntegrationStore{cfg: &models.IntegrationConfig{
		Enabled: false,
		Features: models.FeatureFlags{
			RealTimeTracking: true,
			Geofencing:       true,
		},
	}}
	store := NewConfigStore(repo, cache.NewMemoryStore(), time.Minute)

	flags := store.Features(context.Background())
	assert.False(t, flags.RealTimeTracking)
	assert.False(t, flags.Geofencing)
}
