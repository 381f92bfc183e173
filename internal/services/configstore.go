package services

import (
	"context"
	"errors"
	"log"
	"time"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/repository"
	"medtransit-telemetry/pkg/cache"
)

const configCacheKey = "integration:config"

// IntegrationStore is the persistence surface ConfigStore needs.
type IntegrationStore interface {
	Find(ctx context.Context) (*models.IntegrationConfig, error)
	Save(ctx context.Context, cfg *models.IntegrationConfig) (*models.IntegrationConfig, error)
	UpdateSyncState(ctx context.Context, status, syncError string, lastSyncAt *time.Time) error
}

// ConfigStore serves the integration configuration with a short-lived
// cache in front of the store, so per-request feature checks do not cost
// a database round-trip. Absent config is a normal state: Get returns
// nil with no error and every feature check treats it as disabled.
type ConfigStore struct {
	repo  IntegrationStore
	cache cache.Store
	ttl   time.Duration
}

func NewConfigStore(repo IntegrationStore, cacheStore cache.Store, ttl time.Duration) *ConfigStore {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ConfigStore{
		repo:  repo,
		cache: cacheStore,
		ttl:   ttl,
	}
}

// Get returns the configuration, or nil when none exists yet.
func (s *ConfigStore) Get(ctx context.Context) (*models.IntegrationConfig, error) {
	var cached models.IntegrationConfig
	found, err := s.cache.Get(ctx, configCacheKey, &cached)
	if err != nil {
		log.Printf("Config cache read failed: %v", err)
	} else if found {
		return &cached, nil
	}

	cfg, err := s.repo.Find(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if cacheErr := s.cache.Set(ctx, configCacheKey, cfg, s.ttl); cacheErr != nil {
		log.Printf("Failed to cache integration config: %v", cacheErr)
	}
	return cfg, nil
}

// Save upserts the configuration. The cache entry is dropped
// unconditionally, even when the write fails, so a failed save can never
// leave stale credentials being served.
func (s *ConfigStore) Save(ctx context.Context, cfg *models.IntegrationConfig) (*models.IntegrationConfig, error) {
	defer s.Invalidate(ctx)
	return s.repo.Save(ctx, cfg)
}

// Invalidate forces the next Get to reload from the store.
func (s *ConfigStore) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, configCacheKey); err != nil {
		log.Printf("Failed to invalidate config cache: %v", err)
	}
}

// SetSyncState updates the sync status fields without touching
// credentials, then invalidates the cache.
func (s *ConfigStore) SetSyncState(ctx context.Context, status, syncError string, lastSyncAt *time.Time) error {
	defer s.Invalidate(ctx)
	return s.repo.UpdateSyncState(ctx, status, syncError, lastSyncAt)
}

// Features returns the current feature flags; all false when no config
// exists or the integration is disabled.
func (s *ConfigStore) Features(ctx context.Context) models.FeatureFlags {
	cfg, err := s.Get(ctx)
	if err != nil {
		log.Printf("Feature check failed to load config: %v", err)
		return models.FeatureFlags{}
	}
	if cfg == nil || !cfg.Enabled {
		return models.FeatureFlags{}
	}
	return cfg.Features
}
