package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/provider"

	"golang.org/x/sync/singleflight"
)

// ProviderAPI is the provider client surface the services consume.
type ProviderAPI interface {
	ExchangeCode(ctx context.Context, clientID, clientSecret, code string) (*provider.TokenResponse, error)
	RefreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*provider.TokenResponse, error)
	ListDevices(ctx context.Context, accessToken string) ([]provider.Device, error)
	GetDevice(ctx context.Context, accessToken, imei string) (*provider.Device, error)
	ListTrips(ctx context.Context, accessToken, imei string, start, end time.Time) ([]provider.Trip, error)
	RegisterWebhook(ctx context.Context, accessToken, callbackURL string, eventTypes []string) error
}

// TokenManager owns the provider OAuth token lifecycle. Failures are
// absorbed into the integration's sync status instead of being raised;
// callers treat an empty token as "telemetry not available".
type TokenManager struct {
	configs       *ConfigStore
	api           ProviderAPI
	refreshBuffer time.Duration
	callbackURL   string

	// Collapses concurrent refresh attempts into one provider exchange.
	refreshGroup singleflight.Group
}

func NewTokenManager(configs *ConfigStore, api ProviderAPI, refreshBuffer time.Duration, callbackURL string) *TokenManager {
	if refreshBuffer <= 0 {
		refreshBuffer = 5 * time.Minute
	}
	return &TokenManager{
		configs:       configs,
		api:           api,
		refreshBuffer: refreshBuffer,
		callbackURL:   callbackURL,
	}
}

// GetAccessToken returns a usable bearer token, refreshing first when the
// stored one expires within the refresh buffer. An empty string means the
// integration is not configured or the refresh failed; it is never an
// error the caller must handle.
func (m *TokenManager) GetAccessToken(ctx context.Context) string {
	cfg, err := m.configs.Get(ctx)
	if err != nil {
		log.Printf("Token lookup failed to load config: %v", err)
		return ""
	}
	if cfg == nil || cfg.AccessToken == "" {
		return ""
	}

	if !cfg.TokenExpiringWithin(m.refreshBuffer) {
		return cfg.AccessToken
	}

	if !m.Refresh(ctx) {
		return ""
	}

	refreshed, err := m.configs.Get(ctx)
	if err != nil || refreshed == nil {
		return ""
	}
	return refreshed.AccessToken
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent
// callers share a single in-flight exchange. Returns false on any
// failure; the failure reason lands in the config's sync status.
func (m *TokenManager) Refresh(ctx context.Context) bool {
	ok, _, _ := m.refreshGroup.Do("refresh", func() (interface{}, error) {
		return m.doRefresh(ctx), nil
	})
	return ok.(bool)
}

func (m *TokenManager) doRefresh(ctx context.Context) bool {
	cfg, err := m.configs.Get(ctx)
	if err != nil || cfg == nil || cfg.RefreshToken == "" {
		return false
	}

	token, err := m.api.RefreshToken(ctx, cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken)
	if err != nil {
		log.Printf("Token refresh failed: %v", err)
		if stateErr := m.configs.SetSyncState(ctx, models.SyncStatusError,
			fmt.Sprintf("token refresh failed: %v", err), nil); stateErr != nil {
			log.Printf("Failed to record refresh failure: %v", stateErr)
		}
		return false
	}

	cfg.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		cfg.RefreshToken = token.RefreshToken
	}
	cfg.TokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	cfg.SyncStatus = models.SyncStatusConnected
	cfg.SyncError = ""

	if _, err := m.configs.Save(ctx, cfg); err != nil {
		log.Printf("Failed to persist refreshed token: %v", err)
		return false
	}
	return true
}

// Credentials is the payload for the test-credentials admin operation.
type Credentials struct {
	ClientID      string `json:"clientId" validate:"required"`
	ClientSecret  string `json:"clientSecret" validate:"required"`
	Code          string `json:"code" validate:"required"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
}

// TestConnection performs the full authorization-code exchange, verifies
// the credentials with one live device listing, and only then persists
// them. Credentials that fail the liveness check are never stored.
func (m *TokenManager) TestConnection(ctx context.Context, creds Credentials) error {
	token, err := m.api.ExchangeCode(ctx, creds.ClientID, creds.ClientSecret, creds.Code)
	if err != nil {
		return fmt.Errorf("credential exchange failed: %w", err)
	}

	if _, err := m.api.ListDevices(ctx, token.AccessToken); err != nil {
		return fmt.Errorf("credential liveness check failed: %w", err)
	}

	cfg, err := m.configs.Get(ctx)
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = &models.IntegrationConfig{
			GeofenceRadiusM: 100,
		}
	}

	cfg.Enabled = true
	cfg.ClientID = creds.ClientID
	cfg.ClientSecret = creds.ClientSecret
	cfg.AccessToken = token.AccessToken
	cfg.RefreshToken = token.RefreshToken
	cfg.TokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if creds.WebhookSecret != "" {
		cfg.WebhookSecret = creds.WebhookSecret
	}
	cfg.SyncStatus = models.SyncStatusConnected
	cfg.SyncError = ""

	if _, err := m.configs.Save(ctx, cfg); err != nil {
		return err
	}

	// Webhook registration is best-effort: pull sync still works without
	// it, so a failure is recorded rather than failing the connect.
	if m.callbackURL != "" {
		if err := m.api.RegisterWebhook(ctx, token.AccessToken, m.callbackURL, models.KnownEventTypes); err != nil {
			log.Printf("Webhook registration failed: %v", err)
			if stateErr := m.configs.SetSyncState(ctx, models.SyncStatusConnected,
				fmt.Sprintf("webhook registration failed: %v", err), nil); stateErr != nil {
				log.Printf("Failed to record webhook registration failure: %v", stateErr)
			}
		}
	}
	return nil
}
