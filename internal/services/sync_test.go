package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncFixture(devices []provider.Device) (*SyncEngine, *fakeIntegrationStore, *fakeDeviceStore, *fakeProviderAPI) {
	configs, repo := newTestConfigStore(&models.IntegrationConfig{
		Enabled:     true,
		AccessToken: "tok-1",
		TokenExpiry: time.Now().Add(time.Hour),
	})
	api := &fakeProviderAPI{devices: devices}
	deviceStore := newFakeDeviceStore()
	tokens := NewTokenManager(configs, api, 5*time.Minute, "")
	engine := NewSyncEngine(configs, tokens, api, deviceStore, 4)
	return engine, repo, deviceStore, api
}

func makeProviderDevices(n int) []provider.Device {
	now := time.Now()
	devices := make([]provider.Device, 0, n)
	for i := 1; i <= n; i++ {
		devices = append(devices, provider.Device{
			IMEI:     fmt.Sprintf("IMEI-%03d", i),
			Name:     fmt.Sprintf("Unit %d", i),
			Online:   true,
			FixTime:  &now,
			Latitude: 29.7 + float64(i)/1000,
		})
	}
	return devices
}

func TestSyncEngine_AllDevicesSucceed(t *testing.T) {
	engine, repo, deviceStore, _ := newSyncFixture(makeProviderDevices(5))

	result, err := engine.SyncDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Synced)
	assert.Empty(t, result.Errors)

	assert.Equal(t, models.SyncStatusConnected, repo.cfg.SyncStatus)
	assert.Empty(t, repo.cfg.SyncError)
	assert.NotNil(t, repo.cfg.LastSyncAt)

	all, err := deviceStore.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSyncEngine_OneBadDeviceDoesNotAbortBatch(t *testing.T) {
	engine, repo, deviceStore, _ := newSyncFixture(makeProviderDevices(10))
	deviceStore.upsertErr["IMEI-007"] = errors.New("malformed record")

	result, err := engine.SyncDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, result.Synced)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "IMEI-007")

	// Partial failure keeps the integration connected.
	assert.Equal(t, models.SyncStatusConnected, repo.cfg.SyncStatus)
	assert.Contains(t, repo.cfg.SyncError, "1 of 10 devices failed")
}

func TestSyncEngine_ProviderFailureSetsErrorStatus(t *testing.T) {
	engine, repo, _, api := newSyncFixture(nil)
	api.devicesErr = &provider.ProviderError{Status: 401, Body: "token expired"}

	_, err := engine.SyncDevices(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.SyncStatusError, repo.cfg.SyncStatus)
	assert.Contains(t, repo.cfg.SyncError, "device listing failed")
}

func TestSyncEngine_NoTokenFailsWithoutListing(t *testing.T) {
	configs, repo := newTestConfigStore(nil)
	api := &fakeProviderAPI{}
	tokens := NewTokenManager(configs, api, 5*time.Minute, "")
	engine := NewSyncEngine(configs, tokens, api, newFakeDeviceStore(), 4)

	_, err := engine.SyncDevices(context.Background())
	require.Error(t, err)
	// No config exists, so the error state update is a no-op, but the
	// engine must not have attempted a device listing.
	assert.Nil(t, repo.cfg)
}

func TestSyncEngine_DeviceWithoutIMEIRejected(t *testing.T) {
	devices := makeProviderDevices(2)
	devices = append(devices, provider.Device{Name: "ghost unit"})
	engine, _, _, _ := newSyncFixture(devices)

	result, err := engine.SyncDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "missing hardware id")
}
