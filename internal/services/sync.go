package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/provider"
)

// SyncResult summarizes one device sync run.
type SyncResult struct {
	Synced int      `json:"synced"`
	Errors []string `json:"errors,omitempty"`
}

// SyncEngine pulls the full device list from the provider and upserts
// each device independently. One malformed device must not take down the
// rest of the fleet, so per-device failures are collected rather than
// aborting the batch.
type SyncEngine struct {
	configs     *ConfigStore
	tokens      *TokenManager
	api         ProviderAPI
	devices     DeviceStore
	parallelism int
}

func NewSyncEngine(configs *ConfigStore, tokens *TokenManager, api ProviderAPI, devices DeviceStore, parallelism int) *SyncEngine {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &SyncEngine{
		configs:     configs,
		tokens:      tokens,
		api:         api,
		devices:     devices,
		parallelism: parallelism,
	}
}

// SyncDevices refreshes durable device state from the provider. Status
// transitions: syncing while running; connected on full or partial
// success (partial failures land in syncError); error only on a
// provider-level failure such as an invalid token.
func (e *SyncEngine) SyncDevices(ctx context.Context) (*SyncResult, error) {
	if err := e.configs.SetSyncState(ctx, models.SyncStatusSyncing, "", nil); err != nil {
		return nil, err
	}

	token := e.tokens.GetAccessToken(ctx)
	if token == "" {
		e.setError(ctx, "no access token available")
		return nil, fmt.Errorf("telemetry integration not configured")
	}

	providerDevices, err := e.api.ListDevices(ctx, token)
	if err != nil {
		e.setError(ctx, fmt.Sprintf("device listing failed: %v", err))
		return nil, err
	}

	result := e.upsertAll(ctx, providerDevices)

	now := time.Now()
	syncError := ""
	if len(result.Errors) > 0 {
		syncError = fmt.Sprintf("%d of %d devices failed: %s",
			len(result.Errors), len(providerDevices), strings.Join(result.Errors, "; "))
	}
	if err := e.configs.SetSyncState(ctx, models.SyncStatusConnected, syncError, &now); err != nil {
		log.Printf("Failed to record sync completion: %v", err)
	}
	return result, nil
}

// upsertAll runs per-device upserts with bounded parallelism. Devices
// are independent, so ordering between them does not matter.
func (e *SyncEngine) upsertAll(ctx context.Context, providerDevices []provider.Device) *SyncResult {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, e.parallelism)
		synced int
		errs   []string
	)

	for _, pd := range providerDevices {
		wg.Add(1)
		sem <- struct{}{}
		go func(pd provider.Device) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := e.upsertOne(ctx, pd); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Sprintf("device %s: %v", pd.IMEI, err))
				mu.Unlock()
				return
			}
			mu.Lock()
			synced++
			mu.Unlock()
		}(pd)
	}
	wg.Wait()

	sort.Strings(errs)
	return &SyncResult{Synced: synced, Errors: errs}
}

func (e *SyncEngine) upsertOne(ctx context.Context, pd provider.Device) error {
	if pd.IMEI == "" {
		return fmt.Errorf("missing hardware id")
	}

	state := &models.DeviceState{
		IMEI:     pd.IMEI,
		Name:     pd.Name,
		Online:   pd.Online,
		LastSeen: pd.LastSeen,
	}
	if pd.FixTime != nil {
		state.Latitude = pd.Latitude
		state.Longitude = pd.Longitude
		state.Speed = pd.Speed
		state.Heading = pd.Heading
		state.Altitude = pd.Altitude
		state.Accuracy = pd.Accuracy
		state.LocationUpdatedAt = pd.FixTime
	}
	if pd.BatteryVoltage > 0 || pd.Odometer > 0 || len(pd.DiagnosticCodes) > 0 {
		now := time.Now()
		state.Diagnostics = models.DeviceDiagnostics{
			BatteryVoltage:  pd.BatteryVoltage,
			FuelLevel:       pd.FuelLevel,
			FuelRange:       pd.FuelRange,
			Odometer:        pd.Odometer,
			CheckEngine:     pd.CheckEngine,
			DiagnosticCodes: pd.DiagnosticCodes,
			UpdatedAt:       &now,
		}
	}

	return e.devices.Upsert(ctx, state)
}

func (e *SyncEngine) setError(ctx context.Context, reason string) {
	if err := e.configs.SetSyncState(ctx, models.SyncStatusError, reason, nil); err != nil {
		log.Printf("Failed to record sync error: %v", err)
	}
}
