package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"medtransit-telemetry/internal/alerts"
	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/repository"
)

// Battery voltage under this threshold triggers a maintenance alert.
const lowBatteryVoltage = 11.8

// Ingest outcome states.
const (
	IngestRejected  = "rejected"
	IngestLogged    = "logged"    // event persisted, handler failed
	IngestProcessed = "processed" // event persisted and handled
)

// IngestResult reports how one inbound webhook call was handled.
type IngestResult struct {
	Status     string
	Reason     string
	Event      *models.TelemetryEvent
	HandlerErr error
}

// WebhookPayload is the provider's inbound event envelope.
type WebhookPayload struct {
	Event     string    `json:"event"`
	IMEI      string    `json:"imei"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// EventData carries the per-event-type fields. Unused fields stay zero.
type EventData struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`

	TripID         string  `json:"trip_id,omitempty"`
	DistanceKm     float64 `json:"distance_km,omitempty"`
	DurationSec    int     `json:"duration_sec,omitempty"`
	MaxSpeed       float64 `json:"max_speed,omitempty"`
	AvgSpeed       float64 `json:"avg_speed,omitempty"`
	FuelUsed       float64 `json:"fuel_used,omitempty"`
	HardBrakes     int     `json:"hard_brakes,omitempty"`
	RapidAccels    int     `json:"rapid_accels,omitempty"`
	SpeedingEvents int     `json:"speeding_events,omitempty"`
	EncodedRoute   string  `json:"encoded_route,omitempty"`
	IdleMinutes    int     `json:"idle_minutes,omitempty"`

	BatteryVoltage *float64 `json:"battery_voltage,omitempty"`
	FuelLevel      *float64 `json:"fuel_level,omitempty"`
	FuelRange      *float64 `json:"fuel_range,omitempty"`
	Odometer       *float64 `json:"odometer,omitempty"`
	Code           string   `json:"code,omitempty"`
	CheckEngine    *bool    `json:"check_engine,omitempty"`
}

// LocationUpdate is pushed to live dashboard subscribers after a
// location event lands.
type LocationUpdate struct {
	IMEI      string    `json:"imei"`
	VehicleID string    `json:"vehicleId,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Timestamp time.Time `json:"timestamp"`
}

// LocationBroadcaster pushes live location updates to subscribers.
type LocationBroadcaster interface {
	BroadcastLocation(update LocationUpdate)
}

// WebhookIngestor validates, logs and dispatches inbound telemetry
// events. The event log row is written before any handler runs and is
// never rolled back: a handler failure leaves the row unprocessed for
// inspection or replay.
type WebhookIngestor struct {
	configs     *ConfigStore
	devices     DeviceStore
	events      EventStore
	deviceTrips DeviceTripStore
	geofence    *GeofenceEvaluator
	alerts      alerts.Publisher
	broadcaster LocationBroadcaster
}

func NewWebhookIngestor(configs *ConfigStore, devices DeviceStore, events EventStore, deviceTrips DeviceTripStore) *WebhookIngestor {
	return &WebhookIngestor{
		configs:     configs,
		devices:     devices,
		events:      events,
		deviceTrips: deviceTrips,
		alerts:      alerts.LogPublisher{},
	}
}

// SetGeofenceEvaluator wires arrival detection for location events.
func (i *WebhookIngestor) SetGeofenceEvaluator(g *GeofenceEvaluator) {
	i.geofence = g
}

// SetAlertPublisher wires the outbound maintenance alert boundary.
func (i *WebhookIngestor) SetAlertPublisher(p alerts.Publisher) {
	i.alerts = p
}

// SetLocationBroadcaster wires live location pushes.
func (i *WebhookIngestor) SetLocationBroadcaster(b LocationBroadcaster) {
	i.broadcaster = b
}

// Ingest runs the full pipeline for one raw webhook body:
// validate signature -> resolve device -> append event log -> dispatch
// handler -> stamp processed.
func (i *WebhookIngestor) Ingest(ctx context.Context, rawBody []byte, signature string) (*IngestResult, error) {
	cfg, err := i.configs.Get(ctx)
	if err != nil {
		return nil, err
	}

	secret := ""
	if cfg != nil {
		secret = cfg.WebhookSecret
	}
	if !ValidateSignature(rawBody, signature, secret) {
		return &IngestResult{Status: IngestRejected, Reason: "invalid signature"}, nil
	}

	var payload WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return &IngestResult{Status: IngestRejected, Reason: "malformed payload"}, nil
	}
	if payload.IMEI == "" || !isKnownEventType(payload.Event) {
		return &IngestResult{Status: IngestRejected, Reason: "unknown event type or missing imei"}, nil
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}

	// Unknown devices are rejected rather than auto-provisioned so an
	// unsolicited webhook cannot inject a spoofed device.
	device, err := i.devices.FindByIMEI(ctx, payload.IMEI)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &IngestResult{Status: IngestRejected, Reason: "device not found"}, nil
		}
		return nil, err
	}

	event := &models.TelemetryEvent{
		IMEI:       payload.IMEI,
		Type:       payload.Event,
		Latitude:   payload.Data.Latitude,
		Longitude:  payload.Data.Longitude,
		Speed:      payload.Data.Speed,
		Heading:    payload.Data.Heading,
		Timestamp:  payload.Timestamp,
		RawPayload: string(rawBody),
		ReceivedAt: time.Now(),
	}
	event, err = i.events.Insert(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to log telemetry event: %w", err)
	}

	if handlerErr := i.dispatch(ctx, device, &payload); handlerErr != nil {
		log.Printf("Handler for %s event on device %s failed: %v", payload.Event, payload.IMEI, handlerErr)
		return &IngestResult{Status: IngestLogged, Event: event, HandlerErr: handlerErr}, nil
	}

	if err := i.events.MarkProcessed(ctx, event.ID); err != nil {
		log.Printf("Failed to stamp event %s processed: %v", event.ID.Hex(), err)
	}
	return &IngestResult{Status: IngestProcessed, Event: event}, nil
}

func (i *WebhookIngestor) dispatch(ctx context.Context, device *models.DeviceState, payload *WebhookPayload) error {
	switch payload.Event {
	case models.EventTypeLocation:
		return i.handleLocation(ctx, device, payload)
	case models.EventTypeTripStart:
		return i.handleTripStart(ctx, device, payload)
	case models.EventTypeTripEnd:
		return i.handleTripEnd(ctx, device, payload)
	case models.EventTypeSpeeding:
		return i.handleBehavior(ctx, device, "speeding", 1)
	case models.EventTypeHardBrake:
		return i.handleBehavior(ctx, device, "hard_braking", 1)
	case models.EventTypeRapidAccel:
		return i.handleBehavior(ctx, device, "rapid_acceleration", 1)
	case models.EventTypeIdle:
		minutes := payload.Data.IdleMinutes
		if minutes <= 0 {
			minutes = 1
		}
		return i.handleBehavior(ctx, device, "idle_minutes", minutes)
	case models.EventTypeDiagnosticCode, models.EventTypeBattery, models.EventTypeCheckEngine:
		return i.handleDiagnostics(ctx, device, payload)
	default:
		return fmt.Errorf("unhandled event type %q", payload.Event)
	}
}

func (i *WebhookIngestor) handleLocation(ctx context.Context, device *models.DeviceState, payload *WebhookPayload) error {
	if payload.Data.Latitude == nil || payload.Data.Longitude == nil {
		return fmt.Errorf("location event without coordinates")
	}
	lat, lng := *payload.Data.Latitude, *payload.Data.Longitude
	speed := valueOrZero(payload.Data.Speed)
	heading := valueOrZero(payload.Data.Heading)

	applied, err := i.devices.UpdateLocationIfNewer(ctx, device.IMEI, lat, lng, speed, heading, payload.Timestamp)
	if err != nil {
		return err
	}
	if !applied {
		// Out-of-order delivery: an older fix never overwrites a newer
		// one. The event stays in the log; nothing else to do.
		return nil
	}

	if i.broadcaster != nil {
		i.broadcaster.BroadcastLocation(LocationUpdate{
			IMEI:      device.IMEI,
			VehicleID: device.VehicleID,
			Latitude:  lat,
			Longitude: lng,
			Speed:     speed,
			Heading:   heading,
			Timestamp: payload.Timestamp,
		})
	}

	// Geofence evaluation runs after the location write so a geofence
	// bug can never cost position data.
	flags := i.configs.Features(ctx)
	if flags.Geofencing && flags.AutoStatusUpdate && i.geofence != nil {
		if err := i.geofence.Evaluate(ctx, device.IMEI, lat, lng); err != nil {
			log.Printf("Geofence evaluation failed for device %s: %v", device.IMEI, err)
		}
	}
	return nil
}

func (i *WebhookIngestor) handleTripStart(ctx context.Context, device *models.DeviceState, payload *WebhookPayload) error {
	start := payload.Timestamp
	if err := i.devices.SetTripState(ctx, device.IMEI, true, &start); err != nil {
		return err
	}

	trip := &models.DeviceTrip{
		IMEI:           device.IMEI,
		ProviderTripID: payload.Data.TripID,
		StartTime:      start,
		StartLatitude:  valueOrZero(payload.Data.Latitude),
		StartLongitude: valueOrZero(payload.Data.Longitude),
	}
	_, err := i.deviceTrips.Create(ctx, trip)
	return err
}

func (i *WebhookIngestor) handleTripEnd(ctx context.Context, device *models.DeviceState, payload *WebhookPayload) error {
	if err := i.devices.SetTripState(ctx, device.IMEI, false, nil); err != nil {
		return err
	}

	end := payload.Timestamp
	final := models.DeviceTrip{
		EndTime:        &end,
		EndLatitude:    valueOrZero(payload.Data.Latitude),
		EndLongitude:   valueOrZero(payload.Data.Longitude),
		DistanceKm:     payload.Data.DistanceKm,
		DurationSec:    payload.Data.DurationSec,
		MaxSpeed:       payload.Data.MaxSpeed,
		AvgSpeed:       payload.Data.AvgSpeed,
		FuelUsed:       payload.Data.FuelUsed,
		HardBrakes:     payload.Data.HardBrakes,
		RapidAccels:    payload.Data.RapidAccels,
		SpeedingEvents: payload.Data.SpeedingEvents,
		EncodedRoute:   payload.Data.EncodedRoute,
	}
	err := i.deviceTrips.Finalize(ctx, device.IMEI, payload.Data.TripID, final)
	if errors.Is(err, repository.ErrNotFound) {
		// trip_end without a matching trip_start; the device state flip
		// above is still the right outcome.
		log.Printf("No open trip %q for device %s", payload.Data.TripID, device.IMEI)
		return nil
	}
	return err
}

func (i *WebhookIngestor) handleBehavior(ctx context.Context, device *models.DeviceState, counter string, delta int) error {
	if !i.configs.Features(ctx).DriverBehavior {
		return nil
	}
	return i.devices.IncrementBehavior(ctx, device.IMEI, counter, delta)
}

func (i *WebhookIngestor) handleDiagnostics(ctx context.Context, device *models.DeviceState, payload *WebhookPayload) error {
	now := time.Now()
	diag := device.Diagnostics
	diag.UpdatedAt = &now

	if payload.Data.BatteryVoltage != nil {
		diag.BatteryVoltage = *payload.Data.BatteryVoltage
	}
	if payload.Data.FuelLevel != nil {
		diag.FuelLevel = *payload.Data.FuelLevel
	}
	if payload.Data.FuelRange != nil {
		diag.FuelRange = *payload.Data.FuelRange
	}
	if payload.Data.Odometer != nil {
		diag.Odometer = *payload.Data.Odometer
	}
	if payload.Data.CheckEngine != nil {
		diag.CheckEngine = *payload.Data.CheckEngine
	}
	if payload.Data.Code != "" && !containsString(diag.DiagnosticCodes, payload.Data.Code) {
		diag.DiagnosticCodes = append(diag.DiagnosticCodes, payload.Data.Code)
	}

	if err := i.devices.UpdateDiagnostics(ctx, device.IMEI, diag); err != nil {
		return err
	}

	if i.configs.Features(ctx).MaintenanceAlerts {
		i.publishMaintenanceAlerts(device, payload, diag)
	}
	return nil
}

func (i *WebhookIngestor) publishMaintenanceAlerts(device *models.DeviceState, payload *WebhookPayload, diag models.DeviceDiagnostics) {
	base := alerts.MaintenanceAlert{
		IMEI:      device.IMEI,
		VehicleID: device.VehicleID,
		Timestamp: payload.Timestamp,
	}

	if payload.Data.BatteryVoltage != nil && *payload.Data.BatteryVoltage < lowBatteryVoltage {
		alert := base
		alert.Type = alerts.TypeLowBattery
		alert.Severity = alerts.SeverityHigh
		alert.Message = fmt.Sprintf("Battery voltage %.1fV below %.1fV", *payload.Data.BatteryVoltage, lowBatteryVoltage)
		i.alerts.Publish(alert)
	}
	if payload.Data.Code != "" {
		alert := base
		alert.Type = alerts.TypeDiagnosticCode
		alert.Severity = alerts.SeverityMedium
		alert.Message = fmt.Sprintf("Diagnostic code %s reported", payload.Data.Code)
		i.alerts.Publish(alert)
	}
	if payload.Data.CheckEngine != nil && *payload.Data.CheckEngine {
		alert := base
		alert.Type = alerts.TypeCheckEngine
		alert.Severity = alerts.SeverityHigh
		alert.Message = "Check engine light on"
		i.alerts.Publish(alert)
	}
}

// ValidateSignature checks the HMAC-SHA256 hex signature over the raw
// body. No configured secret means validation is skipped (not yet
// configured is not a security failure); a configured secret with a
// missing header is a rejection.
func ValidateSignature(rawBody []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func isKnownEventType(eventType string) bool {
	return containsString(models.KnownEventTypes, eventType)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func valueOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
