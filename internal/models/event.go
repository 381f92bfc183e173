package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Telemetry event types as delivered by the provider webhook.
const (
	EventTypeLocation       = "location"
	EventTypeTripStart      = "trip_start"
	EventTypeTripEnd        = "trip_end"
	EventTypeSpeeding       = "speeding"
	EventTypeHardBrake      = "hard_brake"
	EventTypeRapidAccel     = "rapid_accel"
	EventTypeIdle           = "idle"
	EventTypeDiagnosticCode = "diagnostic_code"
	EventTypeBattery        = "battery"
	EventTypeCheckEngine    = "check_engine"
)

// KnownEventTypes lists every event type the ingestor dispatches on.
var KnownEventTypes = []string{
	EventTypeLocation,
	EventTypeTripStart,
	EventTypeTripEnd,
	EventTypeSpeeding,
	EventTypeHardBrake,
	EventTypeRapidAccel,
	EventTypeIdle,
	EventTypeDiagnosticCode,
	EventTypeBattery,
	EventTypeCheckEngine,
}

// TelemetryEvent is an append-only log row for one inbound webhook call.
// Rows are never mutated after insert except to stamp ProcessedAt, which
// stays nil when a downstream handler fails so the raw event can be
// inspected or replayed.
type TelemetryEvent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IMEI        string             `bson:"imei" json:"imei"`
	Type        string             `bson:"type" json:"type"`
	Latitude    *float64           `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude   *float64           `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Speed       *float64           `bson:"speed,omitempty" json:"speed,omitempty"`
	Heading     *float64           `bson:"heading,omitempty" json:"heading,omitempty"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	RawPayload  string             `bson:"raw_payload" json:"rawPayload"`
	ReceivedAt  time.Time          `bson:"received_at" json:"receivedAt"`
	ProcessedAt *time.Time         `bson:"processed_at,omitempty" json:"processedAt,omitempty"`
}
