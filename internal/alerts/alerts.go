// Package alerts is the outbound boundary for maintenance alerts.
// Delivery (email, SMS, dashboards) belongs to the dispatch application;
// the telemetry core only publishes messages, so an alerting failure can
// never corrupt device state or block ingestion.
package alerts

import (
	"log"
	"time"
)

// Maintenance alert types emitted by the ingest path.
const (
	TypeLowBattery     = "low_battery"
	TypeDiagnosticCode = "diagnostic_code"
	TypeCheckEngine    = "check_engine"
)

// Severity levels, matching the dispatch application's alert model.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

type MaintenanceAlert struct {
	IMEI      string    `json:"imei"`
	VehicleID string    `json:"vehicleId,omitempty"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher hands an alert to the alerting collaborator. Implementations
// must not block the caller for long; publish failures are the
// publisher's problem, not the ingest path's.
type Publisher interface {
	Publish(alert MaintenanceAlert)
}

// ChannelPublisher buffers alerts on a channel for an in-process
// consumer. When the buffer is full the alert is dropped with a log
// line, never blocking ingestion.
type ChannelPublisher struct {
	ch chan MaintenanceAlert
}

func NewChannelPublisher(buffer int) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelPublisher{ch: make(chan MaintenanceAlert, buffer)}
}

func (p *ChannelPublisher) Publish(alert MaintenanceAlert) {
	select {
	case p.ch <- alert:
	default:
		log.Printf("Alert buffer full, dropping %s alert for device %s", alert.Type, alert.IMEI)
	}
}

// Alerts exposes the consumer side of the channel.
func (p *ChannelPublisher) Alerts() <-chan MaintenanceAlert {
	return p.ch
}

// LogPublisher writes alerts to the process log. Useful as a default
// when no consumer is wired.
type LogPublisher struct{}

func (LogPublisher) Publish(alert MaintenanceAlert) {
	log.Printf("Maintenance alert [%s] device=%s vehicle=%s: %s",
		alert.Severity, alert.IMEI, alert.VehicleID, alert.Message)
}
