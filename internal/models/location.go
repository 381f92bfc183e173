package models

import "time"

// Location sources in fallback-chain priority order.
const (
	LocationSourceProvider     = "provider"
	LocationSourceSelfReported = "self_reported"
	LocationSourceLastKnown    = "last_known"
)

// ResolvedLocation is the single best current location for a vehicle or
// driver, as produced by the resolver's fallback chain. IsStale marks a
// fix older than the configured staleness window.
type ResolvedLocation struct {
	VehicleID string    `json:"vehicleId,omitempty"`
	DriverID  string    `json:"driverId,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed,omitempty"`
	Heading   float64   `json:"heading,omitempty"`
	Source    string    `json:"source"`
	IsStale   bool      `json:"isStale"`
	Timestamp time.Time `json:"timestamp"`
}
