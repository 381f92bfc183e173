package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sync status values for the telemetry provider integration.
const (
	SyncStatusDisconnected = "disconnected"
	SyncStatusSyncing      = "syncing"
	SyncStatusConnected    = "connected"
	SyncStatusError        = "error"
)

// FeatureFlags toggles individual telemetry capabilities. Every flag
// defaults to false; an absent IntegrationConfig means everything is off.
type FeatureFlags struct {
	RealTimeTracking  bool `bson:"real_time_tracking" json:"realTimeTracking"`
	Geofencing        bool `bson:"geofencing" json:"geofencing"`
	Diagnostics       bool `bson:"diagnostics" json:"diagnostics"`
	DriverBehavior    bool `bson:"driver_behavior" json:"driverBehavior"`
	Mileage           bool `bson:"mileage" json:"mileage"`
	FuelTracking      bool `bson:"fuel_tracking" json:"fuelTracking"`
	MaintenanceAlerts bool `bson:"maintenance_alerts" json:"maintenanceAlerts"`
	AutoStatusUpdate  bool `bson:"auto_status_update" json:"autoStatusUpdate"`
}

type IntegrationConfig struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Enabled          bool               `bson:"enabled" json:"enabled"`
	Features         FeatureFlags       `bson:"features" json:"features"`
	// Credential fields keep real JSON tags because the config round-trips
	// through the JSON cache store. API handlers expose a sanitized DTO
	// instead of this struct.
	ClientID         string             `bson:"client_id" json:"clientId"`
	ClientSecret     string             `bson:"client_secret" json:"clientSecret"`
	AccessToken      string             `bson:"access_token" json:"accessToken"`
	RefreshToken     string             `bson:"refresh_token" json:"refreshToken"`
	TokenExpiry      time.Time          `bson:"token_expiry" json:"tokenExpiry"`
	WebhookSecret    string             `bson:"webhook_secret" json:"webhookSecret"`
	GeofenceRadiusM  float64            `bson:"geofence_radius_m" json:"geofenceRadiusM"`
	SyncStatus       string             `bson:"sync_status" json:"syncStatus"`
	SyncError        string             `bson:"sync_error,omitempty" json:"syncError,omitempty"`
	LastSyncAt       *time.Time         `bson:"last_sync_at,omitempty" json:"lastSyncAt,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updatedAt"`
}

// TokenExpiringWithin reports whether the access token expires inside the
// given buffer from now.
func (c *IntegrationConfig) TokenExpiringWithin(buffer time.Duration) bool {
	return time.Now().Add(buffer).After(c.TokenExpiry)
}
