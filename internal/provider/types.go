package provider

import "time"

// TokenResponse is the provider's OAuth token payload for both the
// authorization_code and refresh_token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Device is a provider-side device record as returned by GET /vehicles.
type Device struct {
	IMEI      string     `json:"imei"`
	Name      string     `json:"name"`
	Online    bool       `json:"online"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Speed     float64    `json:"speed"`
	Heading   float64    `json:"heading"`
	Altitude  float64    `json:"altitude"`
	Accuracy  float64    `json:"accuracy"`
	FixTime   *time.Time `json:"fix_time,omitempty"`

	BatteryVoltage  float64  `json:"battery_voltage"`
	FuelLevel       float64  `json:"fuel_level"`
	FuelRange       float64  `json:"fuel_range"`
	Odometer        float64  `json:"odometer"`
	CheckEngine     bool     `json:"check_engine"`
	DiagnosticCodes []string `json:"diagnostic_codes,omitempty"`
}

// Trip is a provider-side trip summary as returned by
// GET /vehicles/{id}/trips.
type Trip struct {
	ID             string     `json:"id"`
	IMEI           string     `json:"imei"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	StartLatitude  float64    `json:"start_latitude"`
	StartLongitude float64    `json:"start_longitude"`
	EndLatitude    float64    `json:"end_latitude"`
	EndLongitude   float64    `json:"end_longitude"`
	DistanceKm     float64    `json:"distance_km"`
	DurationSec    int        `json:"duration_sec"`
	MaxSpeed       float64    `json:"max_speed"`
	AvgSpeed       float64    `json:"avg_speed"`
	FuelUsed       float64    `json:"fuel_used"`
	EncodedRoute   string     `json:"encoded_route,omitempty"`
}

// WebhookRegistration is the payload for POST /webhooks.
type WebhookRegistration struct {
	URL        string   `json:"url"`
	EventTypes []string `json:"event_types"`
}
