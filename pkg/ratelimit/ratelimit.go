package ratelimit

import (
	"context"
	"time"
)

// Limit is a fixed-window request budget for one category.
type Limit struct {
	Requests int           `json:"requests"`
	Window   time.Duration `json:"window"`
}

// Limiter is the rate limiting contract shared by the in-memory and
// Redis implementations.
type Limiter interface {
	Allow(ctx context.Context, clientID, category string) (bool, time.Duration, error)
}

// Config holds rate limit budgets per route category.
type Config struct {
	Limits    map[string]Limit `json:"limits"`
	KeyPrefix string           `json:"keyPrefix"`
	Enabled   bool             `json:"enabled"`
}

// DefaultConfig returns the budgets for the telemetry API. The webhook
// budget is sized for a full fleet reporting every few seconds; login
// is tight because it is the brute-force surface.
func DefaultConfig() *Config {
	return &Config{
		Limits: map[string]Limit{
			"webhook":    {Requests: 600, Window: time.Minute},
			"auth_login": {Requests: 5, Window: time.Minute},
			"telemetry":  {Requests: 240, Window: time.Minute},
			"health":     {Requests: 1000, Window: time.Minute},
			"default":    {Requests: 120, Window: time.Minute},
		},
		KeyPrefix: "ratelimit:",
		Enabled:   true,
	}
}

// Budget resolves the limit for a category, falling back to the
// default budget.
func (c *Config) Budget(category string) Limit {
	if limit, ok := c.Limits[category]; ok {
		return limit
	}
	if limit, ok := c.Limits["default"]; ok {
		return limit
	}
	return Limit{Requests: 60, Window: time.Minute}
}
