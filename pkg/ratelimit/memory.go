package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// MemoryLimiter is a fixed-window limiter backed by a local map. Used
// in single-instance deployments and tests.
type MemoryLimiter struct {
	config  *Config
	windows map[string]*window
	mu      sync.Mutex
}

func NewMemoryLimiter(config *Config) *MemoryLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	limiter := &MemoryLimiter{
		config:  config,
		windows: make(map[string]*window),
	}
	go limiter.sweep()
	return limiter
}

func (m *MemoryLimiter) Allow(_ context.Context, clientID, category string) (bool, time.Duration, error) {
	if !m.config.Enabled {
		return true, 0, nil
	}

	limit := m.config.Budget(category)
	key := clientID + ":" + category
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= limit.Window {
		m.windows[key] = &window{count: 1, start: now}
		return true, 0, nil
	}

	if w.count < limit.Requests {
		w.count++
		return true, 0, nil
	}
	return false, w.start.Add(limit.Window).Sub(now), nil
}

// sweep drops windows that ended long ago so the map does not grow
// with client churn.
func (m *MemoryLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		m.mu.Lock()
		for key, w := range m.windows {
			if w.start.Before(cutoff) {
				delete(m.windows, key)
			}
		}
		m.mu.Unlock()
	}
}
