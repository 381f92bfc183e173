package redis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"medtransit-telemetry/internal/config"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	client      *redis.Client
	config      config.RedisConfig
	mu          sync.RWMutex
	isConnected bool
}

type HealthStatus struct {
	IsConnected    bool          `json:"isConnected"`
	LastPing       time.Time     `json:"lastPing"`
	ResponseTime   time.Duration `json:"responseTime"`
	ConnectionInfo string        `json:"connectionInfo"`
	Error          string        `json:"error,omitempty"`
}

// NewClient creates a Redis client from either a URL or host:port config.
func NewClient(cfg config.RedisConfig) *Client {
	c := &Client{config: cfg}
	c.connect()
	return c
}

func (c *Client) connect() {
	var opt *redis.Options
	if c.config.URL != "" {
		parsed, err := redis.ParseURL(c.config.URL)
		if err != nil {
			log.Printf("Failed to parse Redis URL: %v, falling back to host:port", err)
		} else {
			opt = parsed
		}
	}
	if opt == nil {
		opt = &redis.Options{
			Addr:     fmt.Sprintf("%s:%s", c.config.Host, c.config.Port),
			Password: c.config.Password,
			DB:       c.config.DB,
		}
	}

	c.mu.Lock()
	c.client = redis.NewClient(opt)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.client.Ping(ctx).Err()
	c.mu.Lock()
	c.isConnected = err == nil
	c.mu.Unlock()

	if err != nil {
		log.Printf("Redis connection test failed: %v", err)
	}
}

// GetClient returns the underlying Redis client (thread-safe).
func (c *Client) GetClient() *redis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// IsConnected returns the last observed connection status.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// HealthCheck pings Redis and reports detailed status.
func (c *Client) HealthCheck() HealthStatus {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	status := HealthStatus{
		ConnectionInfo: fmt.Sprintf("%s:%s", c.config.Host, c.config.Port),
	}
	if client == nil {
		status.Error = "Redis client not initialized"
		return status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	err := client.Ping(ctx).Err()
	status.ResponseTime = time.Since(start)
	status.LastPing = time.Now()

	c.mu.Lock()
	c.isConnected = err == nil
	c.mu.Unlock()

	status.IsConnected = err == nil
	if err != nil {
		status.Error = err.Error()
	}
	return status
}

// Close shuts down the Redis client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
