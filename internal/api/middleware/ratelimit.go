package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medtransit-telemetry/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware throttles requests per client. A failing limiter
// backend never blocks traffic.
func RateLimitMiddleware(limiter ratelimit.Limiter, config *ratelimit.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := routeCategory(c)
		clientID := clientID(c)

		allowed, retry, err := limiter.Allow(c.Request.Context(), clientID, category)
		if err != nil {
			c.Header("X-RateLimit-Error", "Rate limiter unavailable")
			c.Next()
			return
		}

		budget := config.Budget(category)
		c.Header("X-RateLimit-Limit", strconv.Itoa(budget.Requests))
		c.Header("X-RateLimit-Window", strconv.Itoa(int(budget.Window.Seconds())))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "Rate limit exceeded",
				"message":    fmt.Sprintf("Too many requests. Try again in %v", retry.Round(time.Second)),
				"retryAfter": int(retry.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// routeCategory maps a request to its rate limit budget.
func routeCategory(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/webhooks"):
		return "webhook"
	case path == "/api/v1/auth/login":
		return "auth_login"
	case path == "/api/v1/health":
		return "health"
	case strings.HasPrefix(path, "/api/v1/telemetry"):
		return "telemetry"
	default:
		return "default"
	}
}

// clientID identifies the caller: authenticated user when present,
// source IP otherwise.
func clientID(c *gin.Context) string {
	if userID := c.GetString("user_id"); userID != "" {
		return "user:" + userID
	}
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return "ip:" + strings.TrimSpace(ips[0])
	}
	return "ip:" + c.ClientIP()
}
