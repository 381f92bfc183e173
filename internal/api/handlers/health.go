package handlers

import (
	"context"
	"net/http"
	"time"

	"medtransit-telemetry/internal/websocket"
	"medtransit-telemetry/pkg/redis"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

type HealthHandler struct {
	db          *mongo.Database
	redisClient *redis.Client
	hub         *websocket.Hub
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]interface{} `json:"services"`
}

func NewHealthHandler(db *mongo.Database, redisClient *redis.Client, hub *websocket.Hub) *HealthHandler {
	return &HealthHandler{
		db:          db,
		redisClient: redisClient,
		hub:         hub,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Timestamp: time.Now(),
		Services:  make(map[string]interface{}),
	}

	overallHealthy := true

	mongoStatus := h.checkMongoDB()
	response.Services["mongodb"] = mongoStatus
	if !mongoStatus["healthy"].(bool) {
		overallHealthy = false
	}

	redisStatus := h.checkRedis()
	response.Services["redis"] = redisStatus
	if !redisStatus["healthy"].(bool) {
		overallHealthy = false
	}

	if h.hub != nil {
		response.Services["feed"] = map[string]interface{}{
			"healthy":     true,
			"subscribers": h.hub.Stats().Clients,
		}
	}

	if overallHealthy {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
	} else {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

func (h *HealthHandler) checkMongoDB() map[string]interface{} {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.db.Client().Ping(ctx, nil); err != nil {
		return map[string]interface{}{"healthy": false, "error": err.Error()}
	}
	return map[string]interface{}{"healthy": true}
}

func (h *HealthHandler) checkRedis() map[string]interface{} {
	if h.redisClient == nil {
		return map[string]interface{}{"healthy": false, "error": "not configured"}
	}

	status := h.redisClient.HealthCheck()
	if !status.IsConnected {
		return map[string]interface{}{"healthy": false, "error": status.Error}
	}
	return map[string]interface{}{
		"healthy":      true,
		"responseTime": status.ResponseTime.String(),
	}
}
