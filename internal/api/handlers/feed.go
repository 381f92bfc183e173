package handlers

import (
	"log"
	"net/http"

	"medtransit-telemetry/internal/websocket"
	"medtransit-telemetry/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FeedHandler struct {
	hub *websocket.Hub
}

func NewFeedHandler(hub *websocket.Hub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

// Subscribe upgrades the connection and registers a live telemetry
// subscriber. Initial filters come from query parameters; clients can
// replace them later by sending {"filters": {...}}.
func (h *FeedHandler) Subscribe(c *gin.Context) {
	conn, err := h.hub.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "WebSocket upgrade failed", err)
		return
	}

	filters := websocket.Filters{
		IMEIs:      c.QueryArray("imei"),
		VehicleIDs: c.QueryArray("vehicleId"),
	}

	clientID := primitive.NewObjectID().Hex()
	h.hub.RegisterClient(clientID, conn, filters)
	log.Printf("Feed subscriber %s connected from %s", clientID, c.ClientIP())
}
