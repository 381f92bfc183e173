package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Filters limits which updates a subscriber receives. Empty filters
// mean everything.
type Filters struct {
	IMEIs      []string `json:"imeis,omitempty"`
	VehicleIDs []string `json:"vehicleIds,omitempty"`
}

// Message is the envelope written to subscribers.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Message types.
const (
	MessageTypeLocation = "location_update"
	MessageTypeAlert    = "maintenance_alert"
)

// Client is one connected dashboard subscriber.
type Client struct {
	ID       string
	Conn     *websocket.Conn
	Filters  Filters
	Send     chan Message
	LastPing time.Time
}

// HubStats reports subscriber counts for the health endpoint.
type HubStats struct {
	Clients int `json:"clients"`
}
