package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"medtransit-telemetry/internal/alerts"
	"medtransit-telemetry/internal/services"

	"github.com/gorilla/websocket"
)

// Hub fans live telemetry out to dashboard subscribers. It implements
// services.LocationBroadcaster on the ingest side and alerts.Publisher
// on the maintenance side; slow subscribers get dropped rather than
// backpressuring the webhook path.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	mutex      sync.RWMutex
	upgrader   websocket.Upgrader
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 1000),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		done: make(chan struct{}),
	}
}

// Start begins the hub's main loop.
func (h *Hub) Start() {
	go h.run()
	log.Println("Telemetry feed hub started")
}

// Stop closes every subscriber connection and stops the loop.
func (h *Hub) Stop() {
	close(h.done)

	h.mutex.Lock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}
	h.mutex.Unlock()

	log.Println("Telemetry feed hub stopped")
}

func (h *Hub) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			h.mutex.Unlock()
			log.Printf("Subscriber %s connected", client.ID)
			go h.handleClient(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				if client.Conn != nil {
					client.Conn.Close()
				}
			}
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.fanOut(msg)

		case <-ticker.C:
			h.reapStale()

		case <-h.done:
			return
		}
	}
}

// RegisterClient adds a new subscriber connection.
func (h *Hub) RegisterClient(clientID string, conn *websocket.Conn, filters Filters) {
	client := &Client{
		ID:       clientID,
		Conn:     conn,
		Filters:  filters,
		Send:     make(chan Message, 256),
		LastPing: time.Now(),
	}
	h.register <- client
}

// BroadcastLocation satisfies services.LocationBroadcaster.
func (h *Hub) BroadcastLocation(update services.LocationUpdate) {
	h.enqueue(Message{
		Type:      MessageTypeLocation,
		Data:      update,
		Timestamp: update.Timestamp,
	})
}

// Publish satisfies alerts.Publisher, forwarding maintenance alerts to
// the dashboard feed.
func (h *Hub) Publish(alert alerts.MaintenanceAlert) {
	h.enqueue(Message{
		Type:      MessageTypeAlert,
		Data:      alert,
		Timestamp: alert.Timestamp,
	})
}

func (h *Hub) enqueue(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		log.Printf("Feed backlog full, dropping %s message", msg.Type)
	}
}

// Stats returns current subscriber counts.
func (h *Hub) Stats() HubStats {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return HubStats{Clients: len(h.clients)}
}

// Upgrader exposes the shared upgrader for the HTTP handler.
func (h *Hub) Upgrader() *websocket.Upgrader {
	return &h.upgrader
}

func (h *Hub) fanOut(msg Message) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, client := range h.clients {
		if !matches(client.Filters, msg) {
			continue
		}
		select {
		case client.Send <- msg:
		default:
			log.Printf("Subscriber %s too slow, skipping message", client.ID)
		}
	}
}

// matches applies subscriber filters to one message. Alert messages
// filter on IMEI only; location messages filter on IMEI or vehicle ID.
func matches(filters Filters, msg Message) bool {
	if len(filters.IMEIs) == 0 && len(filters.VehicleIDs) == 0 {
		return true
	}

	var imei, vehicleID string
	switch data := msg.Data.(type) {
	case services.LocationUpdate:
		imei, vehicleID = data.IMEI, data.VehicleID
	case alerts.MaintenanceAlert:
		imei, vehicleID = data.IMEI, data.VehicleID
	default:
		return true
	}

	for _, id := range filters.IMEIs {
		if id == imei {
			return true
		}
	}
	for _, id := range filters.VehicleIDs {
		if id != "" && id == vehicleID {
			return true
		}
	}
	return false
}

func (h *Hub) handleClient(client *Client) {
	defer func() {
		h.unregister <- client
	}()

	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.LastPing = time.Now()
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.writeMessages(client)

	// Incoming traffic is pings and filter updates only.
	for {
		var message map[string]json.RawMessage
		if err := client.Conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Subscriber %s read error: %v", client.ID, err)
			}
			break
		}

		if raw, ok := message["filters"]; ok {
			var filters Filters
			if err := json.Unmarshal(raw, &filters); err == nil {
				client.Filters = filters
				log.Printf("Subscriber %s updated filters", client.ID)
			}
		}
	}
}

func (h *Hub) writeMessages(client *Client) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				log.Printf("Subscriber %s write error: %v", client.ID, err)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) reapStale() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	now := time.Now()
	for id, client := range h.clients {
		if now.Sub(client.LastPing) > 90*time.Second {
			log.Printf("Subscriber %s timed out", id)
			delete(h.clients, id)
			close(client.Send)
			if client.Conn != nil {
				client.Conn.Close()
			}
		}
	}
}
