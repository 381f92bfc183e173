package websocket

import (
	"testing"
	"time"

	"medtransit-telemetry/internal/alerts"
	"medtransit-telemetry/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func locationMsg(imei, vehicleID string) Message {
	return Message{
		Type: MessageTypeLocation,
		Data: services.LocationUpdate{
			IMEI:      imei,
			VehicleID: vehicleID,
			Latitude:  40.7,
			Longitude: -74.0,
			Timestamp: time.Now(),
		},
	}
}

func TestMatches(t *testing.T) {
	msg := locationMsg("867000000000001", "veh-1")

	assert.True(t, matches(Filters{}, msg), "empty filters receive everything")
	assert.True(t, matches(Filters{IMEIs: []string{"867000000000001"}}, msg))
	assert.True(t, matches(Filters{VehicleIDs: []string{"veh-1"}}, msg))
	assert.False(t, matches(Filters{IMEIs: []string{"860000000000099"}}, msg))
	assert.False(t, matches(Filters{VehicleIDs: []string{"veh-2"}}, msg))

	alert := Message{Type: MessageTypeAlert, Data: alerts.MaintenanceAlert{IMEI: "867000000000001"}}
	assert.True(t, matches(Filters{IMEIs: []string{"867000000000001"}}, alert))
	assert.False(t, matches(Filters{IMEIs: []string{"860000000000099"}}, alert))
}

func TestHub_FanOutRespectsFilters(t *testing.T) {
	hub := NewHub()

	all := &Client{ID: "all", Send: make(chan Message, 4)}
	filtered := &Client{ID: "filtered", Send: make(chan Message, 4), Filters: Filters{IMEIs: []string{"860000000000099"}}}
	hub.clients[all.ID] = all
	hub.clients[filtered.ID] = filtered

	hub.fanOut(locationMsg("867000000000001", "veh-1"))

	require.Len(t, all.Send, 1)
	msg := <-all.Send
	assert.Equal(t, MessageTypeLocation, msg.Type)
	assert.Empty(t, filtered.Send)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	slow := &Client{ID: "slow", Send: make(chan Message)}
	hub.clients[slow.ID] = slow

	done := make(chan struct{})
	go func() {
		hub.fanOut(locationMsg("867000000000001", "veh-1"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fan-out blocked on a slow subscriber")
	}
}

func TestHub_BroadcastLocationEnqueues(t *testing.T) {
	hub := NewHub()

	hub.BroadcastLocation(services.LocationUpdate{IMEI: "867000000000001", Timestamp: time.Now()})
	require.Len(t, hub.broadcast, 1)
	msg := <-hub.broadcast
	assert.Equal(t, MessageTypeLocation, msg.Type)

	hub.Publish(alerts.MaintenanceAlert{IMEI: "867000000000001", Type: alerts.TypeLowBattery, Timestamp: time.Now()})
	msg = <-hub.broadcast
	assert.Equal(t, MessageTypeAlert, msg.Type)
}

func TestHub_Stats(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.Stats().Clients)
	hub.clients["a"] = &Client{ID: "a", Send: make(chan Message, 1)}
	assert.Equal(t, 1, hub.Stats().Clients)
}
