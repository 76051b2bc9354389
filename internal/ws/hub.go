package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"call-service/internal/observability"
)

// Hub maintains every active websocket connection together with the room
// membership directory and the presence registry. It is the single fan-out
// point: all broadcasts go through it so write failures are cleaned up in one
// place.
type Hub struct {
	Rooms    *RoomDirectory
	Presence *PresenceRegistry

	mu       sync.RWMutex
	clients  map[*Client]bool
	byConnID map[string]*Client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		Rooms:    NewRoomDirectory(),
		Presence: NewPresenceRegistry(),
		clients:  make(map[*Client]bool),
		byConnID: make(map[string]*Client),
	}
}

// Register adds a freshly upgraded connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	h.byConnID[c.ConnID()] = c
}

// Unregister removes a connection from the hub. Room and presence cleanup is
// the caller's responsibility (teardown order matters there).
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	delete(h.byConnID, c.ConnID())
}

// ByConnID resolves a connection id to its client, if still connected.
func (h *Hub) ByConnID(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.byConnID[connID]
	return c, ok
}

// BroadcastAll sends an event to every connection except the origin. Used for
// presence transitions, which every client mirrors in its contact list.
func (h *Hub) BroadcastAll(origin *Client, eventType string, payload any) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c != origin {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.send(c, eventType, payload)
	}
}

// BroadcastRoom sends an event to every member of a room, the origin included.
func (h *Hub) BroadcastRoom(roomID, eventType string, payload any) {
	for _, c := range h.Rooms.Members(roomID) {
		h.send(c, eventType, payload)
	}
}

// BroadcastRoomExcept sends an event to every member of a room but the origin.
func (h *Hub) BroadcastRoomExcept(roomID string, origin *Client, eventType string, payload any) {
	for _, c := range h.Rooms.Members(roomID) {
		if c != origin {
			h.send(c, eventType, payload)
		}
	}
}

// SendTo sends an event to a single connection.
func (h *Hub) SendTo(c *Client, eventType string, payload any) {
	h.send(c, eventType, payload)
}

func (h *Hub) send(c *Client, eventType string, payload any) {
	if err := c.Send(eventType, payload); err != nil {
		log.Printf("websocket write error: %v", err)
		// Closing the conn fails the read loop, whose teardown owns room
		// removal; stripping memberships here would swallow the peer-left
		// broadcasts the remaining call participants rely on.
		c.Close()
		h.Unregister(c)
		h.publishWSError(c, err)
	}
}

func (h *Hub) publishWSError(c *Client, err error) {
	info := c.Info()
	envelope := observability.SocketEnvelope(observability.SocketLifecycle{
		Event:      "ws_error",
		ConnID:     info.ConnID,
		DurationMS: time.Since(info.ConnectedAt).Milliseconds(),
		Reason:     err.Error(),
	}, observability.SocketIdentity{
		UserID:   c.UserID(),
		DeviceID: info.DeviceID,
		IP:       info.IP,
	})
	_ = observability.PublishEvent(context.Background(), "ws_events.sockets", envelope, observability.BuildHeaders(info.RequestID, info.TraceID))
	observability.IncWSEvent("socket", "ws_error")
}
