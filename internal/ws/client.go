package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"call-service/internal/models"
)

// Client is the server-side handle for one websocket connection. A client is
// created on upgrade and destroyed on close; it is never persisted. Identity
// stays zero-valued until the connection authenticates via presence.online.
type Client struct {
	conn *websocket.Conn
	info ConnInfo

	mu       sync.RWMutex
	userID   int
	username string

	writeMu sync.Mutex
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, info: info}
}

// ConnID returns the server-assigned connection identifier.
func (c *Client) ConnID() string {
	return c.info.ConnID
}

// Info returns the connection metadata captured at upgrade time.
func (c *Client) Info() ConnInfo {
	return c.info
}

// SetIdentity binds the authenticated user to the connection. Only the
// connection's own read loop writes identity; broadcasting goroutines read it
// concurrently, hence the lock.
func (c *Client) SetIdentity(userID int, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.username = username
}

// UserID returns the authenticated user id, zero before authentication.
func (c *Client) UserID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Username returns the authenticated username, empty before authentication.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// Send marshals an event envelope and writes it to the connection. Writes are
// serialized; gorilla/websocket does not allow concurrent writers.
func (c *Client) Send(eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(models.Envelope{Type: eventType, Payload: body})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, envelope)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
