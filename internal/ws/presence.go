package ws

import "sync"

// PresenceRegistry maps a user id to its single active connection. A user
// reconnecting from a new connection silently replaces the old mapping
// (last-write-wins); absence from the map means offline.
type PresenceRegistry struct {
	mu     sync.RWMutex
	byUser map[int]*Client
}

// NewPresenceRegistry creates an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{byUser: make(map[int]*Client)}
}

// SetOnline registers the connection for the user and reports whether the
// user transitioned offline→online. A reconnect replacing an existing
// connection returns false so no duplicate online broadcast is emitted.
func (r *PresenceRegistry) SetOnline(userID int, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, wasOnline := r.byUser[userID]
	r.byUser[userID] = c
	return !wasOnline
}

// SetOffline clears the mapping and reports whether the user transitioned
// online→offline. If the mapping has since been replaced by a newer
// connection the call is a no-op, so a stale disconnect never knocks a
// reconnected user offline.
func (r *PresenceRegistry) SetOffline(userID int, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byUser[userID]
	if !ok || current != c {
		return false
	}
	delete(r.byUser, userID)
	return true
}

// Lookup returns the user's active connection, if any.
func (r *PresenceRegistry) Lookup(userID int) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Online reports whether the user currently has an active connection.
func (r *PresenceRegistry) Online(userID int) bool {
	_, ok := r.Lookup(userID)
	return ok
}
