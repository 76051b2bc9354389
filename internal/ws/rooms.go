package ws

import "sync"

// RoomDirectory tracks which connections are joined to which rooms. A
// connection can be in several rooms at once (one per open conversation plus
// a call room), so the reverse index keeps disconnect cleanup proportional to
// the rooms the connection actually joined.
type RoomDirectory struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]bool
	byClient map[*Client]map[string]bool
}

// NewRoomDirectory creates an empty directory.
func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{
		rooms:    make(map[string]map[*Client]bool),
		byClient: make(map[*Client]map[string]bool),
	}
}

// Join adds the client to a room. Joining a room the client is already in is
// a no-op; the return value reports whether membership actually changed.
func (d *RoomDirectory) Join(roomID string, c *Client) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rooms[roomID][c] {
		return false
	}
	if _, ok := d.rooms[roomID]; !ok {
		d.rooms[roomID] = make(map[*Client]bool)
	}
	d.rooms[roomID][c] = true
	if _, ok := d.byClient[c]; !ok {
		d.byClient[c] = make(map[string]bool)
	}
	d.byClient[c][roomID] = true
	return true
}

// Leave removes the client from a room and reports whether it was a member.
func (d *RoomDirectory) Leave(roomID string, c *Client) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leaveLocked(roomID, c)
}

func (d *RoomDirectory) leaveLocked(roomID string, c *Client) bool {
	members, ok := d.rooms[roomID]
	if !ok || !members[c] {
		return false
	}
	delete(members, c)
	if len(members) == 0 {
		delete(d.rooms, roomID)
	}
	if rooms, ok := d.byClient[c]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(d.byClient, c)
		}
	}
	return true
}

// Members returns a snapshot of the room's current members.
func (d *RoomDirectory) Members(roomID string) []*Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	members := make([]*Client, 0, len(d.rooms[roomID]))
	for c := range d.rooms[roomID] {
		members = append(members, c)
	}
	return members
}

// Contains reports whether the client is currently a member of the room.
func (d *RoomDirectory) Contains(roomID string, c *Client) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rooms[roomID][c]
}

// Rooms returns a snapshot of the rooms the client is joined to.
func (d *RoomDirectory) Rooms(c *Client) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rooms := make([]string, 0, len(d.byClient[c]))
	for roomID := range d.byClient[c] {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// RemoveEverywhere removes the client from every room it joined and returns
// the affected room ids, so the caller can emit one departure event per room.
func (d *RoomDirectory) RemoveEverywhere(c *Client) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	rooms := make([]string, 0, len(d.byClient[c]))
	for roomID := range d.byClient[c] {
		rooms = append(rooms, roomID)
	}
	for _, roomID := range rooms {
		d.leaveLocked(roomID, c)
	}
	return rooms
}
