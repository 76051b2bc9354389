package ws

import (
	"encoding/json"
	"sync"
)

// pairKey identifies one direction of a peer link inside a call room: the
// candidates and descriptions flowing from connection `from` toward
// connection `to`.
type pairKey struct {
	room string
	from string
	to   string
}

// CallRelay buffers ICE candidates that arrive before the target connection
// has received the corresponding session description. The relay never parses
// SDP or candidate contents; its only duty is ordering-preserving forwarding.
// Once a description has been forwarded from A to B, candidates from A can be
// forwarded to B immediately: B receives them after the description on the
// same ordered socket.
type CallRelay struct {
	mu        sync.Mutex
	described map[pairKey]bool
	pending   map[pairKey][]json.RawMessage
}

// NewCallRelay creates an empty relay.
func NewCallRelay() *CallRelay {
	return &CallRelay{
		described: make(map[pairKey]bool),
		pending:   make(map[pairKey][]json.RawMessage),
	}
}

// DescriptionForwarded records that a session description (offer or answer)
// from `from` has been forwarded to `to`, and drains the candidates that were
// queued for that direction, in arrival order. The queue is deleted after
// draining; it is only ever drained once.
func (r *CallRelay) DescriptionForwarded(room, from, to string) []json.RawMessage {
	key := pairKey{room: room, from: from, to: to}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.described[key] = true
	queued := r.pending[key]
	delete(r.pending, key)
	return queued
}

// QueueOrForward decides what to do with a candidate from `from` addressed to
// `to`: if the target already holds a description from the sender the
// candidate can be forwarded immediately (returns true), otherwise it is
// appended to the pending queue for that direction (returns false).
func (r *CallRelay) QueueOrForward(room, from, to string, candidate json.RawMessage) bool {
	key := pairKey{room: room, from: from, to: to}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.described[key] {
		return true
	}
	r.pending[key] = append(r.pending[key], candidate)
	return false
}

// DropFromRoom discards all pair state involving the connection within one
// room, used when a participant leaves a call but stays connected.
func (r *CallRelay) DropFromRoom(room, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.described {
		if key.room == room && (key.from == connID || key.to == connID) {
			delete(r.described, key)
		}
	}
	for key := range r.pending {
		if key.room == room && (key.from == connID || key.to == connID) {
			delete(r.pending, key)
		}
	}
}

// DropConnection discards all pair state involving the connection across all
// rooms, used on disconnect.
func (r *CallRelay) DropConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.described {
		if key.from == connID || key.to == connID {
			delete(r.described, key)
		}
	}
	for key := range r.pending {
		if key.from == connID || key.to == connID {
			delete(r.pending, key)
		}
	}
}

// PendingCandidates reports the total number of buffered candidates, for the
// metrics gauge.
func (r *CallRelay) PendingCandidates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, queue := range r.pending {
		total += len(queue)
	}
	return total
}
