package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(s string) json.RawMessage {
	return json.RawMessage(`{"candidate":"` + s + `"}`)
}

func TestCallRelayQueuesUntilDescription(t *testing.T) {
	relay := NewCallRelay()

	// Candidates before any description are buffered.
	assert.False(t, relay.QueueOrForward("r1", "a", "b", candidate("c1")))
	assert.False(t, relay.QueueOrForward("r1", "a", "b", candidate("c2")))
	assert.False(t, relay.QueueOrForward("r1", "a", "b", candidate("c3")))
	assert.Equal(t, 3, relay.PendingCandidates())

	// Forwarding the description drains the queue in arrival order.
	queued := relay.DescriptionForwarded("r1", "a", "b")
	require.Len(t, queued, 3)
	assert.Equal(t, candidate("c1"), queued[0])
	assert.Equal(t, candidate("c2"), queued[1])
	assert.Equal(t, candidate("c3"), queued[2])
	assert.Equal(t, 0, relay.PendingCandidates())

	// The queue is drained exactly once.
	assert.Empty(t, relay.DescriptionForwarded("r1", "a", "b"))

	// After the description, candidates flow immediately.
	assert.True(t, relay.QueueOrForward("r1", "a", "b", candidate("c4")))
}

func TestCallRelayDirectionsAreIndependent(t *testing.T) {
	relay := NewCallRelay()

	relay.QueueOrForward("r1", "a", "b", candidate("ab"))
	relay.QueueOrForward("r1", "b", "a", candidate("ba"))

	// The a→b description must not release b→a candidates.
	queued := relay.DescriptionForwarded("r1", "a", "b")
	require.Len(t, queued, 1)
	assert.Equal(t, candidate("ab"), queued[0])
	assert.Equal(t, 1, relay.PendingCandidates())

	queued = relay.DescriptionForwarded("r1", "b", "a")
	require.Len(t, queued, 1)
	assert.Equal(t, candidate("ba"), queued[0])
}

func TestCallRelayRoomsAreIndependent(t *testing.T) {
	relay := NewCallRelay()

	relay.DescriptionForwarded("r1", "a", "b")

	// Same pair in a different room still queues.
	assert.False(t, relay.QueueOrForward("r2", "a", "b", candidate("x")))
	assert.True(t, relay.QueueOrForward("r1", "a", "b", candidate("y")))
}

func TestCallRelayDropConnection(t *testing.T) {
	relay := NewCallRelay()

	relay.DescriptionForwarded("r1", "a", "b")
	relay.QueueOrForward("r1", "b", "a", candidate("c1"))
	relay.QueueOrForward("r1", "c", "a", candidate("c2"))
	relay.QueueOrForward("r1", "b", "c", candidate("c3"))

	relay.DropConnection("a")

	// Everything involving "a" is gone, the b→c queue survives.
	assert.Equal(t, 1, relay.PendingCandidates())
	assert.False(t, relay.QueueOrForward("r1", "a", "b", candidate("late")))
	assert.Empty(t, relay.DescriptionForwarded("r1", "b", "a"))
}

func TestCallRelayDropFromRoom(t *testing.T) {
	relay := NewCallRelay()

	relay.QueueOrForward("r1", "a", "b", candidate("c1"))
	relay.QueueOrForward("r2", "a", "b", candidate("c2"))
	relay.DescriptionForwarded("r1", "a", "b")

	relay.DropFromRoom("r1", "a")

	// r2 state is untouched.
	assert.Equal(t, 1, relay.PendingCandidates())
	queued := relay.DescriptionForwarded("r2", "a", "b")
	require.Len(t, queued, 1)
	assert.Equal(t, candidate("c2"), queued[0])

	// r1 lost its described flag, so candidates queue again.
	assert.False(t, relay.QueueOrForward("r1", "a", "b", candidate("c3")))
}
