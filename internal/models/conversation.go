package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Conversation represents a private conversation between exactly two users.
type Conversation struct {
	ID        int       `db:"id" json:"id"`
	User1ID   int       `db:"user1_id" json:"user1_id"`
	User2ID   int       `db:"user2_id" json:"user2_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ConversationSummary provides API-friendly view of a conversation for a user.
type ConversationSummary struct {
	ConversationID int       `db:"id" json:"conversation_id"`
	PeerID         int       `json:"peer_id"`
	Created        time.Time `db:"created_at" json:"created_at"`
}

const conversationRoomPrefix = "conversation:"

// ConversationRoomID returns the room identifier clients join to receive
// live events for a conversation.
func ConversationRoomID(conversationID int) string {
	return fmt.Sprintf("%s%d", conversationRoomPrefix, conversationID)
}

// ParseConversationRoomID extracts the conversation id from a room identifier.
// The second return value is false for rooms that are not conversation rooms,
// e.g. call rooms.
func ParseConversationRoomID(roomID string) (int, bool) {
	if !strings.HasPrefix(roomID, conversationRoomPrefix) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(roomID, conversationRoomPrefix))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
