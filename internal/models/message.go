package models

import "time"

// Message represents a persisted conversation message.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ConversationID int       `db:"conversation_id" json:"conversation_id"`
	SenderID       int       `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	Pinned         bool      `db:"pinned" json:"pinned"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// MessageStatus is the derived per-message delivery state. It is never stored
// on the message row: "sent" and "delivered" are computed from room presence,
// "seen" corresponds to the persisted is_read flag.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)
