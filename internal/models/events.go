package models

import "encoding/json"

// Event types received from clients.
const (
	EventPresenceOnline  = "presence.online"
	EventRoomJoin        = "room.join"
	EventRoomLeave       = "room.leave"
	EventCallJoin        = "call.join"
	EventCallLeave       = "call.leave"
	EventCallOffer       = "call.offer"
	EventCallAnswer      = "call.answer"
	EventCallIce         = "call.ice"
	EventCallToggleMedia = "call.toggleMedia"
	EventMessageSend     = "message.send"
	EventMessageSeen     = "message.seen"
	EventTypingStart     = "typing.start"
	EventTypingStop      = "typing.stop"
)

// Event types sent to clients.
const (
	EventPresenceStatus        = "presence.status"
	EventCallExistingMembers   = "call.existingMembers"
	EventCallPeerJoined        = "call.peerJoined"
	EventCallPeerLeft          = "call.peerLeft"
	EventCallMediaToggled      = "call.mediaToggled"
	EventMessageNew            = "message.new"
	EventMessageStatusChanged  = "message.statusChanged"
	EventMessageUnreadCount    = "message.unreadCount"
	EventMessageError          = "message.error"
	EventTypingUserTyping      = "typing.userTyping"
	EventTypingUserStopped     = "typing.userStoppedTyping"
	EventError                 = "error"
)

// Envelope frames every event on the websocket in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PresenceOnlinePayload authenticates the connection.
type PresenceOnlinePayload struct {
	Credential string `json:"credential"`
}

// PresenceStatusPayload announces a user presence transition.
type PresenceStatusPayload struct {
	UserID int  `json:"user_id"`
	Online bool `json:"online"`
}

// RoomPayload carries a bare room identifier for join/leave.
type RoomPayload struct {
	RoomID string `json:"room_id"`
}

// CallJoinPayload enters a call room.
type CallJoinPayload struct {
	RoomID string `json:"room_id"`
	UserID int    `json:"user_id"`
}

// SignalPayload carries an SDP offer or answer addressed to a connection.
type SignalPayload struct {
	RoomID string          `json:"room_id"`
	Target string          `json:"target"`
	SDP    json.RawMessage `json:"sdp"`
}

// IcePayload carries a single ICE candidate addressed to a connection.
type IcePayload struct {
	RoomID    string          `json:"room_id"`
	Target    string          `json:"target"`
	Candidate json.RawMessage `json:"candidate"`
}

// SignalForward is what the target connection receives for offer/answer.
type SignalForward struct {
	RoomID string          `json:"room_id"`
	From   string          `json:"from"`
	SDP    json.RawMessage `json:"sdp"`
}

// IceForward is what the target connection receives for a candidate.
type IceForward struct {
	RoomID    string          `json:"room_id"`
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

// ToggleMediaPayload mirrors a local mute/camera flip to the room.
type ToggleMediaPayload struct {
	RoomID  string `json:"room_id"`
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
}

// MediaToggledPayload is the fan-out form of a media toggle.
type MediaToggledPayload struct {
	ConnID  string `json:"conn_id"`
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
}

// PeerInfo describes a call participant to other participants.
type PeerInfo struct {
	ConnID   string `json:"conn_id"`
	UserID   int    `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// ExistingMembersPayload is sent to a joiner; the joiner is expected to
// initiate an offer toward every listed member.
type ExistingMembersPayload struct {
	RoomID  string     `json:"room_id"`
	Members []PeerInfo `json:"members"`
}

// PeerLeftPayload tells remaining members to tear down a peer link.
type PeerLeftPayload struct {
	RoomID string `json:"room_id"`
	ConnID string `json:"conn_id"`
}

// MessageSendPayload creates a message in a conversation.
type MessageSendPayload struct {
	ConversationID int    `json:"conversation_id"`
	SenderID       int    `json:"sender_id"`
	Content        string `json:"content"`
}

// MessageSeenPayload marks a message as seen by a recipient.
type MessageSeenPayload struct {
	MessageID int `json:"message_id"`
	UserID    int `json:"user_id"`
}

// MessageNewPayload broadcasts a freshly persisted message together with its
// derived delivery status.
type MessageNewPayload struct {
	Message Message       `json:"message"`
	Status  MessageStatus `json:"status"`
}

// StatusChangedPayload broadcasts a delivery-state transition.
type StatusChangedPayload struct {
	ConversationID int           `json:"conversation_id"`
	MessageID      int           `json:"message_id"`
	Status         MessageStatus `json:"status"`
}

// UnreadCountPayload broadcasts a viewer's recomputed unread count. Clients
// filter by user_id.
type UnreadCountPayload struct {
	ConversationID int `json:"conversation_id"`
	UserID         int `json:"user_id"`
	Count          int `json:"count"`
}

// TypingPayload starts or stops a typing indicator.
type TypingPayload struct {
	ConversationID int `json:"conversation_id"`
	UserID         int `json:"user_id"`
}

// ErrorPayload is sent to the offending connection only.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
