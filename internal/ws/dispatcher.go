package ws

import (
	"context"
	"encoding/json"
	"log"

	"call-service/internal/models"
	"call-service/internal/observability"
)

// dispatch routes one client event. A malformed or rejected event answers
// with an error event on the same connection and never tears it down.
func (h *SocketHandler) dispatch(ctx context.Context, client *Client, envelope models.Envelope) {
	if envelope.Type != models.EventPresenceOnline && client.UserID() == 0 {
		h.sendError(client, "unauthenticated", "authenticate with presence.online first")
		return
	}

	switch envelope.Type {
	case models.EventPresenceOnline:
		h.handlePresenceOnline(ctx, client, envelope.Payload)
	case models.EventRoomJoin:
		h.handleRoomJoin(ctx, client, envelope.Payload)
	case models.EventRoomLeave:
		h.handleRoomLeave(client, envelope.Payload)
	case models.EventCallJoin:
		h.handleCallJoin(client, envelope.Payload)
	case models.EventCallLeave:
		h.handleCallLeave(client, envelope.Payload)
	case models.EventCallOffer:
		h.handleSignal(client, envelope.Payload, models.EventCallOffer)
	case models.EventCallAnswer:
		h.handleSignal(client, envelope.Payload, models.EventCallAnswer)
	case models.EventCallIce:
		h.handleIce(client, envelope.Payload)
	case models.EventCallToggleMedia:
		h.handleToggleMedia(client, envelope.Payload)
	case models.EventMessageSend:
		h.handleMessageSend(ctx, client, envelope.Payload)
	case models.EventMessageSeen:
		h.handleMessageSeen(ctx, client, envelope.Payload)
	case models.EventTypingStart:
		h.handleTyping(client, envelope.Payload, models.EventTypingUserTyping)
	case models.EventTypingStop:
		h.handleTyping(client, envelope.Payload, models.EventTypingUserStopped)
	default:
		h.sendError(client, "unknown_event", "unsupported event type: "+envelope.Type)
	}
}

func (h *SocketHandler) handlePresenceOnline(ctx context.Context, client *Client, raw json.RawMessage) {
	var payload models.PresenceOnlinePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Credential == "" {
		h.sendError(client, "bad_payload", "presence.online requires a credential")
		return
	}

	userID, err := h.identity.ValidateToken(ctx, payload.Credential)
	if err != nil {
		h.sendError(client, "auth_failed", "invalid token")
		return
	}

	// A connection is bound to one user for its lifetime. Re-authenticating as
	// the same user is an idempotent no-op; switching users would leave the
	// previous presence mapping dangling, so it is rejected.
	if current := client.UserID(); current != 0 && current != userID {
		h.sendError(client, "already_authenticated", "connection is bound to another user")
		return
	}

	username := ""
	if user, err := h.identity.GetUser(ctx, userID); err == nil {
		username = user.GetUsername()
	} else {
		log.Printf("identity lookup failed for user %d: %v", userID, err)
	}
	client.SetIdentity(userID, username)

	if h.hub.Presence.SetOnline(userID, client) {
		h.hub.BroadcastAll(client, models.EventPresenceStatus, models.PresenceStatusPayload{
			UserID: userID,
			Online: true,
		})
	}
}

func (h *SocketHandler) handleRoomJoin(ctx context.Context, client *Client, raw json.RawMessage) {
	var payload models.RoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" {
		h.sendError(client, "bad_payload", "room.join requires a room id")
		return
	}

	conversationID, isConversation := models.ParseConversationRoomID(payload.RoomID)
	if isConversation {
		member, err := h.conversations.IsParticipant(ctx, conversationID, client.UserID())
		if err != nil {
			h.sendError(client, "internal", "failed to verify membership")
			return
		}
		if !member {
			h.sendError(client, "forbidden", "not a conversation participant")
			return
		}
	}

	if !h.hub.Rooms.Join(payload.RoomID, client) {
		return
	}

	if isConversation {
		events, err := h.delivery.RecipientJoined(ctx, conversationID, client.UserID())
		if err != nil {
			log.Printf("delivered-on-join failed for conversation %d: %v", conversationID, err)
			return
		}
		for _, event := range events {
			h.hub.BroadcastRoom(event.RoomID, event.Type, event.Payload)
		}
	}
}

func (h *SocketHandler) handleRoomLeave(client *Client, raw json.RawMessage) {
	var payload models.RoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" {
		h.sendError(client, "bad_payload", "room.leave requires a room id")
		return
	}
	h.hub.Rooms.Leave(payload.RoomID, client)
}

func (h *SocketHandler) handleCallJoin(client *Client, raw json.RawMessage) {
	var payload models.CallJoinPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" {
		h.sendError(client, "bad_payload", "call.join requires a room id")
		return
	}

	existing := h.hub.Rooms.Members(payload.RoomID)
	joined := h.hub.Rooms.Join(payload.RoomID, client)

	// The joiner always initiates toward every existing member: only one side
	// of each pair is ever told to create an offer, so there is no glare.
	members := make([]models.PeerInfo, 0, len(existing))
	for _, peer := range existing {
		if peer == client {
			continue
		}
		members = append(members, models.PeerInfo{
			ConnID:   peer.ConnID(),
			UserID:   peer.UserID(),
			Username: peer.Username(),
		})
	}
	h.hub.SendTo(client, models.EventCallExistingMembers, models.ExistingMembersPayload{
		RoomID:  payload.RoomID,
		Members: members,
	})

	if joined {
		h.hub.BroadcastRoomExcept(payload.RoomID, client, models.EventCallPeerJoined, models.PeerInfo{
			ConnID:   client.ConnID(),
			UserID:   client.UserID(),
			Username: client.Username(),
		})
	}
}

func (h *SocketHandler) handleCallLeave(client *Client, raw json.RawMessage) {
	var payload models.RoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" {
		h.sendError(client, "bad_payload", "call.leave requires a room id")
		return
	}

	if !h.hub.Rooms.Leave(payload.RoomID, client) {
		return
	}
	h.relay.DropFromRoom(payload.RoomID, client.ConnID())
	observability.SetPendingICE(h.relay.PendingCandidates())
	h.hub.BroadcastRoom(payload.RoomID, models.EventCallPeerLeft, models.PeerLeftPayload{
		RoomID: payload.RoomID,
		ConnID: client.ConnID(),
	})
}

// handleSignal forwards an offer or answer verbatim. The relay never inspects
// SDP contents; it only checks that sender and target still share the room.
// A stale target is a silent drop; the sender's UI times out naturally.
func (h *SocketHandler) handleSignal(client *Client, raw json.RawMessage, eventType string) {
	var payload models.SignalPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" || payload.Target == "" {
		h.sendError(client, "bad_payload", eventType+" requires a room id and target")
		return
	}
	if !h.hub.Rooms.Contains(payload.RoomID, client) {
		return
	}

	target, ok := h.hub.ByConnID(payload.Target)
	if !ok || !h.hub.Rooms.Contains(payload.RoomID, target) {
		observability.IncSignaling(eventType, "dropped")
		return
	}

	h.hub.SendTo(target, eventType, models.SignalForward{
		RoomID: payload.RoomID,
		From:   client.ConnID(),
		SDP:    payload.SDP,
	})
	observability.IncSignaling(eventType, "relayed")

	// The target applies the forwarded description next, so candidates queued
	// for this direction can now flow; they arrive after the description on
	// the target's ordered socket.
	queued := h.relay.DescriptionForwarded(payload.RoomID, client.ConnID(), payload.Target)
	for _, candidate := range queued {
		h.hub.SendTo(target, models.EventCallIce, models.IceForward{
			RoomID:    payload.RoomID,
			From:      client.ConnID(),
			Candidate: candidate,
		})
		observability.IncSignaling(models.EventCallIce, "relayed")
	}
	observability.SetPendingICE(h.relay.PendingCandidates())
}

func (h *SocketHandler) handleIce(client *Client, raw json.RawMessage) {
	var payload models.IcePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" || payload.Target == "" {
		h.sendError(client, "bad_payload", "call.ice requires a room id and target")
		return
	}
	if !h.hub.Rooms.Contains(payload.RoomID, client) {
		return
	}

	// Candidates may legitimately arrive after the peer link was torn down.
	target, ok := h.hub.ByConnID(payload.Target)
	if !ok || !h.hub.Rooms.Contains(payload.RoomID, target) {
		observability.IncSignaling(models.EventCallIce, "dropped")
		return
	}

	if h.relay.QueueOrForward(payload.RoomID, client.ConnID(), payload.Target, payload.Candidate) {
		h.hub.SendTo(target, models.EventCallIce, models.IceForward{
			RoomID:    payload.RoomID,
			From:      client.ConnID(),
			Candidate: payload.Candidate,
		})
		observability.IncSignaling(models.EventCallIce, "relayed")
	} else {
		observability.IncSignaling(models.EventCallIce, "queued")
	}
	observability.SetPendingICE(h.relay.PendingCandidates())
}

func (h *SocketHandler) handleToggleMedia(client *Client, raw json.RawMessage) {
	var payload models.ToggleMediaPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" {
		h.sendError(client, "bad_payload", "call.toggleMedia requires a room id")
		return
	}
	if payload.Kind != "audio" && payload.Kind != "video" {
		h.sendError(client, "bad_payload", "media kind must be audio or video")
		return
	}
	if !h.hub.Rooms.Contains(payload.RoomID, client) {
		return
	}

	h.hub.BroadcastRoomExcept(payload.RoomID, client, models.EventCallMediaToggled, models.MediaToggledPayload{
		ConnID:  client.ConnID(),
		Kind:    payload.Kind,
		Enabled: payload.Enabled,
	})
}

func (h *SocketHandler) handleMessageSend(ctx context.Context, client *Client, raw json.RawMessage) {
	var payload models.MessageSendPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.ConversationID == 0 || payload.Content == "" {
		h.sendError(client, "bad_payload", "message.send requires a conversation id and content")
		return
	}
	if payload.SenderID != 0 && payload.SenderID != client.UserID() {
		h.sendError(client, "forbidden", "sender id does not match connection identity")
		return
	}

	member, err := h.conversations.IsParticipant(ctx, payload.ConversationID, client.UserID())
	if err != nil {
		h.hub.SendTo(client, models.EventMessageError, models.ErrorPayload{Code: "internal", Message: "failed to verify membership"})
		return
	}
	if !member {
		h.sendError(client, "forbidden", "not a conversation participant")
		return
	}

	msg, err := h.messages.CreateMessage(ctx, payload.ConversationID, client.UserID(), payload.Content)
	if err != nil {
		// No broadcast happens on a failed write, so there is no partial state.
		h.hub.SendTo(client, models.EventMessageError, models.ErrorPayload{Code: "persistence_failed", Message: "failed to store message"})
		return
	}

	roomID := models.ConversationRoomID(payload.ConversationID)
	members := h.hub.Rooms.Members(roomID)
	for _, event := range h.delivery.MessageCreated(msg, members, client) {
		h.hub.BroadcastRoom(event.RoomID, event.Type, event.Payload)
	}
}

func (h *SocketHandler) handleMessageSeen(ctx context.Context, client *Client, raw json.RawMessage) {
	var payload models.MessageSeenPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.MessageID == 0 {
		h.sendError(client, "bad_payload", "message.seen requires a message id")
		return
	}
	if payload.UserID != 0 && payload.UserID != client.UserID() {
		h.sendError(client, "forbidden", "user id does not match connection identity")
		return
	}

	msg, err := h.messages.GetMessage(ctx, payload.MessageID)
	if err != nil {
		h.sendError(client, "not_found", "message not found")
		return
	}
	if msg.SenderID == client.UserID() {
		// Senders don't ack their own messages.
		return
	}
	member, err := h.conversations.IsParticipant(ctx, msg.ConversationID, client.UserID())
	if err != nil || !member {
		h.sendError(client, "forbidden", "not a conversation participant")
		return
	}

	events, err := h.delivery.MarkSeen(ctx, payload.MessageID, client.UserID())
	if err != nil {
		h.hub.SendTo(client, models.EventMessageError, models.ErrorPayload{Code: "persistence_failed", Message: "failed to mark message seen"})
		return
	}
	for _, event := range events {
		h.hub.BroadcastRoom(event.RoomID, event.Type, event.Payload)
	}
}

func (h *SocketHandler) handleTyping(client *Client, raw json.RawMessage, outType string) {
	var payload models.TypingPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.ConversationID == 0 {
		h.sendError(client, "bad_payload", "typing events require a conversation id")
		return
	}

	roomID := models.ConversationRoomID(payload.ConversationID)
	if !h.hub.Rooms.Contains(roomID, client) {
		return
	}
	h.hub.BroadcastRoomExcept(roomID, client, outType, models.TypingPayload{
		ConversationID: payload.ConversationID,
		UserID:         client.UserID(),
	})
}
