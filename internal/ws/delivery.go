package ws

import (
	"context"

	"call-service/internal/models"
	"call-service/internal/observability"
	"call-service/internal/repositories"
)

// OutboundEvent is a broadcast the delivery state machine wants performed.
// Transitions return events instead of writing to sockets directly so they
// can be unit-tested without a live transport.
type OutboundEvent struct {
	RoomID  string
	Type    string
	Payload any
}

// DeliveryCoordinator advances messages through sent → delivered → seen.
// "sent" and "delivered" are derived from room presence; "seen" is the
// persisted is_read flag. The status never regresses: seen messages are
// excluded from the unread queries that drive delivered transitions.
type DeliveryCoordinator struct {
	messages repositories.MessageRepository
}

// NewDeliveryCoordinator constructs a DeliveryCoordinator.
func NewDeliveryCoordinator(messages repositories.MessageRepository) *DeliveryCoordinator {
	return &DeliveryCoordinator{messages: messages}
}

// StatusOnCreate derives the initial status of a freshly persisted message
// from a room membership snapshot: delivered if any connection other than the
// sender's is present, sent otherwise. This is the synchronous form of the
// liveness heuristic; the authoritative delivered transition fires on
// room-join.
func StatusOnCreate(members []*Client, sender *Client) models.MessageStatus {
	for _, c := range members {
		if c != sender {
			return models.StatusDelivered
		}
	}
	return models.StatusSent
}

// MessageCreated returns the broadcasts for a newly persisted message: the
// message itself (the sender needs the echo for its optimistic UI) and, when
// a recipient connection is already present, the delivered transition.
func (d *DeliveryCoordinator) MessageCreated(msg models.Message, members []*Client, sender *Client) []OutboundEvent {
	roomID := models.ConversationRoomID(msg.ConversationID)
	status := StatusOnCreate(members, sender)

	events := []OutboundEvent{{
		RoomID:  roomID,
		Type:    models.EventMessageNew,
		Payload: models.MessageNewPayload{Message: msg, Status: status},
	}}
	if status == models.StatusDelivered {
		events = append(events, OutboundEvent{
			RoomID: roomID,
			Type:   models.EventMessageStatusChanged,
			Payload: models.StatusChangedPayload{
				ConversationID: msg.ConversationID,
				MessageID:      msg.ID,
				Status:         models.StatusDelivered,
			},
		})
		observability.IncMessageTransition(string(models.StatusDelivered))
	}
	return events
}

// RecipientJoined performs the bulk delivered transition: every unread
// message sent by others becomes delivered the moment the recipient opens the
// conversation room.
func (d *DeliveryCoordinator) RecipientJoined(ctx context.Context, conversationID int, userID int) ([]OutboundEvent, error) {
	unread, err := d.messages.ListUnreadFromOthers(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	roomID := models.ConversationRoomID(conversationID)
	events := make([]OutboundEvent, 0, len(unread))
	for _, msg := range unread {
		events = append(events, OutboundEvent{
			RoomID: roomID,
			Type:   models.EventMessageStatusChanged,
			Payload: models.StatusChangedPayload{
				ConversationID: conversationID,
				MessageID:      msg.ID,
				Status:         models.StatusDelivered,
			},
		})
		observability.IncMessageTransition(string(models.StatusDelivered))
	}
	return events, nil
}

// MarkSeen flips the persisted is_read flag and returns the seen broadcast
// plus the viewer's recomputed unread count. Re-marking an already-seen
// message returns no events: exactly one statusChanged broadcast per message.
func (d *DeliveryCoordinator) MarkSeen(ctx context.Context, messageID int, viewerID int) ([]OutboundEvent, error) {
	msg, changed, err := d.messages.MarkSeen(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}

	roomID := models.ConversationRoomID(msg.ConversationID)
	events := []OutboundEvent{{
		RoomID: roomID,
		Type:   models.EventMessageStatusChanged,
		Payload: models.StatusChangedPayload{
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Status:         models.StatusSeen,
		},
	}}
	observability.IncMessageTransition(string(models.StatusSeen))

	count, err := d.messages.UnreadCount(ctx, msg.ConversationID, viewerID)
	if err != nil {
		return events, err
	}
	events = append(events, OutboundEvent{
		RoomID: roomID,
		Type:   models.EventMessageUnreadCount,
		Payload: models.UnreadCountPayload{
			ConversationID: msg.ConversationID,
			UserID:         viewerID,
			Count:          count,
		},
	})
	return events, nil
}
