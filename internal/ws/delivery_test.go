package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"call-service/internal/mocks"
	"call-service/internal/models"
)

func TestStatusOnCreate(t *testing.T) {
	sender := &Client{}
	other := &Client{}

	assert.Equal(t, models.StatusSent, StatusOnCreate(nil, sender))
	assert.Equal(t, models.StatusSent, StatusOnCreate([]*Client{sender}, sender))
	assert.Equal(t, models.StatusDelivered, StatusOnCreate([]*Client{sender, other}, sender))
	assert.Equal(t, models.StatusDelivered, StatusOnCreate([]*Client{other}, sender))
}

func TestMessageCreatedSentOnly(t *testing.T) {
	delivery := NewDeliveryCoordinator(new(mocks.MessageRepositoryMock))
	sender := &Client{}
	msg := models.Message{ID: 4, ConversationID: 9, SenderID: 1, Content: "hi"}

	events := delivery.MessageCreated(msg, []*Client{sender}, sender)

	require.Len(t, events, 1)
	assert.Equal(t, models.EventMessageNew, events[0].Type)
	assert.Equal(t, "conversation:9", events[0].RoomID)
	payload := events[0].Payload.(models.MessageNewPayload)
	assert.Equal(t, models.StatusSent, payload.Status)
	assert.Equal(t, msg, payload.Message)
}

func TestMessageCreatedDeliveredWhenRecipientPresent(t *testing.T) {
	delivery := NewDeliveryCoordinator(new(mocks.MessageRepositoryMock))
	sender := &Client{}
	recipient := &Client{}
	msg := models.Message{ID: 4, ConversationID: 9, SenderID: 1, Content: "hi"}

	events := delivery.MessageCreated(msg, []*Client{sender, recipient}, sender)

	require.Len(t, events, 2)
	assert.Equal(t, models.EventMessageNew, events[0].Type)
	assert.Equal(t, models.EventMessageStatusChanged, events[1].Type)
	status := events[1].Payload.(models.StatusChangedPayload)
	assert.Equal(t, models.StatusDelivered, status.Status)
	assert.Equal(t, 4, status.MessageID)
}

func TestRecipientJoinedBulkDelivered(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	delivery := NewDeliveryCoordinator(messageRepo)

	unread := []models.Message{
		{ID: 1, ConversationID: 9, SenderID: 1},
		{ID: 2, ConversationID: 9, SenderID: 1},
		{ID: 5, ConversationID: 9, SenderID: 1},
	}
	messageRepo.On("ListUnreadFromOthers", mock.Anything, 9, 2).Return(unread, nil).Once()

	events, err := delivery.RecipientJoined(context.Background(), 9, 2)
	require.NoError(t, err)

	require.Len(t, events, 3)
	for i, event := range events {
		assert.Equal(t, models.EventMessageStatusChanged, event.Type)
		payload := event.Payload.(models.StatusChangedPayload)
		assert.Equal(t, unread[i].ID, payload.MessageID)
		assert.Equal(t, models.StatusDelivered, payload.Status)
	}
	messageRepo.AssertExpectations(t)
}

func TestRecipientJoinedNothingUnread(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	delivery := NewDeliveryCoordinator(messageRepo)

	messageRepo.On("ListUnreadFromOthers", mock.Anything, 9, 2).Return(([]models.Message)(nil), nil).Once()

	events, err := delivery.RecipientJoined(context.Background(), 9, 2)
	require.NoError(t, err)
	assert.Empty(t, events)
	messageRepo.AssertExpectations(t)
}

func TestMarkSeenBroadcastsOnce(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	delivery := NewDeliveryCoordinator(messageRepo)

	seen := models.Message{ID: 4, ConversationID: 9, SenderID: 1, IsRead: true}
	messageRepo.On("MarkSeen", mock.Anything, 4).Return(seen, true, nil).Once()
	messageRepo.On("UnreadCount", mock.Anything, 9, 2).Return(3, nil).Once()

	events, err := delivery.MarkSeen(context.Background(), 4, 2)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, models.EventMessageStatusChanged, events[0].Type)
	status := events[0].Payload.(models.StatusChangedPayload)
	assert.Equal(t, models.StatusSeen, status.Status)

	assert.Equal(t, models.EventMessageUnreadCount, events[1].Type)
	count := events[1].Payload.(models.UnreadCountPayload)
	assert.Equal(t, 2, count.UserID)
	assert.Equal(t, 3, count.Count)
	messageRepo.AssertExpectations(t)
}

func TestMarkSeenIdempotent(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	delivery := NewDeliveryCoordinator(messageRepo)

	seen := models.Message{ID: 4, ConversationID: 9, SenderID: 1, IsRead: true}
	messageRepo.On("MarkSeen", mock.Anything, 4).Return(seen, false, nil).Once()

	// Re-marking an already-seen message yields no broadcasts at all.
	events, err := delivery.MarkSeen(context.Background(), 4, 2)
	require.NoError(t, err)
	assert.Empty(t, events)
	messageRepo.AssertExpectations(t)
}
