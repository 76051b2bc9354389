package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	grpcclient "call-service/internal/grpc"
	"call-service/internal/models"
	"call-service/internal/repositories"
	"call-service/internal/ws"
)

// ConversationHandler manages conversation endpoints.
type ConversationHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	identity      grpcclient.IdentityResolver
	hub           *ws.Hub
	delivery      *ws.DeliveryCoordinator
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(conversations repositories.ConversationRepository, messages repositories.MessageRepository, identity grpcclient.IdentityResolver, hub *ws.Hub, delivery *ws.DeliveryCoordinator) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		identity:      identity,
		hub:           hub,
		delivery:      delivery,
	}
}

// ListConversations returns the conversations visible to the authenticated user.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	conversations, err := h.conversations.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	peerIDs := make([]int, 0, len(conversations))
	for _, conv := range conversations {
		peerIDs = append(peerIDs, conv.PeerID)
	}

	users, err := h.identity.BulkUsers(c.Request.Context(), peerIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user info"})
		return
	}

	usernameByID := map[int]string{}
	for _, u := range users {
		usernameByID[int(u.GetId())] = u.GetUsername()
	}

	type conversationResponse struct {
		ConversationID int       `json:"conversation_id"`
		PeerID         int       `json:"peer_id"`
		PeerUsername   string    `json:"peer_username,omitempty"`
		CreatedAt      time.Time `json:"created_at"`
	}

	responses := make([]conversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		responses = append(responses, conversationResponse{
			ConversationID: conv.ConversationID,
			PeerID:         conv.PeerID,
			PeerUsername:   usernameByID[conv.PeerID],
			CreatedAt:      conv.Created,
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": responses})
}

// StartConversation creates or returns an existing conversation between users.
func (h *ConversationHandler) StartConversation(c *gin.Context) {
	var req struct {
		PeerID int `json:"peer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.PeerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation with yourself"})
		return
	}

	if _, err := h.identity.GetUser(c.Request.Context(), req.PeerID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve peer"})
		return
	}

	conv, err := h.conversations.CreateOrGetConversation(c.Request.Context(), userID, req.PeerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID, "room_id": models.ConversationRoomID(conv.ID)})
}

// GetMessages returns messages for a conversation.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.conversations.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
		return
	}

	msgs, err := h.messages.ListMessages(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	senderIDs := make([]int, 0, len(msgs))
	senderIDSet := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := senderIDSet[m.SenderID]; !ok {
			senderIDSet[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	users, err := h.identity.BulkUsers(c.Request.Context(), senderIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load senders"})
		return
	}
	senderNames := map[int]string{}
	for _, u := range users {
		senderNames[int(u.GetId())] = u.GetUsername()
	}

	type messageResponse struct {
		models.Message
		SenderUsername string `json:"sender_username,omitempty"`
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{Message: m, SenderUsername: senderNames[m.SenderID]})
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// PostMessage stores a message and broadcasts it with its derived delivery
// status, exactly like message.send over the socket.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	userID := c.GetInt("userID")
	conv, err := h.conversations.GetConversation(c.Request.Context(), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}
	if !isParticipant(conv, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.CreateMessage(c.Request.Context(), conversationID, userID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	roomID := models.ConversationRoomID(conversationID)
	sender, _ := h.hub.Presence.Lookup(userID)
	for _, event := range h.delivery.MessageCreated(msg, h.hub.Rooms.Members(roomID), sender) {
		h.hub.BroadcastRoom(event.RoomID, event.Type, event.Payload)
	}
	c.JSON(http.StatusCreated, msg)
}

// PinMessage sets or clears the pinned flag on a message.
func (h *ConversationHandler) PinMessage(c *gin.Context) {
	conversationID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	conv, err := h.conversations.GetConversation(c.Request.Context(), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}
	if !isParticipant(conv, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	var req struct {
		Pinned *bool `json:"pinned" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.ConversationID != conversationID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to conversation"})
		return
	}

	if err := h.messages.SetPinned(c.Request.Context(), messageID, *req.Pinned); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update message"})
		return
	}

	c.Status(http.StatusNoContent)
}

func parseIDs(c *gin.Context) (int, int, bool) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return 0, 0, false
	}
	msgID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, 0, false
	}
	return conversationID, msgID, true
}

func isParticipant(conv models.Conversation, userID int) bool {
	return conv.User1ID == userID || conv.User2ID == userID
}
