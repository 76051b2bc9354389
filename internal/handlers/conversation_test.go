package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"call-service/internal/mocks"
	"call-service/internal/models"
	"call-service/internal/ws"
	authpb "call-service/pb/auth"
)

func setupConversationRouter(handler *ConversationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/conversations", handler.ListConversations)
	r.POST("/conversations/start", handler.StartConversation)
	r.GET("/conversations/:conversation_id/messages", handler.GetMessages)
	r.POST("/conversations/:conversation_id/messages", handler.PostMessage)
	r.POST("/conversations/:conversation_id/messages/:message_id/pin", handler.PinMessage)
	return r
}

func TestListConversationsSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	identity := new(mocks.IdentityResolverMock)
	handler := NewConversationHandler(convRepo, nil, identity, nil, nil)
	router := setupConversationRouter(handler)

	convRepo.On("ListConversations", mock.Anything, 1).Return([]models.ConversationSummary{{ConversationID: 3, PeerID: 2}}, nil).Once()
	identity.On("BulkUsers", mock.Anything, []int{2}).Return([]*authpb.GetUserResponse{{Id: 2, Username: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	convRepo.AssertExpectations(t)
	identity.AssertExpectations(t)
}

func TestListConversationsRepoError(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewConversationHandler(convRepo, nil, new(mocks.IdentityResolverMock), nil, nil)
	router := setupConversationRouter(handler)

	convRepo.On("ListConversations", mock.Anything, 1).Return(([]models.ConversationSummary)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestStartConversationSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	identity := new(mocks.IdentityResolverMock)
	handler := NewConversationHandler(convRepo, nil, identity, nil, nil)
	router := setupConversationRouter(handler)

	identity.On("GetUser", mock.Anything, 2).Return(&authpb.GetUserResponse{Id: 2, Username: "bob"}, nil).Once()
	convRepo.On("CreateOrGetConversation", mock.Anything, 1, 2).Return(models.Conversation{ID: 10}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/start", bytes.NewBufferString(`{"peer_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "conversation:10", resp["room_id"])
	identity.AssertExpectations(t)
	convRepo.AssertExpectations(t)
}

func TestStartConversationWithSelf(t *testing.T) {
	handler := NewConversationHandler(new(mocks.ConversationRepositoryMock), nil, new(mocks.IdentityResolverMock), nil, nil)
	router := setupConversationRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/conversations/start", bytes.NewBufferString(`{"peer_id":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartConversationPeerLookupError(t *testing.T) {
	identity := new(mocks.IdentityResolverMock)
	handler := NewConversationHandler(new(mocks.ConversationRepositoryMock), nil, identity, nil, nil)
	router := setupConversationRouter(handler)

	identity.On("GetUser", mock.Anything, 5).Return(nil, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/start", bytes.NewBufferString(`{"peer_id":5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	identity.AssertExpectations(t)
}

func TestGetMessagesSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	identity := new(mocks.IdentityResolverMock)
	handler := NewConversationHandler(convRepo, messageRepo, identity, nil, nil)
	router := setupConversationRouter(handler)

	convRepo.On("IsParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	messageRepo.On("ListMessages", mock.Anything, 5).Return([]models.Message{{ID: 1, ConversationID: 5, SenderID: 1}}, nil).Once()
	identity.On("BulkUsers", mock.Anything, []int{1}).Return([]*authpb.GetUserResponse{{Id: 1, Username: "me"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	convRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	identity.AssertExpectations(t)
}

func TestGetMessagesInvalidID(t *testing.T) {
	handler := NewConversationHandler(new(mocks.ConversationRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.IdentityResolverMock), nil, nil)
	router := setupConversationRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/conversations/abc/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMessagesNotParticipant(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := NewConversationHandler(convRepo, new(mocks.MessageRepositoryMock), new(mocks.IdentityResolverMock), nil, nil)
	router := setupConversationRouter(handler)

	convRepo.On("IsParticipant", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestPostMessageSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	hub := ws.NewHub()
	handler := NewConversationHandler(convRepo, messageRepo, nil, hub, ws.NewDeliveryCoordinator(messageRepo))
	router := setupConversationRouter(handler)

	convRepo.On("GetConversation", mock.Anything, 5).Return(models.Conversation{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, 5, 1, "hi").Return(models.Message{ID: 7, ConversationID: 5, SenderID: 1, Content: "hi"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	convRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestPostMessagePersistenceFailure(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(convRepo, messageRepo, nil, ws.NewHub(), ws.NewDeliveryCoordinator(messageRepo))
	router := setupConversationRouter(handler)

	convRepo.On("GetConversation", mock.Anything, 5).Return(models.Conversation{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, 5, 1, "hi").Return(models.Message{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestPinMessageSuccess(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(convRepo, messageRepo, nil, nil, nil)
	router := setupConversationRouter(handler)

	convRepo.On("GetConversation", mock.Anything, 5).Return(models.Conversation{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("GetMessage", mock.Anything, 7).Return(models.Message{ID: 7, ConversationID: 5, SenderID: 2}, nil).Once()
	messageRepo.On("SetPinned", mock.Anything, 7, true).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/5/messages/7/pin", bytes.NewBufferString(`{"pinned":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	convRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestPinMessageWrongConversation(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewConversationHandler(convRepo, messageRepo, nil, nil, nil)
	router := setupConversationRouter(handler)

	convRepo.On("GetConversation", mock.Anything, 5).Return(models.Conversation{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("GetMessage", mock.Anything, 7).Return(models.Message{ID: 7, ConversationID: 6, SenderID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/5/messages/7/pin", bytes.NewBufferString(`{"pinned":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	convRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}
