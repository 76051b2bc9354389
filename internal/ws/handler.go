package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	grpcclient "call-service/internal/grpc"
	"call-service/internal/models"
	"call-service/internal/observability"
	"call-service/internal/repositories"
	"call-service/internal/telemetry"
)

// SocketHandler owns the single /ws endpoint: one persistent, bidirectional
// channel per client over which all presence, room, signaling, messaging and
// typing events flow. Each connection gets exactly one read-loop goroutine,
// so a connection's events are processed strictly in receipt order.
type SocketHandler struct {
	hub           *Hub
	relay         *CallRelay
	delivery      *DeliveryCoordinator
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	identity      grpcclient.IdentityResolver
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, relay *CallRelay, delivery *DeliveryCoordinator, conversations repositories.ConversationRepository, messages repositories.MessageRepository, identity grpcclient.IdentityResolver) *SocketHandler {
	return &SocketHandler{
		hub:           hub,
		relay:         relay,
		delivery:      delivery,
		conversations: conversations,
		messages:      messages,
		identity:      identity,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and starts the read loop.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := telemetry.Tracer().Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info)
	h.hub.Register(client)

	observability.IncWSActive("socket")
	observability.IncWSEvent("socket", "ws_connect")
	h.publishLifecycle(context.Background(), client, "ws_connect", "")

	go h.readLoop(client)
}

func (h *SocketHandler) readLoop(client *Client) {
	var closeReason string
	defer func() {
		h.teardown(client)
		observability.DecWSActive("socket")
		observability.IncWSEvent("socket", "ws_disconnect")
		h.publishLifecycle(context.Background(), client, "ws_disconnect", closeReason)
		client.Close()
	}()

	ctx := context.Background()
	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("socket", "ws_error")
			}
			return
		}

		var envelope models.Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			h.sendError(client, "bad_payload", "malformed event envelope")
			continue
		}
		h.dispatch(ctx, client, envelope)
	}
}

// teardown synchronously removes every trace of the connection: room
// memberships (one peer-left broadcast per room), relay pair state, presence.
// A signaling message addressed to this connection afterwards is a silent
// no-op; teardown must never be partial.
func (h *SocketHandler) teardown(client *Client) {
	rooms := h.hub.Rooms.RemoveEverywhere(client)
	for _, roomID := range rooms {
		h.hub.BroadcastRoom(roomID, models.EventCallPeerLeft, models.PeerLeftPayload{
			RoomID: roomID,
			ConnID: client.ConnID(),
		})
	}

	h.relay.DropConnection(client.ConnID())
	observability.SetPendingICE(h.relay.PendingCandidates())

	h.hub.Unregister(client)
	if client.UserID() != 0 && h.hub.Presence.SetOffline(client.UserID(), client) {
		h.hub.BroadcastAll(client, models.EventPresenceStatus, models.PresenceStatusPayload{
			UserID: client.UserID(),
			Online: false,
		})
	}
}

func (h *SocketHandler) sendError(client *Client, code, message string) {
	h.hub.SendTo(client, models.EventError, models.ErrorPayload{Code: code, Message: message})
}

func (h *SocketHandler) publishLifecycle(ctx context.Context, client *Client, event, reason string) {
	info := client.Info()
	envelope := observability.SocketEnvelope(observability.SocketLifecycle{
		Event:      event,
		ConnID:     info.ConnID,
		DurationMS: time.Since(info.ConnectedAt).Milliseconds(),
		Reason:     reason,
	}, observability.SocketIdentity{
		UserID:   client.UserID(),
		DeviceID: info.DeviceID,
		IP:       info.IP,
	})
	_ = observability.PublishEvent(ctx, "ws_events.sockets", envelope, observability.BuildHeaders(info.RequestID, info.TraceID))
}
