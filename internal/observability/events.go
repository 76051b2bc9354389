package observability

// EventEnvelope is the message shape consumers of the ws_events exchange expect.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// SocketLifecycle describes a socket connect, disconnect or write failure.
type SocketLifecycle struct {
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
}

// SocketIdentity carries who was behind the socket when the event fired.
type SocketIdentity struct {
	UserID   int    `json:"user_id"`
	DeviceID string `json:"device_id,omitempty"`
	IP       string `json:"ip,omitempty"`
}

// SocketEnvelope wraps a lifecycle event for the ws_events exchange.
func SocketEnvelope(lifecycle SocketLifecycle, identity SocketIdentity) EventEnvelope {
	return EventEnvelope{
		EventType: "ws_events",
		EventName: lifecycle.Event,
		Payload: map[string]interface{}{
			"ws":       lifecycle,
			"identity": identity,
		},
	}
}

// BuildHeaders assembles AMQP headers for request correlation.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
