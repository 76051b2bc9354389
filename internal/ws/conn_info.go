package ws

import (
	"time"

	"github.com/google/uuid"
)

// ConnInfo captures per-connection metadata taken at upgrade time. It never
// changes afterwards; identity lives on the Client.
type ConnInfo struct {
	ConnID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.NewString()
}
