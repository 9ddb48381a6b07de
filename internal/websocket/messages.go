package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeSyncStarted   MessageType = "sync.started"
	TypeSyncCompleted MessageType = "sync.completed"
	TypeSyncError     MessageType = "sync.error"
	TypeNotification  MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncPayload is the payload for sync.completed events.
type SyncPayload struct {
	PropertyID    string    `json:"property_id"`
	PropertyTitle string    `json:"property_title"`
	EventsFound   int       `json:"events_found"`
	EventsSkipped int       `json:"events_skipped"`
	Created       int       `json:"created"`
	Updated       int       `json:"updated"`
	Unchanged     int       `json:"unchanged"`
	Stale         int       `json:"stale"`
	SyncedAt      time.Time `json:"synced_at"`
}

// SyncErrorPayload is the payload for sync.error events.
type SyncErrorPayload struct {
	PropertyID    string `json:"property_id"`
	PropertyTitle string `json:"property_title"`
	Error         string `json:"error"`
	Message       string `json:"message"`
}

// SyncStartedPayload is the payload for sync.started events.
type SyncStartedPayload struct {
	Scope string `json:"scope"` // "user" or "property"
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
