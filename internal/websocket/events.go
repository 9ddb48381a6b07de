package websocket

import (
	"context"
	"errors"

	"github.com/staybook/backend/internal/calendar"
	"github.com/staybook/backend/internal/logging"
	"github.com/staybook/backend/internal/storage/models"
)

// EventBroadcaster turns sync results into messages for the owning user's
// connections. It implements calendar.Notifier.
type EventBroadcaster struct {
	hub    *Hub
	logger logging.Logger
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub, logger logging.Logger) *EventBroadcaster {
	return &EventBroadcaster{hub: hub, logger: logger}
}

// BroadcastSyncCompleted sends a sync.completed event.
func (b *EventBroadcaster) BroadcastSyncCompleted(result models.SyncResult) {
	payload := SyncPayload{
		PropertyID:    result.PropertyID,
		PropertyTitle: result.PropertyTitle,
		EventsFound:   result.EventsFound,
		EventsSkipped: result.EventsSkipped,
		Created:       result.Created,
		Updated:       result.Updated,
		Unchanged:     result.Unchanged,
		Stale:         result.Stale,
		SyncedAt:      result.SyncedAt,
	}
	b.send(result.UserID, NewMessage(TypeSyncCompleted, payload))
}

// BroadcastSyncError sends a sync.error event.
func (b *EventBroadcaster) BroadcastSyncError(result models.SyncResult) {
	payload := SyncErrorPayload{
		PropertyID:    result.PropertyID,
		PropertyTitle: result.PropertyTitle,
		Error:         ErrorCode(result.Error),
	}
	if result.Error != nil {
		payload.Message = result.Error.Error()
	}
	b.send(result.UserID, NewMessage(TypeSyncError, payload))
}

// BroadcastSyncStarted tells a user's connections that a sync was queued.
func (b *EventBroadcaster) BroadcastSyncStarted(userID, scope string) {
	b.send(userID, NewMessage(TypeSyncStarted, SyncStartedPayload{Scope: scope}))
}

// BroadcastNotification sends a notification to every connected client.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}
	b.send("", NewMessage(TypeNotification, payload))
}

// send delivers msg to userID's clients, or to everyone when userID is empty.
func (b *EventBroadcaster) send(userID string, msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.logger.Error(context.Background(), "encoding websocket message", "type", msg.Type, "err", err)
		return
	}

	if userID == "" {
		b.hub.Broadcast(data)
		return
	}
	b.hub.SendToUser(userID, data)
}

// ErrorCode classifies a sync error for clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, calendar.ErrFeedUnreachable):
		return "feed_unreachable"
	case errors.Is(err, calendar.ErrFeedMalformed):
		return "feed_malformed"
	case errors.Is(err, calendar.ErrInvalidFeedURL):
		return "invalid_feed_url"
	default:
		return "sync_error"
	}
}

var _ calendar.Notifier = (*EventBroadcaster)(nil)
