package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staybook/backend/internal/calendar"
	"github.com/staybook/backend/internal/logging"
	"github.com/staybook/backend/internal/storage/models"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := NewHub(logging.Nop())
	go h.Run(ctx)
	return h
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.Send():
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send():
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SendToUserOnlyReachesThatUser(t *testing.T) {
	h := runHub(t)
	alice := NewClient("alice")
	bob := NewClient("bob")
	h.Register(alice)
	h.Register(bob)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	b := NewEventBroadcaster(h, logging.Nop())
	b.BroadcastSyncCompleted(models.SyncResult{PropertyID: "p1", UserID: "alice", Created: 2})

	msg := receive(t, alice)
	assert.Equal(t, TypeSyncCompleted, msg.Type)
	payload, ok := msg.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "p1", payload["property_id"])
	assert.EqualValues(t, 2, payload["created"])
	assertSilent(t, bob)

	b.BroadcastNotification("info", "Maintenance", "restarting soon")
	assert.Equal(t, TypeNotification, receive(t, alice).Type)
	assert.Equal(t, TypeNotification, receive(t, bob).Type)
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	h := runHub(t)
	c := NewClient("alice")
	h.Register(c)
	h.Unregister(c)

	select {
	case _, ok := <-c.Send():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.Equal(t, 0, h.ClientCount())
}

func TestEventBroadcaster_SyncErrorCarriesErrorClass(t *testing.T) {
	h := runHub(t)
	c := NewClient("alice")
	h.Register(c)

	b := NewEventBroadcaster(h, logging.Nop())
	b.BroadcastSyncError(models.SyncResult{
		PropertyID: "p1",
		UserID:     "alice",
		Error:      fmt.Errorf("%w: status 500", calendar.ErrFeedUnreachable),
	})

	msg := receive(t, c)
	assert.Equal(t, TypeSyncError, msg.Type)
	payload := msg.Payload.(map[string]any)
	assert.Equal(t, "feed_unreachable", payload["error"])
	assert.Contains(t, payload["message"], "status 500")
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "feed_malformed", ErrorCode(fmt.Errorf("x: %w", calendar.ErrFeedMalformed)))
	assert.Equal(t, "invalid_feed_url", ErrorCode(calendar.ErrInvalidFeedURL))
	assert.Equal(t, "sync_error", ErrorCode(errors.New("boom")))
}
