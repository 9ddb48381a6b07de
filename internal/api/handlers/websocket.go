package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/staybook/backend/internal/api/middleware"
	"github.com/staybook/backend/internal/logging"
	ws "github.com/staybook/backend/internal/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocketUpgrade returns a handler that upgrades HTTP connections to
// WebSocket. The connection receives the caller's sync events.
func WebSocketUpgrade(hub *ws.Hub, logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn(r.Context(), "websocket upgrade failed", "err", err)
			return
		}

		client := ws.NewClient(middleware.UserID(r.Context()))
		hub.Register(client)

		// Replies to client commands go through their own channel so that
		// only writePump ever writes to conn.
		replies := make(chan []byte, 8)
		ctx := context.WithoutCancel(r.Context())

		go writePump(conn, client, replies)
		go readPump(ctx, conn, client, hub, replies, logger)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func writePump(conn *websocket.Conn, client *ws.Client, replies <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case message := <-replies:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client commands until the connection drops.
func readPump(ctx context.Context, conn *websocket.Conn, client *ws.Client, hub *ws.Hub, replies chan<- []byte, logger logging.Logger) {
	defer func() {
		hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(65536)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn(ctx, "websocket read error", "err", err)
			}
			return
		}

		reply := handleClientMessage(message)
		data, err := reply.JSON()
		if err != nil {
			continue
		}
		select {
		case replies <- data:
		default:
		}
	}
}

// handleClientMessage answers a client command. Only ping is understood.
func handleClientMessage(message []byte) ws.Message {
	var cmd struct {
		Type ws.MessageType `json:"type"`
	}
	if err := json.Unmarshal(message, &cmd); err != nil {
		return ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: "bad_message", Message: "message is not JSON"})
	}

	switch cmd.Type {
	case ws.TypePing:
		return ws.NewMessage(ws.TypePong, nil)
	default:
		return ws.NewMessage(ws.TypeError, ws.ErrorPayload{
			Code:         "unknown_type",
			Message:      "unsupported message type",
			OriginalType: string(cmd.Type),
		})
	}
}
