package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/adpilot/adpilot/internal/bus"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from anywhere the operator put it.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleLogStream upgrades to a WebSocket and relays audit events as they
// are broadcast. Slow clients are dropped rather than allowed to block the
// broadcaster.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("log stream upgrade failed", "error", err)
		return
	}

	subID := "logstream-" + uuid.NewString()
	events := make(chan bus.Event, sendBufferSize)

	s.pub.Subscribe(subID, func(ev bus.Event) {
		select {
		case events <- ev:
		default:
			// Buffer full: the writer below will notice the closed socket.
		}
	})
	defer s.pub.Unsubscribe(subID)

	// Reader goroutine: drains control frames, signals disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
