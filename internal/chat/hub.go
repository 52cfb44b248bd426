package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/coder/websocket"
)

const broadcastWriteTimeout = 5 * time.Second

// Hub fans appended messages out to websocket subscribers per session.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*websocket.Conn]struct{})}
}

// Subscribe registers a connection for a session's messages.
func (h *Hub) Subscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*websocket.Conn]struct{})
	}
	h.subs[sessionID][conn] = struct{}{}
}

// Unsubscribe removes a connection.
func (h *Hub) Unsubscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns := h.subs[sessionID]; conns != nil {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.subs, sessionID)
		}
	}
}

// Broadcast sends msg to every subscriber of its session. Write failures
// are logged and the connection is dropped from the session; the read loop
// on the handler side notices the closed connection and cleans up.
func (h *Hub) Broadcast(sessionID string, msg *domain.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to encode broadcast message", "session_id", sessionID, "error", err)
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.subs[sessionID]))
	for conn := range h.subs[sessionID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), broadcastWriteTimeout)
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket broadcast write failed", "session_id", sessionID, "error", err)
			h.Unsubscribe(sessionID, conn)
		}
		cancel()
	}
}
