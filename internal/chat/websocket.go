package chat

import (
	"log/slog"
	"net/http"

	"github.com/Bogdusik/programming-helper-ai/internal/identity"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
	"github.com/coder/websocket"
)

// WebSocketHandler streams appended messages for one session to the client.
type WebSocketHandler struct {
	service *Service
	hub     *Hub
}

// NewWebSocketHandler creates a websocket stream handler.
func NewWebSocketHandler(service *Service, hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{service: service, hub: hub}
}

// ServeHTTP upgrades the connection and subscribes it to the requested
// session until the client goes away.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, `{"error":"session_id is required"}`, http.StatusBadRequest)
		return
	}

	// Ownership check before the upgrade.
	if _, err := h.service.Get(r.Context(), userID, sessionID); err != nil {
		status := http.StatusInternalServerError
		if shared.IsKind(err, shared.KindNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, `{"error":"session not found"}`, status)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.hub.Subscribe(sessionID, ws)
	defer h.hub.Unsubscribe(sessionID, ws)

	slog.Info("chat stream opened", "user_id", userID, "session_id", sessionID)

	// The stream is write-only; the read loop exists to observe close.
	ctx := r.Context()
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			break
		}
	}

	slog.Info("chat stream closed", "user_id", userID, "session_id", sessionID)
}
