package api

import (
	"log/slog"
	"net/http"

	"github.com/Bogdusik/programming-helper-ai/internal/chat"
	"github.com/Bogdusik/programming-helper-ai/internal/identity"
	"github.com/go-chi/chi/v5"
)

// ChatHandler serves chat sessions and messages.
type ChatHandler struct {
	*Handler
	service *chat.Service
}

// NewChatHandler creates the chat handler.
func NewChatHandler(base *Handler, service *chat.Service) *ChatHandler {
	return &ChatHandler{Handler: base, service: service}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{sessionID}/messages", h.GetMessages)
		r.Post("/messages", h.SendMessage)
	})
}

// ListSessions returns the user's chat sessions.
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	sessions, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list sessions", "error", err, "user_id", userID)
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// GetMessages returns a session's messages.
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.service.Messages(r.Context(), userID, sessionID)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

type sendMessageRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content"`
}

// SendMessage appends a user message, creating a session when none given.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req sendMessageRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	msg, err := h.service.Send(r.Context(), userID, req.SessionID, req.Content)
	if err != nil {
		WriteError(w, err)
		return
	}

	JSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": msg.SessionID,
		"message":    msg,
	})
}
