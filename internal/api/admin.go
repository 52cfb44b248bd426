package api

import (
	"log/slog"
	"net/http"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/Bogdusik/programming-helper-ai/internal/gate"
	"github.com/Bogdusik/programming-helper-ai/internal/identity"
	"github.com/go-chi/chi/v5"
)

// AdminHandler exposes the admin mutations that affect gating state.
type AdminHandler struct {
	*Handler
	resolver *gate.BlockStatusResolver
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(base *Handler, resolver *gate.BlockStatusResolver) *AdminHandler {
	return &AdminHandler{Handler: base, resolver: resolver}
}

// RegisterRoutes registers admin routes behind a role check.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Post("/users/{userID}/block", h.Block)
		r.Post("/users/{userID}/unblock", h.Unblock)
	})
}

func (h *AdminHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity.RoleFromContext(r.Context()) != domain.RoleAdmin {
			Error(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Block marks a user blocked and busts the resolver cache so the change
// is visible before the TTL expires.
func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// Unblock clears the blocked flag, with the same cache-bust signal.
func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *AdminHandler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	targetID := chi.URLParam(r, "userID")

	if err := h.repo.SetBlocked(r.Context(), targetID, blocked); err != nil {
		slog.Error("failed to set blocked flag", "error", err, "target_user_id", targetID)
		WriteError(w, err)
		return
	}
	h.resolver.Invalidate(targetID)

	slog.Info("blocked flag updated",
		"target_user_id", targetID,
		"blocked", blocked,
		"admin_user_id", identity.UserIDFromContext(r.Context()))
	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id": targetID,
		"blocked": blocked,
	})
}
