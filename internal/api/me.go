package api

import (
	"net/http"

	"github.com/Bogdusik/programming-helper-ai/internal/identity"
	"github.com/go-chi/chi/v5"
)

// RegisterMe registers the identity and informational routes.
func (h *Handler) RegisterMe(r chi.Router) {
	r.Get("/api/me", h.GetMe)
	r.Get("/blocked", h.GetBlockedPage)
	r.Get("/contact", h.GetContactPage)
}

// GetMe returns the current user's information.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  user.UserID,
		"username": user.Username,
		"role":     user.Role,
		"blocked":  user.Blocked,
	})
}

// GetBlockedPage serves the blocked notice. Reachable regardless of block
// status.
func (h *Handler) GetBlockedPage(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status":  "blocked",
		"message": "Your account has been blocked. Use the contact page to appeal.",
	})
}

// GetContactPage serves the contact details. Reachable regardless of block
// status.
func (h *Handler) GetContactPage(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"email": "support@programming-helper.local",
	})
}
