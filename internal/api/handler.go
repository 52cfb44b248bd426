// Package api provides HTTP handlers for the programming helper API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/Bogdusik/programming-helper-ai/internal/config"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
	"github.com/Bogdusik/programming-helper-ai/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo store.Repository
	cfg  *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, cfg *config.Config) *Handler {
	return &Handler{repo: repo, cfg: cfg}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// WriteError maps an error's kind to an HTTP status and writes it.
func WriteError(w http.ResponseWriter, err error) {
	switch shared.KindOf(err) {
	case shared.KindAuth:
		Error(w, http.StatusUnauthorized, "unauthorized")
	case shared.KindBlocked:
		Error(w, http.StatusForbidden, "account_blocked")
	case shared.KindNotFound:
		Error(w, http.StatusNotFound, err.Error())
	case shared.KindValidation:
		Error(w, http.StatusBadRequest, err.Error())
	case shared.KindTransient:
		Error(w, http.StatusConflict, err.Error())
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return shared.Errorf(shared.KindValidation, "invalid request body: %v", err)
	}
	return nil
}
