package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/Bogdusik/programming-helper-ai/internal/identity"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
	"github.com/Bogdusik/programming-helper-ai/internal/taskflow"
	"github.com/go-chi/chi/v5"
)

// TaskHandler serves the task catalog and task attempt operations.
type TaskHandler struct {
	*Handler
	coordinator *taskflow.Coordinator
	stats       *taskflow.StatsCache
}

// NewTaskHandler creates the task handler.
func NewTaskHandler(base *Handler, coordinator *taskflow.Coordinator, stats *taskflow.StatsCache) *TaskHandler {
	return &TaskHandler{Handler: base, coordinator: coordinator, stats: stats}
}

// RegisterRoutes registers task routes.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/tasks", h.ListTasks)
	r.Get("/api/tasks/{taskID}", h.GetTask)
	r.Put("/api/tasks/{taskID}/draft", h.SaveDraft)
	r.Post("/api/tasks/{taskID}/start", h.Start)
	r.Post("/api/tasks/{taskID}/complete", h.Complete)
	r.Post("/api/tasks/{taskID}/restart", h.Restart)
	r.Get("/api/stats", h.GetStats)
}

// ListTasks returns the catalog joined with the user's progress, optionally
// filtered by language and difficulty.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	tasks, err := h.repo.ListTasksWithProgress(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list tasks", "error", err, "user_id", userID)
		WriteError(w, err)
		return
	}

	language := r.URL.Query().Get("language")
	difficulty := r.URL.Query().Get("difficulty")
	filtered := make([]*domain.TaskWithProgress, 0, len(tasks))
	for _, t := range tasks {
		if language != "" && t.Task.Language != language {
			continue
		}
		if difficulty != "" && t.Task.Difficulty != difficulty {
			continue
		}
		filtered = append(filtered, t)
	}

	JSON(w, http.StatusOK, map[string]interface{}{"tasks": filtered})
}

// GetTask returns one task with the user's progress and saved draft.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	task, err := h.repo.GetTask(r.Context(), taskID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if task == nil {
		WriteError(w, shared.Errorf(shared.KindNotFound, "task %s not found", taskID))
		return
	}

	progress, err := h.repo.GetTaskProgress(r.Context(), userID, taskID)
	if err != nil {
		WriteError(w, err)
		return
	}

	draft, err := h.repo.GetDraft(r.Context(), userID, taskID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if draft == "" {
		draft = task.StarterCode
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"task":     task,
		"progress": progress,
		"draft":    draft,
	})
}

type saveDraftRequest struct {
	Code string `json:"code"`
}

// SaveDraft stores the user's working code for a task.
func (h *TaskHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	var req saveDraftRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if len(req.Code) > h.cfg.MaxCodeBytes {
		WriteError(w, shared.Errorf(shared.KindValidation,
			"code exceeds maximum size of %d bytes", h.cfg.MaxCodeBytes))
		return
	}

	task, err := h.repo.GetTask(r.Context(), taskID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if task == nil {
		WriteError(w, shared.Errorf(shared.KindNotFound, "task %s not found", taskID))
		return
	}

	if err := h.saveDraftWithRetry(r.Context(), userID, taskID, req.Code); err != nil {
		slog.Error("failed to save draft", "error", err, "user_id", userID, "task_id", taskID)
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// saveDraftWithRetry retries the draft write with exponential backoff when
// SQLite reports the database busy. Drafts are saved on every editor pause,
// so this is the write most likely to collide with other traffic.
func (h *TaskHandler) saveDraftWithRetry(ctx context.Context, userID, taskID, code string) error {
	maxAttempts := h.cfg.Retry.MaxAttempts
	baseDelay := h.cfg.Retry.BaseDelay

	var err error
	for i := 0; i < maxAttempts; i++ {
		err = h.repo.SaveDraft(ctx, userID, taskID, code)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || ctx.Err() != nil {
			return err
		}
		if i < maxAttempts-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Database locked during draft save, retrying",
				"user_id", userID, "task_id", taskID, "attempt", i+1, "delay", delay)
			time.Sleep(delay)
		}
	}
	return err
}

// Start begins or resumes a task attempt.
func (h *TaskHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	result, err := h.coordinator.Start(r.Context(), userID, taskID)
	if err != nil {
		slog.Error("task start failed", "error", err, "user_id", userID, "task_id", taskID)
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

// Complete marks a task attempt completed.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	progress, err := h.coordinator.Complete(r.Context(), userID, taskID)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, progress)
}

type restartRequest struct {
	Confirm bool `json:"confirm"`
}

// Restart resets a task attempt after explicit confirmation.
func (h *TaskHandler) Restart(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	var req restartRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	progress, err := h.coordinator.Restart(r.Context(), userID, taskID, req.Confirm)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, progress)
}

// GetStats returns the user's cached activity aggregates.
func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	stats, err := h.stats.Get(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, stats)
}
