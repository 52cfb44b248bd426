package taskflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
)

// Store is the persistence surface the coordinator needs. Satisfied by
// store.Repository.
type Store interface {
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	GetTaskProgress(ctx context.Context, userID, taskID string) (*domain.TaskProgress, error)
	UpsertTaskProgress(ctx context.Context, p *domain.TaskProgress) error
	SaveDraft(ctx context.Context, userID, taskID, code string) error
}

// Sessions is the chat surface the coordinator needs. Satisfied by
// chat.Service.
type Sessions interface {
	Create(ctx context.Context, userID, title, taskID string) (*domain.ChatSession, error)
	MessageCount(ctx context.Context, sessionID string) (int, error)
	Send(ctx context.Context, userID, sessionID, content string) (*domain.Message, error)
}

// StartResult reports what Start decided to do.
type StartResult struct {
	SessionID       string `json:"session_id"`
	Resumed         bool   `json:"resumed"`
	SelfHealed      bool   `json:"self_healed"`
	PromptScheduled bool   `json:"prompt_scheduled"`
	Attempts        int    `json:"attempts"`
}

// Coordinator manages task attempts. It creates or reuses the chat session
// tied to a (user, task) pair, delivers the initial task prompt exactly
// once, and reconciles progress records that disagree with the session's
// actual contents.
type Coordinator struct {
	store       Store
	sessions    Sessions
	invalidator *Invalidator
	sender      *autoSender

	// inFlight rejects re-entrant Start calls per (user, task) while a
	// session-creation round trip is outstanding. Advisory only: true
	// cross-process duplicates are caught by the empty-session self-heal.
	inFlight sync.Map
}

// NewCoordinator creates a Coordinator. autoSendDelay is the settle
// interval before the task prompt is delivered into a fresh session.
func NewCoordinator(store Store, sessions Sessions, iv *Invalidator, autoSendDelay time.Duration) *Coordinator {
	return &Coordinator{
		store:       store,
		sessions:    sessions,
		invalidator: iv,
		sender:      newAutoSender(sessions, autoSendDelay),
	}
}

// Close cancels any pending prompt deliveries.
func (c *Coordinator) Close() {
	c.sender.Close()
}

func attemptKey(userID, taskID string) string {
	return userID + "/" + taskID
}

// Start begins or resumes a task attempt.
//
// An in-progress attempt with a non-empty session resumes without any
// mutation and without re-sending the prompt. An in-progress attempt whose
// session turns out to be empty is self-healed back to not_started (the
// attempt counter is untouched) and falls through to a fresh start. A
// fresh start creates a session, links it into the progress record, and
// schedules the one-shot prompt delivery.
func (c *Coordinator) Start(ctx context.Context, userID, taskID string) (*StartResult, error) {
	lock, _ := c.inFlight.LoadOrStore(attemptKey(userID, taskID), &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	if !mutex.TryLock() {
		return nil, shared.Errorf(shared.KindTransient, "start already in progress for task %s", taskID)
	}
	defer func() {
		mutex.Unlock()
		c.inFlight.Delete(attemptKey(userID, taskID))
	}()

	task, err := c.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, shared.Errorf(shared.KindNotFound, "task %s not found", taskID)
	}

	progress, err := c.store.GetTaskProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	selfHealed := false
	if progress != nil && progress.HasSession() {
		count, err := c.sessionMessageCount(ctx, progress.ChatSessionID)
		if err != nil {
			return nil, err
		}

		if count > 0 {
			if progress.Status == domain.StatusInProgress || progress.Status == domain.StatusCompleted {
				// Idempotent resume: the session is real and non-empty,
				// so nothing is mutated and no prompt is re-sent.
				return &StartResult{
					SessionID: progress.ChatSessionID,
					Resumed:   true,
					Attempts:  progress.Attempts,
				}, nil
			}
		} else if progress.Status == domain.StatusInProgress && c.sender.isPending(progress.ChatSessionID) {
			// The session is empty only because its prompt delivery is
			// still armed. Resume onto it instead of tearing it down.
			return &StartResult{
				SessionID:       progress.ChatSessionID,
				Resumed:         true,
				PromptScheduled: true,
				Attempts:        progress.Attempts,
			}, nil
		} else if progress.Status == domain.StatusInProgress {
			// The progress record points at a session nobody ever used.
			// Reset it and treat the task as fresh. Attempts stays put:
			// this is reconciliation, not a restart.
			c.sender.Cancel(progress.ChatSessionID)
			progress.SelfHeal()
			if err := c.store.UpsertTaskProgress(ctx, progress); err != nil {
				return nil, err
			}
			c.invalidator.Invalidate(userID)
			selfHealed = true
			slog.Info("self-healed empty task session",
				"user_id", userID, "task_id", taskID)
		}
	}

	if progress != nil && progress.Status == domain.StatusCompleted {
		return nil, shared.Errorf(shared.KindValidation, "task %s already completed; restart to try again", taskID)
	}

	// Fresh attempt: create the session first, then link it. The link is
	// issued only after creation completes (causal ordering, not a
	// transaction).
	sess, err := c.sessions.Create(ctx, userID, task.PromptTitle(), taskID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if progress == nil {
		progress = &domain.TaskProgress{
			UserID:    userID,
			TaskID:    taskID,
			CreatedAt: now,
		}
	}
	progress.Status = domain.StatusInProgress
	progress.ChatSessionID = sess.ID
	progress.UpdatedAt = now

	if err := c.linkSession(ctx, progress); err != nil {
		// The session now exists with no progress record referencing it.
		// The orphan sweep reports such sessions; nothing more to do here.
		slog.Error("failed to link session to task progress, session orphaned",
			"user_id", userID, "task_id", taskID, "session_id", sess.ID, "error", err)
		return nil, err
	}
	c.invalidator.Invalidate(userID)

	c.sender.Schedule(userID, sess.ID, taskID, task.Prompt())

	return &StartResult{
		SessionID:       sess.ID,
		SelfHealed:      selfHealed,
		PromptScheduled: true,
		Attempts:        progress.Attempts,
	}, nil
}

// sessionMessageCount treats a vanished session as empty: a progress row
// pointing at a deleted session is exactly the stale state the self-heal
// exists for.
func (c *Coordinator) sessionMessageCount(ctx context.Context, sessionID string) (int, error) {
	count, err := c.sessions.MessageCount(ctx, sessionID)
	if err != nil {
		if shared.IsKind(err, shared.KindNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// linkSession writes the progress record, retrying the link once. Session
// creation is not idempotent, so only this follow-up write is retried.
func (c *Coordinator) linkSession(ctx context.Context, p *domain.TaskProgress) error {
	err := c.store.UpsertTaskProgress(ctx, p)
	if err == nil {
		return nil
	}
	slog.Warn("progress link failed, retrying once",
		"user_id", p.UserID, "task_id", p.TaskID, "error", err)
	return c.store.UpsertTaskProgress(ctx, p)
}

// Complete marks an in-progress attempt as completed.
func (c *Coordinator) Complete(ctx context.Context, userID, taskID string) (*domain.TaskProgress, error) {
	progress, err := c.store.GetTaskProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if progress == nil || progress.Status != domain.StatusInProgress {
		return nil, shared.Errorf(shared.KindValidation, "task %s is not in progress", taskID)
	}

	progress.Status = domain.StatusCompleted
	progress.UpdatedAt = time.Now()
	if err := c.store.UpsertTaskProgress(ctx, progress); err != nil {
		return nil, err
	}
	c.invalidator.Invalidate(userID)

	slog.Info("task completed", "user_id", userID, "task_id", taskID)
	return progress, nil
}

// Restart resets an attempt: status back to not_started, session link
// cleared, attempts incremented, draft reset to the starter code. The
// caller must have confirmed the restart explicitly.
func (c *Coordinator) Restart(ctx context.Context, userID, taskID string, confirmed bool) (*domain.TaskProgress, error) {
	if !confirmed {
		return nil, shared.Errorf(shared.KindValidation, "restart requires confirmation")
	}

	task, err := c.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, shared.Errorf(shared.KindNotFound, "task %s not found", taskID)
	}

	progress, err := c.store.GetTaskProgress(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, shared.Errorf(shared.KindValidation, "task %s was never started", taskID)
	}

	if progress.HasSession() {
		// The old session stops being current; a pending prompt for it
		// must never fire.
		c.sender.Cancel(progress.ChatSessionID)
	}

	progress.Restart()
	progress.UpdatedAt = time.Now()
	if err := c.store.UpsertTaskProgress(ctx, progress); err != nil {
		return nil, err
	}

	if err := c.store.SaveDraft(ctx, userID, taskID, task.StarterCode); err != nil {
		slog.Warn("failed to reset draft on restart", "user_id", userID, "task_id", taskID, "error", err)
	}
	c.invalidator.Invalidate(userID)

	slog.Info("task restarted", "user_id", userID, "task_id", taskID, "attempts", progress.Attempts)
	return progress, nil
}
