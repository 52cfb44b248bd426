package taskflow

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const autoSendTimeout = 10 * time.Second

// autoSender delivers the task-description prompt into a freshly created
// session exactly once. The send is delayed to let session state settle,
// re-checks message emptiness immediately before sending, and is keyed by
// session identity so a restart (or shutdown) cancels a pending send
// rather than firing into a session that is no longer current.
type autoSender struct {
	sessions Sessions
	delay    time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer // keyed by session ID
	closed  bool
}

func newAutoSender(sessions Sessions, delay time.Duration) *autoSender {
	return &autoSender{
		sessions: sessions,
		delay:    delay,
		pending:  make(map[string]*time.Timer),
	}
}

// Schedule arms a delayed prompt send for sessionID. The pending entry is
// the idempotency marker: it is removed once the send resolves, so the same
// navigation replayed later cannot trigger a resend.
func (a *autoSender) Schedule(userID, sessionID, taskID, prompt string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if _, ok := a.pending[sessionID]; ok {
		// Already armed for this session.
		return
	}
	a.pending[sessionID] = time.AfterFunc(a.delay, func() {
		a.fire(userID, sessionID, taskID, prompt)
	})
}

// Cancel disarms a pending send for sessionID, if any. Called when the
// session stops being the current one for its task (restart, self-heal).
func (a *autoSender) Cancel(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if timer, ok := a.pending[sessionID]; ok {
		timer.Stop()
		delete(a.pending, sessionID)
	}
}

// Close cancels every pending send. Used on shutdown.
func (a *autoSender) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for id, timer := range a.pending {
		timer.Stop()
		delete(a.pending, id)
	}
}

func (a *autoSender) fire(userID, sessionID, taskID, prompt string) {
	// The timer fired; the marker's job is done either way. Removing it
	// first also lets Cancel during the send be a no-op instead of a race.
	a.mu.Lock()
	if _, ok := a.pending[sessionID]; !ok {
		// Cancelled between firing and acquiring the lock.
		a.mu.Unlock()
		return
	}
	delete(a.pending, sessionID)
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), autoSendTimeout)
	defer cancel()

	// Re-check emptiness: the session may have been populated since the
	// timer was armed (another tab, a concurrent request).
	count, err := a.sessions.MessageCount(ctx, sessionID)
	if err != nil {
		slog.Error("auto-send emptiness check failed, prompt not sent",
			"session_id", sessionID, "task_id", taskID, "error", err)
		return
	}
	if count > 0 {
		slog.Debug("auto-send skipped, session no longer empty",
			"session_id", sessionID, "task_id", taskID, "messages", count)
		return
	}

	if _, err := a.sessions.Send(ctx, userID, sessionID, prompt); err != nil {
		// Sends are not retried: the next start() sees an empty session
		// and self-heals into a fresh attempt.
		slog.Error("auto-send failed", "session_id", sessionID, "task_id", taskID, "error", err)
		return
	}

	slog.Info("task prompt delivered", "session_id", sessionID, "task_id", taskID)
}

// isPending reports whether a send is still armed for sessionID.
func (a *autoSender) isPending(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[sessionID]
	return ok
}

// pendingCount reports armed sends. Test helper.
func (a *autoSender) pendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
