// Package taskflow manages the lifecycle of task attempts: session
// creation and reuse, exactly-once prompt delivery, and keeping a task's
// progress status consistent with the true contents of its chat session.
package taskflow

import (
	"log/slog"
	"sync"
)

// Invalidator fans a per-user invalidation signal out to every registered
// cache after a status-changing mutation. Hooks must be cheap and must not
// block; they run on the mutating goroutine.
type Invalidator struct {
	mu    sync.Mutex
	hooks []namedHook
}

type namedHook struct {
	name string
	fn   func(userID string)
}

// NewInvalidator creates an empty Invalidator.
func NewInvalidator() *Invalidator {
	return &Invalidator{}
}

// Register adds a cache-bust hook under a name used for logging.
func (iv *Invalidator) Register(name string, fn func(userID string)) {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.hooks = append(iv.hooks, namedHook{name: name, fn: fn})
}

// Invalidate runs every registered hook for userID.
func (iv *Invalidator) Invalidate(userID string) {
	iv.mu.Lock()
	hooks := make([]namedHook, len(iv.hooks))
	copy(hooks, iv.hooks)
	iv.mu.Unlock()

	for _, h := range hooks {
		slog.Debug("invalidating cache", "cache", h.name, "user_id", userID)
		h.fn(userID)
	}
}
