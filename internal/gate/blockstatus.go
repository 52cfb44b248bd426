package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BlockSource fetches the authoritative blocked flag for a user.
type BlockSource interface {
	BlockedStatus(ctx context.Context, userID string) (bool, error)
}

// BlockSourceFunc adapts a function to the BlockSource interface.
type BlockSourceFunc func(ctx context.Context, userID string) (bool, error)

// BlockedStatus calls f.
func (f BlockSourceFunc) BlockedStatus(ctx context.Context, userID string) (bool, error) {
	return f(ctx, userID)
}

type blockEntry struct {
	blocked bool
	expires time.Time
}

// BlockStatusResolver answers "is this user blocked" with a short-TTL cache
// and single-flight de-duplication: N concurrent callers for the same user
// share one fetch. On fetch failure it degrades to Loading, never to
// Known(false) - "not blocked" is never assumed under uncertainty.
type BlockStatusResolver struct {
	source BlockSource
	ttl    time.Duration
	group  singleflight.Group

	mu    sync.Mutex
	cache map[string]blockEntry

	now func() time.Time
}

// NewBlockStatusResolver creates a resolver with the given cache TTL.
func NewBlockStatusResolver(source BlockSource, ttl time.Duration) *BlockStatusResolver {
	return &BlockStatusResolver{
		source: source,
		ttl:    ttl,
		cache:  make(map[string]blockEntry),
		now:    time.Now,
	}
}

// Resolve returns the cached blocked state for userID, fetching it when
// the cache is cold or stale.
func (r *BlockStatusResolver) Resolve(ctx context.Context, userID string) domain.TriState[bool] {
	r.mu.Lock()
	entry, ok := r.cache[userID]
	fresh := ok && r.now().Before(entry.expires)
	r.mu.Unlock()

	if fresh {
		return domain.Known(entry.blocked)
	}

	v, err, _ := r.group.Do(userID, func() (interface{}, error) {
		blocked, err := r.source.BlockedStatus(ctx, userID)
		if err != nil {
			return false, err
		}
		r.mu.Lock()
		r.cache[userID] = blockEntry{blocked: blocked, expires: r.now().Add(r.ttl)}
		r.mu.Unlock()
		return blocked, nil
	})
	if err != nil {
		slog.Warn("blocked status fetch failed", "user_id", userID, "error", err)
		return domain.Loading[bool]()
	}

	return domain.Known(v.(bool))
}

// MarkBlocked records a positively observed block without a fetch, e.g.
// when some other authenticated call surfaced a blocked-account error.
func (r *BlockStatusResolver) MarkBlocked(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[userID] = blockEntry{blocked: true, expires: r.now().Add(r.ttl)}
}

// Invalidate drops the cached entry for userID. Called when an admin flips
// the blocked flag and on navigation to the exempt pages.
func (r *BlockStatusResolver) Invalidate(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, userID)
}
