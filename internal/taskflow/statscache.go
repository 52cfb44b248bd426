package taskflow

import (
	"context"
	"sync"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

// StatsSource computes activity aggregates. Satisfied by store.Repository.
type StatsSource interface {
	GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error)
}

// StatsCache memoizes per-user activity aggregates until a status-changing
// mutation invalidates them through the Invalidator.
type StatsCache struct {
	source StatsSource

	mu    sync.Mutex
	cache map[string]*domain.UserStats
}

// NewStatsCache creates a cache and registers it with the invalidator.
func NewStatsCache(source StatsSource, iv *Invalidator) *StatsCache {
	c := &StatsCache{
		source: source,
		cache:  make(map[string]*domain.UserStats),
	}
	iv.Register("user_stats", c.invalidate)
	return c
}

// Get returns the cached stats for userID, computing them on a miss.
func (c *StatsCache) Get(ctx context.Context, userID string) (*domain.UserStats, error) {
	c.mu.Lock()
	if stats, ok := c.cache[userID]; ok {
		c.mu.Unlock()
		return stats, nil
	}
	c.mu.Unlock()

	stats, err := c.source.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[userID] = stats
	c.mu.Unlock()

	return stats, nil
}

func (c *StatsCache) invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, userID)
}
