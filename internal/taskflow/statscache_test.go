package taskflow

import (
	"context"
	"testing"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

type fakeStatsSource struct {
	calls int
	stats map[string]*domain.UserStats
}

func (f *fakeStatsSource) GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	f.calls++
	return f.stats[userID], nil
}

func TestStatsCacheMemoizes(t *testing.T) {
	src := &fakeStatsSource{stats: map[string]*domain.UserStats{
		"u1": {UserID: "u1", TasksCompleted: 4},
	}}
	cache := NewStatsCache(src, NewInvalidator())

	for i := 0; i < 3; i++ {
		stats, err := cache.Get(context.Background(), "u1")
		if err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
		if stats.TasksCompleted != 4 {
			t.Fatalf("Get #%d: completed = %d, want 4", i, stats.TasksCompleted)
		}
	}
	if src.calls != 1 {
		t.Errorf("source computed %d times, want 1", src.calls)
	}
}

func TestStatsCacheInvalidation(t *testing.T) {
	src := &fakeStatsSource{stats: map[string]*domain.UserStats{
		"u1": {UserID: "u1", TasksCompleted: 4},
	}}
	iv := NewInvalidator()
	cache := NewStatsCache(src, iv)

	if _, err := cache.Get(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	src.stats["u1"] = &domain.UserStats{UserID: "u1", TasksCompleted: 5}

	// A status-changing mutation busts the entry through the invalidator.
	iv.Invalidate("u1")

	stats, err := cache.Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.TasksCompleted != 5 {
		t.Errorf("completed after invalidation = %d, want 5", stats.TasksCompleted)
	}
	if src.calls != 2 {
		t.Errorf("source computed %d times, want 2", src.calls)
	}
}

func TestInvalidatorRunsEveryHook(t *testing.T) {
	iv := NewInvalidator()
	var order []string
	iv.Register("a", func(userID string) { order = append(order, "a:"+userID) })
	iv.Register("b", func(userID string) { order = append(order, "b:"+userID) })

	iv.Invalidate("u9")

	if len(order) != 2 || order[0] != "a:u9" || order[1] != "b:u9" {
		t.Errorf("hooks ran as %v, want [a:u9 b:u9]", order)
	}
}
