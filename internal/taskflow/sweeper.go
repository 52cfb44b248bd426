package taskflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

// OrphanSource lists chat sessions that no progress record references.
// Satisfied by store.Repository.
type OrphanSource interface {
	ListOrphanSessions(ctx context.Context, idleSince time.Time) ([]*domain.ChatSession, error)
}

// StartOrphanSweeper runs a background goroutine that periodically reports
// orphaned chat sessions: sessions created for a task attempt whose
// progress link was lost (e.g. the link write failed after creation).
// Orphans are logged, not deleted; the data is harmless and a user may
// still hold the session open.
func StartOrphanSweeper(ctx context.Context, source OrphanSource, interval, idleTTL time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("orphan sweeper started", "interval", interval, "idle_ttl", idleTTL)

		for {
			select {
			case <-ticker.C:
				sweepOrphans(ctx, source, idleTTL)
			case <-ctx.Done():
				slog.Info("orphan sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepOrphans(ctx context.Context, source OrphanSource, idleTTL time.Duration) {
	orphans, err := source.ListOrphanSessions(ctx, time.Now().Add(-idleTTL))
	if err != nil {
		slog.Error("orphan sweep failed", "error", err)
		return
	}
	if len(orphans) == 0 {
		return
	}

	for _, sess := range orphans {
		slog.Warn("orphaned chat session",
			"session_id", sess.ID,
			"user_id", sess.UserID,
			"title", sess.Title,
			"idle_since", sess.UpdatedAt)
	}
	slog.Info("orphan sweep completed", "count", len(orphans))
}
