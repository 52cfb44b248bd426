// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

// Repository defines the interface for persisting users, learning state,
// tasks, and chat data.
type Repository interface {
	// GetUser retrieves a user by ID. Returns (nil, nil) when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// SetBlocked flips the blocked flag for a user.
	SetBlocked(ctx context.Context, userID string, blocked bool) error

	// GetProfile retrieves a user's profile. Returns (nil, nil) when absent.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// UpsertProfile creates or updates a profile.
	UpsertProfile(ctx context.Context, profile *domain.Profile) error

	// GetOnboardingStatus retrieves the onboarding record.
	// Returns (nil, nil) when absent.
	GetOnboardingStatus(ctx context.Context, userID string) (*domain.OnboardingStatus, error)

	// MarkOnboardingCompleted sets the completed flag. The flag is
	// monotonic; there is no way to unset it.
	MarkOnboardingCompleted(ctx context.Context, userID string, at time.Time) error

	// GetAssessments lists a user's submitted assessments.
	GetAssessments(ctx context.Context, userID string) ([]*domain.Assessment, error)

	// InsertAssessment records a submission. Fails with a validation error
	// when an assessment of the same type already exists for the user.
	InsertAssessment(ctx context.Context, a *domain.Assessment) error

	// SeedTasks inserts the task catalog. Existing rows are left alone.
	SeedTasks(ctx context.Context, tasks []domain.Task) error

	// GetTask retrieves one task. Returns (nil, nil) when absent.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// ListTasksWithProgress lists every task joined with the user's
	// progress, if any.
	ListTasksWithProgress(ctx context.Context, userID string) ([]*domain.TaskWithProgress, error)

	// GetTaskProgress retrieves progress for (user, task).
	// Returns (nil, nil) when absent.
	GetTaskProgress(ctx context.Context, userID, taskID string) (*domain.TaskProgress, error)

	// UpsertTaskProgress creates or replaces a progress record.
	UpsertTaskProgress(ctx context.Context, p *domain.TaskProgress) error

	// CreateChatSession inserts a new session.
	CreateChatSession(ctx context.Context, s *domain.ChatSession) error

	// GetChatSession retrieves one session. Returns (nil, nil) when absent.
	GetChatSession(ctx context.Context, sessionID string) (*domain.ChatSession, error)

	// ListChatSessions lists a user's sessions, most recent first.
	ListChatSessions(ctx context.Context, userID string) ([]*domain.ChatSession, error)

	// GetMessages retrieves a session's messages in append order.
	GetMessages(ctx context.Context, sessionID string) ([]*domain.Message, error)

	// CountMessages returns the number of messages in a session.
	CountMessages(ctx context.Context, sessionID string) (int, error)

	// AppendMessage appends a message and touches the session timestamp.
	AppendMessage(ctx context.Context, m *domain.Message) error

	// ListOrphanSessions returns sessions idle past the threshold that no
	// task_progress row references.
	ListOrphanSessions(ctx context.Context, idleSince time.Time) ([]*domain.ChatSession, error)

	// GetDraft retrieves the saved code draft for (user, task).
	// Returns ("", nil) when absent.
	GetDraft(ctx context.Context, userID, taskID string) (string, error)

	// SaveDraft stores the code draft for (user, task).
	SaveDraft(ctx context.Context, userID, taskID, code string) error

	// GetUserStats computes activity aggregates for a user.
	GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
