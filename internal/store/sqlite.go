package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		blocked INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		completed INTEGER NOT NULL DEFAULT 0,
		primary_language TEXT NOT NULL DEFAULT '',
		preferred_languages TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS onboarding_status (
		user_id TEXT PRIMARY KEY,
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS assessments (
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		score INTEGER NOT NULL,
		confidence INTEGER NOT NULL,
		completed_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, type)
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		language TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		description TEXT NOT NULL,
		starter_code TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		task_id TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id, updated_at);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at);

	CREATE TABLE IF NOT EXISTS task_progress (
		user_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'not_started',
		chat_session_id TEXT,
		attempts INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, task_id)
	);
	CREATE INDEX IF NOT EXISTS idx_task_progress_session ON task_progress(chat_session_id) WHERE chat_session_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS drafts (
		user_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		code TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, task_id)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, role, blocked, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var role string
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&user.UserID, &user.Username, &role, &user.Blocked, &lastSeen, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.Role = domain.Role(role)
	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, role, blocked, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		role = excluded.role,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, string(user.Role), user.Blocked,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// SetBlocked flips the blocked flag for a user.
func (s *SQLiteStore) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	query := `UPDATE users SET blocked = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, blocked, time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return shared.Errorf(shared.KindNotFound, "user %s not found", userID)
	}
	return nil
}

// GetProfile retrieves a user's profile.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT user_id, completed, primary_language, preferred_languages, created_at, updated_at
		FROM profiles WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var profile domain.Profile
	var preferred string
	var createdAt, updatedAt int64

	err := row.Scan(&profile.UserID, &profile.Completed, &profile.PrimaryLanguage, &preferred, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	if err := json.Unmarshal([]byte(preferred), &profile.PreferredLanguages); err != nil {
		return nil, fmt.Errorf("decode preferred languages: %w", err)
	}
	profile.CreatedAt = time.Unix(createdAt, 0)
	profile.UpdatedAt = time.Unix(updatedAt, 0)

	return &profile, nil
}

// UpsertProfile creates or updates a profile.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	preferred, err := json.Marshal(profile.PreferredLanguages)
	if err != nil {
		return fmt.Errorf("encode preferred languages: %w", err)
	}

	query := `
	INSERT INTO profiles (user_id, completed, primary_language, preferred_languages, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		completed = excluded.completed,
		primary_language = excluded.primary_language,
		preferred_languages = excluded.preferred_languages,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		profile.UserID, profile.Completed, profile.PrimaryLanguage, string(preferred),
		profile.CreatedAt.Unix(), profile.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetOnboardingStatus retrieves the onboarding record for a user.
func (s *SQLiteStore) GetOnboardingStatus(ctx context.Context, userID string) (*domain.OnboardingStatus, error) {
	query := `SELECT user_id, completed, completed_at FROM onboarding_status WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var status domain.OnboardingStatus
	var completedAt sql.NullInt64

	err := row.Scan(&status.UserID, &status.Completed, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan onboarding status: %w", err)
	}

	if completedAt.Valid {
		at := time.Unix(completedAt.Int64, 0)
		status.CompletedAt = &at
	}

	return &status, nil
}

// MarkOnboardingCompleted sets the completed flag. Monotonic: an existing
// completed record is never reverted.
func (s *SQLiteStore) MarkOnboardingCompleted(ctx context.Context, userID string, at time.Time) error {
	query := `
	INSERT INTO onboarding_status (user_id, completed, completed_at)
	VALUES (?, 1, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		completed = 1,
		completed_at = COALESCE(onboarding_status.completed_at, excluded.completed_at)`

	_, err := s.db.ExecContext(ctx, query, userID, at.Unix())
	if err != nil {
		return fmt.Errorf("mark onboarding completed: %w", err)
	}
	return nil
}

// GetAssessments lists a user's submitted assessments.
func (s *SQLiteStore) GetAssessments(ctx context.Context, userID string) ([]*domain.Assessment, error) {
	query := `
		SELECT user_id, type, score, confidence, completed_at
		FROM assessments WHERE user_id = ? ORDER BY completed_at`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer closeRows(rows, "assessments")

	var out []*domain.Assessment
	for rows.Next() {
		var a domain.Assessment
		var typ string
		var completedAt int64
		if err := rows.Scan(&a.UserID, &typ, &a.Score, &a.Confidence, &completedAt); err != nil {
			return nil, fmt.Errorf("scan assessment row: %w", err)
		}
		a.Type = domain.AssessmentType(typ)
		a.CompletedAt = time.Unix(completedAt, 0)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}

	return out, nil
}

// InsertAssessment records a submission. Assessments are immutable; a
// second submission of the same type is rejected.
func (s *SQLiteStore) InsertAssessment(ctx context.Context, a *domain.Assessment) error {
	query := `
	INSERT INTO assessments (user_id, type, score, confidence, completed_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		a.UserID, string(a.Type), a.Score, a.Confidence, a.CompletedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return shared.Errorf(shared.KindValidation, "%s assessment already submitted", a.Type)
		}
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// SeedTasks inserts the task catalog. Rows that already exist are left alone
// so the catalog stays immutable across restarts.
func (s *SQLiteStore) SeedTasks(ctx context.Context, tasks []domain.Task) error {
	query := `
	INSERT INTO tasks (id, title, language, difficulty, description, starter_code)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING`

	for i := range tasks {
		t := &tasks[i]
		if _, err := s.db.ExecContext(ctx, query,
			t.ID, t.Title, t.Language, t.Difficulty, t.Description, t.StarterCode,
		); err != nil {
			return fmt.Errorf("seed task %s: %w", t.ID, err)
		}
	}
	return nil
}

// GetTask retrieves one task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	query := `SELECT id, title, language, difficulty, description, starter_code FROM tasks WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, taskID)

	var t domain.Task
	err := row.Scan(&t.ID, &t.Title, &t.Language, &t.Difficulty, &t.Description, &t.StarterCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan task row: %w", err)
	}
	return &t, nil
}

// ListTasksWithProgress lists every task joined with the user's progress.
func (s *SQLiteStore) ListTasksWithProgress(ctx context.Context, userID string) ([]*domain.TaskWithProgress, error) {
	query := `
		SELECT t.id, t.title, t.language, t.difficulty, t.description, t.starter_code,
		       p.status, p.chat_session_id, p.attempts, p.created_at, p.updated_at
		FROM tasks t
		LEFT JOIN task_progress p ON p.task_id = t.id AND p.user_id = ?
		ORDER BY t.id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks with progress: %w", err)
	}
	defer closeRows(rows, "tasks with progress")

	var out []*domain.TaskWithProgress
	for rows.Next() {
		var tw domain.TaskWithProgress
		var status, sessionID sql.NullString
		var attempts, createdAt, updatedAt sql.NullInt64

		if err := rows.Scan(
			&tw.Task.ID, &tw.Task.Title, &tw.Task.Language, &tw.Task.Difficulty,
			&tw.Task.Description, &tw.Task.StarterCode,
			&status, &sessionID, &attempts, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task with progress row: %w", err)
		}

		if status.Valid {
			tw.Progress = &domain.TaskProgress{
				UserID:        userID,
				TaskID:        tw.Task.ID,
				Status:        domain.ProgressStatus(status.String),
				ChatSessionID: sessionID.String,
				Attempts:      int(attempts.Int64),
				CreatedAt:     time.Unix(createdAt.Int64, 0),
				UpdatedAt:     time.Unix(updatedAt.Int64, 0),
			}
		}
		out = append(out, &tw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks with progress: %w", err)
	}

	return out, nil
}

// GetTaskProgress retrieves progress for (user, task).
func (s *SQLiteStore) GetTaskProgress(ctx context.Context, userID, taskID string) (*domain.TaskProgress, error) {
	query := `
		SELECT user_id, task_id, status, chat_session_id, attempts, created_at, updated_at
		FROM task_progress WHERE user_id = ? AND task_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID, taskID)

	var p domain.TaskProgress
	var status string
	var sessionID sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(&p.UserID, &p.TaskID, &status, &sessionID, &p.Attempts, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan task progress row: %w", err)
	}

	p.Status = domain.ProgressStatus(status)
	p.ChatSessionID = sessionID.String
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)

	return &p, nil
}

// UpsertTaskProgress creates or replaces a progress record.
func (s *SQLiteStore) UpsertTaskProgress(ctx context.Context, p *domain.TaskProgress) error {
	query := `
	INSERT INTO task_progress (user_id, task_id, status, chat_session_id, attempts, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, task_id) DO UPDATE SET
		status = excluded.status,
		chat_session_id = excluded.chat_session_id,
		attempts = excluded.attempts,
		updated_at = excluded.updated_at`

	var sessionID interface{}
	if p.ChatSessionID != "" {
		sessionID = p.ChatSessionID
	}

	_, err := s.db.ExecContext(ctx, query,
		p.UserID, p.TaskID, string(p.Status), sessionID, p.Attempts,
		p.CreatedAt.Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert task progress: %w", err)
	}
	return nil
}

// CreateChatSession inserts a new session.
func (s *SQLiteStore) CreateChatSession(ctx context.Context, sess *domain.ChatSession) error {
	query := `
	INSERT INTO chat_sessions (id, user_id, title, task_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	var taskID interface{}
	if sess.TaskID != "" {
		taskID = sess.TaskID
	}

	_, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.UserID, sess.Title, taskID, sess.CreatedAt.Unix(), sess.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create chat session: %w", err)
	}
	return nil
}

// GetChatSession retrieves one session by ID.
func (s *SQLiteStore) GetChatSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	query := `SELECT id, user_id, title, task_id, created_at, updated_at FROM chat_sessions WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, sessionID)

	var sess domain.ChatSession
	var taskID sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(&sess.ID, &sess.UserID, &sess.Title, &taskID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chat session row: %w", err)
	}

	sess.TaskID = taskID.String
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)

	return &sess, nil
}

// ListChatSessions lists a user's sessions, most recent first.
func (s *SQLiteStore) ListChatSessions(ctx context.Context, userID string) ([]*domain.ChatSession, error) {
	query := `
		SELECT id, user_id, title, task_id, created_at, updated_at
		FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query chat sessions: %w", err)
	}
	defer closeRows(rows, "chat sessions")

	var out []*domain.ChatSession
	for rows.Next() {
		var sess domain.ChatSession
		var taskID sql.NullString
		var createdAt, updatedAt int64
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &taskID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan chat session row: %w", err)
		}
		sess.TaskID = taskID.String
		sess.CreatedAt = time.Unix(createdAt, 0)
		sess.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat sessions: %w", err)
	}

	return out, nil
}

// GetMessages retrieves a session's messages in append order.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	query := `
		SELECT id, session_id, role, content, created_at
		FROM chat_messages WHERE session_id = ? ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer closeRows(rows, "messages")

	var out []*domain.Message
	for rows.Next() {
		var m domain.Message
		var role string
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.Role = domain.MessageRole(role)
		m.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return out, nil
}

// CountMessages returns the number of messages in a session.
func (s *SQLiteStore) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE session_id = ?`, sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// AppendMessage appends a message and touches the session timestamp.
func (s *SQLiteStore) AppendMessage(ctx context.Context, m *domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, string(m.Role), m.Content, m.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`,
		m.CreatedAt.Unix(), m.SessionID,
	); err != nil {
		return fmt.Errorf("touch chat session: %w", err)
	}
	return nil
}

// ListOrphanSessions returns task-attempt sessions idle since before the
// threshold that no task_progress row references. Free-chat sessions
// (task_id NULL) are never orphans.
func (s *SQLiteStore) ListOrphanSessions(ctx context.Context, idleSince time.Time) ([]*domain.ChatSession, error) {
	query := `
		SELECT c.id, c.user_id, c.title, c.task_id, c.created_at, c.updated_at
		FROM chat_sessions c
		LEFT JOIN task_progress p ON p.chat_session_id = c.id
		WHERE c.task_id IS NOT NULL AND p.chat_session_id IS NULL AND c.updated_at < ?`

	rows, err := s.db.QueryContext(ctx, query, idleSince.Unix())
	if err != nil {
		return nil, fmt.Errorf("query orphan sessions: %w", err)
	}
	defer closeRows(rows, "orphan sessions")

	var out []*domain.ChatSession
	for rows.Next() {
		var sess domain.ChatSession
		var taskID sql.NullString
		var createdAt, updatedAt int64
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &taskID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan orphan session row: %w", err)
		}
		sess.TaskID = taskID.String
		sess.CreatedAt = time.Unix(createdAt, 0)
		sess.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orphan sessions: %w", err)
	}

	return out, nil
}

// GetDraft retrieves the saved code draft for (user, task).
func (s *SQLiteStore) GetDraft(ctx context.Context, userID, taskID string) (string, error) {
	var code string
	err := s.db.QueryRowContext(ctx,
		`SELECT code FROM drafts WHERE user_id = ? AND task_id = ?`, userID, taskID,
	).Scan(&code)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scan draft row: %w", err)
	}
	return code, nil
}

// SaveDraft stores the code draft for (user, task).
func (s *SQLiteStore) SaveDraft(ctx context.Context, userID, taskID, code string) error {
	query := `
	INSERT INTO drafts (user_id, task_id, code, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id, task_id) DO UPDATE SET
		code = excluded.code,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, userID, taskID, code, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// GetUserStats computes activity aggregates for a user. Days active counts
// distinct calendar days with at least one sent message.
func (s *SQLiteStore) GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	stats := &domain.UserStats{UserID: userID}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM task_progress WHERE user_id = ? AND status = 'completed'`, userID,
	).Scan(&stats.TasksCompleted)
	if err != nil {
		return nil, fmt.Errorf("count completed tasks: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chat_messages m
		JOIN chat_sessions c ON c.id = m.session_id
		WHERE c.user_id = ? AND m.role = 'user'`, userID,
	).Scan(&stats.QuestionsAsked)
	if err != nil {
		return nil, fmt.Errorf("count questions asked: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT date(m.created_at, 'unixepoch')) FROM chat_messages m
		JOIN chat_sessions c ON c.id = m.session_id
		WHERE c.user_id = ? AND m.role = 'user'`, userID,
	).Scan(&stats.DaysActive)
	if err != nil {
		return nil, fmt.Errorf("count active days: %w", err)
	}

	return stats, nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}
