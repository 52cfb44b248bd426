package domain

import (
	"fmt"
	"time"
)

// Task is an immutable curriculum task. The catalog is seeded at startup
// and never mutated through the API.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Language    string `json:"language"`
	Difficulty  string `json:"difficulty"`
	Description string `json:"description"`
	StarterCode string `json:"starter_code"`
}

// PromptTitle returns the chat session title used for an attempt at this task.
func (t *Task) PromptTitle() string {
	return fmt.Sprintf("Task: %s", t.Title)
}

// Prompt formats the task description message sent once into a fresh session.
func (t *Task) Prompt() string {
	return fmt.Sprintf("I'm working on the task %q (%s, %s).\n\n%s\n\nStarter code:\n```%s\n%s\n```",
		t.Title, t.Language, t.Difficulty, t.Description, t.Language, t.StarterCode)
}

// ProgressStatus is the progress state of a (user, task) pair.
type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not_started"
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
)

// Valid reports whether s is one of the three known statuses.
func (s ProgressStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// TaskProgress tracks one user's attempt state for one task. The
// (UserID, TaskID) pair is unique.
type TaskProgress struct {
	UserID        string         `json:"user_id"`
	TaskID        string         `json:"task_id"`
	Status        ProgressStatus `json:"status"`
	ChatSessionID string         `json:"chat_session_id,omitempty"`
	Attempts      int            `json:"attempts"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// HasSession reports whether the progress record references a chat session.
func (p *TaskProgress) HasSession() bool {
	return p.ChatSessionID != ""
}

// Restart resets the attempt: status back to not_started, session link
// cleared, attempts incremented. Only an explicit restart counts an attempt.
func (p *TaskProgress) Restart() {
	p.Status = StatusNotStarted
	p.ChatSessionID = ""
	p.Attempts++
}

// SelfHeal resets a progress record whose session turned out to be empty.
// Unlike Restart it leaves Attempts untouched: the user never actually
// worked in that session.
func (p *TaskProgress) SelfHeal() {
	p.Status = StatusNotStarted
	p.ChatSessionID = ""
}

// TaskWithProgress pairs a task with the requesting user's progress, for
// list responses. Progress is nil when the user never started the task.
type TaskWithProgress struct {
	Task     Task          `json:"task"`
	Progress *TaskProgress `json:"progress,omitempty"`
}
