package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

func TestListTasksFilters(t *testing.T) {
	env := newTestEnv(t, "u1", domain.RoleStudent)
	seedTask(t, env.repo, "go-1")
	env.repo.tasks["py-1"] = &domain.Task{ID: "py-1", Title: "P", Language: "python", Difficulty: "hard", Description: "d", StarterCode: "s"}

	w := env.do(t, http.MethodGet, "/api/tasks?language=go", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Tasks []domain.TaskWithProgress `json:"tasks"`
	}
	decodeBody(t, w.Body.Bytes(), &resp)
	if len(resp.Tasks) != 1 || resp.Tasks[0].Task.ID != "go-1" {
		t.Errorf("Unexpected filtered tasks: %+v", resp.Tasks)
	}
}

func TestGetTaskReturnsDraftOrStarter(t *testing.T) {
	env := newTestEnv(t, "u1", domain.RoleStudent)
	seedTask(t, env.repo, "go-1")

	w := env.do(t, http.MethodGet, "/api/tasks/go-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Draft string `json:"draft"`
	}
	decodeBody(t, w.Body.Bytes(), &resp)
	if resp.Draft != "starter" {
		t.Errorf("Expected starter code fallback, got %q", resp.Draft)
	}

	if w := env.do(t, http.MethodPut, "/api/tasks/go-1/draft", `{"code":"my work"}`); w.Code != http.StatusOK {
		t.Fatalf("PUT draft: status %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/tasks/go-1", "")
	decodeBody(t, w.Body.Bytes(), &resp)
	if resp.Draft != "my work" {
		t.Errorf("Expected saved draft, got %q", resp.Draft)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	env := newTestEnv(t, "u1", domain.RoleStudent)

	if w := env.do(t, http.MethodGet, "/api/tasks/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestSaveDraftRejectsOversizedCode(t *testing.T) {
	env := newTestEnv(t, "u1", domain.RoleStudent)
	seedTask(t, env.repo, "go-1")

	big := strings.Repeat("x", 2048)
	w := env.do(t, http.MethodPut, "/api/tasks/go-1/draft", `{"code":"`+big+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized draft, got %d", w.Code)
	}
}

func TestStartCompleteRestartFlow(t *testing.T) {
	env := newTestEnv(t, "u1", domain.RoleStudent)
	seedTask(t, env.repo, "go-1")

	w := env.do(t, http.MethodPost, "/api/tasks/go-1/start", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Start: status %d, body %s", w.Code, w.Body.String())
	}
	var start struct {
		SessionID string `json:"session_id"`
		Attempts  int    `json:"attempts"`
	}
	decodeBody(t, w.Body.Bytes(), &start)
	if start.SessionID == "" {
		t.Fatal("Start returned no session")
	}

	if w := env.do(t, http.MethodPost, "/api/tasks/go-1/complete", ""); w.Code != http.StatusOK {
		t.Fatalf("Complete: status %d", w.Code)
	}

	// A completed task cannot be started again without a restart.
	if w := env.do(t, http.MethodPost, "/api/tasks/go-1/start", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Start after complete: status %d, want 400", w.Code)
	}

	if w := env.do(t, http.MethodPost, "/api/tasks/go-1/restart", `{"confirm":false}`); w.Code != http.StatusBadRequest {
		t.Errorf("Unconfirmed restart: status %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/tasks/go-1/restart", `{"confirm":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Restart: status %d", w.Code)
	}
	var progress domain.TaskProgress
	decodeBody(t, w.Body.Bytes(), &progress)
	if progress.Status != domain.StatusNotStarted || progress.Attempts != 1 {
		t.Errorf("Unexpected progress after restart: %+v", progress)
	}
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t, "u1", domain.RoleStudent)
	env.repo.stats["u1"] = &domain.UserStats{UserID: "u1", TasksCompleted: 2}

	w := env.do(t, http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var stats domain.UserStats
	decodeBody(t, w.Body.Bytes(), &stats)
	if stats.TasksCompleted != 2 {
		t.Errorf("TasksCompleted = %d, want 2", stats.TasksCompleted)
	}
}
