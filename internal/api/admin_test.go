package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

func seedBlockTarget(t *testing.T, env *testEnv, userID string) {
	t.Helper()
	env.repo.users[userID] = &domain.User{
		UserID: userID, Username: "target", Role: domain.RoleStudent,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
}

func TestAdminBlockRequiresAdminRole(t *testing.T) {
	env := newTestEnv(t, "u1", domain.RoleStudent)
	seedBlockTarget(t, env, "victim")

	if w := env.do(t, http.MethodPost, "/api/admin/users/victim/block", ""); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin, got %d", w.Code)
	}
	if env.repo.users["victim"].Blocked {
		t.Error("Non-admin request flipped the blocked flag")
	}
}

func TestAdminBlockUnblock(t *testing.T) {
	env := newTestEnv(t, "admin-1", domain.RoleAdmin)
	seedBlockTarget(t, env, "target")

	// Warm the resolver cache with the unblocked state.
	if got := env.resolver.Resolve(context.Background(), "target"); got.IsLoading() {
		t.Fatal("Resolver failed to warm")
	}

	if w := env.do(t, http.MethodPost, "/api/admin/users/target/block", ""); w.Code != http.StatusOK {
		t.Fatalf("Block: status %d", w.Code)
	}
	if !env.repo.users["target"].Blocked {
		t.Error("Blocked flag not set")
	}

	// The cache was busted, so the new state is visible immediately.
	if blocked, ok := env.resolver.Resolve(context.Background(), "target").Value(); !ok || !blocked {
		t.Error("Resolver still reports the stale unblocked state")
	}

	if w := env.do(t, http.MethodPost, "/api/admin/users/target/unblock", ""); w.Code != http.StatusOK {
		t.Fatalf("Unblock: status %d", w.Code)
	}
	if blocked, ok := env.resolver.Resolve(context.Background(), "target").Value(); !ok || blocked {
		t.Error("Resolver still reports the stale blocked state")
	}
}

func TestAdminBlockUnknownUser(t *testing.T) {
	env := newTestEnv(t, "admin-1", domain.RoleAdmin)

	if w := env.do(t, http.MethodPost, "/api/admin/users/ghost/block", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown user, got %d", w.Code)
	}
}
