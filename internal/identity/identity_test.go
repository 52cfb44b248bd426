package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (f *fakeUserStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID], nil
}

func (f *fakeUserStore) UpsertUser(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.UserID] = user
	return nil
}

func TestMiddlewareIssuesCookieAndCreatesUser(t *testing.T) {
	repo := &fakeUserStore{users: make(map[string]*domain.User)}

	var gotUserID string
	var gotRole domain.Role
	handler := Middleware(repo, true, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	if gotUserID == "" || !isValidAnonID(gotUserID) {
		t.Fatalf("Expected a generated anon id, got %q", gotUserID)
	}
	if gotRole != domain.RoleStudent {
		t.Errorf("Expected student role, got %q", gotRole)
	}
	if repo.users[gotUserID] == nil {
		t.Error("User record not created")
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == AnonCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("Anonymous id cookie not set")
	}
	if cookie.Value != gotUserID {
		t.Errorf("Cookie %q does not match context user %q", cookie.Value, gotUserID)
	}
	if !cookie.HttpOnly {
		t.Error("Cookie is not HttpOnly")
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	repo := &fakeUserStore{users: make(map[string]*domain.User)}
	const existing = "anon_0123456789abcdef0123456789abcdef"

	var gotUserID string
	handler := Middleware(repo, true, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: existing})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotUserID != existing {
		t.Errorf("Expected reused id %q, got %q", existing, gotUserID)
	}
}

func TestMiddlewareRejectsForgedCookie(t *testing.T) {
	repo := &fakeUserStore{users: make(map[string]*domain.User)}

	var gotUserID string
	handler := Middleware(repo, true, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "../../etc/passwd"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotUserID == "../../etc/passwd" {
		t.Fatal("Forged cookie value accepted")
	}
	if !isValidAnonID(gotUserID) {
		t.Errorf("Expected a fresh generated id, got %q", gotUserID)
	}
}

func TestMiddlewarePromotesConfiguredAdmin(t *testing.T) {
	const adminID = "anon_ffffffffffffffffffffffffffffffff"
	repo := &fakeUserStore{users: map[string]*domain.User{
		adminID: {
			UserID: adminID, Username: "old", Role: domain.RoleStudent,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		},
	}}

	var gotRole domain.Role
	handler := Middleware(repo, true, []string{adminID})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: adminID})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotRole != domain.RoleAdmin {
		t.Errorf("Expected promotion to admin, got %q", gotRole)
	}
	if repo.users[adminID].Role != domain.RoleAdmin {
		t.Error("Promotion not persisted")
	}
}
