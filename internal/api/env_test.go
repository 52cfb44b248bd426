package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/assess"
	"github.com/Bogdusik/programming-helper-ai/internal/chat"
	"github.com/Bogdusik/programming-helper-ai/internal/config"
	"github.com/Bogdusik/programming-helper-ai/internal/consent"
	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/Bogdusik/programming-helper-ai/internal/gate"
	"github.com/Bogdusik/programming-helper-ai/internal/identity"
	"github.com/Bogdusik/programming-helper-ai/internal/taskflow"
	"github.com/go-chi/chi/v5"
)

// testEnv wires the full handler stack over in-memory fakes. The identity
// middleware is replaced with a fixed user.
type testEnv struct {
	repo        *fakeRepo
	consents    *consent.Store
	resolver    *gate.BlockStatusResolver
	coordinator *taskflow.Coordinator
	router      *chi.Mux
}

func testConfig() *config.Config {
	return &config.Config{
		Port:          "0",
		DBPath:        "unused",
		DataDir:       "unused",
		BlockCacheTTL: time.Minute,
		AutoSendDelay: time.Millisecond,
		Retry:         config.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond},
		Eligibility:   config.EligibilityConfig{DaysActive: 5, QuestionsAsked: 10, TasksCompleted: 3},
		MaxCodeBytes:  1024,
	}
}

func newTestEnv(t *testing.T, userID string, role domain.Role) *testEnv {
	t.Helper()

	repo := newFakeRepo()
	cfg := testConfig()

	consents, err := consent.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create consent store: %v", err)
	}

	blockSource := gate.BlockSourceFunc(func(ctx context.Context, id string) (bool, error) {
		user, err := repo.GetUser(ctx, id)
		if err != nil {
			return false, err
		}
		return user != nil && user.Blocked, nil
	})
	resolver := gate.NewBlockStatusResolver(blockSource, cfg.BlockCacheTTL)
	gatherer := gate.NewGatherer(repo, consents, resolver)

	chatService := chat.NewService(repo, nil, chat.NewHub())
	invalidator := taskflow.NewInvalidator()
	statsCache := taskflow.NewStatsCache(repo, invalidator)
	coordinator := taskflow.NewCoordinator(repo, chatService, invalidator, cfg.AutoSendDelay)
	t.Cleanup(coordinator.Close)

	base := NewHandler(repo, cfg)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := identity.ContextWithIdentity(req.Context(), userID, role)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	base.RegisterMe(r)
	NewOnboardingHandler(base, gatherer, consents, assess.NewService(repo, assess.DefaultBank()), statsCache).RegisterRoutes(r)
	NewTaskHandler(base, coordinator, statsCache).RegisterRoutes(r)
	NewChatHandler(base, chatService).RegisterRoutes(r)
	NewAdminHandler(base, resolver).RegisterRoutes(r)

	return &testEnv{
		repo:        repo,
		consents:    consents,
		resolver:    resolver,
		coordinator: coordinator,
		router:      r,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func seedTask(t *testing.T, repo *fakeRepo, id string) {
	t.Helper()
	err := repo.SeedTasks(context.Background(), []domain.Task{{
		ID: id, Title: "T", Language: "go", Difficulty: "easy",
		Description: "d", StarterCode: "starter",
	}})
	if err != nil {
		t.Fatal(err)
	}
}
