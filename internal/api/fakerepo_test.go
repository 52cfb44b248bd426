package api

import (
	"context"
	"sync"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
)

// fakeRepo is an in-memory store.Repository for handler tests.
type fakeRepo struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	profiles    map[string]*domain.Profile
	onboarding  map[string]*domain.OnboardingStatus
	assessments map[string][]*domain.Assessment
	tasks       map[string]*domain.Task
	progress    map[string]*domain.TaskProgress
	sessions    map[string]*domain.ChatSession
	messages    map[string][]*domain.Message
	drafts      map[string]string
	stats       map[string]*domain.UserStats

	pingErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:       make(map[string]*domain.User),
		profiles:    make(map[string]*domain.Profile),
		onboarding:  make(map[string]*domain.OnboardingStatus),
		assessments: make(map[string][]*domain.Assessment),
		tasks:       make(map[string]*domain.Task),
		progress:    make(map[string]*domain.TaskProgress),
		sessions:    make(map[string]*domain.ChatSession),
		messages:    make(map[string][]*domain.Message),
		drafts:      make(map[string]string),
		stats:       make(map[string]*domain.UserStats),
	}
}

func progressKey(userID, taskID string) string { return userID + "/" + taskID }

func (f *fakeRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[userID], nil
}

func (f *fakeRepo) UpsertUser(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.UserID] = user
	return nil
}

func (f *fakeRepo) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	return nil
}

func (f *fakeRepo) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return shared.Errorf(shared.KindNotFound, "user %s not found", userID)
	}
	user.Blocked = blocked
	return nil
}

func (f *fakeRepo) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID], nil
}

func (f *fakeRepo) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.UserID] = profile
	return nil
}

func (f *fakeRepo) GetOnboardingStatus(ctx context.Context, userID string) (*domain.OnboardingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onboarding[userID], nil
}

func (f *fakeRepo) MarkOnboardingCompleted(ctx context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing := f.onboarding[userID]; existing != nil && existing.Completed {
		return nil
	}
	f.onboarding[userID] = &domain.OnboardingStatus{UserID: userID, Completed: true, CompletedAt: &at}
	return nil
}

func (f *fakeRepo) GetAssessments(ctx context.Context, userID string) ([]*domain.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assessments[userID], nil
}

func (f *fakeRepo) InsertAssessment(ctx context.Context, a *domain.Assessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.assessments[a.UserID] {
		if existing.Type == a.Type {
			return shared.Errorf(shared.KindValidation, "%s assessment already submitted", a.Type)
		}
	}
	f.assessments[a.UserID] = append(f.assessments[a.UserID], a)
	return nil
}

func (f *fakeRepo) SeedTasks(ctx context.Context, tasks []domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range tasks {
		t := tasks[i]
		if _, ok := f.tasks[t.ID]; !ok {
			f.tasks[t.ID] = &t
		}
	}
	return nil
}

func (f *fakeRepo) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[taskID], nil
}

func (f *fakeRepo) ListTasksWithProgress(ctx context.Context, userID string) ([]*domain.TaskWithProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.TaskWithProgress
	for _, t := range f.tasks {
		tw := &domain.TaskWithProgress{Task: *t}
		if p, ok := f.progress[progressKey(userID, t.ID)]; ok {
			tw.Progress = p
		}
		out = append(out, tw)
	}
	return out, nil
}

func (f *fakeRepo) GetTaskProgress(ctx context.Context, userID, taskID string) (*domain.TaskProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.progress[progressKey(userID, taskID)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) UpsertTaskProgress(ctx context.Context, p *domain.TaskProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.progress[progressKey(p.UserID, p.TaskID)] = &cp
	return nil
}

func (f *fakeRepo) CreateChatSession(ctx context.Context, s *domain.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeRepo) GetChatSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[sessionID], nil
}

func (f *fakeRepo) ListChatSessions(ctx context.Context, userID string) ([]*domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ChatSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetMessages(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Message(nil), f.messages[sessionID]...), nil
}

func (f *fakeRepo) CountMessages(ctx context.Context, sessionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[sessionID]), nil
}

func (f *fakeRepo) AppendMessage(ctx context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[m.SessionID] = append(f.messages[m.SessionID], m)
	return nil
}

func (f *fakeRepo) ListOrphanSessions(ctx context.Context, idleSince time.Time) ([]*domain.ChatSession, error) {
	return nil, nil
}

func (f *fakeRepo) GetDraft(ctx context.Context, userID, taskID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drafts[progressKey(userID, taskID)], nil
}

func (f *fakeRepo) SaveDraft(ctx context.Context, userID, taskID, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[progressKey(userID, taskID)] = code
	return nil
}

func (f *fakeRepo) GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stats, ok := f.stats[userID]; ok {
		return stats, nil
	}
	return &domain.UserStats{UserID: userID}, nil
}

func (f *fakeRepo) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeRepo) Close() error { return nil }
