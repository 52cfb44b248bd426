// Package chat provides chat session management and message delivery.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
	"github.com/google/uuid"
)

const responderTimeout = 60 * time.Second

// Store is the persistence surface the chat service needs. Satisfied by
// store.Repository.
type Store interface {
	CreateChatSession(ctx context.Context, s *domain.ChatSession) error
	GetChatSession(ctx context.Context, sessionID string) (*domain.ChatSession, error)
	ListChatSessions(ctx context.Context, userID string) ([]*domain.ChatSession, error)
	GetMessages(ctx context.Context, sessionID string) ([]*domain.Message, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)
	AppendMessage(ctx context.Context, m *domain.Message) error
}

// Service manages chat sessions and messages. Response generation is an
// external collaborator: when no Responder is configured, messages are
// stored and fanned out but never answered.
type Service struct {
	store     Store
	responder Responder
	hub       *Hub
}

// NewService creates a chat service. responder may be nil.
func NewService(store Store, responder Responder, hub *Hub) *Service {
	return &Service{store: store, responder: responder, hub: hub}
}

// Create starts a new session. taskID is empty for free chat.
func (s *Service) Create(ctx context.Context, userID, title, taskID string) (*domain.ChatSession, error) {
	now := time.Now()
	sess := &domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		TaskID:    taskID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateChatSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("chat session created", "session_id", sess.ID, "user_id", userID, "task_id", taskID)
	return sess, nil
}

// Get retrieves a session owned by userID.
func (s *Service) Get(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	sess, err := s.store.GetChatSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// A foreign session is indistinguishable from a missing one.
	if sess == nil || sess.UserID != userID {
		return nil, shared.Errorf(shared.KindNotFound, "session %s not found", sessionID)
	}
	return sess, nil
}

// List returns the user's sessions, most recent first.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.ChatSession, error) {
	return s.store.ListChatSessions(ctx, userID)
}

// Messages returns a session's messages after an ownership check.
func (s *Service) Messages(ctx context.Context, userID, sessionID string) ([]*domain.Message, error) {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.store.GetMessages(ctx, sessionID)
}

// MessageCount returns the number of messages in a session. A missing
// session is a not-found error, which callers may treat as empty.
func (s *Service) MessageCount(ctx context.Context, sessionID string) (int, error) {
	sess, err := s.store.GetChatSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if sess == nil {
		return 0, shared.Errorf(shared.KindNotFound, "session %s not found", sessionID)
	}
	return s.store.CountMessages(ctx, sessionID)
}

// Send appends a user message to the session, creating the session first
// when sessionID is empty. The stored message is fanned out to websocket
// subscribers, and the configured responder (if any) is asked for a reply
// asynchronously.
func (s *Service) Send(ctx context.Context, userID, sessionID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, shared.Errorf(shared.KindValidation, "message content is empty")
	}

	var sess *domain.ChatSession
	var err error
	if sessionID == "" {
		sess, err = s.Create(ctx, userID, deriveTitle(content), "")
	} else {
		sess, err = s.Get(ctx, userID, sessionID)
	}
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Role:      domain.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.hub.Broadcast(sess.ID, msg)

	if s.responder != nil {
		go s.respond(sess)
	}

	return msg, nil
}

// respond asks the external responder for a reply and appends it. Runs
// detached from the request: the user's send already succeeded.
func (s *Service) respond(sess *domain.ChatSession) {
	ctx, cancel := context.WithTimeout(context.Background(), responderTimeout)
	defer cancel()

	history, err := s.store.GetMessages(ctx, sess.ID)
	if err != nil {
		slog.Error("responder history read failed", "session_id", sess.ID, "error", err)
		return
	}

	reply, err := s.responder.Reply(ctx, sess, history)
	if err != nil {
		slog.Error("responder failed", "session_id", sess.ID, "error", err)
		return
	}
	if strings.TrimSpace(reply) == "" {
		return
	}

	msg := &domain.Message{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Role:      domain.RoleAssistant,
		Content:   reply,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		slog.Error("failed to store assistant reply", "session_id", sess.ID, "error", err)
		return
	}
	s.hub.Broadcast(sess.ID, msg)
}

func deriveTitle(content string) string {
	title := strings.TrimSpace(content)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	const maxTitle = 60
	if len(title) > maxTitle {
		title = title[:maxTitle]
	}
	if title == "" {
		title = "New chat"
	}
	return title
}
