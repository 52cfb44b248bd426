package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

// Responder generates assistant replies. Response generation is outside
// this service; a Responder is a thin client to wherever it lives.
type Responder interface {
	Reply(ctx context.Context, sess *domain.ChatSession, history []*domain.Message) (string, error)
}

// HTTPResponder calls an external responder endpoint.
type HTTPResponder struct {
	addr   string
	client *http.Client
}

// NewHTTPResponder creates a responder client for addr.
func NewHTTPResponder(addr string) *HTTPResponder {
	return &HTTPResponder{
		addr:   addr,
		client: &http.Client{},
	}
}

type replyRequest struct {
	SessionID string            `json:"session_id"`
	TaskID    string            `json:"task_id,omitempty"`
	Messages  []*domain.Message `json:"messages"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

// Reply posts the conversation history and returns the generated reply.
func (r *HTTPResponder) Reply(ctx context.Context, sess *domain.ChatSession, history []*domain.Message) (string, error) {
	body, err := json.Marshal(replyRequest{
		SessionID: sess.ID,
		TaskID:    sess.TaskID,
		Messages:  history,
	})
	if err != nil {
		return "", fmt.Errorf("encode reply request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.addr+"/v1/reply", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call responder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("responder returned status %d", resp.StatusCode)
	}

	var out replyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode reply response: %w", err)
	}
	return out.Reply, nil
}
