// Package assess holds the assessment question bank and scoring.
package assess

import (
	"context"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
)

// Store is the persistence surface for submissions. Satisfied by
// store.Repository.
type Store interface {
	GetAssessments(ctx context.Context, userID string) ([]*domain.Assessment, error)
	InsertAssessment(ctx context.Context, a *domain.Assessment) error
}

// Service serves questions and records submissions.
type Service struct {
	store Store
	bank  map[bankKey][]domain.Question
}

type bankKey struct {
	typ      domain.AssessmentType
	language string
}

// NewService creates a Service over the given question bank. The bank maps
// each (type, language) pair to its ordered question list; a missing
// language falls back to the "general" set.
func NewService(store Store, bank map[domain.AssessmentType]map[string][]domain.Question) *Service {
	flat := make(map[bankKey][]domain.Question)
	for typ, byLang := range bank {
		for lang, questions := range byLang {
			flat[bankKey{typ: typ, language: lang}] = questions
		}
	}
	return &Service{store: store, bank: flat}
}

// Questions returns the question list for (type, language).
func (s *Service) Questions(typ domain.AssessmentType, language string) ([]domain.Question, error) {
	if !typ.Valid() {
		return nil, shared.Errorf(shared.KindValidation, "unknown assessment type %q", typ)
	}
	if qs, ok := s.bank[bankKey{typ: typ, language: language}]; ok {
		return qs, nil
	}
	if qs, ok := s.bank[bankKey{typ: typ, language: "general"}]; ok {
		return qs, nil
	}
	return nil, shared.Errorf(shared.KindNotFound, "no questions for %s/%s", typ, language)
}

// Submit scores the answers against the bank and records the submission.
// Submissions are immutable; a duplicate type is rejected by the store.
func (s *Service) Submit(ctx context.Context, userID string, typ domain.AssessmentType, language string, answers []int, confidence int) (*domain.Assessment, error) {
	questions, err := s.Questions(typ, language)
	if err != nil {
		return nil, err
	}
	if len(answers) != len(questions) {
		return nil, shared.Errorf(shared.KindValidation, "expected %d answers, got %d", len(questions), len(answers))
	}
	if confidence < 1 || confidence > 5 {
		return nil, shared.Errorf(shared.KindValidation, "confidence must be between 1 and 5")
	}

	score := 0
	for i, q := range questions {
		if answers[i] == q.Answer {
			score++
		}
	}

	a := &domain.Assessment{
		UserID:      userID,
		Type:        typ,
		Score:       score,
		Confidence:  confidence,
		CompletedAt: time.Now(),
	}
	if err := s.store.InsertAssessment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns the user's submissions.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Assessment, error) {
	return s.store.GetAssessments(ctx, userID)
}

// DefaultBank returns the built-in question bank.
func DefaultBank() map[domain.AssessmentType]map[string][]domain.Question {
	return map[domain.AssessmentType]map[string][]domain.Question{
		domain.AssessmentPre: {
			"general": {
				{ID: "pre-1", Text: "What does a variable store?", Options: []string{"A value", "A file", "A screen", "A network"}, Answer: 0},
				{ID: "pre-2", Text: "What is a loop used for?", Options: []string{"Styling", "Repetition", "Encryption", "Compression"}, Answer: 1},
				{ID: "pre-3", Text: "What does a function return?", Options: []string{"A color", "Memory", "A value", "Nothing, ever"}, Answer: 2},
				{ID: "pre-4", Text: "Which of these is a conditional?", Options: []string{"for", "if", "import", "print"}, Answer: 1},
				{ID: "pre-5", Text: "What is an array?", Options: []string{"An ordered collection", "A loop", "An operator", "A comment"}, Answer: 0},
			},
		},
		domain.AssessmentPost: {
			"general": {
				{ID: "post-1", Text: "What is the time complexity of binary search?", Options: []string{"O(n)", "O(log n)", "O(n^2)", "O(1)"}, Answer: 1},
				{ID: "post-2", Text: "What does recursion require to terminate?", Options: []string{"A base case", "A global variable", "A loop", "A pointer"}, Answer: 0},
				{ID: "post-3", Text: "Which structure is LIFO?", Options: []string{"Queue", "Stack", "Set", "Graph"}, Answer: 1},
				{ID: "post-4", Text: "What is a hash map lookup on average?", Options: []string{"O(n)", "O(log n)", "O(1)", "O(n log n)"}, Answer: 2},
				{ID: "post-5", Text: "What does immutability mean?", Options: []string{"Cannot be changed", "Cannot be read", "Is private", "Is compiled"}, Answer: 0},
			},
		},
	}
}
