package domain

import (
	"time"
)

// AssessmentType distinguishes the pre-learning and post-learning assessments.
type AssessmentType string

const (
	AssessmentPre  AssessmentType = "pre"
	AssessmentPost AssessmentType = "post"
)

// Valid reports whether t is a known assessment type.
func (t AssessmentType) Valid() bool {
	return t == AssessmentPre || t == AssessmentPost
}

// Assessment is a submitted assessment. Immutable once recorded: there is
// no edit or delete path, and at most one submission per (user, type).
type Assessment struct {
	UserID      string         `json:"user_id"`
	Type        AssessmentType `json:"type"`
	Score       int            `json:"score"`
	Confidence  int            `json:"confidence"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Question is one assessment question for a given type and language.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  int      `json:"-"`
}

// UserStats are per-user activity aggregates. They feed the post-assessment
// eligibility thresholds and the dashboard.
type UserStats struct {
	UserID         string `json:"user_id"`
	TasksCompleted int    `json:"tasks_completed"`
	QuestionsAsked int    `json:"questions_asked"`
	DaysActive     int    `json:"days_active"`
}

// EligibilityThresholds are the activity minimums for the post assessment.
type EligibilityThresholds struct {
	DaysActive     int
	QuestionsAsked int
	TasksCompleted int
}

// PostAssessmentEligible reports whether the stats meet every threshold.
func (s UserStats) PostAssessmentEligible(t EligibilityThresholds) bool {
	return s.DaysActive >= t.DaysActive &&
		s.QuestionsAsked >= t.QuestionsAsked &&
		s.TasksCompleted >= t.TasksCompleted
}
