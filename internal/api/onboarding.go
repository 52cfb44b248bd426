package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/assess"
	"github.com/Bogdusik/programming-helper-ai/internal/consent"
	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/Bogdusik/programming-helper-ai/internal/gate"
	"github.com/Bogdusik/programming-helper-ai/internal/identity"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
	"github.com/Bogdusik/programming-helper-ai/internal/taskflow"
	"github.com/go-chi/chi/v5"
)

// OnboardingHandler serves the gating step and everything it gates on.
type OnboardingHandler struct {
	*Handler
	gatherer    *gate.Gatherer
	consents    *consent.Store
	assessments *assess.Service
	stats       *taskflow.StatsCache
}

// NewOnboardingHandler creates the onboarding handler.
func NewOnboardingHandler(base *Handler, gatherer *gate.Gatherer, consents *consent.Store, assessments *assess.Service, stats *taskflow.StatsCache) *OnboardingHandler {
	return &OnboardingHandler{
		Handler:     base,
		gatherer:    gatherer,
		consents:    consents,
		assessments: assessments,
		stats:       stats,
	}
}

// RegisterRoutes registers onboarding routes.
func (h *OnboardingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/onboarding/step", h.GetStep)
		r.Get("/onboarding/status", h.GetOnboardingStatus)
		r.Put("/onboarding/status", h.PutOnboardingStatus)
		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.UpdateProfile)
		r.Get("/consent", h.GetConsent)
		r.Put("/consent", h.PutConsent)
		r.Get("/assessments", h.GetAssessments)
		r.Get("/assessments/questions", h.GetAssessmentQuestions)
		r.Post("/assessments", h.SubmitAssessment)
	})
}

type triStateView struct {
	Known bool `json:"known"`
	Value bool `json:"value,omitempty"`
}

func viewOf(t domain.TriState[bool]) triStateView {
	v, ok := t.Value()
	return triStateView{Known: ok, Value: v}
}

// GetStep runs the onboarding sequencer and returns the single step that
// may be shown right now.
func (h *OnboardingHandler) GetStep(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	step, inputs := h.gatherer.Decide(r.Context(), userID)

	JSON(w, http.StatusOK, map[string]interface{}{
		"step": step,
		"inputs": map[string]triStateView{
			"blocked":              viewOf(inputs.Blocked),
			"consent_given":        viewOf(inputs.ConsentGiven),
			"profile_completed":    viewOf(inputs.ProfileCompleted),
			"has_pre_assessment":   viewOf(inputs.HasPreAssessment),
			"onboarding_completed": viewOf(inputs.OnboardingCompleted),
		},
	})
}

// GetProfile returns the user's profile, creating the default record on
// first access.
func (h *OnboardingHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	profile, err := h.repo.GetProfile(r.Context(), userID)
	if err != nil {
		slog.Error("failed to get profile", "error", err, "user_id", userID)
		WriteError(w, err)
		return
	}
	if profile == nil {
		now := time.Now()
		profile = &domain.Profile{
			UserID:             userID,
			PreferredLanguages: []string{},
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := h.repo.UpsertProfile(r.Context(), profile); err != nil {
			slog.Error("failed to create default profile", "error", err, "user_id", userID)
			WriteError(w, err)
			return
		}
	}

	JSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	PrimaryLanguage    string   `json:"primary_language"`
	PreferredLanguages []string `json:"preferred_languages"`
}

// UpdateProfile applies the profile-update mutation. A successful update
// with a primary language marks the profile completed.
func (h *OnboardingHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req updateProfileRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.PrimaryLanguage) == "" {
		WriteError(w, shared.Errorf(shared.KindValidation, "primary_language is required"))
		return
	}
	if req.PreferredLanguages == nil {
		req.PreferredLanguages = []string{}
	}

	profile, err := h.repo.GetProfile(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	now := time.Now()
	if profile == nil {
		profile = &domain.Profile{UserID: userID, CreatedAt: now}
	}
	profile.PrimaryLanguage = req.PrimaryLanguage
	profile.PreferredLanguages = req.PreferredLanguages
	profile.Completed = true
	profile.UpdatedAt = now

	if err := h.repo.UpsertProfile(r.Context(), profile); err != nil {
		slog.Error("failed to update profile", "error", err, "user_id", userID)
		WriteError(w, err)
		return
	}

	slog.Info("profile updated", "user_id", userID, "primary_language", req.PrimaryLanguage)
	JSON(w, http.StatusOK, profile)
}

// GetOnboardingStatus returns the tour-completed flag.
func (h *OnboardingHandler) GetOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	status, err := h.repo.GetOnboardingStatus(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if status == nil {
		status = &domain.OnboardingStatus{UserID: userID}
	}
	JSON(w, http.StatusOK, status)
}

type putOnboardingRequest struct {
	Completed bool `json:"completed"`
}

// PutOnboardingStatus marks the tour completed. The flag is monotonic;
// reverting it is a validation error.
func (h *OnboardingHandler) PutOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req putOnboardingRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if !req.Completed {
		WriteError(w, shared.Errorf(shared.KindValidation, "onboarding completion cannot be reverted"))
		return
	}

	if err := h.repo.MarkOnboardingCompleted(r.Context(), userID, time.Now()); err != nil {
		slog.Error("failed to mark onboarding completed", "error", err, "user_id", userID)
		WriteError(w, err)
		return
	}

	slog.Info("onboarding completed", "user_id", userID)
	JSON(w, http.StatusOK, map[string]bool{"completed": true})
}

// GetConsent returns the device-local consent decision, if any.
func (h *OnboardingHandler) GetConsent(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	rec, err := h.consents.Get(userID)
	if err != nil {
		slog.Error("failed to read consent", "error", err, "user_id", userID)
		WriteError(w, err)
		return
	}

	resp := map[string]bool{"decided": rec != nil}
	if rec != nil {
		resp["given"] = rec.Given
	}
	JSON(w, http.StatusOK, resp)
}

type putConsentRequest struct {
	Given bool `json:"given"`
}

// PutConsent records the consent decision.
func (h *OnboardingHandler) PutConsent(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req putConsentRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	rec, err := h.consents.Set(userID, req.Given)
	if err != nil {
		slog.Error("failed to record consent", "error", err, "user_id", userID)
		WriteError(w, err)
		return
	}

	slog.Info("consent recorded", "user_id", userID, "given", req.Given)
	JSON(w, http.StatusOK, rec)
}

// GetAssessments lists submissions plus the post-assessment eligibility.
func (h *OnboardingHandler) GetAssessments(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	list, err := h.assessments.List(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	eligible := false
	if stats, err := h.stats.Get(r.Context(), userID); err != nil {
		// Eligibility is derived data; its failure must not fail the list.
		slog.Warn("stats read failed for eligibility", "error", err, "user_id", userID)
	} else {
		eligible = stats.PostAssessmentEligible(domain.EligibilityThresholds{
			DaysActive:     h.cfg.Eligibility.DaysActive,
			QuestionsAsked: h.cfg.Eligibility.QuestionsAsked,
			TasksCompleted: h.cfg.Eligibility.TasksCompleted,
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"assessments":   list,
		"post_eligible": eligible,
	})
}

// GetAssessmentQuestions returns the question list for a type and language.
// Correct answers are never serialized.
func (h *OnboardingHandler) GetAssessmentQuestions(w http.ResponseWriter, r *http.Request) {
	typ := domain.AssessmentType(r.URL.Query().Get("type"))
	language := r.URL.Query().Get("language")
	if language == "" {
		language = "general"
	}

	questions, err := h.assessments.Questions(typ, language)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

type submitAssessmentRequest struct {
	Type       domain.AssessmentType `json:"type"`
	Language   string                `json:"language"`
	Answers    []int                 `json:"answers"`
	Confidence int                   `json:"confidence"`
}

// SubmitAssessment records a submission.
func (h *OnboardingHandler) SubmitAssessment(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req submitAssessmentRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Language == "" {
		req.Language = "general"
	}

	a, err := h.assessments.Submit(r.Context(), userID, req.Type, req.Language, req.Answers, req.Confidence)
	if err != nil {
		WriteError(w, err)
		return
	}

	slog.Info("assessment submitted", "user_id", userID, "type", req.Type, "score", a.Score)
	JSON(w, http.StatusCreated, a)
}
