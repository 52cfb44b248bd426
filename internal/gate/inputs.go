package gate

import (
	"context"
	"log/slog"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
	"github.com/Bogdusik/programming-helper-ai/internal/shared"
	"golang.org/x/sync/errgroup"
)

// LearningStateSource provides the onboarding-relevant reads. Satisfied by
// store.Repository.
type LearningStateSource interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	GetAssessments(ctx context.Context, userID string) ([]*domain.Assessment, error)
	GetOnboardingStatus(ctx context.Context, userID string) (*domain.OnboardingStatus, error)
}

// ConsentSource reads the device-local consent record.
type ConsentSource interface {
	Get(userID string) (*domain.ConsentRecord, error)
}

// Gatherer assembles the sequencer's input tuple. Each input is fetched
// independently; a failed fetch leaves its slot Loading so the sequencer
// fails closed instead of guessing.
type Gatherer struct {
	state    LearningStateSource
	consents ConsentSource
	resolver *BlockStatusResolver
}

// NewGatherer creates a Gatherer.
func NewGatherer(state LearningStateSource, consents ConsentSource, resolver *BlockStatusResolver) *Gatherer {
	return &Gatherer{state: state, consents: consents, resolver: resolver}
}

// Gather fetches all five gating inputs concurrently. A blocked-account
// error surfaced by the profile read is promoted to Blocked=Known(true)
// immediately, covering any lag in the resolver's own cache.
func (g *Gatherer) Gather(ctx context.Context, userID string) Inputs {
	in := Inputs{
		Blocked:             domain.Loading[bool](),
		ConsentGiven:        domain.Loading[bool](),
		ProfileCompleted:    domain.Loading[bool](),
		HasPreAssessment:    domain.Loading[bool](),
		OnboardingCompleted: domain.Loading[bool](),
	}

	var blockedByProfile bool

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		in.Blocked = g.resolver.Resolve(ctx, userID)
		return nil
	})

	eg.Go(func() error {
		rec, err := g.consents.Get(userID)
		if err != nil {
			slog.Warn("consent read failed", "user_id", userID, "error", err)
			return nil
		}
		// No record means the user never decided: consent is known-false
		// and the consent step must be shown.
		in.ConsentGiven = domain.Known(rec != nil && rec.Given)
		return nil
	})

	eg.Go(func() error {
		profile, err := g.state.GetProfile(ctx, userID)
		if err != nil {
			if shared.IsKind(err, shared.KindBlocked) {
				blockedByProfile = true
				return nil
			}
			slog.Warn("profile read failed", "user_id", userID, "error", err)
			return nil
		}
		in.ProfileCompleted = domain.Known(profile != nil && profile.Completed)
		return nil
	})

	eg.Go(func() error {
		assessments, err := g.state.GetAssessments(ctx, userID)
		if err != nil {
			slog.Warn("assessments read failed", "user_id", userID, "error", err)
			return nil
		}
		has := false
		for _, a := range assessments {
			if a.Type == domain.AssessmentPre {
				has = true
				break
			}
		}
		in.HasPreAssessment = domain.Known(has)
		return nil
	})

	eg.Go(func() error {
		status, err := g.state.GetOnboardingStatus(ctx, userID)
		if err != nil {
			slog.Warn("onboarding status read failed", "user_id", userID, "error", err)
			return nil
		}
		in.OnboardingCompleted = domain.Known(status != nil && status.Completed)
		return nil
	})

	// Fetches never report errors upward; failures degrade to Loading.
	_ = eg.Wait()

	if blockedByProfile {
		in.Blocked = domain.Known(true)
		g.resolver.MarkBlocked(userID)
	}

	return in
}

// Decide gathers inputs for userID and runs the sequencer over them.
func (g *Gatherer) Decide(ctx context.Context, userID string) (domain.Step, Inputs) {
	in := g.Gather(ctx, userID)
	return DecideStep(in), in
}
