// Package gate decides which single onboarding step may be shown to a user.
//
// The decision is a pure function over five independently-fetched tri-state
// inputs. Inputs that are still loading make the sequencer fail closed:
// showing a later step before an earlier gate's true value is known would
// let a user skip or flash through a required step.
package gate

import (
	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

// Inputs is the full tuple the sequencer decides over. Each field is
// Loading until its backing fetch has completed successfully.
type Inputs struct {
	Blocked             domain.TriState[bool]
	ConsentGiven        domain.TriState[bool]
	ProfileCompleted    domain.TriState[bool]
	HasPreAssessment    domain.TriState[bool]
	OnboardingCompleted domain.TriState[bool]
}

// DecideStep maps the input tuple to exactly one visible gating step.
// Conditions are evaluated in priority order; the first satisfied one wins.
func DecideStep(in Inputs) domain.Step {
	// A known-blocked account always wins, even over loading inputs.
	if blocked, ok := in.Blocked.Value(); ok && blocked {
		return domain.StepRedirectBlocked
	}

	if in.Blocked.IsLoading() || in.ConsentGiven.IsLoading() {
		return domain.StepNone
	}
	if given, _ := in.ConsentGiven.Value(); !given {
		return domain.StepShowConsent
	}

	if in.ProfileCompleted.IsLoading() {
		return domain.StepNone
	}
	if completed, _ := in.ProfileCompleted.Value(); !completed {
		return domain.StepShowProfile
	}

	if in.HasPreAssessment.IsLoading() {
		return domain.StepNone
	}
	if has, _ := in.HasPreAssessment.Value(); !has {
		return domain.StepShowPreAssessment
	}

	if in.OnboardingCompleted.IsLoading() {
		return domain.StepNone
	}
	if completed, _ := in.OnboardingCompleted.Value(); !completed {
		return domain.StepShowTour
	}

	return domain.StepNone
}
