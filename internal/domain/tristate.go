package domain

// TriState is a value that is either still loading or known. It exists so
// that "not yet fetched" is never mistaken for a zero value: a gate whose
// input is Loading must fail closed, not assume false.
type TriState[T any] struct {
	value T
	known bool
}

// Loading returns a TriState with no known value.
func Loading[T any]() TriState[T] {
	return TriState[T]{}
}

// Known returns a TriState carrying v.
func Known[T any](v T) TriState[T] {
	return TriState[T]{value: v, known: true}
}

// IsLoading reports whether the value is not yet known.
func (t TriState[T]) IsLoading() bool {
	return !t.known
}

// Value returns the known value and whether it is known.
func (t TriState[T]) Value() (T, bool) {
	return t.value, t.known
}

// Step is a single onboarding gating step. At most one step is visible at
// any instant; StepNone means normal content may be shown.
type Step string

const (
	StepNone              Step = "none"
	StepRedirectBlocked   Step = "redirect_blocked"
	StepShowConsent       Step = "show_consent"
	StepShowProfile       Step = "show_profile"
	StepShowPreAssessment Step = "show_pre_assessment"
	StepShowTour          Step = "show_onboarding_tour"
)
