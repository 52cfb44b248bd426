// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"errors"
	"fmt"
)

// Kind classifies an error so that callers can branch on semantics instead
// of matching message strings.
type Kind int

const (
	// KindUnknown is any error without an explicit classification.
	KindUnknown Kind = iota
	// KindAuth means the caller is not authenticated.
	KindAuth
	// KindBlocked means the account is blocked. This always wins over
	// every onboarding gating decision.
	KindBlocked
	// KindNotFound means the resource does not exist.
	KindNotFound
	// KindTransient means the operation may succeed if retried, e.g. a
	// "not found yet" read during an eventual-consistency window.
	KindTransient
	// KindValidation means the request was rejected as malformed or out
	// of bounds. Never retried.
	KindValidation
	// KindStaleState means persisted state disagreed with observed
	// reality. Self-healed by the caller, never surfaced to the user.
	KindStaleState
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindBlocked:
		return "blocked"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindStaleState:
		return "stale_state"
	default:
		return "unknown"
	}
}

// kindError attaches a Kind to an underlying error.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string {
	return e.err.Error()
}

func (e *kindError) Unwrap() error {
	return e.err
}

// E wraps err with kind. Returns nil if err is nil.
func E(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// Errorf formats a new error carrying kind.
func Errorf(kind Kind, format string, args ...any) error {
	return &kindError{kind: kind, err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of err, or KindUnknown if none was attached
// anywhere in the chain.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
