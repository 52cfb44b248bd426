// Package domain contains core domain types for the programming helper.
package domain

import (
	"time"
)

// Role identifies the user's access level.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// User represents a user in the system. Identity and the blocked flag are
// owned by the identity layer; everything else reads them.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Role       Role      `json:"role"`
	Blocked    bool      `json:"blocked"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile holds the user's learning profile. Completed gates onboarding.
type Profile struct {
	UserID             string    `json:"user_id"`
	Completed          bool      `json:"completed"`
	PrimaryLanguage    string    `json:"primary_language"`
	PreferredLanguages []string  `json:"preferred_languages"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// OnboardingStatus tracks whether the user finished the onboarding tour.
// Completed is monotonic: once true it never reverts.
type OnboardingStatus struct {
	UserID      string     `json:"user_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ConsentRecord is the device-local data-collection consent decision.
// It is persisted outside the server database and never synchronized
// across devices.
type ConsentRecord struct {
	UserID    string    `json:"user_id"`
	Given     bool      `json:"given"`
	DecidedAt time.Time `json:"decided_at"`
}
