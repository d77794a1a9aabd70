package domain

import "time"

// SubjectType differentiates agency-owner tokens from staff sessions.
type SubjectType string

const (
	SubjectTypeOwner SubjectType = "OWNER"
	SubjectTypeStaff SubjectType = "STAFF"
)

// StaffSession is an opaque bearer session for a staff user. Only the
// SHA-256 of the token is persisted.
type StaffSession struct {
	ID        string
	StaffID   string
	AgencyID  string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
