package domain

import "time"

// ChallengeStatus enumerates assignment lifecycle states.
type ChallengeStatus string

const (
	ChallengeAssigned  ChallengeStatus = "ASSIGNED"
	ChallengeCompleted ChallengeStatus = "COMPLETED"
	ChallengeExpired   ChallengeStatus = "EXPIRED"
)

// ChallengeAssignment is a training challenge assigned to a staff member.
type ChallengeAssignment struct {
	ID          string
	AgencyID    string
	StaffID     string
	Title       string
	Description string
	Points      int
	DueDate     *time.Time
	Status      ChallengeStatus
	AudioURL    *string
	AssignedAt  time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}
