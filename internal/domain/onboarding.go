package domain

import "time"

// OnboardingStatus enumerates instance lifecycle states.
type OnboardingStatus string

const (
	OnboardingNotStarted OnboardingStatus = "NOT_STARTED"
	OnboardingInProgress OnboardingStatus = "IN_PROGRESS"
	OnboardingCompleted  OnboardingStatus = "COMPLETED"
)

// TaskTemplate is one ordered step inside an onboarding template.
type TaskTemplate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueOffset   int    `json:"due_offset_days"`
}

// OnboardingTemplate defines an agency's onboarding program.
type OnboardingTemplate struct {
	ID        string
	AgencyID  string
	Name      string
	Tasks     []TaskTemplate
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OnboardingInstance tracks one staff member working through a template.
type OnboardingInstance struct {
	ID          string
	AgencyID    string
	TemplateID  string
	StaffID     string
	Status      OnboardingStatus
	AssignedAt  time.Time
	CompletedAt *time.Time
}

// OnboardingTask is a concrete task generated from a template at assignment.
type OnboardingTask struct {
	ID          string
	InstanceID  string
	Position    int
	Title       string
	Description string
	DueDate     *time.Time
	AudioURL    *string
	CompletedAt *time.Time
	CreatedAt   time.Time
}
