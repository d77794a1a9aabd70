package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/agencyiq/agency-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSaleRecorded        EventType = "sale_recorded"
	EventCallScored          EventType = "call_scored"
	EventOnboardingCompleted EventType = "onboarding_completed"
	EventChallengeCompleted  EventType = "challenge_completed"
	EventStaffInvited        EventType = "staff_invited"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventLeadSubmitted       EventType = "lead_submitted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AgencyID  string      `json:"agency_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SaleRecordedPayload payload.
type SaleRecordedPayload struct {
	SaleID      string             `json:"sale_id"`
	StaffID     string             `json:"staff_id"`
	ProductLine domain.ProductLine `json:"product_line"`
	Premium     decimal.Decimal    `json:"premium"`
}

// CallScoredPayload payload.
type CallScoredPayload struct {
	CallID  string `json:"call_id"`
	StaffID string `json:"staff_id"`
	Overall int    `json:"overall"`
}

// OnboardingCompletedPayload payload.
type OnboardingCompletedPayload struct {
	InstanceID string `json:"instance_id"`
	StaffID    string `json:"staff_id"`
}

// ChallengeCompletedPayload payload.
type ChallengeCompletedPayload struct {
	ChallengeID string `json:"challenge_id"`
	StaffID     string `json:"staff_id"`
	Points      int    `json:"points"`
}

// StaffInvitedPayload payload.
type StaffInvitedPayload struct {
	StaffID   string           `json:"staff_id"`
	Email     string           `json:"email"`
	Role      domain.StaffRole `json:"role"`
	SeatsUsed int              `json:"seats_used"`
}

// SubscriptionUpdatedPayload payload.
type SubscriptionUpdatedPayload struct {
	Plan      domain.AgencyPlan `json:"plan"`
	SeatLimit int               `json:"seat_limit"`
	Active    bool              `json:"active"`
}

// LeadSubmittedPayload payload.
type LeadSubmittedPayload struct {
	LeadID      string             `json:"lead_id"`
	FormSlug    string             `json:"form_slug"`
	Name        string             `json:"name"`
	ProductLine domain.ProductLine `json:"product_line"`
}
