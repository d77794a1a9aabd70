package domain

import "time"

// AgencyPlan enumerates billing tiers.
type AgencyPlan string

const (
	PlanTrial    AgencyPlan = "TRIAL"
	PlanStandard AgencyPlan = "STANDARD"
	PlanPro      AgencyPlan = "PRO"
)

// Agency is the tenant aggregate.
type Agency struct {
	ID                   string
	Name                 string
	OwnerEmail           string
	OwnerPasswordHash    string
	Plan                 AgencyPlan
	SeatLimit            int
	SeatsUsed            int
	StripeCustomerID     *string
	StripeSubscriptionID *string
	NotifyOnCallScored   bool
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
