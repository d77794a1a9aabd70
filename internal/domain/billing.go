package domain

import "time"

// BillingEvent records a processed Stripe webhook event for idempotency.
type BillingEvent struct {
	ID          string
	StripeID    string
	Type        string
	AgencyID    *string
	ProcessedAt time.Time
}
