package dto

import "github.com/agencyiq/agency-service/internal/domain"

// SubscribeRequest payload.
type SubscribeRequest struct {
	Plan domain.AgencyPlan `json:"plan" validate:"required,oneof=STANDARD PRO"`
}

// SubscriptionResponse describes the agency's billing state.
type SubscriptionResponse struct {
	Plan       domain.AgencyPlan `json:"plan"`
	SeatLimit  int               `json:"seat_limit"`
	SeatsUsed  int               `json:"seats_used"`
	Subscribed bool              `json:"subscribed"`
}

// SubscriptionFromDomain maps the agency's billing fields.
func SubscriptionFromDomain(agency *domain.Agency) SubscriptionResponse {
	return SubscriptionResponse{
		Plan:       agency.Plan,
		SeatLimit:  agency.SeatLimit,
		SeatsUsed:  agency.SeatsUsed,
		Subscribed: agency.StripeSubscriptionID != nil,
	}
}
