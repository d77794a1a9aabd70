package dto

import (
	"time"

	"github.com/agencyiq/agency-service/internal/domain"
)

// AgencyResponse describes the tenant profile.
type AgencyResponse struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	OwnerEmail         string            `json:"owner_email"`
	Plan               domain.AgencyPlan `json:"plan"`
	SeatLimit          int               `json:"seat_limit"`
	SeatsUsed          int               `json:"seats_used"`
	NotifyOnCallScored bool              `json:"notify_on_call_scored"`
	Active             bool              `json:"active"`
	CreatedAt          time.Time         `json:"created_at"`
}

// UpdateAgencyRequest payload.
type UpdateAgencyRequest struct {
	Name               *string `json:"name" validate:"omitempty,min=2,max=120"`
	NotifyOnCallScored *bool   `json:"notify_on_call_scored"`
}

// InviteStaffRequest payload.
type InviteStaffRequest struct {
	Name     string           `json:"name" validate:"required,min=2,max=120"`
	Email    string           `json:"email" validate:"required,email"`
	Password string           `json:"password" validate:"required,min=8,max=72"`
	Role     domain.StaffRole `json:"role" validate:"required"`
}

// ChangeRoleRequest payload.
type ChangeRoleRequest struct {
	Role domain.StaffRole `json:"role" validate:"required"`
}

// StaffResponse describes a roster member.
type StaffResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      domain.StaffRole `json:"role"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
}

// AgencyFromDomain maps the domain agency.
func AgencyFromDomain(agency *domain.Agency) AgencyResponse {
	return AgencyResponse{
		ID:                 agency.ID,
		Name:               agency.Name,
		OwnerEmail:         agency.OwnerEmail,
		Plan:               agency.Plan,
		SeatLimit:          agency.SeatLimit,
		SeatsUsed:          agency.SeatsUsed,
		NotifyOnCallScored: agency.NotifyOnCallScored,
		Active:             agency.Active,
		CreatedAt:          agency.CreatedAt,
	}
}

// StaffFromDomain maps the domain staff user.
func StaffFromDomain(staff *domain.StaffUser) StaffResponse {
	return StaffResponse{
		ID:        staff.ID,
		Name:      staff.Name,
		Email:     staff.Email,
		Role:      staff.Role,
		Active:    staff.Active,
		CreatedAt: staff.CreatedAt,
	}
}
