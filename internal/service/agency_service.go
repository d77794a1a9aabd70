package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/repository"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// SeatBilling pushes seat count changes to the billing provider.
type SeatBilling interface {
	SyncSeatQuantity(ctx context.Context, agency *domain.Agency) error
}

// SessionRevoker invalidates staff sessions after account changes.
type SessionRevoker interface {
	RevokeAllForStaff(ctx context.Context, staffID string) error
}

// AgencyService manages tenant profile and staff roster workflows.
type AgencyService struct {
	pool       TxBeginner
	agencies   repository.AgencyRepository
	staff      repository.StaffRepository
	sessions   SessionRevoker
	billing    SeatBilling
	dispatcher events.Dispatcher
	bcryptCost int
}

// AgencyDependencies bundles collaborators for the agency service.
type AgencyDependencies struct {
	Pool           TxBeginner
	AgencyRepo     repository.AgencyRepository
	StaffRepo      repository.StaffRepository
	SessionManager SessionRevoker
	Billing        SeatBilling
	Dispatcher     events.Dispatcher
	BcryptCost     int
}

// StaffInviteInput describes a staff invitation payload.
type StaffInviteInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.StaffRole
}

// AgencyUpdateInput describes mutable agency profile fields.
type AgencyUpdateInput struct {
	Name               *string
	NotifyOnCallScored *bool
}

// NewAgencyService constructs the service.
func NewAgencyService(deps AgencyDependencies) *AgencyService {
	return &AgencyService{
		pool:       deps.Pool,
		agencies:   deps.AgencyRepo,
		staff:      deps.StaffRepo,
		sessions:   deps.SessionManager,
		billing:    deps.Billing,
		dispatcher: deps.Dispatcher,
		bcryptCost: deps.BcryptCost,
	}
}

// Get returns the agency profile.
func (s *AgencyService) Get(ctx context.Context, agencyID string) (*domain.Agency, error) {
	agency, err := s.agencies.GetByID(ctx, agencyID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("agency", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return agency, nil
}

// Update applies profile changes.
func (s *AgencyService) Update(ctx context.Context, agencyID string, input AgencyUpdateInput) (*domain.Agency, error) {
	agency, err := s.Get(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		agency.Name = name
	}
	if input.NotifyOnCallScored != nil {
		agency.NotifyOnCallScored = *input.NotifyOnCallScored
	}

	if err := s.agencies.Update(ctx, agency); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agency, nil
}

// InviteStaff creates a staff account and claims a seat. The insert and the
// seat increment commit in one transaction so the seat limit cannot be
// exceeded by concurrent invites.
func (s *AgencyService) InviteStaff(ctx context.Context, agencyID string, input StaffInviteInput) (*domain.StaffUser, error) {
	if !validStaffRole(input.Role) {
		return nil, apperrors.NewValidationError("unknown staff role", map[string]any{"role": input.Role})
	}
	if _, err := s.staff.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already in use", nil)
	} else if err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}

	agency, err := s.Get(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer tx.Rollback(ctx)

	seats, err := s.agencies.AdjustSeatsUsed(ctx, tx, agencyID, 1)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if seats > agency.SeatLimit {
		return nil, apperrors.NewConflict("seat limit reached", map[string]any{
			"seat_limit": agency.SeatLimit,
		})
	}

	staff := &domain.StaffUser{
		AgencyID:     agencyID,
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.staff.Create(ctx, tx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.billing != nil {
		agency.SeatsUsed = seats
		_ = s.billing.SyncSeatQuantity(ctx, agency)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventStaffInvited,
		AgencyID: agencyID,
		Actor:    ownerActor(),
		Payload: events.StaffInvitedPayload{
			StaffID:   staff.ID,
			Email:     staff.Email,
			Role:      staff.Role,
			SeatsUsed: seats,
		},
	})
	return staff, nil
}

// DeactivateStaff releases the seat, disables login, and revokes sessions.
func (s *AgencyService) DeactivateStaff(ctx context.Context, agencyID, staffID string) error {
	staff, err := s.getStaff(ctx, agencyID, staffID)
	if err != nil {
		return err
	}
	if !staff.Active {
		return apperrors.NewConflict("staff already deactivated", nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	defer tx.Rollback(ctx)

	staff.Active = false
	if err := s.staff.Update(ctx, tx, staff); err != nil {
		return apperrors.MapError(err)
	}
	seats, err := s.agencies.AdjustSeatsUsed(ctx, tx, agencyID, -1)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.MapError(err)
	}

	if err := s.sessions.RevokeAllForStaff(ctx, staffID); err != nil {
		return apperrors.MapError(err)
	}

	if s.billing != nil {
		if agency, err := s.agencies.GetByID(ctx, agencyID); err == nil {
			agency.SeatsUsed = seats
			_ = s.billing.SyncSeatQuantity(ctx, agency)
		}
	}
	return nil
}

// ChangeStaffRole reassigns a staff member's role.
func (s *AgencyService) ChangeStaffRole(ctx context.Context, agencyID, staffID string, role domain.StaffRole) (*domain.StaffUser, error) {
	if !validStaffRole(role) {
		return nil, apperrors.NewValidationError("unknown staff role", map[string]any{"role": role})
	}
	staff, err := s.getStaff(ctx, agencyID, staffID)
	if err != nil {
		return nil, err
	}

	staff.Role = role
	if err := s.staff.Update(ctx, nil, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// GetStaff returns one staff member scoped to the agency.
func (s *AgencyService) GetStaff(ctx context.Context, agencyID, staffID string) (*domain.StaffUser, error) {
	return s.getStaff(ctx, agencyID, staffID)
}

// ListStaff returns the agency roster.
func (s *AgencyService) ListStaff(ctx context.Context, filter repository.StaffFilter) ([]domain.StaffUser, error) {
	staff, err := s.staff.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

func (s *AgencyService) getStaff(ctx context.Context, agencyID, staffID string) (*domain.StaffUser, error) {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("staff", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if staff.AgencyID != agencyID {
		return nil, apperrors.NewNotFound("staff", nil)
	}
	return staff, nil
}

func validStaffRole(role domain.StaffRole) bool {
	switch role {
	case domain.StaffRoleProducer, domain.StaffRoleCSR, domain.StaffRoleManager:
		return true
	}
	return false
}
