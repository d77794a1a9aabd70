package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/repository"
	"github.com/agencyiq/agency-service/pkg/parse"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// SalesService manages the sales log.
type SalesService struct {
	sales      repository.SaleRepository
	staff      repository.StaffRepository
	dispatcher events.Dispatcher
}

// SalesDependencies bundles collaborators for the sales service.
type SalesDependencies struct {
	SaleRepo   repository.SaleRepository
	StaffRepo  repository.StaffRepository
	Dispatcher events.Dispatcher
}

// SaleInput describes a sale creation or update payload. Premium and
// CommissionPct arrive as display strings ("$12,345.67", "12.5%") and are
// parsed strictly.
type SaleInput struct {
	StaffID       string
	ClientName    string
	ProductLine   domain.ProductLine
	PolicyCount   int
	Premium       string
	CommissionPct string
	SaleDate      time.Time
	Source        string
	Notes         string
}

// NewSalesService constructs the service.
func NewSalesService(deps SalesDependencies) *SalesService {
	return &SalesService{
		sales:      deps.SaleRepo,
		staff:      deps.StaffRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Record validates and persists a new sale.
func (s *SalesService) Record(ctx context.Context, principal *auth.Principal, input SaleInput) (*domain.Sale, error) {
	sale := &domain.Sale{AgencyID: principal.AgencyID}
	if err := s.applyInput(ctx, principal, sale, input); err != nil {
		return nil, err
	}

	if err := s.sales.Create(ctx, sale); err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventSaleRecorded,
		AgencyID: sale.AgencyID,
		Actor:    principalActor(principal),
		Payload: events.SaleRecordedPayload{
			SaleID:      sale.ID,
			StaffID:     sale.StaffID,
			ProductLine: sale.ProductLine,
			Premium:     sale.Premium,
		},
	})
	return sale, nil
}

// Update modifies an existing sale.
func (s *SalesService) Update(ctx context.Context, principal *auth.Principal, id string, input SaleInput) (*domain.Sale, error) {
	sale, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyInput(ctx, principal, sale, input); err != nil {
		return nil, err
	}
	if err := s.sales.Update(ctx, sale); err != nil {
		return nil, apperrors.MapError(err)
	}
	return sale, nil
}

// Delete removes a sale.
func (s *SalesService) Delete(ctx context.Context, principal *auth.Principal, id string) error {
	sale, err := s.Get(ctx, principal, id)
	if err != nil {
		return err
	}
	if err := s.sales.Delete(ctx, principal.AgencyID, sale.ID); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("sale", nil)
		}
		return apperrors.MapError(err)
	}
	return nil
}

// Get returns one sale, enforcing that non-manager staff only see their own.
func (s *SalesService) Get(ctx context.Context, principal *auth.Principal, id string) (*domain.Sale, error) {
	sale, err := s.sales.GetByID(ctx, principal.AgencyID, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("sale", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if !canActOnStaff(principal, sale.StaffID) {
		return nil, apperrors.NewNotFound("sale", nil)
	}
	return sale, nil
}

// List returns sales matching the filter. Non-manager staff are pinned to
// their own records regardless of the requested filter.
func (s *SalesService) List(ctx context.Context, principal *auth.Principal, filter repository.SaleFilter) ([]domain.Sale, error) {
	filter.AgencyID = principal.AgencyID
	if restrictedStaffID := selfOnlyStaffID(principal); restrictedStaffID != nil {
		filter.StaffID = restrictedStaffID
	}

	sales, err := s.sales.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sales, nil
}

func (s *SalesService) applyInput(ctx context.Context, principal *auth.Principal, sale *domain.Sale, input SaleInput) error {
	staffID := input.StaffID
	if staffID == "" && principal.Staff != nil {
		staffID = principal.Staff.ID
	}
	if staffID == "" {
		return apperrors.NewValidationError("staff_id is required", nil)
	}
	if !canActOnStaff(principal, staffID) {
		return apperrors.NewForbidden("cannot record sales for other staff")
	}

	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("staff", nil)
		}
		return apperrors.MapError(err)
	}
	if staff.AgencyID != principal.AgencyID {
		return apperrors.NewNotFound("staff", nil)
	}

	if !domain.ValidProductLine(input.ProductLine) {
		return apperrors.NewValidationError("unknown product line", map[string]any{"product_line": input.ProductLine})
	}
	if input.PolicyCount <= 0 {
		return apperrors.NewValidationError("policy_count must be positive", nil)
	}
	if input.SaleDate.IsZero() {
		return apperrors.NewValidationError("sale_date is required", nil)
	}

	premium, err := parse.Currency(input.Premium)
	if err != nil {
		return apperrors.NewValidationError("invalid premium", map[string]any{"premium": input.Premium})
	}
	commission, err := parse.Percent(input.CommissionPct)
	if err != nil {
		return apperrors.NewValidationError("invalid commission_pct", map[string]any{"commission_pct": input.CommissionPct})
	}

	sale.StaffID = staffID
	sale.ClientName = strings.TrimSpace(input.ClientName)
	sale.ProductLine = input.ProductLine
	sale.PolicyCount = input.PolicyCount
	sale.Premium = premium
	sale.CommissionPct = commission
	sale.SaleDate = input.SaleDate
	sale.Source = strings.TrimSpace(input.Source)
	sale.Notes = strings.TrimSpace(input.Notes)
	return nil
}

// canActOnStaff reports whether the principal may touch records belonging to
// staffID. Owners and managers can act on anyone in the agency.
func canActOnStaff(principal *auth.Principal, staffID string) bool {
	if principal.IsOwner() {
		return true
	}
	if principal.Staff == nil {
		return false
	}
	if principal.Staff.Role == domain.StaffRoleManager {
		return true
	}
	return principal.Staff.ID == staffID
}

// selfOnlyStaffID returns the staff ID to pin listings to, or nil when the
// principal may see everything.
func selfOnlyStaffID(principal *auth.Principal) *string {
	if principal.IsOwner() || principal.Staff == nil {
		return nil
	}
	if principal.Staff.Role == domain.StaffRoleManager {
		return nil
	}
	id := principal.Staff.ID
	return &id
}
