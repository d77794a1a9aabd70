package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/repository"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// ScorecardService aggregates sales into performance rollups.
type ScorecardService struct {
	sales repository.SaleRepository
	staff repository.StaffRepository
	now   func() time.Time
}

// ScorecardDependencies bundles collaborators for the scorecard service.
type ScorecardDependencies struct {
	SaleRepo  repository.SaleRepository
	StaffRepo repository.StaffRepository
	Now       func() time.Time
}

// NewScorecardService constructs the service.
func NewScorecardService(deps ScorecardDependencies) *ScorecardService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ScorecardService{sales: deps.SaleRepo, staff: deps.StaffRepo, now: now}
}

// PeriodBounds resolves a named period to [from, to] anchored at the
// reference time. Weeks start on Monday.
func (s *ScorecardService) PeriodBounds(period domain.ScorecardPeriod, ref time.Time) (time.Time, time.Time, error) {
	year, month, day := ref.Date()
	loc := ref.Location()

	switch period {
	case domain.PeriodWeek:
		weekday := int(ref.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		from := time.Date(year, month, day-(weekday-1), 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 0, 7).Add(-time.Nanosecond), nil
	case domain.PeriodMonth:
		from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 1, 0).Add(-time.Nanosecond), nil
	case domain.PeriodQuarter:
		qStart := time.Month(((int(month)-1)/3)*3 + 1)
		from := time.Date(year, qStart, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(0, 3, 0).Add(-time.Nanosecond), nil
	case domain.PeriodYear:
		from := time.Date(year, 1, 1, 0, 0, 0, 0, loc)
		return from, from.AddDate(1, 0, 0).Add(-time.Nanosecond), nil
	}
	return time.Time{}, time.Time{}, apperrors.NewValidationError("unknown period", map[string]any{"period": period})
}

// Build computes a scorecard for the agency or a single staff member over
// the named period. A period with no sales yields zeroed totals, not an
// error.
func (s *ScorecardService) Build(ctx context.Context, agencyID string, staffID *string, period domain.ScorecardPeriod) (*domain.Scorecard, error) {
	from, to, err := s.PeriodBounds(period, s.now())
	if err != nil {
		return nil, err
	}
	return s.BuildRange(ctx, agencyID, staffID, from, to)
}

// BuildRange computes a scorecard over an explicit window.
func (s *ScorecardService) BuildRange(ctx context.Context, agencyID string, staffID *string, from, to time.Time) (*domain.Scorecard, error) {
	if to.Before(from) {
		return nil, apperrors.NewValidationError("to must not precede from", nil)
	}

	sales, err := s.sales.ListForPeriod(ctx, agencyID, staffID, from, to)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	card := &domain.Scorecard{
		AgencyID:       agencyID,
		StaffID:        staffID,
		From:           from,
		To:             to,
		TotalPremium:   decimal.Zero,
		AveragePremium: decimal.Zero,
		ByProductLine:  make(map[domain.ProductLine]domain.LineTotals),
	}

	for _, sale := range sales {
		card.SalesCount++
		card.PolicyCount += sale.PolicyCount
		card.TotalPremium = card.TotalPremium.Add(sale.Premium)

		line := card.ByProductLine[sale.ProductLine]
		line.SalesCount++
		line.PolicyCount += sale.PolicyCount
		line.TotalPremium = line.TotalPremium.Add(sale.Premium)
		card.ByProductLine[sale.ProductLine] = line
	}

	if card.SalesCount > 0 {
		card.AveragePremium = card.TotalPremium.DivRound(decimal.NewFromInt(int64(card.SalesCount)), 2)
	}
	return card, nil
}

// Leaderboard ranks staff by total premium over the named period. Staff with
// no sales in the window still appear with zeroed totals.
func (s *ScorecardService) Leaderboard(ctx context.Context, agencyID string, period domain.ScorecardPeriod) ([]domain.LeaderboardEntry, error) {
	from, to, err := s.PeriodBounds(period, s.now())
	if err != nil {
		return nil, err
	}

	active := true
	roster, err := s.staff.List(ctx, repository.StaffFilter{AgencyID: agencyID, Active: &active, Limit: 500})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	byStaff := make(map[string]*domain.LeaderboardEntry, len(roster))
	entries := make([]domain.LeaderboardEntry, 0, len(roster))
	for _, member := range roster {
		entries = append(entries, domain.LeaderboardEntry{
			StaffID:      member.ID,
			StaffName:    member.Name,
			TotalPremium: decimal.Zero,
		})
	}
	for i := range entries {
		byStaff[entries[i].StaffID] = &entries[i]
	}

	sales, err := s.sales.ListForPeriod(ctx, agencyID, nil, from, to)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, sale := range sales {
		entry, ok := byStaff[sale.StaffID]
		if !ok {
			continue
		}
		entry.SalesCount++
		entry.PolicyCount += sale.PolicyCount
		entry.TotalPremium = entry.TotalPremium.Add(sale.Premium)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].TotalPremium.Equal(entries[j].TotalPremium) {
			return entries[i].TotalPremium.GreaterThan(entries[j].TotalPremium)
		}
		return entries[i].StaffName < entries[j].StaffName
	})
	return entries, nil
}
