package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyiq/agency-service/internal/domain"
)

func newScorecardFixture(now time.Time) (*ScorecardService, *memSaleRepo, *memStaffRepo) {
	sales := newMemSaleRepo()
	staff := newMemStaffRepo()
	svc := NewScorecardService(ScorecardDependencies{
		SaleRepo:  sales,
		StaffRepo: staff,
		Now:       func() time.Time { return now },
	})
	return svc, sales, staff
}

func seedSale(sales *memSaleRepo, agencyID, staffID string, line domain.ProductLine, premium string, policies int, date time.Time) {
	_ = sales.Create(context.Background(), &domain.Sale{
		AgencyID:    agencyID,
		StaffID:     staffID,
		ProductLine: line,
		PolicyCount: policies,
		Premium:     decimal.RequireFromString(premium),
		SaleDate:    date,
	})
}

func TestPeriodBounds(t *testing.T) {
	svc, _, _ := newScorecardFixture(time.Now())
	// Wednesday, August 19 2026.
	ref := time.Date(2026, 8, 19, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		period domain.ScorecardPeriod
		from   time.Time
	}{
		{domain.PeriodWeek, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)},
		{domain.PeriodMonth, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{domain.PeriodQuarter, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
		{domain.PeriodYear, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		from, to, err := svc.PeriodBounds(tc.period, ref)
		require.NoError(t, err, tc.period)
		assert.Equal(t, tc.from, from, tc.period)
		assert.True(t, to.After(ref), tc.period)
	}

	_, _, err := svc.PeriodBounds("FORTNIGHT", ref)
	assert.Error(t, err)
}

func TestPeriodBoundsSundayBelongsToCurrentWeek(t *testing.T) {
	svc, _, _ := newScorecardFixture(time.Now())
	sunday := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	from, to, err := svc.PeriodBounds(domain.PeriodWeek, sunday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), from)
	assert.True(t, to.After(sunday))
}

func TestBuildAggregates(t *testing.T) {
	now := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	svc, sales, _ := newScorecardFixture(now)

	inWindow := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	seedSale(sales, "agency-1", "staff-1", domain.ProductLineAuto, "1000", 2, inWindow)
	seedSale(sales, "agency-1", "staff-1", domain.ProductLineHome, "3000", 1, inWindow)
	seedSale(sales, "agency-1", "staff-2", domain.ProductLineAuto, "500", 1, inWindow)
	// Outside the week.
	seedSale(sales, "agency-1", "staff-1", domain.ProductLineAuto, "9999", 1, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	card, err := svc.Build(context.Background(), "agency-1", nil, domain.PeriodWeek)
	require.NoError(t, err)

	assert.Equal(t, 3, card.SalesCount)
	assert.Equal(t, 4, card.PolicyCount)
	assert.True(t, card.TotalPremium.Equal(decimal.NewFromInt(4500)))
	assert.True(t, card.AveragePremium.Equal(decimal.NewFromInt(1500)))

	auto := card.ByProductLine[domain.ProductLineAuto]
	assert.Equal(t, 2, auto.SalesCount)
	assert.True(t, auto.TotalPremium.Equal(decimal.NewFromInt(1500)))
}

func TestBuildForSingleStaff(t *testing.T) {
	now := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	svc, sales, _ := newScorecardFixture(now)

	inWindow := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	seedSale(sales, "agency-1", "staff-1", domain.ProductLineAuto, "1000", 1, inWindow)
	seedSale(sales, "agency-1", "staff-2", domain.ProductLineAuto, "500", 1, inWindow)

	staffID := "staff-1"
	card, err := svc.Build(context.Background(), "agency-1", &staffID, domain.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, 1, card.SalesCount)
	assert.True(t, card.TotalPremium.Equal(decimal.NewFromInt(1000)))
}

func TestBuildEmptyPeriodZeroed(t *testing.T) {
	svc, _, _ := newScorecardFixture(time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC))

	card, err := svc.Build(context.Background(), "agency-1", nil, domain.PeriodMonth)
	require.NoError(t, err)

	assert.Equal(t, 0, card.SalesCount)
	assert.True(t, card.TotalPremium.IsZero())
	assert.True(t, card.AveragePremium.IsZero())
	assert.Empty(t, card.ByProductLine)
}

func TestBuildRangeRejectsInvertedWindow(t *testing.T) {
	svc, _, _ := newScorecardFixture(time.Now())

	from := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	_, err := svc.BuildRange(context.Background(), "agency-1", nil, from, from.AddDate(0, 0, -1))
	assert.Error(t, err)
}

func TestLeaderboardRanksAndIncludesZeroSellers(t *testing.T) {
	now := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	svc, sales, staff := newScorecardFixture(now)

	alice := staff.add(domain.StaffUser{AgencyID: "agency-1", Name: "Alice", Role: domain.StaffRoleProducer, Active: true})
	bob := staff.add(domain.StaffUser{AgencyID: "agency-1", Name: "Bob", Role: domain.StaffRoleProducer, Active: true})
	carol := staff.add(domain.StaffUser{AgencyID: "agency-1", Name: "Carol", Role: domain.StaffRoleCSR, Active: true})

	inWindow := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	seedSale(sales, "agency-1", bob.ID, domain.ProductLineAuto, "2000", 1, inWindow)
	seedSale(sales, "agency-1", alice.ID, domain.ProductLineHome, "1000", 1, inWindow)

	entries, err := svc.Leaderboard(context.Background(), "agency-1", domain.PeriodWeek)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, bob.ID, entries[0].StaffID)
	assert.Equal(t, alice.ID, entries[1].StaffID)
	assert.Equal(t, carol.ID, entries[2].StaffID)
	assert.True(t, entries[2].TotalPremium.IsZero())
}
