package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScorecardPeriod enumerates the rollup windows.
type ScorecardPeriod string

const (
	PeriodWeek    ScorecardPeriod = "WEEK"
	PeriodMonth   ScorecardPeriod = "MONTH"
	PeriodQuarter ScorecardPeriod = "QUARTER"
	PeriodYear    ScorecardPeriod = "YEAR"
)

// Scorecard aggregates sales performance over a period.
type Scorecard struct {
	AgencyID       string
	StaffID        *string
	From           time.Time
	To             time.Time
	SalesCount     int
	PolicyCount    int
	TotalPremium   decimal.Decimal
	AveragePremium decimal.Decimal
	ByProductLine  map[ProductLine]LineTotals
}

// LineTotals breaks totals down by product line.
type LineTotals struct {
	SalesCount   int
	PolicyCount  int
	TotalPremium decimal.Decimal
}

// LeaderboardEntry ranks one staff member on the agency scorecard.
type LeaderboardEntry struct {
	StaffID      string
	StaffName    string
	SalesCount   int
	PolicyCount  int
	TotalPremium decimal.Decimal
}
