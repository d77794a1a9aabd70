package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/agencyiq/agency-service/internal/domain"
)

// RecordSaleRequest payload. Premium and commission accept human formats
// such as "$1,250.00" and "12.5%".
type RecordSaleRequest struct {
	StaffID       string             `json:"staff_id"`
	ClientName    string             `json:"client_name" validate:"required,min=2,max=200"`
	ProductLine   domain.ProductLine `json:"product_line" validate:"required"`
	PolicyCount   int                `json:"policy_count" validate:"required,min=1"`
	Premium       string             `json:"premium" validate:"required"`
	CommissionPct string             `json:"commission_pct"`
	SaleDate      time.Time          `json:"sale_date" validate:"required"`
	Source        string             `json:"source"`
	Notes         string             `json:"notes" validate:"max=2000"`
}

// SaleResponse describes a recorded sale.
type SaleResponse struct {
	ID            string             `json:"id"`
	StaffID       string             `json:"staff_id"`
	ClientName    string             `json:"client_name"`
	ProductLine   domain.ProductLine `json:"product_line"`
	PolicyCount   int                `json:"policy_count"`
	Premium       decimal.Decimal    `json:"premium"`
	CommissionPct decimal.Decimal    `json:"commission_pct"`
	SaleDate      time.Time          `json:"sale_date"`
	Source        string             `json:"source,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ScorecardResponse aggregates sales performance over a period.
type ScorecardResponse struct {
	StaffID        *string                            `json:"staff_id,omitempty"`
	From           time.Time                          `json:"from"`
	To             time.Time                          `json:"to"`
	SalesCount     int                                `json:"sales_count"`
	PolicyCount    int                                `json:"policy_count"`
	TotalPremium   decimal.Decimal                    `json:"total_premium"`
	AveragePremium decimal.Decimal                    `json:"average_premium"`
	ByProductLine  map[domain.ProductLine]LineTotals  `json:"by_product_line"`
}

// LineTotals breaks scorecard totals down per product line.
type LineTotals struct {
	SalesCount   int             `json:"sales_count"`
	PolicyCount  int             `json:"policy_count"`
	TotalPremium decimal.Decimal `json:"total_premium"`
}

// LeaderboardEntry ranks one staff member.
type LeaderboardEntry struct {
	Rank         int             `json:"rank"`
	StaffID      string          `json:"staff_id"`
	StaffName    string          `json:"staff_name"`
	SalesCount   int             `json:"sales_count"`
	PolicyCount  int             `json:"policy_count"`
	TotalPremium decimal.Decimal `json:"total_premium"`
}

// SaleFromDomain maps the domain sale.
func SaleFromDomain(sale *domain.Sale) SaleResponse {
	return SaleResponse{
		ID:            sale.ID,
		StaffID:       sale.StaffID,
		ClientName:    sale.ClientName,
		ProductLine:   sale.ProductLine,
		PolicyCount:   sale.PolicyCount,
		Premium:       sale.Premium,
		CommissionPct: sale.CommissionPct,
		SaleDate:      sale.SaleDate,
		Source:        sale.Source,
		Notes:         sale.Notes,
		CreatedAt:     sale.CreatedAt,
	}
}

// ScorecardFromDomain maps the domain scorecard.
func ScorecardFromDomain(card *domain.Scorecard) ScorecardResponse {
	lines := make(map[domain.ProductLine]LineTotals, len(card.ByProductLine))
	for line, totals := range card.ByProductLine {
		lines[line] = LineTotals{
			SalesCount:   totals.SalesCount,
			PolicyCount:  totals.PolicyCount,
			TotalPremium: totals.TotalPremium,
		}
	}
	return ScorecardResponse{
		StaffID:        card.StaffID,
		From:           card.From,
		To:             card.To,
		SalesCount:     card.SalesCount,
		PolicyCount:    card.PolicyCount,
		TotalPremium:   card.TotalPremium,
		AveragePremium: card.AveragePremium,
		ByProductLine:  lines,
	}
}

// LeaderboardFromDomain maps ranked entries.
func LeaderboardFromDomain(entries []domain.LeaderboardEntry) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(entries))
	for i, entry := range entries {
		out = append(out, LeaderboardEntry{
			Rank:         i + 1,
			StaffID:      entry.StaffID,
			StaffName:    entry.StaffName,
			SalesCount:   entry.SalesCount,
			PolicyCount:  entry.PolicyCount,
			TotalPremium: entry.TotalPremium,
		})
	}
	return out
}
