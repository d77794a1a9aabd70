package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductLine enumerates the insurance lines tracked on a sale.
type ProductLine string

const (
	ProductLineAuto       ProductLine = "AUTO"
	ProductLineHome       ProductLine = "HOME"
	ProductLineLife       ProductLine = "LIFE"
	ProductLineCommercial ProductLine = "COMMERCIAL"
	ProductLineSpecialty  ProductLine = "SPECIALTY"
)

// ValidProductLine reports whether the value is a known product line.
func ValidProductLine(p ProductLine) bool {
	switch p {
	case ProductLineAuto, ProductLineHome, ProductLineLife, ProductLineCommercial, ProductLineSpecialty:
		return true
	}
	return false
}

// Sale records a written policy (or bundle) for a staff member.
type Sale struct {
	ID            string
	AgencyID      string
	StaffID       string
	ClientName    string
	ProductLine   ProductLine
	PolicyCount   int
	Premium       decimal.Decimal
	CommissionPct decimal.Decimal
	SaleDate      time.Time
	Source        string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
