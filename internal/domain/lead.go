package domain

import "time"

// LeadForm is a public quote-request form published by an agency.
type LeadForm struct {
	ID           string
	AgencyID     string
	Slug         string
	Headline     string
	BrandColor   string
	ProductLines []ProductLine
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Lead is a submission against a public form.
type Lead struct {
	ID          string
	FormID      string
	AgencyID    string
	Name        string
	Email       string
	Phone       string
	ProductLine ProductLine
	Message     string
	CreatedAt   time.Time
}
