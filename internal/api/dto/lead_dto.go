package dto

import (
	"time"

	"github.com/agencyiq/agency-service/internal/domain"
)

// CreateFormRequest payload.
type CreateFormRequest struct {
	Slug         string               `json:"slug" validate:"required,max=80"`
	Headline     string               `json:"headline" validate:"max=200"`
	BrandColor   string               `json:"brand_color" validate:"omitempty,hexcolor"`
	ProductLines []domain.ProductLine `json:"product_lines" validate:"required,min=1"`
}

// FormResponse describes a published lead form. PublicFormResponse is the
// unauthenticated subset.
type FormResponse struct {
	ID           string               `json:"id"`
	Slug         string               `json:"slug"`
	Headline     string               `json:"headline,omitempty"`
	BrandColor   string               `json:"brand_color,omitempty"`
	ProductLines []domain.ProductLine `json:"product_lines"`
	Active       bool                 `json:"active"`
	CreatedAt    time.Time            `json:"created_at"`
}

// PublicFormResponse is what anonymous visitors see.
type PublicFormResponse struct {
	Slug         string               `json:"slug"`
	Headline     string               `json:"headline,omitempty"`
	BrandColor   string               `json:"brand_color,omitempty"`
	ProductLines []domain.ProductLine `json:"product_lines"`
}

// SubmitLeadRequest payload.
type SubmitLeadRequest struct {
	Name        string             `json:"name" validate:"required,min=2,max=200"`
	Email       string             `json:"email" validate:"omitempty,email"`
	Phone       string             `json:"phone" validate:"max=40"`
	ProductLine domain.ProductLine `json:"product_line" validate:"required"`
	Message     string             `json:"message" validate:"max=4000"`
}

// LeadResponse describes a captured lead.
type LeadResponse struct {
	ID          string             `json:"id"`
	FormID      string             `json:"form_id"`
	Name        string             `json:"name"`
	Email       string             `json:"email,omitempty"`
	Phone       string             `json:"phone,omitempty"`
	ProductLine domain.ProductLine `json:"product_line"`
	Message     string             `json:"message,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// FormFromDomain maps the domain form.
func FormFromDomain(form *domain.LeadForm) FormResponse {
	return FormResponse{
		ID:           form.ID,
		Slug:         form.Slug,
		Headline:     form.Headline,
		BrandColor:   form.BrandColor,
		ProductLines: form.ProductLines,
		Active:       form.Active,
		CreatedAt:    form.CreatedAt,
	}
}

// PublicFormFromDomain maps the anonymous view.
func PublicFormFromDomain(form *domain.LeadForm) PublicFormResponse {
	return PublicFormResponse{
		Slug:         form.Slug,
		Headline:     form.Headline,
		BrandColor:   form.BrandColor,
		ProductLines: form.ProductLines,
	}
}

// LeadFromDomain maps the domain lead.
func LeadFromDomain(lead *domain.Lead) LeadResponse {
	return LeadResponse{
		ID:          lead.ID,
		FormID:      lead.FormID,
		Name:        lead.Name,
		Email:       lead.Email,
		Phone:       lead.Phone,
		ProductLine: lead.ProductLine,
		Message:     lead.Message,
		CreatedAt:   lead.CreatedAt,
	}
}
