package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/events"
	"github.com/agencyiq/agency-service/internal/repository"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// LeadService manages public quote-request forms and their submissions.
type LeadService struct {
	leads      repository.LeadRepository
	dispatcher events.Dispatcher
}

// LeadDependencies bundles collaborators for the lead service.
type LeadDependencies struct {
	LeadRepo   repository.LeadRepository
	Dispatcher events.Dispatcher
}

// LeadFormInput describes form creation.
type LeadFormInput struct {
	Slug         string
	Headline     string
	BrandColor   string
	ProductLines []domain.ProductLine
}

// LeadSubmitInput describes a public submission.
type LeadSubmitInput struct {
	Name        string
	Email       string
	Phone       string
	ProductLine domain.ProductLine
	Message     string
}

// NewLeadService constructs the service.
func NewLeadService(deps LeadDependencies) *LeadService {
	return &LeadService{leads: deps.LeadRepo, dispatcher: deps.Dispatcher}
}

// CreateForm publishes a lead capture form under a unique slug.
func (s *LeadService) CreateForm(ctx context.Context, agencyID string, input LeadFormInput) (*domain.LeadForm, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, apperrors.NewValidationError("slug must be lowercase letters, digits, and hyphens", map[string]any{"slug": input.Slug})
	}
	if len(input.ProductLines) == 0 {
		return nil, apperrors.NewValidationError("form needs at least one product line", nil)
	}
	for _, line := range input.ProductLines {
		if !domain.ValidProductLine(line) {
			return nil, apperrors.NewValidationError("unknown product line", map[string]any{"product_line": line})
		}
	}
	if _, err := s.leads.GetFormBySlug(ctx, slug); err == nil {
		return nil, apperrors.NewConflict("slug already in use", map[string]any{"slug": slug})
	} else if err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}

	form := &domain.LeadForm{
		AgencyID:     agencyID,
		Slug:         slug,
		Headline:     strings.TrimSpace(input.Headline),
		BrandColor:   strings.TrimSpace(input.BrandColor),
		ProductLines: input.ProductLines,
	}
	if err := s.leads.CreateForm(ctx, form); err != nil {
		return nil, apperrors.MapError(err)
	}
	return form, nil
}

// ListForms returns the agency's published forms.
func (s *LeadService) ListForms(ctx context.Context, agencyID string) ([]domain.LeadForm, error) {
	forms, err := s.leads.ListForms(ctx, agencyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return forms, nil
}

// ResolveForm looks up an active public form by slug. Inactive forms are
// indistinguishable from missing ones.
func (s *LeadService) ResolveForm(ctx context.Context, slug string) (*domain.LeadForm, error) {
	form, err := s.leads.GetFormBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("form", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if !form.Active {
		return nil, apperrors.NewNotFound("form", nil)
	}
	return form, nil
}

// SubmitLead records a public submission against the slug's form.
func (s *LeadService) SubmitLead(ctx context.Context, slug string, input LeadSubmitInput) (*domain.Lead, error) {
	form, err := s.ResolveForm(ctx, slug)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if strings.TrimSpace(input.Email) == "" && strings.TrimSpace(input.Phone) == "" {
		return nil, apperrors.NewValidationError("email or phone is required", nil)
	}
	if !formOffers(form, input.ProductLine) {
		return nil, apperrors.NewValidationError("product line not offered on this form", map[string]any{
			"product_line": input.ProductLine,
		})
	}

	lead := &domain.Lead{
		FormID:      form.ID,
		AgencyID:    form.AgencyID,
		Name:        name,
		Email:       strings.TrimSpace(input.Email),
		Phone:       strings.TrimSpace(input.Phone),
		ProductLine: input.ProductLine,
		Message:     strings.TrimSpace(input.Message),
	}
	if err := s.leads.CreateLead(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventLeadSubmitted,
		AgencyID: form.AgencyID,
		Actor:    ownerActor(),
		Payload: events.LeadSubmittedPayload{
			LeadID:      lead.ID,
			FormSlug:    form.Slug,
			Name:        lead.Name,
			ProductLine: lead.ProductLine,
		},
	})
	return lead, nil
}

// ListLeads returns submissions for the agency.
func (s *LeadService) ListLeads(ctx context.Context, agencyID string, limit, offset int) ([]domain.Lead, error) {
	leads, err := s.leads.ListLeads(ctx, agencyID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return leads, nil
}

func formOffers(form *domain.LeadForm, line domain.ProductLine) bool {
	for _, offered := range form.ProductLines {
		if offered == line {
			return true
		}
	}
	return false
}
