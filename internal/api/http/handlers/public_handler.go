package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agencyiq/agency-service/internal/api/dto"
	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/ratelimit"
	"github.com/agencyiq/agency-service/internal/service"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// PublicHandler serves unauthenticated lead form endpoints plus the
// authenticated form management surface.
type PublicHandler struct {
	service *service.LeadService
	limiter *ratelimit.Limiter
}

// NewPublicHandler constructs handler.
func NewPublicHandler(leadService *service.LeadService, limiter *ratelimit.Limiter) *PublicHandler {
	return &PublicHandler{service: leadService, limiter: limiter}
}

// CreateForm POST /leads/forms.
func (h *PublicHandler) CreateForm(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || !principal.IsOwner() {
		return apperrors.NewForbidden("owner required")
	}
	var req dto.CreateFormRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	form, err := h.service.CreateForm(c.Context(), principal.AgencyID, service.LeadFormInput{
		Slug:         req.Slug,
		Headline:     req.Headline,
		BrandColor:   req.BrandColor,
		ProductLines: req.ProductLines,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FormFromDomain(form)})
}

// ListForms GET /leads/forms.
func (h *PublicHandler) ListForms(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	forms, err := h.service.ListForms(c.Context(), principal.AgencyID)
	if err != nil {
		return err
	}
	items := make([]dto.FormResponse, 0, len(forms))
	for i := range forms {
		items = append(items, dto.FormFromDomain(&forms[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListLeads GET /leads.
func (h *PublicHandler) ListLeads(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)

	leads, err := h.service.ListLeads(c.Context(), principal.AgencyID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.LeadResponse, 0, len(leads))
	for i := range leads {
		items = append(items, dto.LeadFromDomain(&leads[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetForm GET /public/forms/:slug. Unauthenticated.
func (h *PublicHandler) GetForm(c *fiber.Ctx) error {
	if err := h.allow(c); err != nil {
		return err
	}
	form, err := h.service.ResolveForm(c.Context(), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PublicFormFromDomain(form)})
}

// SubmitLead POST /public/forms/:slug/leads. Unauthenticated.
func (h *PublicHandler) SubmitLead(c *fiber.Ctx) error {
	if err := h.allow(c); err != nil {
		return err
	}
	var req dto.SubmitLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	lead, err := h.service.SubmitLead(c.Context(), c.Params("slug"), service.LeadSubmitInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		ProductLine: req.ProductLine,
		Message:     req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.LeadFromDomain(lead)})
}

func (h *PublicHandler) allow(c *fiber.Ctx) error {
	if h.limiter == nil {
		return nil
	}
	allowed, err := h.limiter.Allow(c.Context(), c.IP()+":"+c.Params("slug"))
	if err != nil || allowed {
		return nil
	}
	return apperrors.NewTooManyRequests("too many requests, slow down")
}
