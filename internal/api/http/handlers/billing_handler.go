package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agencyiq/agency-service/internal/api/dto"
	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/service"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// BillingHandler serves subscription endpoints and the Stripe webhook.
type BillingHandler struct {
	billing *service.BillingService
	agency  *service.AgencyService
}

// NewBillingHandler constructs handler.
func NewBillingHandler(billing *service.BillingService, agency *service.AgencyService) *BillingHandler {
	return &BillingHandler{billing: billing, agency: agency}
}

// GetSubscription GET /billing/subscription.
func (h *BillingHandler) GetSubscription(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || !principal.IsOwner() {
		return apperrors.NewForbidden("owner required")
	}
	agency, err := h.agency.Get(c.Context(), principal.AgencyID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SubscriptionFromDomain(agency)})
}

// Subscribe POST /billing/subscribe.
func (h *BillingHandler) Subscribe(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || !principal.IsOwner() {
		return apperrors.NewForbidden("owner required")
	}
	var req dto.SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	agency, err := h.billing.Subscribe(c.Context(), principal.AgencyID, req.Plan)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SubscriptionFromDomain(agency)})
}

// Webhook POST /billing/webhook. Unauthenticated; the Stripe signature
// header is the credential.
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	signature := c.Get("Stripe-Signature")
	if signature == "" {
		return apperrors.NewUnauthorized("missing stripe signature")
	}
	if err := h.billing.HandleWebhook(c.Context(), c.Body(), signature); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"received": true})
}
