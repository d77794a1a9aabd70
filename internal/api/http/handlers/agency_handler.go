package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agencyiq/agency-service/internal/api/dto"
	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/repository"
	"github.com/agencyiq/agency-service/internal/service"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// AgencyHandler serves tenant profile and roster endpoints.
type AgencyHandler struct {
	service *service.AgencyService
}

// NewAgencyHandler constructs handler.
func NewAgencyHandler(agencyService *service.AgencyService) *AgencyHandler {
	return &AgencyHandler{service: agencyService}
}

// Get GET /agency.
func (h *AgencyHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	agency, err := h.service.Get(c.Context(), principal.AgencyID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AgencyFromDomain(agency)})
}

// Update PATCH /agency.
func (h *AgencyHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || !principal.IsOwner() {
		return apperrors.NewForbidden("owner required")
	}
	var req dto.UpdateAgencyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	agency, err := h.service.Update(c.Context(), principal.AgencyID, service.AgencyUpdateInput{
		Name:               req.Name,
		NotifyOnCallScored: req.NotifyOnCallScored,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AgencyFromDomain(agency)})
}

// InviteStaff POST /agency/staff.
func (h *AgencyHandler) InviteStaff(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || !principal.IsOwner() {
		return apperrors.NewForbidden("owner required")
	}
	var req dto.InviteStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	staff, err := h.service.InviteStaff(c.Context(), principal.AgencyID, service.StaffInviteInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.StaffFromDomain(staff)})
}

// ListStaff GET /agency/staff.
func (h *AgencyHandler) ListStaff(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.StaffFilter{AgencyID: principal.AgencyID}
	if roleStr := c.Query("role"); roleStr != "" {
		role := domain.StaffRole(roleStr)
		filter.Role = &role
	}
	if activeStr := c.Query("active"); activeStr != "" {
		active := activeStr == "true"
		filter.Active = &active
	}

	staff, err := h.service.ListStaff(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.StaffResponse, 0, len(staff))
	for i := range staff {
		items = append(items, dto.StaffFromDomain(&staff[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetStaff GET /agency/staff/:id.
func (h *AgencyHandler) GetStaff(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	staff, err := h.service.GetStaff(c.Context(), principal.AgencyID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StaffFromDomain(staff)})
}

// ChangeRole PATCH /agency/staff/:id/role.
func (h *AgencyHandler) ChangeRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || !principal.IsOwner() {
		return apperrors.NewForbidden("owner required")
	}
	var req dto.ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	staff, err := h.service.ChangeStaffRole(c.Context(), principal.AgencyID, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StaffFromDomain(staff)})
}

// DeactivateStaff DELETE /agency/staff/:id.
func (h *AgencyHandler) DeactivateStaff(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || !principal.IsOwner() {
		return apperrors.NewForbidden("owner required")
	}
	if err := h.service.DeactivateStaff(c.Context(), principal.AgencyID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
