package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/agencyiq/agency-service/internal/api/dto"
	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/repository"
	"github.com/agencyiq/agency-service/internal/service"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// TrainingHandler serves onboarding and challenge endpoints.
type TrainingHandler struct {
	service *service.TrainingService
}

// NewTrainingHandler constructs handler.
func NewTrainingHandler(trainingService *service.TrainingService) *TrainingHandler {
	return &TrainingHandler{service: trainingService}
}

// CreateTemplate POST /training/templates.
func (h *TrainingHandler) CreateTemplate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	tasks := make([]domain.TaskTemplate, 0, len(req.Tasks))
	for _, task := range req.Tasks {
		tasks = append(tasks, domain.TaskTemplate{
			Title:       task.Title,
			Description: task.Description,
			DueOffset:   task.DueOffset,
		})
	}
	tpl, err := h.service.CreateTemplate(c.Context(), principal.AgencyID, req.Name, tasks)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.TemplateFromDomain(tpl)})
}

// ListTemplates GET /training/templates.
func (h *TrainingHandler) ListTemplates(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	templates, err := h.service.ListTemplates(c.Context(), principal.AgencyID)
	if err != nil {
		return err
	}
	items := make([]dto.TemplateResponse, 0, len(templates))
	for i := range templates {
		items = append(items, dto.TemplateFromDomain(&templates[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AssignTemplate POST /training/templates/:id/assign.
func (h *TrainingHandler) AssignTemplate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	inst, tasks, err := h.service.AssignTemplate(c.Context(), principal.AgencyID, c.Params("id"), req.StaffID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.InstanceFromDomain(inst, tasks)})
}

// GetInstance GET /training/instances/:id.
func (h *TrainingHandler) GetInstance(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	inst, tasks, err := h.service.GetInstance(c.Context(), principal.AgencyID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.InstanceFromDomain(inst, tasks)})
}

// ListInstances GET /training/instances.
func (h *TrainingHandler) ListInstances(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	staffID := c.Query("staff_id")
	if principal.Staff != nil && principal.Staff.Role != domain.StaffRoleManager {
		staffID = principal.Staff.ID
	}
	if staffID == "" {
		return apperrors.NewValidationError("staff_id is required", nil)
	}

	instances, err := h.service.ListInstancesForStaff(c.Context(), principal.AgencyID, staffID)
	if err != nil {
		return err
	}
	items := make([]dto.InstanceResponse, 0, len(instances))
	for i := range instances {
		items = append(items, dto.InstanceFromDomain(&instances[i], nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CompleteTask POST /training/tasks/:id/complete.
func (h *TrainingHandler) CompleteTask(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	task, err := h.service.CompleteTask(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TaskFromDomain(task)})
}

// AssignChallenge POST /training/challenges.
func (h *TrainingHandler) AssignChallenge(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	challenge, err := h.service.AssignChallenge(c.Context(), principal.AgencyID, service.ChallengeInput{
		StaffID:     req.StaffID,
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.ChallengeFromDomain(challenge)})
}

// ReassignChallenge POST /training/challenges/:id/reassign.
func (h *TrainingHandler) ReassignChallenge(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReassignChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	challenge, err := h.service.ReassignChallenge(c.Context(), principal.AgencyID, c.Params("id"), req.StaffID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChallengeFromDomain(challenge)})
}

// CompleteChallenge POST /training/challenges/:id/complete.
func (h *TrainingHandler) CompleteChallenge(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	challenge, err := h.service.CompleteChallenge(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChallengeFromDomain(challenge)})
}

// ListChallenges GET /training/challenges.
func (h *TrainingHandler) ListChallenges(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := repository.ChallengeFilter{AgencyID: principal.AgencyID}
	if staffID := c.Query("staff_id"); staffID != "" {
		filter.StaffID = &staffID
	}
	if principal.Staff != nil && principal.Staff.Role != domain.StaffRoleManager {
		filter.StaffID = &principal.Staff.ID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.ChallengeStatus(strings.ToUpper(statusStr))
		filter.Status = &status
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	challenges, err := h.service.ListChallenges(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ChallengeResponse, 0, len(challenges))
	for i := range challenges {
		items = append(items, dto.ChallengeFromDomain(&challenges[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
