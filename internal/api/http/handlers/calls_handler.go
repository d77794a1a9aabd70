package handlers

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/agencyiq/agency-service/internal/api/dto"
	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/repository"
	"github.com/agencyiq/agency-service/internal/service"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// CallsHandler serves call recording and scoring endpoints.
type CallsHandler struct {
	service *service.CallService
}

// NewCallsHandler constructs handler.
func NewCallsHandler(callService *service.CallService) *CallsHandler {
	return &CallsHandler{service: callService}
}

// Upload POST /calls. Multipart form with an "audio" file part.
func (h *CallsHandler) Upload(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return apperrors.NewValidationError("audio file is required", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("could not read audio file", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return apperrors.NewValidationError("could not read audio file", nil)
	}

	call, err := h.service.SubmitUpload(c.Context(), principal, service.CallUploadInput{
		StaffID:     c.FormValue("staff_id"),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.CallFromDomain(call, false)})
}

// ImportRingCentral POST /calls/ringcentral.
func (h *CallsHandler) ImportRingCentral(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SubmitRingCentralRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	staffID := req.StaffID
	if staffID == "" && principal.Staff != nil {
		staffID = principal.Staff.ID
	}
	call, err := h.service.SubmitRingCentral(c.Context(), principal, staffID, req.RecordingID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": dto.CallFromDomain(call, false)})
}

// Get GET /calls/:id.
func (h *CallsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	call, err := h.service.Get(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CallFromDomain(call, true)})
}

// GetScore GET /calls/:id/score.
func (h *CallsHandler) GetScore(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	score, err := h.service.GetScore(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ScoreFromDomain(score)})
}

// Rescore POST /calls/:id/rescore.
func (h *CallsHandler) Rescore(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	score, err := h.service.Rescore(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ScoreFromDomain(score)})
}

// List GET /calls.
func (h *CallsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := repository.CallFilter{}
	if staffID := c.Query("staff_id"); staffID != "" {
		filter.StaffID = &staffID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.CallStatus(strings.ToUpper(statusStr))
		filter.Status = &status
	}
	filter.From = parseTime(c.Query("from"))
	filter.To = parseTime(c.Query("to"))
	if raw := c.Query("min_score"); raw != "" {
		minScore := parseInt(raw, 0)
		filter.MinScore = &minScore
	}
	if raw := c.Query("max_score"); raw != "" {
		maxScore := parseInt(raw, 100)
		filter.MaxScore = &maxScore
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	calls, err := h.service.List(c.Context(), principal, filter)
	if err != nil {
		return err
	}
	items := make([]dto.CallResponse, 0, len(calls))
	for i := range calls {
		items = append(items, dto.CallFromDomain(&calls[i], false))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Delete DELETE /calls/:id.
func (h *CallsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.Context(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
