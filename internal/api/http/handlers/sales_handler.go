package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/agencyiq/agency-service/internal/api/dto"
	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/repository"
	"github.com/agencyiq/agency-service/internal/service"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

// SalesHandler serves sale tracking and scorecard endpoints.
type SalesHandler struct {
	sales      *service.SalesService
	scorecards *service.ScorecardService
}

// NewSalesHandler constructs handler.
func NewSalesHandler(sales *service.SalesService, scorecards *service.ScorecardService) *SalesHandler {
	return &SalesHandler{sales: sales, scorecards: scorecards}
}

// Record POST /sales.
func (h *SalesHandler) Record(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	req, err := parseSaleRequest(c)
	if err != nil {
		return err
	}

	sale, err := h.sales.Record(c.Context(), principal, saleInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.SaleFromDomain(sale)})
}

// Update PUT /sales/:id.
func (h *SalesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	req, err := parseSaleRequest(c)
	if err != nil {
		return err
	}

	sale, err := h.sales.Update(c.Context(), principal, c.Params("id"), saleInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SaleFromDomain(sale)})
}

// Delete DELETE /sales/:id.
func (h *SalesHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.sales.Delete(c.Context(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Get GET /sales/:id.
func (h *SalesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	sale, err := h.sales.Get(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SaleFromDomain(sale)})
}

// List GET /sales.
func (h *SalesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := repository.SaleFilter{}
	if staffID := c.Query("staff_id"); staffID != "" {
		filter.StaffID = &staffID
	}
	if lineStr := c.Query("product_line"); lineStr != "" {
		line := domain.ProductLine(strings.ToUpper(lineStr))
		filter.ProductLine = &line
	}
	if from := parseTime(c.Query("from")); from != nil {
		filter.From = from
	}
	if to := parseTime(c.Query("to")); to != nil {
		filter.To = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	sales, err := h.sales.List(c.Context(), principal, filter)
	if err != nil {
		return err
	}
	items := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		items = append(items, dto.SaleFromDomain(&sales[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Scorecard GET /scorecards.
func (h *SalesHandler) Scorecard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var staffID *string
	if id := c.Query("staff_id"); id != "" {
		staffID = &id
	}
	// Non-manager staff only ever see their own card.
	if principal.Staff != nil && principal.Staff.Role != domain.StaffRoleManager {
		staffID = &principal.Staff.ID
	}

	var card *domain.Scorecard
	var err error
	if fromStr, toStr := c.Query("from"), c.Query("to"); fromStr != "" || toStr != "" {
		from := parseTime(fromStr)
		to := parseTime(toStr)
		if from == nil || to == nil {
			return apperrors.NewValidationError("from and to must be RFC3339 timestamps", nil)
		}
		card, err = h.scorecards.BuildRange(c.Context(), principal.AgencyID, staffID, *from, *to)
	} else {
		period := domain.ScorecardPeriod(strings.ToUpper(c.Query("period", string(domain.PeriodMonth))))
		card, err = h.scorecards.Build(c.Context(), principal.AgencyID, staffID, period)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ScorecardFromDomain(card)})
}

// Leaderboard GET /scorecards/leaderboard.
func (h *SalesHandler) Leaderboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	period := domain.ScorecardPeriod(strings.ToUpper(c.Query("period", string(domain.PeriodMonth))))

	entries, err := h.scorecards.Leaderboard(c.Context(), principal.AgencyID, period)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LeaderboardFromDomain(entries)})
}

func parseSaleRequest(c *fiber.Ctx) (dto.RecordSaleRequest, error) {
	var req dto.RecordSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return req, err
	}
	return req, nil
}

func saleInput(req dto.RecordSaleRequest) service.SaleInput {
	return service.SaleInput{
		StaffID:       req.StaffID,
		ClientName:    req.ClientName,
		ProductLine:   req.ProductLine,
		PolicyCount:   req.PolicyCount,
		Premium:       req.Premium,
		CommissionPct: req.CommissionPct,
		SaleDate:      req.SaleDate,
		Source:        req.Source,
		Notes:         req.Notes,
	}
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
