package report

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/services"
	"github.com/studylane/agency-api/utils/response"
)

// ReportHandler handles reporting endpoints
type ReportHandler struct {
	reports *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GenerateRequest names the period to snapshot. Omitted fields default to
// the current month.
type GenerateRequest struct {
	Month int `json:"month" validate:"omitempty,gte=1,lte=12"`
	Year  int `json:"year"`
}

// Generate handles POST /api/v1/reports/generate
// Admin only. Appends a fresh snapshot for the period, the current month
// when no period is given.
func (h *ReportHandler) Generate(c *fiber.Ctx) error {
	var req GenerateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	now := time.Now().UTC()
	if req.Month == 0 {
		req.Month = int(now.Month())
	}
	if req.Year == 0 {
		req.Year = now.Year()
	}

	if req.Month < 1 || req.Month > 12 {
		return response.ValidationFailed(c, "Invalid report period", map[string]string{
			"month": "Month must be between 1 and 12",
		})
	}

	report, err := h.reports.Generate(c.Context(), time.Month(req.Month), req.Year)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Created(c, report)
}

// List handles GET /api/v1/reports
func (h *ReportHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	reports, total, err := h.reports.List(c.Context(), limit, (page-1)*limit)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Paginated(c, reports, response.CalculatePagination(page, limit, total))
}

// Latest handles GET /api/v1/reports/latest?month=8&year=2026
// Defaults to the current month.
func (h *ReportHandler) Latest(c *fiber.Ctx) error {
	now := time.Now().UTC()
	month := int(now.Month())
	year := now.Year()

	if m, err := strconv.Atoi(c.Query("month")); err == nil {
		if m < 1 || m > 12 {
			return response.BadRequest(c, "Month must be between 1 and 12")
		}
		month = m
	}
	if y, err := strconv.Atoi(c.Query("year")); err == nil {
		year = y
	}

	report, err := h.reports.Latest(c.Context(), time.Month(month), year)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, report)
}

// Trends handles GET /api/v1/reports/trends
// Returns the latest snapshot per period for the most recent periods.
func (h *ReportHandler) Trends(c *fiber.Ctx) error {
	count, _ := strconv.Atoi(c.Query("count", "6"))
	if count < 1 || count > 24 {
		count = 6
	}

	trends, err := h.reports.Trends(c.Context(), count)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, trends)
}
