package commission

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/services"
	"github.com/studylane/agency-api/utils/middleware"
	"github.com/studylane/agency-api/utils/response"
)

// CommissionHandler handles commission endpoints
type CommissionHandler struct {
	commissions *services.CommissionService
}

// NewCommissionHandler creates a new commission handler
func NewCommissionHandler(commissions *services.CommissionService) *CommissionHandler {
	return &CommissionHandler{commissions: commissions}
}

// GenerateRequest triggers commission generation for an accepted application
type GenerateRequest struct {
	StudentID     uint   `json:"student_id" validate:"required"`
	ApplicationID string `json:"application_id" validate:"required"`
}

// Generate handles POST /api/v1/commissions/generate
// Admin only. Generating twice for the same application is a conflict.
func (h *CommissionHandler) Generate(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.StudentID == 0 || req.ApplicationID == "" {
		return response.ValidationFailed(c, "Invalid generation request", map[string]string{
			"student_id":     "Student ID is required",
			"application_id": "Application ID is required",
		})
	}

	commission, err := h.commissions.AutoGenerate(c.Context(), req.StudentID, req.ApplicationID, agent.Email)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Created(c, commission)
}

// CreateRequest represents a manual commission entry
type CreateRequest struct {
	AgentID     uint    `json:"agent_id" validate:"required"`
	StudentID   *uint   `json:"student_id"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
}

// Create handles POST /api/v1/commissions
// Admin only.
func (h *CommissionHandler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	commission, err := h.commissions.Create(c.Context(), services.CreateCommissionInput{
		AgentID:     req.AgentID,
		StudentID:   req.StudentID,
		Amount:      req.Amount,
		Type:        model.CommissionType(req.Type),
		Description: req.Description,
	})
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Created(c, commission)
}

// List handles GET /api/v1/commissions
// Agents see their own commissions; admins can filter by agent.
func (h *CommissionHandler) List(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	opts := services.ListCommissionsOptions{
		Status: model.CommissionStatus(c.Query("status")),
		Month:  c.Query("month"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		opts.Year = year
	}

	if agent.Role == "admin" {
		if agentID, err := strconv.ParseUint(c.Query("agent_id"), 10, 32); err == nil {
			id := uint(agentID)
			opts.AgentID = &id
		}
	} else {
		opts.AgentID = &agent.ID
	}

	commissions, total, err := h.commissions.ListCommissions(c.Context(), opts)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Paginated(c, commissions, response.CalculatePagination(page, limit, total))
}

// UpdateStatusRequest represents a commission status change
type UpdateStatusRequest struct {
	Status          string `json:"status" validate:"required"`
	RejectionReason string `json:"rejection_reason"`
}

// UpdateStatus handles PATCH /api/v1/commissions/:id/status
// Admin only.
func (h *CommissionHandler) UpdateStatus(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	commissionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid commission ID")
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	commission, err := h.commissions.UpdateCommissionStatus(c.Context(), uint(commissionID),
		model.CommissionStatus(req.Status), agent.Email, req.RejectionReason)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, commission)
}

// Summary handles GET /api/v1/commissions/summary
// Returns the caller's balances; admins can query any agent.
func (h *CommissionHandler) Summary(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	agentID := agent.ID
	if agent.Role == "admin" {
		if queried, err := strconv.ParseUint(c.Query("agent_id"), 10, 32); err == nil {
			agentID = uint(queried)
		}
	}

	summary, err := h.commissions.AgentSummary(c.Context(), agentID)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, summary)
}

// DashboardStats handles GET /api/v1/commissions/dashboard
// Admin only.
func (h *CommissionHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.commissions.GetDashboardStats(c.Context())
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, stats)
}
