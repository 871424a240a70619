package payment

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/services"
	"github.com/studylane/agency-api/utils/middleware"
	"github.com/studylane/agency-api/utils/response"
)

// PaymentHandler handles payout request and ledger endpoints
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreateRequestBody represents a new payout request
type CreateRequestBody struct {
	Amount      float64            `json:"amount" validate:"required,gt=0"`
	BankDetails *model.BankDetails `json:"bank_details"`
	Notes       string             `json:"notes"`
}

// CreateRequest handles POST /api/v1/payments/requests
// The amount is validated against the agent's approved commission balance.
func (h *PaymentHandler) CreateRequest(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var req CreateRequestBody
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	request, err := h.payments.CreatePaymentRequest(c.Context(), services.CreatePaymentRequestInput{
		AgentID:     agent.ID,
		Amount:      req.Amount,
		BankDetails: req.BankDetails,
		Notes:       req.Notes,
	})
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Created(c, request)
}

// ListRequests handles GET /api/v1/payments/requests
// Agents see their own requests; admins see all and can filter by agent.
func (h *PaymentHandler) ListRequests(c *fiber.Ctx) error {
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

	opts := services.ListPaymentRequestsOptions{
		Status: model.PaymentRequestStatus(c.Query("status")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if agent.Role == "admin" {
		if agentID, err := strconv.ParseUint(c.Query("agent_id"), 10, 32); err == nil {
			id := uint(agentID)
			opts.AgentID = &id
		}
	} else {
		opts.AgentID = &agent.ID
	}

	requests, total, err := h.payments.ListPaymentRequests(c.Context(), opts)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Paginated(c, requests, response.CalculatePagination(page, limit, total))
}

// ProcessRequestBody represents the admin decision on a payout request
type ProcessRequestBody struct {
	Status          string `json:"status" validate:"required,oneof=Approved Paid Rejected"`
	RejectionReason string `json:"rejection_reason"`
	Method          string `json:"method"`
}

// ProcessRequest handles POST /api/v1/payments/requests/:id/process
// Admin only. Marking Paid appends a ledger entry and settles all approved
// commissions of the agent atomically.
func (h *PaymentHandler) ProcessRequest(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	requestID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid payment request ID")
	}

	var req ProcessRequestBody
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	request, err := h.payments.ProcessPaymentRequest(c.Context(), uint(requestID), services.ProcessPaymentRequestInput{
		Status:          model.PaymentRequestStatus(req.Status),
		ProcessedBy:     agent.Email,
		RejectionReason: req.RejectionReason,
		Method:          req.Method,
	})
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, request)
}

// History handles GET /api/v1/payments/history
// Returns the caller's ledger; admins can query any agent.
func (h *PaymentHandler) History(c *fiber.Ctx) error {
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

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	payments, total, err := h.payments.PaymentHistory(c.Context(), agentID, limit, (page-1)*limit)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Paginated(c, payments, response.CalculatePagination(page, limit, total))
}
