package student

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/services"
	"github.com/studylane/agency-api/utils/middleware"
	"github.com/studylane/agency-api/utils/response"
)

// ownedStudentID verifies the :id student belongs to the caller (or the
// caller is an admin) and returns its numeric ID.
func (h *StudentHandler) ownedStudentID(c *fiber.Ctx) (uint, *model.Agent, error) {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return 0, nil, response.Unauthorized(c, "Authentication required")
	}

	studentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, nil, response.BadRequest(c, "Invalid student ID")
	}

	query := h.db.Model(&model.Student{}).Where("id = ?", studentID)
	if agent.Role != "admin" {
		query = query.Where("agent_id = ?", agent.ID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, nil, response.InternalServerError(c, "Failed to load student")
	}
	if count == 0 {
		return 0, nil, response.NotFound(c, "Student not found")
	}

	return uint(studentID), agent, nil
}

// CreateApplicationRequest represents a new application submission
type CreateApplicationRequest struct {
	Program             string     `json:"program" validate:"required"`
	Institute           string     `json:"institute" validate:"required"`
	StartDate           time.Time  `json:"start_date" validate:"required"`
	ApplyDate           time.Time  `json:"apply_date" validate:"required"`
	PaymentDate         *time.Time `json:"payment_date"`
	Requirements        string     `json:"requirements"`
	RequirementsPartner string     `json:"requirements_partner"`
	CurrentStage        string     `json:"current_stage"`
}

// CreateApplication handles POST /api/v1/students/:id/applications
func (h *StudentHandler) CreateApplication(c *fiber.Ctx) error {
	studentID, _, err := h.ownedStudentID(c)
	if err != nil {
		return err
	}

	var req CreateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	app, err := h.applications.CreateApplication(c.Context(), studentID, services.CreateApplicationInput{
		Program:             req.Program,
		Institute:           req.Institute,
		StartDate:           req.StartDate,
		ApplyDate:           req.ApplyDate,
		PaymentDate:         req.PaymentDate,
		Requirements:        req.Requirements,
		RequirementsPartner: req.RequirementsPartner,
		CurrentStage:        req.CurrentStage,
	})
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Created(c, app)
}

// ListStudentApplications handles GET /api/v1/students/:id/applications
func (h *StudentHandler) ListStudentApplications(c *fiber.Ctx) error {
	studentID, _, err := h.ownedStudentID(c)
	if err != nil {
		return err
	}

	var apps []model.Application
	if err := h.db.Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&apps).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch applications")
	}

	return response.Success(c, apps)
}

// GetApplication handles GET /api/v1/students/:id/applications/:applicationId
func (h *StudentHandler) GetApplication(c *fiber.Ctx) error {
	studentID, _, err := h.ownedStudentID(c)
	if err != nil {
		return err
	}

	app, err := h.applications.GetApplication(c.Context(), studentID, c.Params("applicationId"))
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, app)
}

// UpdateApplicationStatusRequest represents a status transition request
type UpdateApplicationStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
	// Override bypasses the forward-only transition rules; admin only
	Override bool `json:"override"`
}

// UpdateApplicationStatus handles PATCH /api/v1/students/:id/applications/:applicationId/status
func (h *StudentHandler) UpdateApplicationStatus(c *fiber.Ctx) error {
	studentID, agent, err := h.ownedStudentID(c)
	if err != nil {
		return err
	}

	var req UpdateApplicationStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Override && agent.Role != "admin" {
		return response.Forbidden(c, "Only admins can override transition rules")
	}

	app, err := h.applications.UpdateApplicationStatus(c.Context(), studentID, c.Params("applicationId"),
		services.UpdateStatusInput{
			Status:    model.ApplicationStatus(req.Status),
			Note:      req.Note,
			ChangedBy: agent.Email,
			Override:  req.Override,
		})
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, app)
}

// RequestDocumentsRequest represents a document request
type RequestDocumentsRequest struct {
	DocumentTypes []string   `json:"document_types" validate:"required,min=1"`
	Message       string     `json:"message"`
	DueDate       *time.Time `json:"due_date"`
}

// RequestDocuments handles POST /api/v1/students/:id/applications/:applicationId/request-documents
func (h *StudentHandler) RequestDocuments(c *fiber.Ctx) error {
	studentID, agent, err := h.ownedStudentID(c)
	if err != nil {
		return err
	}

	var req RequestDocumentsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	app, err := h.applications.RequestDocuments(c.Context(), studentID, c.Params("applicationId"),
		services.DocumentRequestInput{
			DocumentTypes: req.DocumentTypes,
			Message:       req.Message,
			DueDate:       req.DueDate,
			RequestedBy:   agent.Email,
		})
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Success(c, app)
}

// BulkUpdateStatusRequest applies one transition to many applications
type BulkUpdateStatusRequest struct {
	Items  []services.BulkStatusItem `json:"items" validate:"required,min=1"`
	Status string                    `json:"status" validate:"required"`
	Note   string                    `json:"note"`
}

// BulkUpdateApplicationStatus handles POST /api/v1/applications/bulk-status
// Admin only. Items fail or succeed independently.
func (h *StudentHandler) BulkUpdateApplicationStatus(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var req BulkUpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.Items) == 0 {
		return response.ValidationFailed(c, "Bulk update needs at least one item", map[string]string{
			"items": "Items are required",
		})
	}

	result := h.applications.BulkUpdateApplicationStatus(c.Context(), req.Items, services.UpdateStatusInput{
		Status:    model.ApplicationStatus(req.Status),
		Note:      req.Note,
		ChangedBy: agent.Email,
	})

	return response.Success(c, result)
}

// ListAllApplications handles GET /api/v1/applications
// Agents see applications of their own students; admins see everything.
func (h *StudentHandler) ListAllApplications(c *fiber.Ctx) error {
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

	opts := services.ListApplicationsOptions{
		Status: model.ApplicationStatus(c.Query("status")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if agent.Role != "admin" {
		opts.AgentID = &agent.ID
	}

	apps, total, err := h.applications.ListApplications(c.Context(), opts)
	if err != nil {
		return response.FromAppError(c, err)
	}

	return response.Paginated(c, apps, response.CalculatePagination(page, limit, total))
}
