package student

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/services"
	"github.com/studylane/agency-api/utils/middleware"
	"github.com/studylane/agency-api/utils/response"
	"github.com/studylane/agency-api/utils/validation"
	"gorm.io/gorm"
)

// StudentHandler handles student CRUD and application endpoints
type StudentHandler struct {
	db           *gorm.DB
	applications *services.ApplicationService
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(db *gorm.DB, applications *services.ApplicationService) *StudentHandler {
	return &StudentHandler{db: db, applications: applications}
}

// scopedQuery restricts non-admin agents to their own students
func (h *StudentHandler) scopedQuery(c *fiber.Ctx) (*gorm.DB, *model.Agent, error) {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return nil, nil, response.Unauthorized(c, "Authentication required")
	}

	query := h.db.Model(&model.Student{})
	if agent.Role != "admin" {
		query = query.Where("agent_id = ?", agent.ID)
	}
	return query, agent, nil
}

// CreateStudentRequest represents a new student profile
type CreateStudentRequest struct {
	FirstName          string    `json:"first_name" validate:"required"`
	MiddleName         string    `json:"middle_name"`
	LastName           string    `json:"last_name" validate:"required"`
	DateOfBirth        time.Time `json:"date_of_birth" validate:"required"`
	CitizenOf          string    `json:"citizen_of" validate:"required"`
	PassportNumber     string    `json:"passport_number" validate:"required"`
	PassportExpiryDate time.Time `json:"passport_expiry_date" validate:"required"`
	Gender             string    `json:"gender" validate:"required,oneof=Male Female Other"`
	Email              string    `json:"email" validate:"required,email"`
	PhoneNumber        string    `json:"phone_number" validate:"required"`
	ReferralSource     string    `json:"referral_source"`
	CountryOfInterest  string    `json:"country_of_interest"`
	ServiceOfInterest  string    `json:"service_of_interest"`
	ConditionsAccepted bool      `json:"conditions_accepted"`
	// AgentID lets an admin create a student for another agent
	AgentID *uint `json:"agent_id"`
}

// CreateStudent handles POST /api/v1/students
func (h *StudentHandler) CreateStudent(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var req CreateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	fields := make(map[string]string)
	if req.FirstName == "" {
		fields["first_name"] = "First name is required"
	}
	if req.LastName == "" {
		fields["last_name"] = "Last name is required"
	}
	if req.DateOfBirth.IsZero() {
		fields["date_of_birth"] = "Date of birth is required"
	}
	if req.CitizenOf == "" {
		fields["citizen_of"] = "Citizenship is required"
	}
	if req.PassportNumber == "" {
		fields["passport_number"] = "Passport number is required"
	}
	if req.PassportExpiryDate.IsZero() {
		fields["passport_expiry_date"] = "Passport expiry date is required"
	}
	switch req.Gender {
	case "Male", "Female", "Other":
	default:
		fields["gender"] = "Gender must be Male, Female or Other"
	}
	if !validation.ValidateEmail(req.Email) {
		fields["email"] = "Invalid email format"
	}
	if req.PhoneNumber == "" {
		fields["phone_number"] = "Phone number is required"
	}
	if !req.ConditionsAccepted {
		fields["conditions_accepted"] = "Conditions must be accepted"
	}
	if len(fields) > 0 {
		return response.ValidationFailed(c, "Student validation failed", fields)
	}

	agentID := agent.ID
	if req.AgentID != nil {
		if agent.Role != "admin" {
			return response.Forbidden(c, "Only admins can assign students to other agents")
		}
		agentID = *req.AgentID
	}

	student := model.Student{
		FirstName:          req.FirstName,
		MiddleName:         req.MiddleName,
		LastName:           req.LastName,
		DateOfBirth:        req.DateOfBirth,
		CitizenOf:          req.CitizenOf,
		PassportNumber:     req.PassportNumber,
		PassportExpiryDate: req.PassportExpiryDate,
		Gender:             req.Gender,
		Email:              req.Email,
		PhoneNumber:        req.PhoneNumber,
		ReferralSource:     req.ReferralSource,
		Status:             model.StudentStatusPending,
		CountryOfInterest:  req.CountryOfInterest,
		ServiceOfInterest:  req.ServiceOfInterest,
		ConditionsAccepted: req.ConditionsAccepted,
		AgentID:            &agentID,
	}

	if err := h.db.Create(&student).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return response.Conflict(c, "A student with this email or passport number already exists")
		}
		return response.InternalServerError(c, "Failed to create student")
	}

	return response.Created(c, student)
}

// ListStudents handles GET /api/v1/students
// Supports search, status filter and pagination.
func (h *StudentHandler) ListStudents(c *fiber.Ctx) error {
	query, _, err := h.scopedQuery(c)
	if err != nil {
		return err
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(passport_number) LIKE ?",
			pattern, pattern, pattern, pattern)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count students")
	}

	var students []model.Student
	if err := query.Preload("Applications").
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&students).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch students")
	}

	return response.Paginated(c, students, response.CalculatePagination(page, limit, total))
}

// GetStudent handles GET /api/v1/students/:id
func (h *StudentHandler) GetStudent(c *fiber.Ctx) error {
	query, _, err := h.scopedQuery(c)
	if err != nil {
		return err
	}

	studentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid student ID")
	}

	var student model.Student
	if err := query.Preload("Applications", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC")
	}).Where("students.id = ?", studentID).First(&student).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Student not found")
		}
		return response.InternalServerError(c, "Failed to load student")
	}

	return response.Success(c, student)
}

// UpdateStudentRequest is the allow-list of editable student fields.
// Applications and application counters are never writable through this
// endpoint; they only change through the application lifecycle.
type UpdateStudentRequest struct {
	FirstName          *string    `json:"first_name"`
	MiddleName         *string    `json:"middle_name"`
	LastName           *string    `json:"last_name"`
	DateOfBirth        *time.Time `json:"date_of_birth"`
	CitizenOf          *string    `json:"citizen_of"`
	PassportNumber     *string    `json:"passport_number"`
	PassportExpiryDate *time.Time `json:"passport_expiry_date"`
	Gender             *string    `json:"gender"`
	Email              *string    `json:"email"`
	PhoneNumber        *string    `json:"phone_number"`
	ReferralSource     *string    `json:"referral_source"`
	Status             *string    `json:"status"`
	CountryOfInterest  *string    `json:"country_of_interest"`
	ServiceOfInterest  *string    `json:"service_of_interest"`
}

// UpdateStudent handles PATCH /api/v1/students/:id
func (h *StudentHandler) UpdateStudent(c *fiber.Ctx) error {
	query, _, err := h.scopedQuery(c)
	if err != nil {
		return err
	}

	studentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid student ID")
	}

	var student model.Student
	if err := query.Where("students.id = ?", studentID).First(&student).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Student not found")
		}
		return response.InternalServerError(c, "Failed to load student")
	}

	var req UpdateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.MiddleName != nil {
		updates["middle_name"] = *req.MiddleName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.DateOfBirth != nil {
		updates["date_of_birth"] = *req.DateOfBirth
	}
	if req.CitizenOf != nil {
		updates["citizen_of"] = *req.CitizenOf
	}
	if req.PassportNumber != nil {
		updates["passport_number"] = *req.PassportNumber
	}
	if req.PassportExpiryDate != nil {
		updates["passport_expiry_date"] = *req.PassportExpiryDate
	}
	if req.Gender != nil {
		switch *req.Gender {
		case "Male", "Female", "Other":
			updates["gender"] = *req.Gender
		default:
			return response.ValidationFailed(c, "Invalid student update", map[string]string{
				"gender": "Gender must be Male, Female or Other",
			})
		}
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !validation.ValidateEmail(email) {
			return response.ValidationFailed(c, "Invalid student update", map[string]string{
				"email": "Invalid email format",
			})
		}
		updates["email"] = email
	}
	if req.PhoneNumber != nil {
		updates["phone_number"] = *req.PhoneNumber
	}
	if req.ReferralSource != nil {
		updates["referral_source"] = *req.ReferralSource
	}
	if req.Status != nil {
		switch model.StudentStatus(*req.Status) {
		case model.StudentStatusPending, model.StudentStatusActive, model.StudentStatusInactive,
			model.StudentStatusApproved, model.StudentStatusRejected:
			updates["status"] = *req.Status
		default:
			return response.ValidationFailed(c, "Invalid student update", map[string]string{
				"status": "Unknown student status",
			})
		}
	}
	if req.CountryOfInterest != nil {
		updates["country_of_interest"] = *req.CountryOfInterest
	}
	if req.ServiceOfInterest != nil {
		updates["service_of_interest"] = *req.ServiceOfInterest
	}

	if len(updates) == 0 {
		return response.BadRequest(c, "No fields to update")
	}

	if err := h.db.Model(&student).Updates(updates).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return response.Conflict(c, "Email or passport number already in use")
		}
		return response.InternalServerError(c, "Failed to update student")
	}

	var updated model.Student
	if err := h.db.Preload("Applications").First(&updated, student.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to reload student")
	}

	return response.Success(c, updated)
}

// DeleteStudent handles DELETE /api/v1/students/:id
func (h *StudentHandler) DeleteStudent(c *fiber.Ctx) error {
	query, _, err := h.scopedQuery(c)
	if err != nil {
		return err
	}

	studentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid student ID")
	}

	var student model.Student
	if err := query.Where("students.id = ?", studentID).First(&student).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Student not found")
		}
		return response.InternalServerError(c, "Failed to load student")
	}

	// Unsettled commissions keep the student record alive
	var activeCommissions int64
	if err := h.db.Model(&model.Commission{}).
		Where("student_id = ? AND status IN ?", student.ID,
			[]model.CommissionStatus{model.CommissionStatusPending, model.CommissionStatusApproved}).
		Count(&activeCommissions).Error; err != nil {
		return response.InternalServerError(c, "Failed to check commissions")
	}
	if activeCommissions > 0 {
		return response.Conflict(c, "Student has unsettled commissions and cannot be deleted")
	}

	if err := h.db.Delete(&student).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete student")
	}

	return response.SuccessWithMessage(c, "Student deleted", nil)
}
