package university

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/response"
	"gorm.io/gorm"
)

// UniversityHandler handles partner institution endpoints
type UniversityHandler struct {
	db *gorm.DB
}

// NewUniversityHandler creates a new university handler
func NewUniversityHandler(db *gorm.DB) *UniversityHandler {
	return &UniversityHandler{db: db}
}

// List handles GET /api/v1/universities
func (h *UniversityHandler) List(c *fiber.Ctx) error {
	query := h.db.Model(&model.University{})

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(country) LIKE ?", pattern, pattern)
	}
	if c.Query("active_only") == "true" {
		query = query.Where("is_active = ?", true)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count universities")
	}

	var universities []model.University
	if err := query.Order("name ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&universities).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch universities")
	}

	return response.Paginated(c, universities, response.CalculatePagination(page, limit, total))
}

// Get handles GET /api/v1/universities/:id
func (h *UniversityHandler) Get(c *fiber.Ctx) error {
	universityID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid university ID")
	}

	var university model.University
	if err := h.db.First(&university, universityID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "University not found")
		}
		return response.InternalServerError(c, "Failed to load university")
	}

	return response.Success(c, university)
}

// CreateUniversityRequest represents a new partner institution
type CreateUniversityRequest struct {
	Name    string `json:"name" validate:"required"`
	Code    string `json:"code" validate:"required"`
	Country string `json:"country"`
	City    string `json:"city"`
	Website string `json:"website"`
}

// Create handles POST /api/v1/universities
// Admin only.
func (h *UniversityHandler) Create(c *fiber.Ctx) error {
	var req CreateUniversityRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	fields := make(map[string]string)
	if req.Name == "" {
		fields["name"] = "Name is required"
	}
	if req.Code == "" {
		fields["code"] = "Code is required"
	}
	if len(fields) > 0 {
		return response.ValidationFailed(c, "University validation failed", fields)
	}

	university := model.University{
		Name:     req.Name,
		Code:     strings.ToUpper(req.Code),
		Country:  req.Country,
		City:     req.City,
		Website:  req.Website,
		IsActive: true,
	}

	if err := h.db.Create(&university).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return response.Conflict(c, "A university with this name or code already exists")
		}
		return response.InternalServerError(c, "Failed to create university")
	}

	return response.Created(c, university)
}

// UpdateUniversityRequest is the allow-list of editable fields
type UpdateUniversityRequest struct {
	Name     *string `json:"name"`
	Country  *string `json:"country"`
	City     *string `json:"city"`
	Website  *string `json:"website"`
	IsActive *bool   `json:"is_active"`
}

// Update handles PATCH /api/v1/universities/:id
// Admin only.
func (h *UniversityHandler) Update(c *fiber.Ctx) error {
	universityID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid university ID")
	}

	var university model.University
	if err := h.db.First(&university, universityID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "University not found")
		}
		return response.InternalServerError(c, "Failed to load university")
	}

	var req UpdateUniversityRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return response.BadRequest(c, "No fields to update")
	}

	if err := h.db.Model(&university).Updates(updates).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return response.Conflict(c, "A university with this name already exists")
		}
		return response.InternalServerError(c, "Failed to update university")
	}

	return response.Success(c, university)
}

// Delete handles DELETE /api/v1/universities/:id
// Admin only.
func (h *UniversityHandler) Delete(c *fiber.Ctx) error {
	universityID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid university ID")
	}

	result := h.db.Delete(&model.University{}, universityID)
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete university")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "University not found")
	}

	return response.SuccessWithMessage(c, "University deleted", nil)
}
