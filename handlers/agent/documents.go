package agent

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/services/storage"
	"github.com/studylane/agency-api/utils/middleware"
	"github.com/studylane/agency-api/utils/response"
)

const maxUploadSize = 10 * 1024 * 1024 // 10 MB

// UploadDocument handles POST /api/v1/agents/me/documents
// Accepts a multipart file plus a title and stores it in object storage.
func (h *AgentHandler) UploadDocument(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	if h.spaces == nil {
		return response.ServiceUnavailable(c, "File storage is not configured")
	}

	title := c.FormValue("title")
	if title == "" {
		return response.ValidationFailed(c, "Invalid document upload", map[string]string{
			"title": "Document title is required",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "Document file is required")
	}
	if fileHeader.Size > maxUploadSize {
		return response.BadRequest(c, "File exceeds the 10 MB limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to read uploaded file")
	}
	defer file.Close()

	key := storage.GenerateKey("agent-documents", fileHeader.Filename)
	fileURL, err := h.spaces.UploadFile(c.Context(), key, file, storage.GetContentType(fileHeader.Filename))
	if err != nil {
		return response.ServiceUnavailable(c, "Failed to store document")
	}

	document := model.AgentDocument{
		AgentID: agent.ID,
		Title:   title,
		FileURL: fileURL,
	}
	if err := h.db.Create(&document).Error; err != nil {
		return response.InternalServerError(c, "Failed to save document record")
	}

	return response.Created(c, document)
}

// ListDocuments handles GET /api/v1/agents/me/documents
func (h *AgentHandler) ListDocuments(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var documents []model.AgentDocument
	if err := h.db.Where("agent_id = ?", agent.ID).
		Order("uploaded_at DESC").
		Find(&documents).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch documents")
	}

	return response.Success(c, documents)
}

// DeleteDocument handles DELETE /api/v1/agents/me/documents/:id
func (h *AgentHandler) DeleteDocument(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	documentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid document ID")
	}

	result := h.db.Where("id = ? AND agent_id = ?", documentID, agent.ID).
		Delete(&model.AgentDocument{})
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete document")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Document not found")
	}

	return response.SuccessWithMessage(c, "Document deleted", nil)
}

// UploadProfilePicture handles POST /api/v1/agents/me/profile-picture
func (h *AgentHandler) UploadProfilePicture(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	if h.spaces == nil {
		return response.ServiceUnavailable(c, "File storage is not configured")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "Image file is required")
	}
	if fileHeader.Size > maxUploadSize {
		return response.BadRequest(c, "File exceeds the 10 MB limit")
	}

	contentType := storage.GetContentType(fileHeader.Filename)
	switch contentType {
	case "image/png", "image/jpeg", "image/webp":
	default:
		return response.BadRequest(c, "Profile picture must be a PNG, JPEG or WebP image")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to read uploaded file")
	}
	defer file.Close()

	key := storage.GenerateKey("profile-pictures", fileHeader.Filename)
	fileURL, err := h.spaces.UploadFile(c.Context(), key, file, contentType)
	if err != nil {
		return response.ServiceUnavailable(c, "Failed to store image")
	}

	if err := h.db.Model(&model.Agent{}).Where("id = ?", agent.ID).
		Update("profile_picture", fileURL).Error; err != nil {
		return response.InternalServerError(c, "Failed to save profile picture")
	}

	return response.Success(c, fiber.Map{"profile_picture": fileURL})
}
