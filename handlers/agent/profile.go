package agent

import (
	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/services/storage"
	"github.com/studylane/agency-api/utils/middleware"
	"github.com/studylane/agency-api/utils/response"
	"gorm.io/gorm"
)

// AgentHandler handles agent profile and document endpoints
type AgentHandler struct {
	db     *gorm.DB
	spaces *storage.SpacesClient
}

// NewAgentHandler creates a new agent handler. The storage client is
// optional; uploads fail with 503 when it is absent.
func NewAgentHandler(db *gorm.DB, spaces *storage.SpacesClient) *AgentHandler {
	return &AgentHandler{db: db, spaces: spaces}
}

// GetProfile handles GET /api/v1/agents/me
func (h *AgentHandler) GetProfile(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var withDocs model.Agent
	if err := h.db.Preload("Documents").First(&withDocs, agent.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to load profile")
	}

	return response.Success(c, withDocs)
}

// UpdateProfileRequest is the allow-list of profile fields an agent can edit
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Country   *string `json:"country"`
}

// UpdateProfile handles PATCH /api/v1/agents/me
func (h *AgentHandler) UpdateProfile(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		if *req.FirstName == "" {
			return response.ValidationFailed(c, "Invalid profile update", map[string]string{
				"first_name": "First name cannot be empty",
			})
		}
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		if *req.LastName == "" {
			return response.ValidationFailed(c, "Invalid profile update", map[string]string{
				"last_name": "Last name cannot be empty",
			})
		}
		updates["last_name"] = *req.LastName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}

	if len(updates) == 0 {
		return response.BadRequest(c, "No fields to update")
	}

	if err := h.db.Model(&model.Agent{}).Where("id = ?", agent.ID).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	var updated model.Agent
	if err := h.db.First(&updated, agent.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to reload profile")
	}

	return response.Success(c, toProfileView(&updated))
}

// AcceptConsent handles POST /api/v1/agents/me/consent
func (h *AgentHandler) AcceptConsent(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	if err := h.db.Model(&model.Agent{}).Where("id = ?", agent.ID).
		Update("consent_accepted", true).Error; err != nil {
		return response.InternalServerError(c, "Failed to record consent")
	}

	return response.SuccessWithMessage(c, "Consent recorded", nil)
}

func toProfileView(agent *model.Agent) fiber.Map {
	return fiber.Map{
		"id":               agent.ID,
		"first_name":       agent.FirstName,
		"last_name":        agent.LastName,
		"email":            agent.Email,
		"phone":            agent.Phone,
		"country":          agent.Country,
		"role":             agent.Role,
		"consent_accepted": agent.ConsentAccepted,
		"profile_picture":  agent.ProfilePicture,
		"created_at":       agent.CreatedAt,
		"updated_at":       agent.UpdatedAt,
	}
}
