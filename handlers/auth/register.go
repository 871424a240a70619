package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/auth"
	"github.com/studylane/agency-api/utils/response"
	"github.com/studylane/agency-api/utils/validation"
)

// RegisterRequest represents an agent registration request
type RegisterRequest struct {
	FirstName       string `json:"first_name" validate:"required,min=1,max=100"`
	LastName        string `json:"last_name" validate:"required,min=1,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	Phone           string `json:"phone"`
	Country         string `json:"country"`
	ConsentAccepted bool   `json:"consent_accepted"`
}

// RegisterResponse represents a successful registration response
type RegisterResponse struct {
	Agent        AgentResponse `json:"agent"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int           `json:"expires_in"`
}

// Register handles agent registration
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
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
	if !validation.ValidateEmail(req.Email) {
		fields["email"] = "Invalid email format"
	}
	if ok, problems := validation.ValidatePassword(req.Password); !ok {
		fields["password"] = strings.Join(problems, "; ")
	}
	if !req.ConsentAccepted {
		fields["consent_accepted"] = "Terms must be accepted"
	}
	if len(fields) > 0 {
		return response.ValidationFailed(c, "Registration validation failed", fields)
	}

	var existing int64
	if err := h.db.Model(&model.Agent{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		return response.InternalServerError(c, "Failed to check email")
	}
	if existing > 0 {
		return response.Conflict(c, "An account with this email already exists")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	agent := model.Agent{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		PasswordHash:    passwordHash,
		Phone:           req.Phone,
		Country:         req.Country,
		Role:            "agent",
		IsActive:        true,
		ConsentAccepted: req.ConsentAccepted,
	}

	if err := h.db.Create(&agent).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return response.Conflict(c, "An account with this email already exists")
		}
		return response.InternalServerError(c, "Failed to create account")
	}

	accessToken, _, err := h.jwtManager.GenerateAccessToken(agent.ID, agent.Email, agent.Role, agent.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate access token")
	}
	refreshToken, _, err := h.jwtManager.GenerateRefreshToken(agent.ID, agent.Email, agent.Role, agent.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate refresh token")
	}

	return response.Created(c, RegisterResponse{
		Agent:        toAgentResponse(&agent),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    h.jwtManager.AccessExpirySeconds(),
	})
}
