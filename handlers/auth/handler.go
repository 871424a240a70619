package auth

import (
	"time"

	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/auth"
	"github.com/studylane/agency-api/utils/middleware"
	"gorm.io/gorm"
)

// AuthHandler handles agent authentication endpoints
type AuthHandler struct {
	db                   *gorm.DB
	jwtManager           *auth.JWTManager
	blacklistService     *auth.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, jwtManager *auth.JWTManager, bruteForce *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		jwtManager:           jwtManager,
		blacklistService:     auth.NewBlacklistService(db),
		bruteForceProtection: bruteForce,
	}
}

// AgentResponse is the public shape of an agent on auth endpoints
type AgentResponse struct {
	ID              uint      `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	Country         string    `json:"country,omitempty"`
	Role            string    `json:"role"`
	ConsentAccepted bool      `json:"consent_accepted"`
	ProfilePicture  string    `json:"profile_picture,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAgentResponse(agent *model.Agent) AgentResponse {
	return AgentResponse{
		ID:              agent.ID,
		FirstName:       agent.FirstName,
		LastName:        agent.LastName,
		Email:           agent.Email,
		Phone:           agent.Phone,
		Country:         agent.Country,
		Role:            agent.Role,
		ConsentAccepted: agent.ConsentAccepted,
		ProfilePicture:  agent.ProfilePicture,
		CreatedAt:       agent.CreatedAt,
		UpdatedAt:       agent.UpdatedAt,
	}
}
