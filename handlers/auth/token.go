package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/auth"
	"github.com/studylane/agency-api/utils/middleware"
	"github.com/studylane/agency-api/utils/response"
)

// RefreshRequest carries the refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh exchanges a valid refresh token for a new token pair. The used
// refresh token is revoked so it cannot be replayed.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return response.BadRequest(c, "Refresh token is required")
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		if err == auth.ErrExpiredToken {
			return response.Unauthorized(c, "Refresh token has expired")
		}
		return response.Unauthorized(c, "Invalid refresh token")
	}

	if claims.TokenType != "refresh" {
		return response.Unauthorized(c, "Invalid token type")
	}

	revoked, err := h.blacklistService.IsTokenRevoked(c.Context(), claims.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check token status")
	}
	if revoked {
		return response.Unauthorized(c, "Refresh token has been revoked")
	}

	var agent model.Agent
	if err := h.db.First(&agent, claims.AgentID).Error; err != nil {
		return response.Unauthorized(c, "Agent not found")
	}

	if !agent.IsActive {
		return response.Forbidden(c, "Account is deactivated")
	}
	if agent.TokenVersion != claims.TokenVersion {
		return response.Unauthorized(c, "Token has been invalidated")
	}

	// One-time use: revoke the refresh token being exchanged
	if claims.ExpiresAt != nil {
		if err := h.blacklistService.RevokeToken(c.Context(), claims.ID, agent.ID, claims.ExpiresAt.Time, "refresh_rotated"); err != nil {
			return response.InternalServerError(c, "Failed to rotate refresh token")
		}
	}

	accessToken, _, err := h.jwtManager.GenerateAccessToken(agent.ID, agent.Email, agent.Role, agent.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate access token")
	}
	refreshToken, _, err := h.jwtManager.GenerateRefreshToken(agent.ID, agent.Email, agent.Role, agent.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate refresh token")
	}

	return response.Success(c, LoginResponse{
		Agent:        toAgentResponse(&agent),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    h.jwtManager.AccessExpirySeconds(),
	})
}

// LogoutRequest optionally carries the refresh token to revoke alongside
// the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the current access token, and the refresh token if provided
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok || claims == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	if claims.ExpiresAt != nil {
		if err := h.blacklistService.RevokeToken(c.Context(), claims.ID, claims.AgentID, claims.ExpiresAt.Time, "logout"); err != nil {
			return response.InternalServerError(c, "Failed to revoke token")
		}
	}

	var req LogoutRequest
	if err := c.BodyParser(&req); err == nil && req.RefreshToken != "" {
		if refreshClaims, err := h.jwtManager.ValidateToken(req.RefreshToken); err == nil &&
			refreshClaims.TokenType == "refresh" &&
			refreshClaims.AgentID == claims.AgentID &&
			refreshClaims.ExpiresAt != nil {
			h.blacklistService.RevokeToken(c.Context(), refreshClaims.ID, claims.AgentID, refreshClaims.ExpiresAt.Time, "logout")
		}
	}

	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}

// LogoutAll invalidates every outstanding token of the agent by bumping the
// token version
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	if err := h.blacklistService.RevokeAllAgentTokens(c.Context(), agent.ID); err != nil {
		return response.InternalServerError(c, "Failed to revoke tokens")
	}

	return response.SuccessWithMessage(c, "All sessions logged out", nil)
}
