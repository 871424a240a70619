package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/model"
	"github.com/studylane/agency-api/utils/auth"
	"github.com/studylane/agency-api/utils/middleware"
	"github.com/studylane/agency-api/utils/response"
	"github.com/studylane/agency-api/utils/validation"
)

// ForgotPasswordRequest carries the account email
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword issues a password reset token. The response is identical
// whether or not the email exists, so accounts cannot be enumerated.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !validation.ValidateEmail(req.Email) {
		return response.BadRequest(c, "Invalid email format")
	}

	genericMessage := "If an account exists for this email, a reset link has been sent"

	var agent model.Agent
	if err := h.db.Where("email = ?", req.Email).First(&agent).Error; err != nil {
		return response.SuccessWithMessage(c, genericMessage, nil)
	}

	token, expires, err := auth.GenerateResetToken()
	if err != nil {
		return response.InternalServerError(c, "Failed to generate reset token")
	}

	if err := h.db.Model(&agent).Updates(map[string]interface{}{
		"reset_password_token":   token,
		"reset_password_expires": expires,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to store reset token")
	}

	// Token delivery happens out of band; the API only stores it

	return response.SuccessWithMessage(c, genericMessage, nil)
}

// ResetPasswordRequest carries the reset token and new password
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ResetPassword sets a new password given a valid reset token. All existing
// sessions are invalidated.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Token == "" {
		return response.BadRequest(c, "Reset token is required")
	}
	if ok, problems := validation.ValidatePassword(req.NewPassword); !ok {
		return response.ValidationFailed(c, "Password validation failed", map[string]string{
			"new_password": strings.Join(problems, "; "),
		})
	}

	var agent model.Agent
	if err := h.db.Where("reset_password_token = ? AND reset_password_expires > ?", req.Token, time.Now()).
		First(&agent).Error; err != nil {
		return response.BadRequest(c, "Invalid or expired reset token")
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	if err := h.db.Model(&agent).Updates(map[string]interface{}{
		"password_hash":          passwordHash,
		"reset_password_token":   "",
		"reset_password_expires": nil,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	if err := h.blacklistService.RevokeAllAgentTokens(c.Context(), agent.ID); err != nil {
		return response.InternalServerError(c, "Failed to invalidate sessions")
	}

	return response.SuccessWithMessage(c, "Password has been reset, please log in again", nil)
}

// ChangePasswordRequest carries the current and new password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword updates the authenticated agent's password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	agent, ok := middleware.GetAgent(c)
	if !ok || agent == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := auth.VerifyPassword(agent.PasswordHash, req.CurrentPassword); err != nil {
		return response.Unauthorized(c, "Current password is incorrect")
	}

	if ok, problems := validation.ValidatePassword(req.NewPassword); !ok {
		return response.ValidationFailed(c, "Password validation failed", map[string]string{
			"new_password": strings.Join(problems, "; "),
		})
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	if err := h.db.Model(&model.Agent{}).Where("id = ?", agent.ID).
		Update("password_hash", passwordHash).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	// Other sessions should not survive a password change
	if err := h.blacklistService.RevokeAllAgentTokens(c.Context(), agent.ID); err != nil {
		return response.InternalServerError(c, "Failed to invalidate sessions")
	}

	return response.SuccessWithMessage(c, "Password changed, please log in again", nil)
}
