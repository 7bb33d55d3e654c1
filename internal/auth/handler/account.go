package handler

import (
	"errors"
	"net/http"

	"github.com/chandama/touken-west-sub001/internal/auth/credentials"
	"github.com/chandama/touken-west-sub001/internal/httpx"
	"github.com/chandama/touken-west-sub001/internal/logger"
	"github.com/chandama/touken-west-sub001/internal/middleware"
	"github.com/chandama/touken-west-sub001/internal/user"

	"github.com/gin-gonic/gin"
)

type setPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required,min=8,max=128"`
}

var setPasswordMessages = withPasswordMessages(httpx.Messages{
	".required": "Password is required",
})

// linkedAccounts reports which providers are linked to the caller.
func (h *Handler) linkedAccounts(c *gin.Context) {
	u := middleware.CurrentUser(c)

	resp := gin.H{
		"primaryMethod": u.AuthMethod,
		"hasPassword":   u.PasswordHash != "",
	}
	for _, p := range user.Providers() {
		resp[string(p)] = u.ProviderID(p) != ""
	}
	c.JSON(http.StatusOK, resp)
}

// unlink removes a provider id from the caller. The last remaining
// login method can never be removed.
func (h *Handler) unlink(c *gin.Context) {
	p := user.Provider(c.Param("provider"))
	if !p.Supported() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid provider"})
		return
	}

	u := middleware.CurrentUser(c)
	if _, err := h.credentials.Unlink(c.Request.Context(), u.ID, p); err != nil {
		switch {
		case errors.Is(err, credentials.ErrLastLoginMethod):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cannot unlink your only login method. Set a password or link another account first.",
			})
		case errors.Is(err, user.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			logger.Error("failed to unlink provider", map[string]any{
				"user_id":  u.ID,
				"provider": string(p),
				"error":    err,
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unlink account"})
		}
		return
	}

	logger.Info("provider unlinked", map[string]any{
		"user_id":  u.ID,
		"provider": string(p),
	})
	c.JSON(http.StatusOK, gin.H{"message": string(p) + " account unlinked successfully"})
}

// setPassword lets an OAuth-only account add a password.
func (h *Handler) setPassword(c *gin.Context) {
	var req setPasswordRequest
	if !httpx.BindJSON(c, &req, setPasswordMessages) {
		return
	}

	u := middleware.CurrentUser(c)
	_, err := h.credentials.SetPassword(c.Request.Context(), u.ID, req.NewPassword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Password set successfully"})
	case errors.Is(err, credentials.ErrPasswordAlreadySet):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password already set. Use change password instead."})
	case credentials.IsPasswordError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, user.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		logger.Error("failed to set password", map[string]any{
			"user_id": u.ID,
			"error":   err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set password"})
	}
}
