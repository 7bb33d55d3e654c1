package handler

import (
	"errors"
	"net/http"

	"github.com/chandama/touken-west-sub001/internal/auth/credentials"
	"github.com/chandama/touken-west-sub001/internal/httpx"
	"github.com/chandama/touken-west-sub001/internal/logger"
	"github.com/chandama/touken-west-sub001/internal/middleware"
	"github.com/chandama/touken-west-sub001/internal/session"
	"github.com/chandama/touken-west-sub001/internal/user"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Username string `json:"username" binding:"required,min=3,max=30,username"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// passwordMessages reports the password length rules of every request
// carrying a new password.
var passwordMessages = httpx.Messages{
	"Password.min":    "Password must be at least 8 characters",
	"Password.max":    "Password must be less than 128 characters",
	"NewPassword.min": "Password must be at least 8 characters",
	"NewPassword.max": "Password must be less than 128 characters",
}

var registerMessages = withPasswordMessages(httpx.Messages{
	".required": "Email, username, and password are required",
	"Email":     "Invalid email format",
	"Username":  "Username must be 3-30 characters: letters, numbers, underscores, hyphens",
})

var loginMessages = httpx.Messages{
	".required": "Email and password are required",
	"Email":     "Invalid email format",
}

func withPasswordMessages(m httpx.Messages) httpx.Messages {
	for k, v := range passwordMessages {
		m[k] = v
	}
	return m
}

func publicUser(u *user.User) gin.H {
	return gin.H{
		"id":       u.ID,
		"email":    u.Email,
		"username": u.Username,
		"role":     u.Role,
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if !httpx.BindJSON(c, &req, registerMessages) {
		return
	}

	u, err := h.credentials.Register(
		c.Request.Context(),
		req.Email,
		req.Username,
		req.Password,
	)
	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrAlreadyRegistered):
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
		case errors.Is(err, credentials.ErrUsernameTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username is already taken"})
		case credentials.IsPasswordError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("registration failed", map[string]any{"error": err})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}

	h.respondWithSession(c, u)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !httpx.BindJSON(c, &req, loginMessages) {
		return
	}

	u, err := h.credentials.Authenticate(
		c.Request.Context(),
		req.Email,
		req.Password,
	)
	if err != nil {
		if !errors.Is(err, credentials.ErrInvalidCredentials) {
			logger.Error("login failed", map[string]any{"error": err})
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	h.respondWithSession(c, u)
}

func (h *Handler) respondWithSession(c *gin.Context, u *user.User) {
	raw, err := h.startSession(c, u)
	if err != nil {
		logger.Error("failed to start session", map[string]any{
			"user_id": u.ID,
			"error":   err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    publicUser(u),
		"token":   raw,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	// 1. Delete the caller's session (best-effort); tokens bound to it die with it
	sessionID := middleware.CurrentSessionID(c)
	if sessionID == "" {
		if cookie, err := c.Request.Cookie(session.CookieName); err == nil {
			sessionID = cookie.Value
		}
	}
	if sessionID != "" {
		if err := h.sessionStore.Delete(c.Request.Context(), sessionID); err != nil {
			logger.Warn("failed to delete session", map[string]any{"error": err})
		}
	}

	// 2. Clear cookies
	session.ClearCookie(c.Writer, session.DefaultCookieOptions(h.opts.CookieSecure))

	// 3. Idempotent response
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": middleware.CurrentUser(c)})
}
