// Package admin serves user management and the role catalogue.
package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/chandama/touken-west-sub001/internal/auth"
	"github.com/chandama/touken-west-sub001/internal/auth/credentials"
	"github.com/chandama/touken-west-sub001/internal/httpx"
	"github.com/chandama/touken-west-sub001/internal/logger"
	"github.com/chandama/touken-west-sub001/internal/middleware"
	"github.com/chandama/touken-west-sub001/internal/permission"
	"github.com/chandama/touken-west-sub001/internal/session"
	"github.com/chandama/touken-west-sub001/internal/user"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	users       user.Store
	sessions    session.Store
	credentials *credentials.Service
	gate        *middleware.Gate
}

func NewHandler(users user.Store, sessions session.Store, credentialService *credentials.Service, gate *middleware.Gate) *Handler {
	httpx.RegisterValidators()
	return &Handler{
		users:       users,
		sessions:    sessions,
		credentials: credentialService,
		gate:        gate,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/roles", h.roles)

	users := r.Group("/users", h.gate.RequireUserManager())
	users.GET("", h.listUsers)
	users.POST("", h.createUser)
	users.PATCH("/:id", h.updateUser)
	users.DELETE("/:id", h.deleteUser)
	users.PATCH("/:id/role", h.setRole)
	users.PATCH("/:id/password", h.resetPassword)
	users.DELETE("/:id/sessions", h.revokeSessions)

	r.GET("/admin/ping", h.gate.RequireRole(permission.RoleEditor), h.ping)
}

func (h *Handler) roles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": permission.AllRoles()})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		logger.Error("failed to list users", map[string]any{"error": err})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Username string `json:"username" binding:"required,min=3,max=30,username"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Role     string `json:"role"`
}

var createUserMessages = httpx.Messages{
	".required":    "Email, username, and password are required",
	"Email":        "Invalid email format",
	"Username":     "Username must be 3-30 characters: letters, numbers, underscores, hyphens",
	"Password.min": "Password must be at least 8 characters",
	"Password.max": "Password must be less than 128 characters",
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if !httpx.BindJSON(c, &req, createUserMessages) {
		return
	}

	role := permission.RoleUser
	if req.Role != "" {
		parsed, ok := permission.ParseRole(req.Role)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		role = parsed
	}

	u, err := h.credentials.CreateAccount(c.Request.Context(), req.Email, req.Username, req.Password, role)
	switch {
	case err == nil:
	case errors.Is(err, credentials.ErrAlreadyRegistered):
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
		return
	case errors.Is(err, credentials.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is already taken"})
		return
	case credentials.IsPasswordError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		logger.Error("failed to create user", map[string]any{"error": err})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	logger.Info("user created", map[string]any{
		"user_id":  u.ID,
		"role":     u.Role,
		"actor_id": middleware.CurrentUser(c).ID,
	})
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": u})
}

type updateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email,max=254"`
	Username *string `json:"username" binding:"omitempty,min=3,max=30,username"`
	Role     *string `json:"role"`
}

var updateUserMessages = httpx.Messages{
	"Email":    "Invalid email format",
	"Username": "Username must be 3-30 characters: letters, numbers, underscores, hyphens",
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if !httpx.BindJSON(c, &req, updateUserMessages) {
		return
	}

	var upd user.Update
	if req.Email != nil {
		email := auth.NormalizeEmail(*req.Email)
		upd.Email = &email
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		upd.Username = &username
	}
	if req.Role != nil {
		role, ok := permission.ParseRole(*req.Role)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		token := role.String()
		upd.Role = &token
	}

	h.applyUpdate(c, upd, "user updated")
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

var roleMessages = httpx.Messages{".required": "Role is required"}

func (h *Handler) setRole(c *gin.Context) {
	var req roleRequest
	if !httpx.BindJSON(c, &req, roleMessages) {
		return
	}

	role, ok := permission.ParseRole(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	token := role.String()
	h.applyUpdate(c, user.Update{Role: &token}, "user role changed")
}

func (h *Handler) applyUpdate(c *gin.Context, upd user.Update, event string) {
	u, err := h.users.Update(c.Request.Context(), c.Param("id"), upd)
	switch {
	case err == nil:
	case errors.Is(err, user.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	case errors.Is(err, user.ErrDuplicate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email or username already in use by another user"})
		return
	default:
		logger.Error("failed to update user", map[string]any{
			"user_id": c.Param("id"),
			"error":   err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		return
	}

	logger.Info(event, map[string]any{
		"user_id":  u.ID,
		"role":     u.Role,
		"actor_id": middleware.CurrentUser(c).ID,
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

type passwordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=128"`
}

var passwordMessages = httpx.Messages{
	".required":    "Password is required",
	"Password.min": "Password must be at least 8 characters",
	"Password.max": "Password must be less than 128 characters",
}

// resetPassword replaces the password and signs the user out everywhere.
func (h *Handler) resetPassword(c *gin.Context) {
	var req passwordRequest
	if !httpx.BindJSON(c, &req, passwordMessages) {
		return
	}

	u, err := h.credentials.ResetPassword(c.Request.Context(), c.Param("id"), req.Password)
	switch {
	case err == nil:
	case errors.Is(err, user.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	case credentials.IsPasswordError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		logger.Error("failed to reset password", map[string]any{
			"user_id": c.Param("id"),
			"error":   err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update password"})
		return
	}

	if err := h.sessions.DeleteUser(c.Request.Context(), u.ID); err != nil {
		logger.Warn("failed to revoke sessions after password reset", map[string]any{
			"user_id": u.ID,
			"error":   err,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated successfully"})
}

func (h *Handler) deleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == middleware.CurrentUser(c).ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	u, ok := h.findUser(c, id)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), u.ID); err != nil && !errors.Is(err, user.ErrNotFound) {
		logger.Error("failed to delete user", map[string]any{
			"user_id": u.ID,
			"error":   err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	if err := h.sessions.DeleteUser(c.Request.Context(), u.ID); err != nil {
		logger.Warn("failed to revoke sessions of deleted user", map[string]any{
			"user_id": u.ID,
			"error":   err,
		})
	}

	logger.Info("user deleted", map[string]any{
		"user_id":  u.ID,
		"actor_id": middleware.CurrentUser(c).ID,
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User " + u.Email + " deleted"})
}

// revokeSessions signs the user out everywhere. Tokens are bound to
// sessions, so they stop working too.
func (h *Handler) revokeSessions(c *gin.Context) {
	u, ok := h.findUser(c, c.Param("id"))
	if !ok {
		return
	}

	if err := h.sessions.DeleteUser(c.Request.Context(), u.ID); err != nil {
		logger.Error("failed to revoke sessions", map[string]any{
			"user_id": u.ID,
			"error":   err,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) findUser(c *gin.Context, id string) (*user.User, bool) {
	u, err := h.users.FindByID(c.Request.Context(), id)
	if errors.Is(err, user.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user"})
		return nil, false
	}
	return u, true
}

func (h *Handler) ping(c *gin.Context) {
	u := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"role": permission.DisplayName(u.Role),
	})
}
