package middleware

import (
	"net/http"

	"github.com/chandama/touken-west-sub001/internal/httpx"
	"github.com/chandama/touken-west-sub001/internal/metrics"
	"github.com/chandama/touken-west-sub001/internal/permission"
	"github.com/chandama/touken-west-sub001/internal/sword"

	"github.com/gin-gonic/gin"
)

const (
	reasonUnauthenticated  = "unauthenticated"
	reasonInsufficientRole = "insufficient_role"
)

// Gate rejects requests whose attached user lacks a required role.
type Gate struct {
	metrics *metrics.Metrics
}

func NewGate(m *metrics.Metrics) *Gate {
	return &Gate{metrics: m}
}

// RequireAuth rejects anonymous requests with 401.
func (g *Gate) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			g.metrics.PermissionDenied("", reasonUnauthenticated)
			httpx.Abort(c, http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// RequireRole admits users at or above required in the role hierarchy.
func (g *Gate) RequireRole(required permission.Role) gin.HandlerFunc {
	return g.require(required, func(s permission.Subject) bool {
		return permission.HasRole(s.RoleToken(), required.String())
	})
}

// RequireUserManager admits admins only, by exact role match.
func (g *Gate) RequireUserManager() gin.HandlerFunc {
	return g.require(permission.RoleAdmin, permission.CanManageUsers)
}

func (g *Gate) require(required permission.Role, allow func(permission.Subject) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			g.metrics.PermissionDenied(required.String(), reasonUnauthenticated)
			httpx.Abort(c, http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		if !allow(u) {
			g.metrics.PermissionDenied(required.String(), reasonInsufficientRole)
			httpx.Abort(c, http.StatusForbidden, gin.H{
				"error":        required.String() + " access required",
				"currentRole":  u.Role,
				"requiredRole": required.String(),
			})
			return
		}

		c.Next()
	}
}

// FilterMediaForRole redacts sword media fields in the response body
// unless the caller may access media. It never rejects.
func FilterMediaForRole() gin.HandlerFunc {
	redact := httpx.RedactField(sword.FieldMedia)
	return func(c *gin.Context) {
		if !permission.CanAccessMedia(subjectOf(c)) {
			httpx.AddTransform(c, redact)
		}
		c.Next()
	}
}

// subjectOf avoids handing the permission package a typed nil.
func subjectOf(c *gin.Context) permission.Subject {
	if u := CurrentUser(c); u != nil {
		return u
	}
	return nil
}
