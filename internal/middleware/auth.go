package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/chandama/touken-west-sub001/internal/auth/token"
	"github.com/chandama/touken-west-sub001/internal/logger"
	"github.com/chandama/touken-west-sub001/internal/session"
	"github.com/chandama/touken-west-sub001/internal/user"

	"github.com/gin-gonic/gin"
)

// unexported, collision-proof context keys
type (
	userContextKeyType    struct{}
	sessionContextKeyType struct{}
)

var (
	userKey    = userContextKeyType{}
	sessionKey = sessionContextKeyType{}
)

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext extracts the authenticated user from ctx, or nil.
func UserFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(userKey).(*user.User)
	return u
}

// CurrentUser returns the user attached to the request, or nil.
func CurrentUser(c *gin.Context) *user.User {
	return UserFromContext(c.Request.Context())
}

// CurrentSessionID returns the id of the session the caller
// authenticated with, whichever credential carried it.
func CurrentSessionID(c *gin.Context) string {
	id, _ := c.Request.Context().Value(sessionKey).(string)
	return id
}

type AuthMiddleware struct {
	sessions session.Store
	users    user.Store
	tokens   *token.Service
}

func NewAuthMiddleware(sessions session.Store, users user.Store, tokens *token.Service) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		users:    users,
		tokens:   tokens,
	}
}

// Attach resolves the caller from the session cookie or a bearer token
// and reloads the user from the store. Requests without valid
// credentials continue anonymously.
func (a *AuthMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, userID := a.resolve(c)
		if userID == "" {
			c.Next()
			return
		}

		u, err := a.users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if !errors.Is(err, user.ErrNotFound) {
				logger.Error("failed to load current user", map[string]any{
					"user_id": userID,
					"error":   err,
				})
			}
			c.Next()
			return
		}

		ctx := context.WithValue(c.Request.Context(), sessionKey, sessionID)
		c.Request = c.Request.WithContext(WithUser(ctx, u))
		c.Next()
	}
}

// resolve returns the live session and its user. A token is only
// honoured while the session it was issued with still exists, so
// logout and revocation invalidate every credential at once.
func (a *AuthMiddleware) resolve(c *gin.Context) (string, string) {
	if a.sessions == nil {
		return "", ""
	}

	// 1. Session cookie
	if cookie, err := c.Request.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if sess := a.lookup(c, cookie.Value); sess != nil {
			return sess.SessionID, sess.UserID
		}
	}

	// 2. Bearer header, then token cookie
	if a.tokens == nil || !a.tokens.Enabled() {
		return "", ""
	}
	raw := bearerToken(c.GetHeader("Authorization"))
	if raw == "" {
		if cookie, err := c.Request.Cookie(session.TokenCookieName); err == nil {
			raw = cookie.Value
		}
	}
	if raw == "" {
		return "", ""
	}
	claims, err := a.tokens.Parse(raw)
	if err != nil {
		return "", ""
	}
	sess := a.lookup(c, claims.SessionID)
	if sess == nil || sess.UserID != claims.UserID {
		return "", ""
	}
	return sess.SessionID, sess.UserID
}

func (a *AuthMiddleware) lookup(c *gin.Context, id string) *session.Session {
	sess, err := a.sessions.Get(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			logger.Warn("session lookup failed", map[string]any{"error": err})
		}
		return nil
	}
	return sess
}

func bearerToken(header string) string {
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}
