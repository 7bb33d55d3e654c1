package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chandama/touken-west-sub001/internal/auth/credentials"
	"github.com/chandama/touken-west-sub001/internal/auth/provider"
	"github.com/chandama/touken-west-sub001/internal/auth/resolver"
	"github.com/chandama/touken-west-sub001/internal/auth/token"
	"github.com/chandama/touken-west-sub001/internal/httpx"
	"github.com/chandama/touken-west-sub001/internal/logger"
	"github.com/chandama/touken-west-sub001/internal/metrics"
	"github.com/chandama/touken-west-sub001/internal/middleware"
	"github.com/chandama/touken-west-sub001/internal/session"
	"github.com/chandama/touken-west-sub001/internal/user"

	"github.com/gin-gonic/gin"
)

// Callback error codes sent to the frontend.
const (
	errNotConfigured     = "not_configured"
	errInvalidState      = "invalid_state"
	errAuthFailed        = "auth_failed"
	errMissingEmail      = "missing_email"
	errMissingProviderID = "missing_provider_id"
	errServer            = "server_error"

	outcomeResolved = "resolved"
)

type Options struct {
	FrontendURL  string
	SessionTTL   time.Duration
	CookieSecure bool
}

type Handler struct {
	providers    *provider.Registry
	sessionStore session.Store
	resolver     resolver.Resolver
	credentials  *credentials.Service
	tokens       *token.Service
	gate         *middleware.Gate
	metrics      *metrics.Metrics
	opts         Options
}

func NewHandler(
	registry *provider.Registry,
	sessionStore session.Store,
	resolver resolver.Resolver,
	credentialService *credentials.Service,
	tokens *token.Service,
	gate *middleware.Gate,
	m *metrics.Metrics,
	opts Options,
) *Handler {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	opts.FrontendURL = strings.TrimRight(opts.FrontendURL, "/")
	httpx.RegisterValidators()

	return &Handler{
		providers:    registry,
		sessionStore: sessionStore,
		resolver:     resolver,
		credentials:  credentialService,
		tokens:       tokens,
		gate:         gate,
		metrics:      m,
		opts:         opts,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/auth")

	g.GET("/providers", h.listProviders)
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.gate.RequireAuth(), h.Me)

	g.GET("/:provider", h.login)
	g.GET("/:provider/callback", h.callback)

	account := r.Group("/account", h.gate.RequireAuth())
	account.GET("/linked", h.linkedAccounts)
	account.DELETE("/unlink/:provider", h.unlink)
	account.POST("/set-password", h.setPassword)
}

func (h *Handler) listProviders(c *gin.Context) {
	resp := gin.H{"providers": h.providers.Names()}
	for _, p := range user.Providers() {
		resp[string(p)] = h.providers.Configured(p)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	if !user.Provider(providerName).Supported() {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": displayName(providerName) + " OAuth is not configured",
		})
		return
	}

	state, err := h.generateState(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start oauth flow"})
		return
	}
	_, codeChallenge, err := h.generatePKCE(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start oauth flow"})
		return
	}

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		h.fail(c, providerName, errNotConfigured)
		return
	}

	if !validateState(c) {
		h.fail(c, providerName, errInvalidState)
		return
	}

	// Provider-side denial or error
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		h.fail(c, providerName, errAuthFailed)
		return
	}

	code := c.Query("code")
	codeVerifier := getPKCEVerifier(c)
	if code == "" || codeVerifier == "" {
		h.fail(c, providerName, errAuthFailed)
		return
	}

	profile, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		logger.Warn("oauth code exchange failed", map[string]any{
			"provider": providerName,
			"error":    err,
		})
		h.fail(c, providerName, errAuthFailed)
		return
	}

	u, err := h.resolver.Resolve(c.Request.Context(), *profile)
	if err != nil {
		errCode := resolveErrorCode(err)
		if errCode == errServer {
			logger.Error("oauth identity resolution failed", map[string]any{
				"provider": providerName,
				"error":    err,
			})
		}
		h.fail(c, providerName, errCode)
		return
	}

	if _, err := h.startSession(c, u); err != nil {
		logger.Error("failed to start session", map[string]any{
			"user_id": u.ID,
			"error":   err,
		})
		h.fail(c, providerName, errServer)
		return
	}

	h.clearFlowCookies(c)
	h.metrics.OAuthResolution(providerName, outcomeResolved)

	logger.Info("oauth login succeeded", map[string]any{
		"provider": providerName,
		"user_id":  u.ID,
		"ip":       c.ClientIP(),
	})

	c.Redirect(http.StatusFound, h.opts.FrontendURL+"/auth/callback?success=true")
}

func (h *Handler) fail(c *gin.Context, providerName, code string) {
	h.clearFlowCookies(c)
	h.metrics.OAuthResolution(providerName, code)
	c.Redirect(http.StatusFound, h.opts.FrontendURL+"/auth/callback?error="+url.QueryEscape(code))
}

func resolveErrorCode(err error) string {
	switch {
	case errors.Is(err, resolver.ErrMissingEmail):
		return errMissingEmail
	case errors.Is(err, resolver.ErrMissingProviderID):
		return errMissingProviderID
	default:
		return errServer
	}
}

// startSession persists a session, sets the session cookie and, when
// signing is configured, issues an access token bound to that session.
func (h *Handler) startSession(c *gin.Context, u *user.User) (string, error) {
	sess, err := session.New(u.ID, h.opts.SessionTTL)
	if err != nil {
		return "", err
	}
	if err := h.sessionStore.Create(c.Request.Context(), sess); err != nil {
		return "", err
	}

	cookieOpts := session.DefaultCookieOptions(h.opts.CookieSecure)
	session.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt, cookieOpts)

	if !h.tokens.Enabled() {
		return "", nil
	}
	raw, err := h.tokens.Issue(sess.SessionID, u.ID, u.Email, u.Role)
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(h.tokens.TTL())
	if sess.ExpiresAt.Before(expires) {
		expires = sess.ExpiresAt
	}
	session.SetTokenCookie(c.Writer, raw, expires, cookieOpts)
	return raw, nil
}

func displayName(providerName string) string {
	if providerName == "" {
		return providerName
	}
	return strings.ToUpper(providerName[:1]) + providerName[1:]
}
