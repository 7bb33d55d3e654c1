package app

import (
	"context"
	"net/http"

	"github.com/chandama/touken-west-sub001/internal/admin"
	"github.com/chandama/touken-west-sub001/internal/auth/credentials"
	"github.com/chandama/touken-west-sub001/internal/auth/handler"
	"github.com/chandama/touken-west-sub001/internal/auth/provider"
	"github.com/chandama/touken-west-sub001/internal/auth/provider/facebook"
	"github.com/chandama/touken-west-sub001/internal/auth/provider/google"
	"github.com/chandama/touken-west-sub001/internal/auth/resolver"
	"github.com/chandama/touken-west-sub001/internal/auth/token"
	"github.com/chandama/touken-west-sub001/internal/config"
	"github.com/chandama/touken-west-sub001/internal/logger"
	"github.com/chandama/touken-west-sub001/internal/metrics"
	"github.com/chandama/touken-west-sub001/internal/middleware"
	"github.com/chandama/touken-west-sub001/internal/permission"
	"github.com/chandama/touken-west-sub001/internal/session"
	"github.com/chandama/touken-west-sub001/internal/sword"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	registry, err := setupProviders(ctx, cfg)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	router := newRouter(cfg, infra, registry)
	return router, infra.Close, nil
}

// setupProviders registers only the providers whose credentials are set.
func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var list []provider.OAuthProvider

	if cfg.GoogleConfigured() {
		p, err := google.New(
			ctx,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.FacebookConfigured() {
		p, err := facebook.New(
			cfg.FacebookAppID,
			cfg.FacebookAppSecret,
			cfg.FacebookRedirectURL,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	registry := provider.NewRegistry(list...)
	logger.Info("oauth providers configured", map[string]any{
		"providers": registry.Names(),
	})
	return registry, nil
}

func newRouter(cfg config.Config, infra *Infra, registry *provider.Registry) *gin.Engine {
	// ----------------------------
	// Dependencies
	// ----------------------------

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set; bearer tokens disabled", nil)
	}
	tokens := token.NewService(cfg.JWTSecret, cfg.JWTTTL)

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	identityResolver := resolver.NewStoreResolver(infra.Users, cfg.SiteDomain)
	gate := middleware.NewGate(m)
	credentialService := credentials.NewService(infra.Users)

	authHandler := handler.NewHandler(
		registry,
		sessionStore,
		identityResolver,
		credentialService,
		tokens,
		gate,
		m,
		handler.Options{
			FrontendURL:  cfg.FrontendURL,
			SessionTTL:   cfg.SessionTTL,
			CookieSecure: cfg.CookieSecure,
		},
	)
	adminHandler := admin.NewHandler(infra.Users, sessionStore, credentialService, gate)
	swordHandler := sword.NewHandler(infra.Swords)

	authMiddleware := middleware.NewAuthMiddleware(sessionStore, infra.Users, tokens)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(
		middleware.RequestLogger(logger.L()),
		gin.Recovery(),
		m.Middleware(),
		authMiddleware.Attach(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// ----------------------------
	// API Routes
	// ----------------------------

	api := router.Group("/api")

	authHandler.RegisterRoutes(api)
	adminHandler.RegisterRoutes(api)
	swordHandler.RegisterRoutes(api, sword.Guards{
		FilterMedia:    middleware.FilterMediaForRole(),
		RequireLibrary: gate.RequireRole(permission.RoleSubscriber),
		RequireAdmin:   gate.RequireRole(permission.RoleAdmin),
	})

	return router
}
