package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	AppPort     string `env:"APP_PORT" envDefault:"8080"`
	SiteDomain  string `env:"SITE_DOMAIN" envDefault:"nihonto-db.com"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	// StoreDriver selects the user/sword backend: mongo, postgres or memory.
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"touken"`
	DatabaseDSN   string `env:"DATABASE_DSN"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTTTL       time.Duration `env:"JWT_TTL" envDefault:"168h"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/api/auth/google/callback"`

	FacebookAppID       string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret   string `env:"FACEBOOK_APP_SECRET"`
	FacebookRedirectURL string `env:"FACEBOOK_REDIRECT_URL" envDefault:"http://localhost:8080/api/auth/facebook/callback"`
}

// GoogleConfigured reports whether Google OAuth credentials are present.
func (c Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// FacebookConfigured reports whether Facebook OAuth credentials are present.
func (c Config) FacebookConfigured() bool {
	return c.FacebookAppID != "" && c.FacebookAppSecret != ""
}

// Load parses the service configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
