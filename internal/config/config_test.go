package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("FACEBOOK_APP_ID", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "nihonto-db.com", cfg.SiteDomain)
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.GoogleConfigured())
	assert.False(t, cfg.FacebookConfigured())
}

func TestLoad_ProviderConfigured(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("FACEBOOK_APP_ID", "app")
	t.Setenv("FACEBOOK_APP_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.GoogleConfigured())
	assert.False(t, cfg.FacebookConfigured())
}
