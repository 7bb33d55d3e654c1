package google

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chandama/touken-west-sub001/internal/user"
)

func TestProfileFromClaims(t *testing.T) {
	p := profileFromClaims(idClaims{
		Subject:       "1098",
		Email:         "a@x.com",
		EmailVerified: true,
		Name:          "Alice",
		Picture:       "https://lh3.googleusercontent.com/a",
	})

	assert.Equal(t, user.ProviderGoogle, p.Provider)
	assert.Equal(t, "1098", p.ID)
	assert.Equal(t, "a@x.com", p.Email)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.Equal(t, "https://lh3.googleusercontent.com/a", p.Picture)
}

func TestProfileFromClaims_DropsUnverifiedEmail(t *testing.T) {
	p := profileFromClaims(idClaims{Subject: "1", Email: "a@x.com"})
	assert.Empty(t, p.Email)
}
