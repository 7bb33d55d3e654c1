package provider

import (
	"context"

	"github.com/chandama/touken-west-sub001/internal/auth"
	"github.com/chandama/touken-west-sub001/internal/user"
)

// OAuthProvider defines the contract every external auth provider
// must implement. Implementations return profile facts only and
// must not perform user creation, linking, or session management.
type OAuthProvider interface {
	// Name returns the provider identifier ("google", "facebook").
	Name() user.Provider

	// AuthCodeURL returns the OAuth authorization URL.
	// State and PKCE parameters are provided by the caller.
	AuthCodeURL(state string, codeChallenge string) string

	// ExchangeCode exchanges the authorization code for provider credentials
	// and returns the raw profile. No auth decisions are made here.
	ExchangeCode(
		ctx context.Context,
		code string,
		codeVerifier string,
	) (*auth.Profile, error)
}
