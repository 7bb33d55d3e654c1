package facebook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/chandama/touken-west-sub001/internal/auth"
	"github.com/chandama/touken-west-sub001/internal/logger"
	"github.com/chandama/touken-west-sub001/internal/user"

	"golang.org/x/oauth2"
	fbendpoint "golang.org/x/oauth2/facebook"
)

const (
	defaultGraphURL = "https://graph.facebook.com/v19.0"
	profileFields   = "id,name,first_name,email,picture.type(large)"
)

// Provider implements Facebook Login over plain OAuth2 plus a Graph API
// profile fetch. It returns profile facts only.
type Provider struct {
	oauthConfig *oauth2.Config
	appSecret   string
	graphURL    string
}

func New(appID, appSecret, redirectURL string) (*Provider, error) {
	if appID == "" || appSecret == "" || redirectURL == "" {
		return nil, errors.New("facebook oauth config missing required fields")
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     appID,
			ClientSecret: appSecret,
			RedirectURL:  redirectURL,
			Endpoint:     fbendpoint.Endpoint,
			Scopes:       []string{"email", "public_profile"},
		},
		appSecret: appSecret,
		graphURL:  defaultGraphURL,
	}, nil
}

func (p *Provider) Name() user.Provider {
	return user.ProviderFacebook
}

// AuthCodeURL ignores the PKCE challenge; state guards the callback.
func (p *Provider) AuthCodeURL(state string, _ string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	_ string,
) (*auth.Profile, error) {

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("facebook token exchange failed: %w", err)
	}

	profile, err := p.fetchProfile(ctx, p.oauthConfig.Client(ctx, token), token.AccessToken)
	if err != nil {
		return nil, err
	}

	logger.Info("facebook profile fetched", map[string]any{
		"id_present":    profile.ID != "",
		"email_present": profile.Email != "",
	})

	return profile, nil
}

type graphPicture struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

type graphUser struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	FirstName string       `json:"first_name"`
	Email     string       `json:"email"`
	Picture   graphPicture `json:"picture"`
}

func (p *Provider) fetchProfile(ctx context.Context, client *http.Client, accessToken string) (*auth.Profile, error) {
	q := url.Values{}
	q.Set("fields", profileFields)
	q.Set("appsecret_proof", appSecretProof(p.appSecret, accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.graphURL+"/me?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook graph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("facebook graph returned status %d: %s", resp.StatusCode, string(body))
	}

	var gu graphUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("facebook graph decode failed: %w", err)
	}

	profile := &auth.Profile{
		Provider:    user.ProviderFacebook,
		ID:          gu.ID,
		Email:       gu.Email,
		DisplayName: gu.Name,
		GivenName:   gu.FirstName,
	}
	if gu.Picture.Data.URL != "" {
		profile.Photos = []string{gu.Picture.Data.URL}
	}
	return profile, nil
}

// appSecretProof is the Graph API appsecret_proof: hex HMAC-SHA256 of
// the access token keyed by the app secret.
func appSecretProof(appSecret, accessToken string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(accessToken))
	return hex.EncodeToString(mac.Sum(nil))
}
