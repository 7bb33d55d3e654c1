package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chandama/touken-west-sub001/internal/auth"
	"github.com/chandama/touken-west-sub001/internal/logger"
	"github.com/chandama/touken-west-sub001/internal/permission"
	"github.com/chandama/touken-west-sub001/internal/user"
)

const (
	maxUsernameLen    = 20
	attemptPrefixLen    = 17
	maxUsernameAttempts = 999
)

// placeholderPrefixes lists providers allowed to sign up without an
// email; they get a synthesized, unverified address.
var placeholderPrefixes = map[user.Provider]string{
	user.ProviderFacebook: "fb",
}

var nonUsernameChars = regexp.MustCompile(`[^a-z0-9]`)

// StoreResolver resolves identities against a user.Store:
// provider id first, then verified email (account linking), then create.
// Lookups by name are never used for linking.
type StoreResolver struct {
	users      user.Store
	siteDomain string
	now        func() time.Time
}

func NewStoreResolver(users user.Store, siteDomain string) *StoreResolver {
	return &StoreResolver{
		users:      users,
		siteDomain: siteDomain,
		now:        time.Now,
	}
}

func (r *StoreResolver) Resolve(ctx context.Context, profile auth.Profile) (*user.User, error) {
	provider := profile.Provider
	if !provider.Supported() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	p := auth.SanitizeProfile(profile)
	if p.ID == "" {
		return nil, ErrMissingProviderID
	}

	// 1. Known identity
	existing, err := r.users.FindByProviderID(ctx, provider, p.ID)
	if err == nil {
		return r.refreshProfile(ctx, existing, p)
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, storeErr("find by provider id", err)
	}

	// 2. Existing account with the same email: link this provider to it
	if p.Email != "" {
		existing, err = r.users.FindByEmail(ctx, p.Email)
		if err == nil {
			return r.link(ctx, existing, provider, p)
		}
		if !errors.Is(err, user.ErrNotFound) {
			return nil, storeErr("find by email", err)
		}
	}

	// 3. New user
	return r.create(ctx, provider, p)
}

// profileUpdates proposes displayName / avatarUrl only for fields the
// user has not set yet.
func profileUpdates(existing *user.User, p auth.SanitizedProfile) user.Update {
	var upd user.Update
	if p.DisplayName != "" && existing.DisplayName == "" {
		name := p.DisplayName
		upd.DisplayName = &name
	}
	if p.AvatarURL != "" && auth.ValidAvatarURL(p.AvatarURL) && existing.AvatarURL == "" {
		avatar := p.AvatarURL
		upd.AvatarURL = &avatar
	}
	return upd
}

func (r *StoreResolver) refreshProfile(ctx context.Context, existing *user.User, p auth.SanitizedProfile) (*user.User, error) {
	upd := profileUpdates(existing, p)
	if upd.Empty() {
		return existing, nil
	}

	updated, err := r.users.Update(ctx, existing.ID, upd)
	if err != nil {
		return nil, storeErr("update profile", err)
	}
	return updated, nil
}

func (r *StoreResolver) link(ctx context.Context, existing *user.User, provider user.Provider, p auth.SanitizedProfile) (*user.User, error) {
	upd := profileUpdates(existing, p)
	verified := true
	upd.EmailVerified = &verified
	upd.Link = &user.ProviderLink{Provider: provider, ID: p.ID}

	updated, err := r.users.Update(ctx, existing.ID, upd)
	if err != nil {
		return nil, storeErr("link provider", err)
	}

	logger.Info("oauth identity linked to existing user", map[string]any{
		"provider": string(provider),
		"user_id":  updated.ID,
	})
	return updated, nil
}

func (r *StoreResolver) create(ctx context.Context, provider user.Provider, p auth.SanitizedProfile) (*user.User, error) {
	email := p.Email
	placeholder := false
	if email == "" {
		prefix, ok := placeholderPrefixes[provider]
		if !ok {
			return nil, ErrMissingEmail
		}
		email = fmt.Sprintf("%s_%s@placeholder.%s", prefix, p.ID, r.siteDomain)
		placeholder = true
	}

	username, err := r.uniqueUsername(ctx, baseUsername(p.DisplayName, email))
	if err != nil {
		return nil, err
	}

	displayName := p.DisplayName
	if displayName == "" {
		displayName = username
	}

	var avatar string
	if auth.ValidAvatarURL(p.AvatarURL) {
		avatar = p.AvatarURL
	}

	u := &user.User{
		Email:         email,
		Username:      username,
		Role:          permission.RoleUser.String(),
		AuthMethod:    string(provider),
		EmailVerified: !placeholder,
		DisplayName:   displayName,
		AvatarURL:     avatar,
	}
	u.SetProviderID(provider, p.ID)

	if err := r.users.Create(ctx, u); err != nil {
		return nil, storeErr("create", err)
	}

	logger.Info("oauth user created", map[string]any{
		"provider":    string(provider),
		"user_id":     u.ID,
		"placeholder": placeholder,
	})
	return u, nil
}

// baseUsername derives the lowercase [a-z0-9] username seed from the
// display name, else from the email local part.
func baseUsername(displayName, email string) string {
	var base string
	if displayName != "" {
		base = nonUsernameChars.ReplaceAllString(strings.ToLower(displayName), "")
	}
	if base == "" {
		local, _, _ := strings.Cut(email, "@")
		base = nonUsernameChars.ReplaceAllString(strings.ToLower(local), "")
	}
	if base == "" {
		base = "user"
	}
	return base
}

// uniqueUsername tries base, then base[:17]+1..999, then falls back to
// user<unix millis> without probing.
func (r *StoreResolver) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := truncate(base, maxUsernameLen)
	taken, err := r.usernameTaken(ctx, candidate)
	if err != nil || !taken {
		return candidate, err
	}

	prefix := truncate(base, attemptPrefixLen)
	for counter := 1; counter <= maxUsernameAttempts; counter++ {
		candidate = fmt.Sprintf("%s%d", prefix, counter)
		taken, err = r.usernameTaken(ctx, candidate)
		if err != nil || !taken {
			return candidate, err
		}
	}

	return fmt.Sprintf("user%d", r.now().UnixMilli()), nil
}

func (r *StoreResolver) usernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := r.users.FindByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, user.ErrNotFound) {
		return false, nil
	}
	return false, storeErr("find by username", err)
}

// truncate is byte-based; callers pass [a-z0-9] only.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
