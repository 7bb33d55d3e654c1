package credentials

import (
	"context"
	"errors"
	"strings"

	"github.com/chandama/touken-west-sub001/internal/auth"
	"github.com/chandama/touken-west-sub001/internal/permission"
	"github.com/chandama/touken-west-sub001/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrPasswordAlreadySet = errors.New("password already set")
	ErrLastLoginMethod    = errors.New("cannot remove the only login method")
)

type Service struct {
	users user.Store
}

func NewService(users user.Store) *Service {
	return &Service{users: users}
}

// Register creates a local account with the default role. Input format
// is validated by the caller's request binding.
func (s *Service) Register(
	ctx context.Context,
	email string,
	username string,
	password string,
) (*user.User, error) {
	return s.CreateAccount(ctx, email, username, password, permission.RoleUser)
}

// CreateAccount creates a local account holding role.
func (s *Service) CreateAccount(
	ctx context.Context,
	email string,
	username string,
	password string,
	role permission.Role,
) (*user.User, error) {

	email = auth.NormalizeEmail(email)
	username = strings.TrimSpace(username)

	// 1. Reject known email
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrAlreadyRegistered
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	_, err = s.users.FindByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, err
	}

	// 2. Hash password
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 3. Insert user
	u := &user.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role.String(),
		AuthMethod:   user.AuthMethodLocal,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}

	return u, nil
}

func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (*user.User, error) {

	// 1. Find user
	u, err := s.users.FindByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// hide whether user exists or not
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. OAuth-only accounts have no password
	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	// 3. Verify password
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// SetPassword adds a password to an account that has none, typically
// one created through OAuth.
func (s *Service) SetPassword(ctx context.Context, userID, password string) (*user.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.PasswordHash != "" {
		return nil, ErrPasswordAlreadySet
	}
	return s.ResetPassword(ctx, userID, password)
}

// ResetPassword replaces the account's password unconditionally.
func (s *Service) ResetPassword(ctx context.Context, userID, password string) (*user.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.users.Update(ctx, userID, user.Update{PasswordHash: &hash})
}

// Unlink removes p's id from the account. When p was the primary
// method the password takes over, else another linked provider.
func (s *Service) Unlink(ctx context.Context, userID string, p user.Provider) (*user.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.LoginMethods() <= 1 {
		return nil, ErrLastLoginMethod
	}

	upd := user.Update{Link: &user.ProviderLink{Provider: p}}
	if u.AuthMethod == string(p) {
		method := fallbackMethod(u, p)
		upd.AuthMethod = &method
	}
	return s.users.Update(ctx, userID, upd)
}

func fallbackMethod(u *user.User, removed user.Provider) string {
	if u.PasswordHash != "" {
		return user.AuthMethodLocal
	}
	for _, p := range user.Providers() {
		if p != removed && u.ProviderID(p) != "" {
			return string(p)
		}
	}
	return u.AuthMethod
}
