package credentials

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandama/touken-west-sub001/internal/permission"
	"github.com/chandama/touken-west-sub001/internal/user"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(user.NewMemoryStore())

	u, err := svc.Register(ctx, " Smith@Example.com ", "smith", "katana123")
	require.NoError(t, err)
	assert.Equal(t, "smith@example.com", u.Email)
	assert.Equal(t, "user", u.Role)
	assert.Equal(t, user.AuthMethodLocal, u.AuthMethod)
	assert.NotEqual(t, "katana123", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "SMITH@example.com", "katana123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "smith@example.com", "wrong1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "katana123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Duplicates(t *testing.T) {
	ctx := context.Background()
	svc := NewService(user.NewMemoryStore())

	_, err := svc.Register(ctx, "a@x.com", "alice", "password1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "A@X.com", "alice2", "password1")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = svc.Register(ctx, "b@x.com", "alice", "password1")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegister_WeakPassword(t *testing.T) {
	ctx := context.Background()
	store := user.NewMemoryStore()

	_, err := NewService(store).Register(ctx, "a@x.com", "alice", "passwords")
	assert.ErrorIs(t, err, ErrPasswordNoNumber)

	_, err = store.FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestCreateAccount_WithRole(t *testing.T) {
	ctx := context.Background()
	svc := NewService(user.NewMemoryStore())

	u, err := svc.CreateAccount(ctx, "ed@x.com", "ed", "katana123", permission.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, "editor", u.Role)
}

func TestSetPassword(t *testing.T) {
	ctx := context.Background()
	store := user.NewMemoryStore()
	svc := NewService(store)

	oauth := &user.User{Email: "g@x.com", Username: "g", GoogleID: "g1", AuthMethod: "google"}
	require.NoError(t, store.Create(ctx, oauth))

	_, err := svc.SetPassword(ctx, oauth.ID, "katana123")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "g@x.com", "katana123")
	require.NoError(t, err)
	assert.Equal(t, oauth.ID, got.ID)

	_, err = svc.SetPassword(ctx, oauth.ID, "another123")
	assert.ErrorIs(t, err, ErrPasswordAlreadySet)

	_, err = svc.SetPassword(ctx, "missing", "katana123")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	svc := NewService(user.NewMemoryStore())

	u, err := svc.Register(ctx, "a@x.com", "alice", "password1")
	require.NoError(t, err)

	_, err = svc.ResetPassword(ctx, u.ID, "letters")
	assert.ErrorIs(t, err, ErrPasswordNoNumber)

	_, err = svc.ResetPassword(ctx, u.ID, "newpass99")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "a@x.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "a@x.com", "newpass99")
	assert.NoError(t, err)
}

func TestAuthenticate_OAuthOnlyAccount(t *testing.T) {
	ctx := context.Background()
	store := user.NewMemoryStore()
	require.NoError(t, store.Create(ctx, &user.User{Email: "g@x.com", Username: "g", AuthMethod: "google"}))

	_, err := NewService(store).Authenticate(ctx, "g@x.com", "anything1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("abcdefgh"), ErrPasswordNoNumber)
	assert.ErrorIs(t, ValidatePassword("12345678"), ErrPasswordNoLetter)
	assert.NoError(t, ValidatePassword("abcd1234"))
	assert.True(t, IsPasswordError(ValidatePassword("")))
}

func TestHashPassword_BcryptLimit(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a1", 40))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.True(t, IsPasswordError(err))
}

func TestUnlink(t *testing.T) {
	ctx := context.Background()
	store := user.NewMemoryStore()
	svc := NewService(store)

	u := &user.User{Email: "g@x.com", Username: "g", GoogleID: "g1", FacebookID: "f1", AuthMethod: "google"}
	require.NoError(t, store.Create(ctx, u))

	got, err := svc.Unlink(ctx, u.ID, user.ProviderGoogle)
	require.NoError(t, err)
	assert.Empty(t, got.GoogleID)
	assert.Equal(t, "facebook", got.AuthMethod)

	_, err = svc.Unlink(ctx, u.ID, user.ProviderFacebook)
	assert.ErrorIs(t, err, ErrLastLoginMethod)

	_, err = svc.SetPassword(ctx, u.ID, "katana123")
	require.NoError(t, err)

	got, err = svc.Unlink(ctx, u.ID, user.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, user.AuthMethodLocal, got.AuthMethod)
	assert.Equal(t, 1, got.LoginMethods())
}
