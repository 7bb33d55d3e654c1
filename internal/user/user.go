package user

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("user already exists")
)

const AuthMethodLocal = "local"

// Provider names an external OAuth identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// providerSlot binds a provider to the user field holding its id.
// Supporting a new provider means adding a User field and a slot here.
type providerSlot struct {
	field  string // document field
	column string // sql column
	get    func(u *User) string
	set    func(u *User, id string)
}

var providerSlots = map[Provider]providerSlot{
	ProviderGoogle: {
		field:  "googleId",
		column: "google_id",
		get:    func(u *User) string { return u.GoogleID },
		set:    func(u *User, id string) { u.GoogleID = id },
	},
	ProviderFacebook: {
		field:  "facebookId",
		column: "facebook_id",
		get:    func(u *User) string { return u.FacebookID },
		set:    func(u *User, id string) { u.FacebookID = id },
	},
}

// Supported reports whether p has an id slot on User.
func (p Provider) Supported() bool {
	_, ok := providerSlots[p]
	return ok
}

// Field is the document field holding p's id, or "" when unsupported.
func (p Provider) Field() string {
	return providerSlots[p].field
}

// Column is the SQL column holding p's id, or "" when unsupported.
func (p Provider) Column() string {
	return providerSlots[p].column
}

// Providers lists every provider with an id slot, in stable order.
func Providers() []Provider {
	return []Provider{ProviderGoogle, ProviderFacebook}
}

type User struct {
	ID            string    `bson:"_id" json:"id"`
	Email         string    `bson:"email" json:"email"`
	Username      string    `bson:"username" json:"username"`
	PasswordHash  string    `bson:"password,omitempty" json:"-"`
	Role          string    `bson:"role" json:"role"`
	GoogleID      string    `bson:"googleId,omitempty" json:"googleId,omitempty"`
	FacebookID    string    `bson:"facebookId,omitempty" json:"facebookId,omitempty"`
	AuthMethod    string    `bson:"authMethod" json:"authMethod"`
	EmailVerified bool      `bson:"emailVerified" json:"emailVerified"`
	DisplayName   string    `bson:"displayName,omitempty" json:"displayName,omitempty"`
	AvatarURL     string    `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// RoleToken returns the stored role; a nil user has none.
func (u *User) RoleToken() string {
	if u == nil {
		return ""
	}
	return u.Role
}

// ProviderID returns the linked id for p, or "" when unlinked or unsupported.
func (u *User) ProviderID(p Provider) string {
	slot, ok := providerSlots[p]
	if !ok || u == nil {
		return ""
	}
	return slot.get(u)
}

// SetProviderID links id for p. Unsupported providers are ignored.
func (u *User) SetProviderID(p Provider, id string) {
	if slot, ok := providerSlots[p]; ok {
		slot.set(u, id)
	}
}

// LoginMethods counts the ways u can sign in: a password plus every
// linked provider.
func (u *User) LoginMethods() int {
	if u == nil {
		return 0
	}
	n := 0
	if u.PasswordHash != "" {
		n++
	}
	for _, p := range Providers() {
		if u.ProviderID(p) != "" {
			n++
		}
	}
	return n
}

// ProviderLink is a provider-scoped identifier to store on a user.
// An empty ID unlinks the provider.
type ProviderLink struct {
	Provider Provider
	ID       string
}

// Update is a partial write; nil fields are left untouched.
type Update struct {
	Email         *string
	Username      *string
	PasswordHash  *string
	AuthMethod    *string
	DisplayName   *string
	AvatarURL     *string
	EmailVerified *bool
	Role          *string
	Link          *ProviderLink
}

func (u Update) Empty() bool {
	return u.Email == nil &&
		u.Username == nil &&
		u.PasswordHash == nil &&
		u.AuthMethod == nil &&
		u.DisplayName == nil &&
		u.AvatarURL == nil &&
		u.EmailVerified == nil &&
		u.Role == nil &&
		u.Link == nil
}

// ApplyTo copies the set fields onto usr.
func (u Update) ApplyTo(usr *User) {
	if u.Email != nil {
		usr.Email = *u.Email
	}
	if u.Username != nil {
		usr.Username = *u.Username
	}
	if u.PasswordHash != nil {
		usr.PasswordHash = *u.PasswordHash
	}
	if u.AuthMethod != nil {
		usr.AuthMethod = *u.AuthMethod
	}
	if u.DisplayName != nil {
		usr.DisplayName = *u.DisplayName
	}
	if u.AvatarURL != nil {
		usr.AvatarURL = *u.AvatarURL
	}
	if u.EmailVerified != nil {
		usr.EmailVerified = *u.EmailVerified
	}
	if u.Role != nil {
		usr.Role = *u.Role
	}
	if u.Link != nil {
		usr.SetProviderID(u.Link.Provider, u.Link.ID)
	}
}

// Store is the persistence contract for users. Lookups return
// ErrNotFound when nothing matches; unique violations on email,
// username or a provider id return ErrDuplicate.
type Store interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByProviderID(ctx context.Context, p Provider, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id string, upd Update) (*User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*User, error)
}
