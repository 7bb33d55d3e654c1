package auth

import "github.com/chandama/touken-west-sub001/internal/user"

// Profile is the raw identity an OAuth provider returns. It carries facts
// only and must go through SanitizeProfile before any lookup or write.
type Profile struct {
	Provider    user.Provider
	ID          string   // provider-scoped user id
	Emails      []string // in provider order; the first one wins
	Email       string   // singular form, used when Emails is empty
	DisplayName string
	GivenName   string   // used when DisplayName is empty
	Photos      []string // avatar candidates; the first one wins
	Picture     string   // singular form, used when Photos is empty
}
