// Package permission holds the role hierarchy and the access predicates
// derived from it. It performs no authentication and mutates no state.
package permission

// Role is a privilege level. Declaration order is the hierarchy:
// a later constant is strictly more privileged than an earlier one.
type Role int

const (
	RoleUnknown Role = iota
	RoleUser
	RoleSubscriber
	RoleEditor
	RoleAdmin
)

var roleTokens = [...]string{
	RoleUser:       "user",
	RoleSubscriber: "subscriber",
	RoleEditor:     "editor",
	RoleAdmin:      "admin",
}

var roleNames = [...]string{
	RoleUser:       "User",
	RoleSubscriber: "Subscriber",
	RoleEditor:     "Editor",
	RoleAdmin:      "Administrator",
}

// ParseRole maps a stored role token to a Role. Matching is exact.
func ParseRole(token string) (Role, bool) {
	for r := RoleUser; r <= RoleAdmin; r++ {
		if roleTokens[r] == token {
			return r, true
		}
	}
	return RoleUnknown, false
}

func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleAdmin
}

// String returns the wire token ("user", "admin", ...), or "" for RoleUnknown.
func (r Role) String() string {
	if !r.Valid() {
		return ""
	}
	return roleTokens[r]
}

// AtLeast reports whether r is at or above required. Unknown roles never pass.
func (r Role) AtLeast(required Role) bool {
	if !r.Valid() || !required.Valid() {
		return false
	}
	return r >= required
}

// Level is the zero-based position in the hierarchy, -1 when unknown.
func (r Role) Level() int {
	if !r.Valid() {
		return -1
	}
	return int(r - RoleUser)
}

// RoleInfo describes a role for admin UIs.
type RoleInfo struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// AllRoles lists every role from least to most privileged.
func AllRoles() []RoleInfo {
	out := make([]RoleInfo, 0, int(RoleAdmin))
	for r := RoleUser; r <= RoleAdmin; r++ {
		out = append(out, RoleInfo{Key: r.String(), Name: roleNames[r], Level: r.Level()})
	}
	return out
}

// DisplayName returns the human-readable name of a role token,
// or the token itself when it is not a known role.
func DisplayName(token string) string {
	r, ok := ParseRole(token)
	if !ok {
		return token
	}
	return roleNames[r]
}
