package permission

// Subject is anything carrying a role token, typically *user.User.
// A nil Subject is an anonymous caller.
type Subject interface {
	RoleToken() string
}

// HasRole reports whether userRole is at or above requiredRole.
// It returns false when either token is not a known role.
func HasRole(userRole, requiredRole string) bool {
	u, ok := ParseRole(userRole)
	if !ok {
		return false
	}
	r, ok := ParseRole(requiredRole)
	if !ok {
		return false
	}
	return u.AtLeast(r)
}

func roleOf(s Subject) (string, bool) {
	if s == nil {
		return "", false
	}
	return s.RoleToken(), true
}

// CanAccessMedia reports whether s may see sword media attachments.
// Subscribers and above qualify; anonymous callers never do.
func CanAccessMedia(s Subject) bool {
	role, ok := roleOf(s)
	return ok && HasRole(role, RoleSubscriber.String())
}

// CanAccessLibrary reports whether s may browse the media library.
// It uses the same subscriber threshold as CanAccessMedia.
func CanAccessLibrary(s Subject) bool {
	role, ok := roleOf(s)
	return ok && HasRole(role, RoleSubscriber.String())
}

// CanManageUsers is admin-only by equality, not by hierarchy.
func CanManageUsers(s Subject) bool {
	role, ok := roleOf(s)
	return ok && role == RoleAdmin.String()
}

// CanAccessAdmin reports whether s may open the admin area, which
// admits editors and above by hierarchy.
func CanAccessAdmin(s Subject) bool {
	role, ok := roleOf(s)
	return ok && HasRole(role, RoleEditor.String())
}
