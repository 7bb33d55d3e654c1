package auth

import (
	"net/url"
	"strings"
)

const maxDisplayNameLen = 50

var avatarHosts = map[string]bool{
	"lh3.googleusercontent.com":     true,
	"platform-lookaside.fbsbx.com":  true,
	"graph.facebook.com":            true,
	"pbs.twimg.com":                 true,
	"avatars.githubusercontent.com": true,
}

const avatarHostSuffix = ".googleusercontent.com"

// SanitizedProfile is a Profile after trimming, escaping and
// normalization. AvatarURL is a candidate only; run ValidAvatarURL
// before storing it.
type SanitizedProfile struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&#x27;",
	"<", "&lt;",
	">", "&gt;",
	"/", "&#x2F;",
	`\`, "&#x5C;",
	"`", "&#96;",
)

// SanitizeInput trims s and escapes HTML-significant characters.
func SanitizeInput(s string) string {
	return htmlEscaper.Replace(strings.TrimSpace(s))
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func SanitizeProfile(p Profile) SanitizedProfile {
	email := p.Email
	if len(p.Emails) > 0 && p.Emails[0] != "" {
		email = p.Emails[0]
	}

	name := p.DisplayName
	if name == "" {
		name = p.GivenName
	}

	avatar := p.Picture
	if len(p.Photos) > 0 && p.Photos[0] != "" {
		avatar = p.Photos[0]
	}

	return SanitizedProfile{
		ID:          SanitizeInput(p.ID),
		Email:       NormalizeEmail(email),
		DisplayName: truncateRunes(SanitizeInput(name), maxDisplayNameLen),
		AvatarURL:   strings.TrimSpace(avatar),
	}
}

// ValidAvatarURL accepts only https URLs on known OAuth avatar hosts.
// Unparseable input is rejected.
func ValidAvatarURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return avatarHosts[host] || strings.HasSuffix(host, avatarHostSuffix)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
