package credentials

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// Length limits are enforced by the request binding tags.
var (
	ErrPasswordNoLetter = errors.New("Password must contain at least one letter")
	ErrPasswordNoNumber = errors.New("Password must contain at least one number")
	ErrPasswordTooLong  = errors.New("Password must be at most 72 bytes")
)

var (
	hasLetter = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

// ValidatePassword requires at least one letter and one digit.
func ValidatePassword(password string) error {
	switch {
	case !hasLetter.MatchString(password):
		return ErrPasswordNoLetter
	case !hasDigit.MatchString(password):
		return ErrPasswordNoNumber
	}
	return nil
}

// IsPasswordError reports whether err is a user-facing password rule
// violation.
func IsPasswordError(err error) bool {
	return errors.Is(err, ErrPasswordNoLetter) ||
		errors.Is(err, ErrPasswordNoNumber) ||
		errors.Is(err, ErrPasswordTooLong)
}

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	bytes, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

// VerifyPassword compares plaintext password with stored hash.
func VerifyPassword(hash string, password string) error {
	return bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(password),
	)
}
