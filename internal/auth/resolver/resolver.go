package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/chandama/touken-west-sub001/internal/auth"
	"github.com/chandama/touken-west-sub001/internal/user"
)

// Resolver determines which internal user an external identity belongs to.
// It is the ONLY place where identity-to-user mapping logic lives.
type Resolver interface {
	Resolve(ctx context.Context, profile auth.Profile) (*user.User, error)
}

var (
	ErrMissingProviderID = errors.New("oauth profile missing id")
	ErrMissingEmail      = errors.New("oauth profile missing email")
	ErrUnknownProvider   = errors.New("oauth provider has no id field")
)

// StoreError wraps a user store failure during resolution.
// Callers treat it as fatal for the request and do not retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("user store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
