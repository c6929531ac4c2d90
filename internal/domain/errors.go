package domain

import (
	"errors"
	"fmt"
)

// Authentication error kinds. Adapters report them wrapped in an AuthError.
var (
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrUserRejected        = errors.New("user rejected the request")
	ErrTimeout             = errors.New("identity provider timed out")
	ErrMalformedResponse   = errors.New("malformed provider response")
)

// Session errors.
var (
	ErrSessionBusy          = errors.New("another session operation is in flight")
	ErrAlreadyAuthenticated = errors.New("a wallet session is already active")
	ErrNotAuthenticated     = errors.New("wallet not connected")
	ErrUnknownProvider      = errors.New("unknown identity provider")
	ErrSuperseded           = errors.New("session attempt superseded by disconnect")
	ErrRevocationIncomplete = errors.New("provider-side revocation may not have completed")
)

// Storage errors.
var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrLedgerNotFound     = errors.New("ledger not found")
	ErrNoLedgers          = errors.New("no ledgers configured")
)

// AuthError is returned by identity provider adapters. Kind is one of the
// authentication error kinds above; Err carries the underlying cause.
type AuthError struct {
	Provider Provider
	Op       string
	Kind     error
	Err      error
}

func NewAuthError(provider Provider, op string, kind error, err error) *AuthError {
	return &AuthError{Provider: provider, Op: op, Kind: kind, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Provider, e.Op, e.Kind, e.Err)
}

func (e *AuthError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
