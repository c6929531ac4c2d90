package domain

import (
	"fmt"
	"strings"
	"time"
)

type Provider string

const (
	// ProviderDelegated authenticates through a redirect to a third-party
	// identity provider that hands back a signed delegation.
	ProviderDelegated Provider = "delegated"
	// ProviderExtension authenticates through a wallet browser extension.
	ProviderExtension Provider = "extension"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderDelegated, ProviderExtension:
		return true
	default:
		return false
	}
}

func (p Provider) Label() string {
	switch p {
	case ProviderDelegated:
		return "Internet Identity"
	case ProviderExtension:
		return "Plug"
	default:
		return string(p)
	}
}

// ParseProvider accepts the canonical names plus the "ii" and "plug" aliases.
func ParseProvider(raw string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ProviderDelegated), "ii", "internet-identity":
		return ProviderDelegated, nil
	case string(ProviderExtension), "plug":
		return ProviderExtension, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownProvider, raw)
	}
}

type Principal string

// Identity is one authenticated session. It is a value: switching provider
// means disconnecting and connecting again.
type Identity struct {
	Principal   Principal
	AccountID   string
	Provider    Provider
	ConnectedAt time.Time
	// ExpiresAt is zero when the provider does not expire sessions.
	ExpiresAt time.Time
}

// NewIdentity validates the provider-issued identifiers. An empty account id
// falls back to the principal.
func NewIdentity(provider Provider, principal string, accountID string, connectedAt time.Time) (Identity, error) {
	if !provider.Valid() {
		return Identity{}, fmt.Errorf("%w %q", ErrUnknownProvider, provider)
	}

	principal = strings.TrimSpace(principal)
	if principal == "" {
		return Identity{}, fmt.Errorf("%w: principal is empty", ErrMalformedResponse)
	}

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		accountID = principal
	}

	return Identity{
		Principal:   Principal(principal),
		AccountID:   accountID,
		Provider:    provider,
		ConnectedAt: connectedAt,
	}, nil
}

func (i Identity) WithExpiry(expiresAt time.Time) Identity {
	i.ExpiresAt = expiresAt
	return i
}

func (i Identity) IsZero() bool {
	return i.Principal == ""
}

func (i Identity) Expired(now time.Time) bool {
	if i.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(i.ExpiresAt)
}

// Owner returns the identifier a ledger keys balances by.
func (i Identity) Owner(kind OwnerKind) string {
	if kind == OwnerAccountID {
		return i.AccountID
	}
	return string(i.Principal)
}
