package ports

import (
	"context"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

// IdentityProvider is one wallet backend. Implementations return
// *domain.AuthError for provider failures.
type IdentityProvider interface {
	Kind() domain.Provider
	// Connect runs the provider UX and returns on terminal success or failure.
	Connect(ctx context.Context) (domain.Identity, error)
	// RestoreSession never prompts the user. It returns nil, nil when there is
	// no prior session.
	RestoreSession(ctx context.Context) (*domain.Identity, error)
	// Disconnect clears provider-local session state. It is idempotent.
	Disconnect(ctx context.Context) error
}
