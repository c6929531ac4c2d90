package ports

import "context"

// CredentialStore persists provider-local session material. Get returns
// domain.ErrCredentialNotFound when the key is absent.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
