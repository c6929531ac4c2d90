package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

func TestStorePutUsesPrefixedPassInsert(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, []string{"insert", "-m", "-f", "pollrush/delegated/delegation"}, args)
			assert.Equal(t, "token\n", input)
			return "", "", nil
		},
	}

	require.NoError(t, store.Put(context.Background(), "delegated/delegation", "token"))
	assert.True(t, called)
}

func TestStoreGetTrimsTrailingNewline(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "pollrush/delegated/delegation"}, args)
			assert.Empty(t, input)
			return "token\r\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), "delegated/delegation")
	require.NoError(t, err)
	assert.Equal(t, "token", value)
}

func TestStoreGetMissingEntryIsNotFound(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "Error: delegated/delegation is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "delegated/delegation")
	require.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "gpg: decryption failed: No secret key", errors.New("exit status 2")
		},
	}

	_, err := store.Get(context.Background(), "delegated/delegation")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCredentialNotFound)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "No secret key")
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"rm", "-f", "pollrush/delegated/delegation"}, args)
			return "", "Error: pollrush/delegated/delegation is not in the password store.", errors.New("exit status 1")
		},
	}

	require.NoError(t, store.Delete(context.Background(), "delegated/delegation"))
}

func TestStoreSurfacesUnavailableBackend(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(context.Context, string, ...string) (string, string, error) {
			return "", "", ErrUnavailable
		},
	}

	err := store.Put(context.Background(), "delegated/delegation", "token")
	require.ErrorIs(t, err, ErrUnavailable)
}
