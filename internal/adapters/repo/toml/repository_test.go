package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

func newTestRepository(t *testing.T, path string) *Repository {
	t.Helper()
	repo, err := NewRepository(path)
	require.NoError(t, err)
	return repo
}

func TestRepositoryMissingFileServesDefaultLedgers(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "missing", "ledgers.toml"))

	ledgers, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLedgers(), ledgers)

	icp, err := repo.GetByRef(context.Background(), "ryjl3-tyaaa-aaaaa-aaaba-cai")
	require.NoError(t, err)
	assert.Equal(t, "ICP", icp.Symbol)
	assert.Equal(t, domain.OwnerAccountID, icp.Owner)

	_, err = repo.GetByRef(context.Background(), "unknown")
	require.ErrorIs(t, err, domain.ErrLedgerNotFound)
}

func TestRepositorySaveAppendsAndReplaces(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "ledgers.toml"))

	ckbtc := domain.Ledger{Ref: "mxzaz-hqaaa-aaaar-qaada-cai", Symbol: "ckBTC", Decimals: 8, Owner: domain.OwnerPrincipal, Endpoint: "https://ledger.example/ckbtc"}
	require.NoError(t, repo.Save(context.Background(), ckbtc))

	ledgers, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ledgers, 3)
	assert.Equal(t, ckbtc, ledgers[2])

	ckbtc.Symbol = "CKBTC"
	require.NoError(t, repo.Save(context.Background(), ckbtc))

	got, err := repo.GetByRef(context.Background(), ckbtc.Ref)
	require.NoError(t, err)
	assert.Equal(t, ckbtc, got)

	ledgers, err = repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ledgers, 3)
}

func TestRepositorySaveRejectsInvalidLedger(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "ledgers.toml"))

	err := repo.Save(context.Background(), domain.Ledger{Ref: "x", Symbol: "X", Owner: "wallet"})
	require.ErrorContains(t, err, "unknown owner kind")
}

func TestRepositoryDelete(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledgers.toml")
	repo := newTestRepository(t, path)

	require.NoError(t, repo.Delete(context.Background(), "rrkah-fqaaa-aaaaa-aaaaq-cai"))

	ledgers, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ledgers, 1)
	assert.Equal(t, "ICP", ledgers[0].Symbol)

	err = repo.Delete(context.Background(), "rrkah-fqaaa-aaaaa-aaaaq-cai")
	require.ErrorIs(t, err, domain.ErrLedgerNotFound)

	require.NoError(t, repo.Delete(context.Background(), "ryjl3-tyaaa-aaaaa-aaaba-cai"))
	ledgers, err = repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ledgers)
}

func TestRepositoryWriteEnforcesPermissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "ledgers.toml")
	repo := newTestRepository(t, path)

	require.NoError(t, repo.Save(context.Background(), domain.DefaultLedgers()[0]))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestRepositoryReadsHandWrittenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledgers.toml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"version = 1",
		"",
		"[[ledgers]]",
		"ref = \"rrkah-fqaaa-aaaaa-aaaaq-cai\"",
		"symbol = \"PPS\"",
		"decimals = 8",
		"",
	}, "\n")), 0o600))

	ledgers, err := newTestRepository(t, path).List(context.Background())
	require.NoError(t, err)
	require.Len(t, ledgers, 1)
	assert.Equal(t, domain.OwnerPrincipal, ledgers[0].Owner)
}

func TestRepositoryListMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledgers.toml")
	require.NoError(t, os.WriteFile(path, []byte("ledgers = ["), 0o600))

	_, err := newTestRepository(t, path).List(context.Background())
	require.ErrorContains(t, err, "decode ledgers file")
}

func TestRepositorySaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t, filepath.Join(t.TempDir(), "ledgers.toml"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Save(ctx, domain.DefaultLedgers()[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepositoryConcurrentSavesAcrossInstancesPreserveBothLedgers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledgers.toml")
	repoA := newTestRepository(t, path)
	repoB := newTestRepository(t, path)

	const perRepoWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perRepoWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	save := func(repo *Repository, prefix string) {
		defer wg.Done()
		<-start
		for i := 0; i < perRepoWrites; i++ {
			errCh <- repo.Save(context.Background(), domain.Ledger{
				Ref:    domain.LedgerRef(prefix + strconv.Itoa(i)),
				Symbol: strings.ToUpper(prefix),
				Owner:  domain.OwnerPrincipal,
			})
		}
	}

	go save(repoA, "a-")
	go save(repoB, "b-")

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	ledgers, err := repoA.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ledgers, perRepoWrites*2+len(domain.DefaultLedgers()))
}

func TestRepositorySaveSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledgers.toml")
	require.NoError(t, newTestRepository(t, path).Save(context.Background(), domain.DefaultLedgers()[1]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "[[ledgers]]")
}

func TestRepositoryFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledgers.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 999\n\nledgers = []\n"), 0o600))

	_, err := newTestRepository(t, path).List(context.Background())
	require.ErrorContains(t, err, "unsupported ledgers schema version")
}

func TestNewRepositoryRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewRepository("")
	require.Error(t, err)
}
