package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/pollrush/pollrush-wallet/internal/domain"
	"github.com/pollrush/pollrush-wallet/internal/ports"
)

const (
	ledgersFileMode = 0o600
	ledgersDirMode  = 0o700
	tempFilePattern = ".ledgers-*.toml.tmp"
)

// Repository keeps the ledger registry in a TOML file. Until the file is first
// written, the registry holds domain.DefaultLedgers.
type Repository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.LedgerRepository = (*Repository)(nil)

func NewRepository(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("ledgers path is empty")
	}
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &Repository{path: path, mu: lockForPath(path)}, nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Save(ctx context.Context, ledger domain.Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ledger.Validate(); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(ledger)
	updated := false
	for i := range file.Ledgers {
		if file.Ledgers[i].Ref == encoded.Ref {
			file.Ledgers[i] = encoded
			updated = true
			break
		}
	}

	if !updated {
		file.Ledgers = append(file.Ledgers, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) Delete(ctx context.Context, ref domain.LedgerRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	kept := file.Ledgers[:0]
	found := false
	for _, entry := range file.Ledgers {
		if entry.Ref == string(ref) {
			found = true
			continue
		}
		kept = append(kept, entry)
	}
	if !found {
		return fmt.Errorf("delete ledger %s: %w", ref, domain.ErrLedgerNotFound)
	}
	file.Ledgers = kept

	return r.writeSchema(file)
}

func (r *Repository) GetByRef(ctx context.Context, ref domain.LedgerRef) (domain.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return domain.Ledger{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Ledger{}, err
	}

	for _, entry := range file.Ledgers {
		if entry.Ref == string(ref) {
			return fromSchema(entry), nil
		}
	}

	return domain.Ledger{}, domain.ErrLedgerNotFound
}

func (r *Repository) List(ctx context.Context) ([]domain.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	ledgers := make([]domain.Ledger, 0, len(file.Ledgers))
	for _, entry := range file.Ledgers {
		ledger := fromSchema(entry)
		if err := ledger.Validate(); err != nil {
			return nil, fmt.Errorf("decode ledgers file: %w", err)
		}
		ledgers = append(ledgers, ledger)
	}

	return ledgers, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultSchema(), nil
		}
		return fileSchema{}, fmt.Errorf("read ledgers file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode ledgers file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func defaultSchema() fileSchema {
	file := fileSchema{Version: currentSchemaVersion}
	for _, ledger := range domain.DefaultLedgers() {
		file.Ledgers = append(file.Ledgers, toSchema(ledger))
	}
	return file
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve ledgers path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), ledgersDirMode); err != nil {
		return fmt.Errorf("create ledgers directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode ledgers file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp ledgers file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp ledgers file: %w", err)
	}

	if err := tempFile.Chmod(ledgersFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp ledgers file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp ledgers file: %w", err)
	}

	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace ledgers file: %w", err)
	}

	cleanup = false

	return nil
}

func toSchema(ledger domain.Ledger) ledgerSchema {
	return ledgerSchema{
		Ref:      string(ledger.Ref),
		Symbol:   ledger.Symbol,
		Decimals: ledger.Decimals,
		Owner:    string(ledger.Owner),
		Endpoint: ledger.Endpoint,
	}
}

func fromSchema(entry ledgerSchema) domain.Ledger {
	owner := domain.OwnerKind(entry.Owner)
	if owner == "" {
		owner = domain.OwnerPrincipal
	}

	return domain.Ledger{
		Ref:      domain.LedgerRef(entry.Ref),
		Symbol:   entry.Symbol,
		Decimals: entry.Decimals,
		Owner:    owner,
		Endpoint: entry.Endpoint,
	}
}
