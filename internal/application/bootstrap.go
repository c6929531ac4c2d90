package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

const DefaultRestoreTimeout = 5 * time.Second

type BootstrapPhase string

const (
	PhaseInit     BootstrapPhase = "init"
	PhaseProbing  BootstrapPhase = "probing"
	PhaseRestored BootstrapPhase = "restored"
	PhaseIdle     BootstrapPhase = "idle"
)

type BootstrapResult struct {
	Phase    BootstrapPhase
	Identity *domain.Identity
	// Err is the restore failure that led to Idle, if any. It is informational:
	// bootstrap never fails startup.
	Err error
}

type sessionRestorer interface {
	Restore(ctx context.Context, kind domain.Provider) (*domain.Identity, error)
}

type BootstrapOption func(*Bootstrapper)

func WithBootstrapLogger(logger *zap.Logger) BootstrapOption {
	return func(b *Bootstrapper) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bootstrapper attempts a single silent restore of a prior session at
// process start.
type Bootstrapper struct {
	store    sessionRestorer
	provider domain.Provider
	timeout  time.Duration
	logger   *zap.Logger

	once   sync.Once
	mu     sync.Mutex
	phase  BootstrapPhase
	result BootstrapResult
}

func NewBootstrapper(store *SessionStore, provider domain.Provider, timeout time.Duration, opts ...BootstrapOption) *Bootstrapper {
	return newBootstrapper(store, provider, timeout, opts...)
}

func newBootstrapper(store sessionRestorer, provider domain.Provider, timeout time.Duration, opts ...BootstrapOption) *Bootstrapper {
	if timeout <= 0 {
		timeout = DefaultRestoreTimeout
	}
	b := &Bootstrapper{
		store:    store,
		provider: provider,
		timeout:  timeout,
		logger:   zap.NewNop(),
		phase:    PhaseInit,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *Bootstrapper) Phase() BootstrapPhase {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.phase
}

// Run restores once. Later calls return the first result without retrying.
func (b *Bootstrapper) Run(ctx context.Context) BootstrapResult {
	b.once.Do(func() {
		result := b.restore(ctx)

		b.mu.Lock()
		b.result = result
		b.mu.Unlock()
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.result
}

func (b *Bootstrapper) restore(ctx context.Context) BootstrapResult {
	b.setPhase(PhaseProbing)

	restoreCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	identity, err := b.store.Restore(restoreCtx, b.provider)
	switch {
	case err == nil && identity != nil:
		b.setPhase(PhaseRestored)
		b.logger.Info("restored wallet session",
			zap.String("provider", string(identity.Provider)),
			zap.String("principal", string(identity.Principal)),
		)
		return BootstrapResult{Phase: PhaseRestored, Identity: identity}
	case err == nil:
		b.setPhase(PhaseIdle)
		return BootstrapResult{Phase: PhaseIdle}
	case errors.Is(err, domain.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		b.logger.Info("session restore timed out",
			zap.String("provider", string(b.provider)),
			zap.Duration("timeout", b.timeout),
		)
	default:
		b.logger.Warn("session restore failed",
			zap.String("provider", string(b.provider)),
			zap.Error(err),
		)
	}

	b.setPhase(PhaseIdle)
	return BootstrapResult{Phase: PhaseIdle, Err: err}
}

func (b *Bootstrapper) setPhase(phase BootstrapPhase) {
	b.mu.Lock()
	prev := b.phase
	b.phase = phase
	b.mu.Unlock()

	b.logger.Debug("bootstrap phase",
		zap.String("from", string(prev)),
		zap.String("to", string(phase)),
	)
}
