package application

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

func mockAnyContext() interface{} {
	return mock.MatchedBy(func(ctx context.Context) bool { return ctx != nil })
}

// blockingProvider parks Connect and RestoreSession until released.
type blockingProvider struct {
	kind     domain.Provider
	identity *domain.Identity
	err      error
	// ignoreContext keeps the call parked after its context is cancelled,
	// like an adapter waiting on a browser that never answers.
	ignoreContext bool

	started     chan struct{}
	startedOnce sync.Once
	release     chan struct{}

	disconnectErr error
	disconnects   atomic.Int32
}

func newBlockingProvider(kind domain.Provider, identity *domain.Identity) *blockingProvider {
	return &blockingProvider{
		kind:     kind,
		identity: identity,
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (p *blockingProvider) Kind() domain.Provider {
	return p.kind
}

func (p *blockingProvider) Connect(ctx context.Context) (domain.Identity, error) {
	identity, err := p.wait(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	if identity == nil {
		return domain.Identity{}, nil
	}
	return *identity, nil
}

func (p *blockingProvider) RestoreSession(ctx context.Context) (*domain.Identity, error) {
	return p.wait(ctx)
}

func (p *blockingProvider) Disconnect(context.Context) error {
	p.disconnects.Add(1)
	return p.disconnectErr
}

func (p *blockingProvider) wait(ctx context.Context) (*domain.Identity, error) {
	p.startedOnce.Do(func() { close(p.started) })

	if p.ignoreContext {
		<-p.release
	} else {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.err != nil {
		return nil, p.err
	}
	if p.identity == nil {
		return nil, nil
	}
	identity := *p.identity
	return &identity, nil
}

// recorder collects every snapshot a listener sees.
type recorder struct {
	mu     sync.Mutex
	states []domain.SessionState
}

func (r *recorder) listen(state domain.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) snapshot() []domain.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SessionState(nil), r.states...)
}

func (r *recorder) statuses() []domain.SessionStatus {
	states := r.snapshot()
	out := make([]domain.SessionStatus, 0, len(states))
	for _, s := range states {
		out = append(out, s.Status)
	}
	return out
}
