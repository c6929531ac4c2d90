package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pollrush/pollrush-wallet/internal/domain"
	"github.com/pollrush/pollrush-wallet/internal/ports"
)

const defaultRevokeTimeout = 10 * time.Second

// Listener receives every committed session transition, in commit order.
type Listener func(domain.SessionState)

type StoreOption func(*SessionStore)

func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(clock ports.Clock) StoreOption {
	return func(s *SessionStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRevokeTimeout bounds the background revocation of sessions that a
// provider established after their attempt was superseded.
func WithRevokeTimeout(timeout time.Duration) StoreOption {
	return func(s *SessionStore) {
		if timeout > 0 {
			s.revokeTimeout = timeout
		}
	}
}

type sessionOp int

const (
	opNone sessionOp = iota
	opConnect
	opRestore
	opDisconnect
)

func (o sessionOp) String() string {
	switch o {
	case opConnect:
		return "connect"
	case opRestore:
		return "restore"
	case opDisconnect:
		return "disconnect"
	default:
		return "none"
	}
}

type listenerEntry struct {
	id uint64
	fn Listener
}

type attempt struct {
	id       string
	op       sessionOp
	epoch    uint64
	provider ports.IdentityProvider
}

type outcome struct {
	identity *domain.Identity
	err      error
}

// SessionStore owns the wallet session. It holds at most one identity and is
// the only writer of SessionState.
type SessionStore struct {
	providers     map[domain.Provider]ports.IdentityProvider
	order         []domain.Provider
	logger        *zap.Logger
	clock         ports.Clock
	revokeTimeout time.Duration

	mu      sync.Mutex
	state   domain.SessionState
	active  ports.IdentityProvider
	op      sessionOp
	pending *attempt
	cancel  context.CancelFunc
	// epoch advances whenever an in-flight attempt is started or preempted.
	// Results carrying an older epoch are stale.
	epoch uint64
	// revoking counts stale-session revocations in flight per provider. A
	// provider being revoked accepts no new attempt.
	revoking map[domain.Provider]int

	listeners      []listenerEntry
	nextListenerID uint64
	queue          []domain.SessionState
	dispatching    bool
}

func NewSessionStore(providers []ports.IdentityProvider, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		providers:     make(map[domain.Provider]ports.IdentityProvider, len(providers)),
		logger:        zap.NewNop(),
		clock:         ports.SystemClock{},
		revokeTimeout: defaultRevokeTimeout,
		state:         domain.SessionState{Status: domain.StatusUnauthenticated},
		revoking:      make(map[domain.Provider]int),
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		kind := p.Kind()
		if _, exists := s.providers[kind]; !exists {
			s.order = append(s.order, kind)
		}
		s.providers[kind] = p
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns a snapshot of the current session.
func (s *SessionStore) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneState(s.state)
}

// Subscribe registers a listener for subsequent transitions. Listeners run
// outside the store lock and may call back into the store.
func (s *SessionStore) Subscribe(listener Listener) func() {
	s.mu.Lock()
	s.nextListenerID++
	id := s.nextListenerID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: listener})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, entry := range s.listeners {
				if entry.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// BeginConnect runs the provider's interactive connect. It has no implicit
// timeout; the caller's context bounds it.
func (s *SessionStore) BeginConnect(ctx context.Context, kind domain.Provider) (domain.Identity, error) {
	provider, err := s.provider(kind)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("begin connect: %w", err)
	}

	identity, err := s.runAttempt(ctx, opConnect, provider, func(ctx context.Context) (*domain.Identity, error) {
		id, err := provider.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return &id, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("begin connect %s: %w", kind, err)
	}

	return *identity, nil
}

// Restore silently resumes a prior provider session. It returns nil, nil when
// the provider has none.
func (s *SessionStore) Restore(ctx context.Context, kind domain.Provider) (*domain.Identity, error) {
	provider, err := s.provider(kind)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}

	identity, err := s.runAttempt(ctx, opRestore, provider, provider.RestoreSession)
	if err != nil {
		return nil, fmt.Errorf("restore %s session: %w", kind, err)
	}

	return identity, nil
}

// Disconnect clears the session. It preempts a pending connect or restore and
// always ends unauthenticated. A provider failure is returned wrapped in
// domain.ErrRevocationIncomplete.
func (s *SessionStore) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.op == opDisconnect {
		s.mu.Unlock()
		return fmt.Errorf("disconnect: %w", domain.ErrSessionBusy)
	}

	targets := s.disconnectTargetsLocked()
	if s.pending != nil {
		s.logger.Debug("disconnect preempts pending session attempt",
			zap.String("attempt_id", s.pending.id),
			zap.Stringer("op", s.pending.op),
		)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.epoch++
	s.op = opDisconnect
	s.pending = nil
	s.cancel = nil
	s.active = nil
	attemptID := uuid.NewString()
	s.commitLocked(domain.SessionState{Status: domain.StatusDisconnecting}, attemptID)
	s.mu.Unlock()
	s.dispatch()

	var errs []error
	for _, target := range targets {
		if _, err := await(ctx, func(ctx context.Context) (*domain.Identity, error) {
			return nil, target.Disconnect(ctx)
		}); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", target.Kind(), err))
		}
	}

	s.mu.Lock()
	s.op = opNone
	s.commitLocked(domain.SessionState{Status: domain.StatusUnauthenticated}, attemptID)
	s.mu.Unlock()
	s.dispatch()

	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.logger.Warn("provider revocation may be incomplete",
			zap.String("attempt_id", attemptID),
			zap.Error(err),
		)
		return fmt.Errorf("disconnect: %w: %w", domain.ErrRevocationIncomplete, err)
	}

	return nil
}

// ExpireIfStale disconnects when the active identity has passed its expiry.
// It reports whether a disconnect ran.
func (s *SessionStore) ExpireIfStale(ctx context.Context) (bool, error) {
	s.mu.Lock()
	expired := s.op == opNone && s.state.Current != nil && s.state.Current.Expired(s.clock.Now())
	s.mu.Unlock()

	if !expired {
		return false, nil
	}

	s.logger.Info("wallet session expired")
	return true, s.Disconnect(ctx)
}

func (s *SessionStore) provider(kind domain.Provider) (ports.IdentityProvider, error) {
	provider, ok := s.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", domain.ErrUnknownProvider, kind)
	}
	return provider, nil
}

func (s *SessionStore) runAttempt(
	ctx context.Context,
	op sessionOp,
	provider ports.IdentityProvider,
	call func(context.Context) (*domain.Identity, error),
) (*domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.op != opNone {
		s.mu.Unlock()
		return nil, domain.ErrSessionBusy
	}
	if s.revoking[provider.Kind()] > 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: revoking a superseded %s session", domain.ErrSessionBusy, provider.Kind())
	}
	if s.state.Authenticated() {
		s.mu.Unlock()
		return nil, domain.ErrAlreadyAuthenticated
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	s.epoch++
	current := &attempt{id: uuid.NewString(), op: op, epoch: s.epoch, provider: provider}
	s.op = op
	s.pending = current
	s.cancel = cancel

	status := domain.StatusConnecting
	if op == opRestore {
		status = domain.StatusRestoring
	}
	s.commitLocked(domain.SessionState{Status: status, Pending: provider.Kind()}, current.id)
	s.mu.Unlock()
	s.dispatch()

	results := launch(attemptCtx, call)
	select {
	case res := <-results:
		cancel()
		return s.finishAttempt(current, res)
	case <-attemptCtx.Done():
		go s.discardLate(current, results)
		return s.abandonAttempt(current, attemptCtx.Err())
	}
}

func (s *SessionStore) finishAttempt(a *attempt, res outcome) (*domain.Identity, error) {
	s.mu.Lock()
	if s.epoch != a.epoch {
		s.mu.Unlock()
		if res.err == nil && res.identity != nil {
			go s.revokeStale(a)
		}
		return nil, domain.ErrSuperseded
	}

	s.op = opNone
	s.pending = nil
	s.cancel = nil

	identity, err := s.acceptResult(a, res)
	if err != nil || identity == nil {
		s.commitLocked(domain.SessionState{Status: domain.StatusUnauthenticated}, a.id)
		s.mu.Unlock()
		s.dispatch()
		return nil, err
	}

	s.active = a.provider
	s.commitLocked(domain.SessionState{Status: domain.StatusAuthenticated, Current: identity}, a.id)
	s.mu.Unlock()
	s.dispatch()

	out := *identity
	return &out, nil
}

// acceptResult validates an adapter outcome. A nil identity without error is
// only valid for restore.
func (s *SessionStore) acceptResult(a *attempt, res outcome) (*domain.Identity, error) {
	if res.err != nil {
		return nil, res.err
	}

	kind := a.provider.Kind()
	if res.identity == nil {
		if a.op == opConnect {
			return nil, domain.NewAuthError(kind, a.op.String(), domain.ErrMalformedResponse, errors.New("provider returned no identity"))
		}
		return nil, nil
	}

	identity := *res.identity
	if identity.IsZero() {
		return nil, domain.NewAuthError(kind, a.op.String(), domain.ErrMalformedResponse, errors.New("provider returned an empty principal"))
	}
	if identity.Provider == "" {
		identity.Provider = kind
	}
	if identity.Provider != kind {
		return nil, domain.NewAuthError(kind, a.op.String(), domain.ErrMalformedResponse, fmt.Errorf("identity issued by %s", identity.Provider))
	}
	if identity.AccountID == "" {
		identity.AccountID = string(identity.Principal)
	}
	if identity.ConnectedAt.IsZero() {
		identity.ConnectedAt = s.clock.Now()
	}

	return &identity, nil
}

func (s *SessionStore) abandonAttempt(a *attempt, cause error) (*domain.Identity, error) {
	s.mu.Lock()
	if s.epoch != a.epoch {
		s.mu.Unlock()
		return nil, domain.ErrSuperseded
	}

	s.op = opNone
	s.pending = nil
	s.cancel = nil
	s.commitLocked(domain.SessionState{Status: domain.StatusUnauthenticated}, a.id)
	s.mu.Unlock()
	s.dispatch()

	if errors.Is(cause, context.DeadlineExceeded) {
		return nil, domain.NewAuthError(a.provider.Kind(), a.op.String(), domain.ErrTimeout, cause)
	}
	return nil, cause
}

// discardLate waits for an abandoned adapter call and revokes any session it
// established after the fact.
func (s *SessionStore) discardLate(a *attempt, results <-chan outcome) {
	res := <-results
	if res.err != nil || res.identity == nil {
		s.logger.Debug("abandoned session attempt finished without a session",
			zap.String("attempt_id", a.id),
			zap.Error(res.err),
		)
		return
	}
	s.revokeStale(a)
}

func (s *SessionStore) revokeStale(a *attempt) {
	kind := a.provider.Kind()
	logger := s.logger.With(
		zap.String("attempt_id", a.id),
		zap.String("provider", string(kind)),
		zap.Stringer("op", a.op),
	)

	s.mu.Lock()
	inUse := s.state.Pending == kind || (s.state.Current != nil && s.state.Current.Provider == kind)
	if !inUse {
		s.revoking[kind]++
	}
	s.mu.Unlock()
	if inUse {
		logger.Info("discarded stale session result; provider session is in use by a newer attempt")
		return
	}
	defer func() {
		s.mu.Lock()
		s.revoking[kind]--
		if s.revoking[kind] == 0 {
			delete(s.revoking, kind)
		}
		s.mu.Unlock()
	}()

	logger.Info("discarding stale session result")

	ctx, cancel := context.WithTimeout(context.Background(), s.revokeTimeout)
	defer cancel()
	if _, err := await(ctx, func(ctx context.Context) (*domain.Identity, error) {
		return nil, a.provider.Disconnect(ctx)
	}); err != nil {
		logger.Warn("revoke stale provider session", zap.Error(err))
	}
}

// disconnectTargetsLocked picks the providers a disconnect must clear: the
// active one, else the pending one, else every registered provider.
func (s *SessionStore) disconnectTargetsLocked() []ports.IdentityProvider {
	if s.active != nil {
		return []ports.IdentityProvider{s.active}
	}
	if s.pending != nil {
		return []ports.IdentityProvider{s.pending.provider}
	}

	targets := make([]ports.IdentityProvider, 0, len(s.order))
	for _, kind := range s.order {
		targets = append(targets, s.providers[kind])
	}
	return targets
}

func (s *SessionStore) commitLocked(next domain.SessionState, attemptID string) {
	prev := s.state
	next.Version = prev.Version + 1
	s.state = next

	provider := next.Pending
	if next.Current != nil {
		provider = next.Current.Provider
	}
	s.logger.Debug("session transition",
		zap.String("from", string(prev.Status)),
		zap.String("to", string(next.Status)),
		zap.String("provider", string(provider)),
		zap.String("attempt_id", attemptID),
		zap.Uint64("version", next.Version),
	)

	s.queue = append(s.queue, cloneState(next))
}

// dispatch drains queued snapshots. Only one goroutine drains at a time, so
// listeners observe transitions in commit order.
func (s *SessionStore) dispatch() {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		listeners := append([]listenerEntry(nil), s.listeners...)
		s.mu.Unlock()

		for _, entry := range listeners {
			entry.fn(cloneState(next))
		}

		s.mu.Lock()
	}

	s.dispatching = false
	s.mu.Unlock()
}

func launch(ctx context.Context, call func(context.Context) (*domain.Identity, error)) <-chan outcome {
	results := make(chan outcome, 1)
	go func() {
		identity, err := call(ctx)
		results <- outcome{identity: identity, err: err}
	}()
	return results
}

// await runs call but returns as soon as ctx is done, even if call ignores it.
func await(ctx context.Context, call func(context.Context) (*domain.Identity, error)) (*domain.Identity, error) {
	select {
	case res := <-launch(ctx, call):
		return res.identity, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func cloneState(state domain.SessionState) domain.SessionState {
	if state.Current != nil {
		identity := *state.Current
		state.Current = &identity
	}
	return state
}
