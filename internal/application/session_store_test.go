package application

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pollrush/pollrush-wallet/internal/domain"
	"github.com/pollrush/pollrush-wallet/internal/ports"
	"github.com/pollrush/pollrush-wallet/internal/ports/mocks"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testIdentity(provider domain.Provider, principal string) domain.Identity {
	return domain.Identity{
		Principal:   domain.Principal(principal),
		AccountID:   principal + "-account",
		Provider:    provider,
		ConnectedAt: testNow,
	}
}

func TestSessionStoreConnectSuccess(t *testing.T) {
	provider := mocks.NewMockIdentityProvider(t)
	provider.EXPECT().Kind().Return(domain.ProviderDelegated)
	identity := testIdentity(domain.ProviderDelegated, "p-1")
	provider.EXPECT().Connect(mockAnyContext()).Return(identity, nil).Once()

	store := NewSessionStore([]ports.IdentityProvider{provider})
	rec := &recorder{}
	store.Subscribe(rec.listen)

	got, err := store.BeginConnect(context.Background(), domain.ProviderDelegated)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	state := store.State()
	require.True(t, state.Authenticated())
	assert.Equal(t, identity, *state.Current)
	assert.Equal(t, uint64(2), state.Version)

	assert.Equal(t, []domain.SessionStatus{domain.StatusConnecting, domain.StatusAuthenticated}, rec.statuses())
	assert.Equal(t, domain.ProviderDelegated, rec.snapshot()[0].Pending)
}

func TestSessionStoreConnectFailureReturnsError(t *testing.T) {
	provider := mocks.NewMockIdentityProvider(t)
	provider.EXPECT().Kind().Return(domain.ProviderExtension)
	rejected := domain.NewAuthError(domain.ProviderExtension, "connect", domain.ErrUserRejected, nil)
	provider.EXPECT().Connect(mockAnyContext()).Return(domain.Identity{}, rejected).Once()

	store := NewSessionStore([]ports.IdentityProvider{provider})

	_, err := store.BeginConnect(context.Background(), domain.ProviderExtension)
	require.ErrorIs(t, err, domain.ErrUserRejected)

	state := store.State()
	assert.Equal(t, domain.StatusUnauthenticated, state.Status)
	assert.Nil(t, state.Current)
}

func TestSessionStoreConnectFillsIdentityDefaults(t *testing.T) {
	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(testNow)

	provider := mocks.NewMockIdentityProvider(t)
	provider.EXPECT().Kind().Return(domain.ProviderDelegated)
	provider.EXPECT().Connect(mockAnyContext()).Return(domain.Identity{Principal: "p-2"}, nil).Once()

	store := NewSessionStore([]ports.IdentityProvider{provider}, WithClock(clock))

	got, err := store.BeginConnect(context.Background(), domain.ProviderDelegated)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{
		Principal:   "p-2",
		AccountID:   "p-2",
		Provider:    domain.ProviderDelegated,
		ConnectedAt: testNow,
	}, got)
}

func TestSessionStoreConnectRejectsEmptyPrincipal(t *testing.T) {
	provider := mocks.NewMockIdentityProvider(t)
	provider.EXPECT().Kind().Return(domain.ProviderExtension)
	provider.EXPECT().Connect(mockAnyContext()).Return(domain.Identity{}, nil).Once()

	store := NewSessionStore([]ports.IdentityProvider{provider})

	_, err := store.BeginConnect(context.Background(), domain.ProviderExtension)
	require.ErrorIs(t, err, domain.ErrMalformedResponse)
	assert.Equal(t, domain.StatusUnauthenticated, store.State().Status)
}

func TestSessionStoreConnectUnknownProvider(t *testing.T) {
	store := NewSessionStore(nil)

	_, err := store.BeginConnect(context.Background(), domain.ProviderExtension)
	require.ErrorIs(t, err, domain.ErrUnknownProvider)
	assert.Equal(t, uint64(0), store.State().Version)
}

func TestSessionStoreConnectWhileAuthenticatedFails(t *testing.T) {
	provider := mocks.NewMockIdentityProvider(t)
	provider.EXPECT().Kind().Return(domain.ProviderDelegated)
	provider.EXPECT().Connect(mockAnyContext()).Return(testIdentity(domain.ProviderDelegated, "p-1"), nil).Once()

	store := NewSessionStore([]ports.IdentityProvider{provider})
	_, err := store.BeginConnect(context.Background(), domain.ProviderDelegated)
	require.NoError(t, err)

	_, err = store.BeginConnect(context.Background(), domain.ProviderDelegated)
	require.ErrorIs(t, err, domain.ErrAlreadyAuthenticated)
	assert.True(t, store.State().Authenticated())
}

func TestSessionStoreSecondConnectIsBusy(t *testing.T) {
	identity := testIdentity(domain.ProviderExtension, "p-ext")
	slow := newBlockingProvider(domain.ProviderExtension, &identity)
	other := newBlockingProvider(domain.ProviderDelegated, nil)
	store := NewSessionStore([]ports.IdentityProvider{slow, other})

	done := make(chan error, 1)
	go func() {
		_, err := store.BeginConnect(context.Background(), domain.ProviderExtension)
		done <- err
	}()
	<-slow.started

	before := store.State()
	require.Equal(t, domain.StatusConnecting, before.Status)

	_, err := store.BeginConnect(context.Background(), domain.ProviderDelegated)
	require.ErrorIs(t, err, domain.ErrSessionBusy)

	_, err = store.Restore(context.Background(), domain.ProviderDelegated)
	require.ErrorIs(t, err, domain.ErrSessionBusy)

	assert.Equal(t, before, store.State())

	close(slow.release)
	require.NoError(t, <-done)
	assert.True(t, store.State().Authenticated())
}

func TestSessionStoreDisconnectAlwaysEndsUnauthenticated(t *testing.T) {
	provider := mocks.NewMockIdentityProvider(t)
	provider.EXPECT().Kind().Return(domain.ProviderDelegated)
	provider.EXPECT().Connect(mockAnyContext()).Return(testIdentity(domain.ProviderDelegated, "p-1"), nil).Once()
	revokeErr := errors.New("revoke endpoint returned 500")
	provider.EXPECT().Disconnect(mockAnyContext()).Return(revokeErr).Once()

	core, logs := observer.New(zapcore.WarnLevel)
	store := NewSessionStore([]ports.IdentityProvider{provider}, WithLogger(zap.New(core)))
	_, err := store.BeginConnect(context.Background(), domain.ProviderDelegated)
	require.NoError(t, err)

	rec := &recorder{}
	store.Subscribe(rec.listen)

	err = store.Disconnect(context.Background())
	require.ErrorIs(t, err, domain.ErrRevocationIncomplete)
	require.ErrorIs(t, err, revokeErr)

	state := store.State()
	assert.Equal(t, domain.StatusUnauthenticated, state.Status)
	assert.Nil(t, state.Current)
	assert.Equal(t, []domain.SessionStatus{domain.StatusDisconnecting, domain.StatusUnauthenticated}, rec.statuses())
	assert.Equal(t, 1, logs.FilterMessage("provider revocation may be incomplete").Len())
}

func TestSessionStoreDisconnectWhenIdleClearsEveryProvider(t *testing.T) {
	delegated := newBlockingProvider(domain.ProviderDelegated, nil)
	extension := newBlockingProvider(domain.ProviderExtension, nil)
	store := NewSessionStore([]ports.IdentityProvider{delegated, extension})

	require.NoError(t, store.Disconnect(context.Background()))

	assert.Equal(t, int32(1), delegated.disconnects.Load())
	assert.Equal(t, int32(1), extension.disconnects.Load())
	assert.Equal(t, domain.StatusUnauthenticated, store.State().Status)
}

func TestSessionStoreDisconnectSupersedesPendingConnect(t *testing.T) {
	identity := testIdentity(domain.ProviderExtension, "late")
	provider := newBlockingProvider(domain.ProviderExtension, &identity)
	provider.ignoreContext = true

	core, logs := observer.New(zapcore.DebugLevel)
	store := NewSessionStore([]ports.IdentityProvider{provider}, WithLogger(zap.New(core)))
	rec := &recorder{}
	store.Subscribe(rec.listen)

	done := make(chan error, 1)
	go func() {
		_, err := store.BeginConnect(context.Background(), domain.ProviderExtension)
		done <- err
	}()
	<-provider.started

	require.NoError(t, store.Disconnect(context.Background()))
	require.ErrorIs(t, <-done, domain.ErrSuperseded)

	close(provider.release)

	// One disconnect from the store, one revoking the late session.
	require.Eventually(t, func() bool { return provider.disconnects.Load() == 2 }, 2*time.Second, 5*time.Millisecond)

	state := store.State()
	assert.Equal(t, domain.StatusUnauthenticated, state.Status)
	assert.Nil(t, state.Current)
	for _, seen := range rec.snapshot() {
		assert.NotEqual(t, domain.StatusAuthenticated, seen.Status)
	}
	assert.Equal(t, 1, logs.FilterMessage("discarding stale session result").Len())
}

func TestSessionStoreReconnectWaitsForStaleRevocation(t *testing.T) {
	identity := testIdentity(domain.ProviderExtension, "approved")
	provider := newBlockingProvider(domain.ProviderExtension, &identity)
	provider.ignoreContext = true
	// The first Disconnect is the user's; the second revokes the late session.
	gated := &gatedRevoke{
		blockingProvider: provider,
		gateAt:           2,
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	store := NewSessionStore([]ports.IdentityProvider{gated}, WithRevokeTimeout(5*time.Second))

	done := make(chan error, 1)
	go func() {
		_, err := store.BeginConnect(context.Background(), domain.ProviderExtension)
		done <- err
	}()
	<-provider.started

	require.NoError(t, store.Disconnect(context.Background()))
	require.ErrorIs(t, <-done, domain.ErrSuperseded)

	close(provider.release)
	<-gated.entered

	_, err := store.BeginConnect(context.Background(), domain.ProviderExtension)
	require.ErrorIs(t, err, domain.ErrSessionBusy)
	assert.Equal(t, domain.StatusUnauthenticated, store.State().Status)

	close(gated.release)

	require.Eventually(t, func() bool {
		_, err := store.BeginConnect(context.Background(), domain.ProviderExtension)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	state := store.State()
	assert.Equal(t, domain.StatusAuthenticated, state.Status)
	require.NotNil(t, state.Current)
	assert.Equal(t, domain.Principal("approved"), state.Current.Principal)
	// Nothing revoked the new session.
	assert.Equal(t, int32(2), gated.calls.Load())
}

func TestSessionStoreConcurrentDisconnectIsBusy(t *testing.T) {
	hanging := &hangingDisconnect{
		blockingProvider: newBlockingProvider(domain.ProviderDelegated, nil),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	store := NewSessionStore([]ports.IdentityProvider{hanging})

	done := make(chan error, 1)
	go func() { done <- store.Disconnect(context.Background()) }()
	<-hanging.entered

	err := store.Disconnect(context.Background())
	require.ErrorIs(t, err, domain.ErrSessionBusy)
	assert.Equal(t, domain.StatusDisconnecting, store.State().Status)

	close(hanging.release)
	require.NoError(t, <-done)
	assert.Equal(t, domain.StatusUnauthenticated, store.State().Status)
}

func TestSessionStoreConnectCancelledByCaller(t *testing.T) {
	provider := newBlockingProvider(domain.ProviderDelegated, nil)
	provider.ignoreContext = true
	store := NewSessionStore([]ports.IdentityProvider{provider})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := store.BeginConnect(ctx, domain.ProviderDelegated)
	require.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, domain.StatusUnauthenticated, store.State().Status)

	close(provider.release)
}

func TestSessionStoreRestore(t *testing.T) {
	identity := testIdentity(domain.ProviderDelegated, "restored")

	provider := mocks.NewMockIdentityProvider(t)
	provider.EXPECT().Kind().Return(domain.ProviderDelegated)
	provider.EXPECT().RestoreSession(mockAnyContext()).Return(&identity, nil).Once()

	store := NewSessionStore([]ports.IdentityProvider{provider})
	rec := &recorder{}
	store.Subscribe(rec.listen)

	got, err := store.Restore(context.Background(), domain.ProviderDelegated)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, identity, *got)
	assert.Equal(t, []domain.SessionStatus{domain.StatusRestoring, domain.StatusAuthenticated}, rec.statuses())
}

func TestSessionStoreRestoreWithoutPriorSession(t *testing.T) {
	provider := mocks.NewMockIdentityProvider(t)
	provider.EXPECT().Kind().Return(domain.ProviderDelegated)
	provider.EXPECT().RestoreSession(mockAnyContext()).Return(nil, nil).Once()

	store := NewSessionStore([]ports.IdentityProvider{provider})

	got, err := store.Restore(context.Background(), domain.ProviderDelegated)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, domain.StatusUnauthenticated, store.State().Status)
}

func TestSessionStoreListenersSeeCommitOrderAndMayReenter(t *testing.T) {
	provider := mocks.NewMockIdentityProvider(t)
	provider.EXPECT().Kind().Return(domain.ProviderDelegated)
	provider.EXPECT().Connect(mockAnyContext()).Return(testIdentity(domain.ProviderDelegated, "p-1"), nil).Once()
	provider.EXPECT().Disconnect(mockAnyContext()).Return(nil).Once()

	store := NewSessionStore([]ports.IdentityProvider{provider})

	var versions []uint64
	var reentered []domain.SessionStatus
	store.Subscribe(func(state domain.SessionState) {
		versions = append(versions, state.Version)
		// The committed state is visible to listeners.
		reentered = append(reentered, store.State().Status)
		if state.Authenticated() {
			require.NotNil(t, state.Current)
			require.NoError(t, store.Disconnect(context.Background()))
		}
	})

	_, err := store.BeginConnect(context.Background(), domain.ProviderDelegated)
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2, 3, 4}, versions)
	assert.Equal(t, domain.StatusUnauthenticated, store.State().Status)
	assert.Len(t, reentered, 4)
}

func TestSessionStoreUnsubscribe(t *testing.T) {
	store := NewSessionStore([]ports.IdentityProvider{newBlockingProvider(domain.ProviderDelegated, nil)})

	rec := &recorder{}
	unsubscribe := store.Subscribe(rec.listen)
	require.NoError(t, store.Disconnect(context.Background()))
	unsubscribe()
	unsubscribe()
	require.NoError(t, store.Disconnect(context.Background()))

	assert.Len(t, rec.snapshot(), 2)
}

func TestSessionStoreExpireIfStale(t *testing.T) {
	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(testNow.Add(2 * time.Hour))

	identity := testIdentity(domain.ProviderDelegated, "p-1").WithExpiry(testNow.Add(time.Hour))
	provider := mocks.NewMockIdentityProvider(t)
	provider.EXPECT().Kind().Return(domain.ProviderDelegated)
	provider.EXPECT().RestoreSession(mockAnyContext()).Return(&identity, nil).Once()
	provider.EXPECT().Disconnect(mockAnyContext()).Return(nil).Once()

	store := NewSessionStore([]ports.IdentityProvider{provider}, WithClock(clock))
	_, err := store.Restore(context.Background(), domain.ProviderDelegated)
	require.NoError(t, err)

	expired, err := store.ExpireIfStale(context.Background())
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Equal(t, domain.StatusUnauthenticated, store.State().Status)
}

// Random sequences of connect and disconnect never break the identity
// invariant in any observed snapshot.
func TestSessionStoreInvariantHoldsAcrossSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 20; run++ {
		delegatedID := testIdentity(domain.ProviderDelegated, "d")
		extensionID := testIdentity(domain.ProviderExtension, "e")
		delegated := newBlockingProvider(domain.ProviderDelegated, &delegatedID)
		extension := newBlockingProvider(domain.ProviderExtension, &extensionID)
		close(delegated.release)
		close(extension.release)
		if rng.Intn(2) == 0 {
			extension.err = domain.NewAuthError(domain.ProviderExtension, "connect", domain.ErrUserRejected, nil)
		}

		store := NewSessionStore([]ports.IdentityProvider{delegated, extension})
		var violations []error
		store.Subscribe(func(state domain.SessionState) {
			if err := state.Validate(); err != nil {
				violations = append(violations, err)
			}
		})

		for step := 0; step < 30; step++ {
			switch rng.Intn(3) {
			case 0:
				_, _ = store.BeginConnect(context.Background(), domain.ProviderDelegated)
			case 1:
				_, _ = store.BeginConnect(context.Background(), domain.ProviderExtension)
			default:
				require.NoError(t, store.Disconnect(context.Background()))
				require.Equal(t, domain.StatusUnauthenticated, store.State().Status)
			}
			require.NoError(t, store.State().Validate())
		}

		require.Empty(t, violations)
	}
}

type hangingDisconnect struct {
	*blockingProvider
	entered chan struct{}
	release chan struct{}
}

func (h *hangingDisconnect) Disconnect(ctx context.Context) error {
	close(h.entered)
	<-h.release
	return h.blockingProvider.Disconnect(ctx)
}

// gatedRevoke parks the gateAt-th Disconnect until released.
type gatedRevoke struct {
	*blockingProvider
	gateAt  int32
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRevoke) Disconnect(ctx context.Context) error {
	if g.calls.Add(1) == g.gateAt {
		close(g.entered)
		<-g.release
	}
	return g.blockingProvider.Disconnect(ctx)
}
