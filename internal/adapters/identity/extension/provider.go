package extension

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pollrush/pollrush-wallet/internal/domain"
	"github.com/pollrush/pollrush-wallet/internal/ports"
)

// DefaultInstallURL is where users without the extension are sent.
const DefaultInstallURL = "https://plugwallet.ooo/"

type Option func(*Provider)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithClock(clock ports.Clock) Option {
	return func(p *Provider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// Provider authenticates through a browser wallet extension. The extension
// keeps its own session, so nothing is persisted here.
type Provider struct {
	prober     Prober
	installURL string
	clock      ports.Clock
	logger     *zap.Logger
}

var _ ports.IdentityProvider = (*Provider)(nil)

func NewProvider(prober Prober, installURL string, opts ...Option) *Provider {
	if installURL == "" {
		installURL = DefaultInstallURL
	}
	p := &Provider{
		prober:     prober,
		installURL: installURL,
		clock:      ports.SystemClock{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Kind() domain.Provider {
	return domain.ProviderExtension
}

// InstallURL is the page offered when the extension cannot be found.
func (p *Provider) InstallURL() string {
	return p.installURL
}

func (p *Provider) Connect(ctx context.Context) (domain.Identity, error) {
	wallet, err := p.probe(ctx, "connect")
	if err != nil {
		return domain.Identity{}, err
	}

	approved, err := wallet.RequestConnect(ctx)
	if err != nil {
		return domain.Identity{}, p.callError(ctx, "connect", fmt.Errorf("request connect: %w", err))
	}
	if !approved {
		return domain.Identity{}, p.authError("connect", domain.ErrUserRejected, errors.New("connection request declined"))
	}

	identity, err := p.readIdentity(ctx, wallet, "connect")
	if err != nil {
		return domain.Identity{}, err
	}

	p.logger.Debug("extension approved connection", zap.String("principal", string(identity.Principal)))
	return identity, nil
}

// RestoreSession reports a connection the user already approved, without
// prompting. A missing extension means there is nothing to restore.
func (p *Provider) RestoreSession(ctx context.Context) (*domain.Identity, error) {
	if p.prober == nil {
		return nil, nil
	}
	wallet, err := p.prober.Probe(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, p.contextError("restore", ctxErr)
		}
		if errors.Is(err, ErrNotInstalled) {
			return nil, nil
		}
		return nil, p.callError(ctx, "restore", err)
	}

	connected, err := wallet.IsConnected(ctx)
	if err != nil {
		return nil, p.callError(ctx, "restore", fmt.Errorf("check connection: %w", err))
	}
	if !connected {
		return nil, nil
	}

	identity, err := p.readIdentity(ctx, wallet, "restore")
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// Disconnect is a no-op when the extension is gone.
func (p *Provider) Disconnect(ctx context.Context) error {
	if p.prober == nil {
		return nil
	}
	wallet, err := p.prober.Probe(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p.contextError("disconnect", ctxErr)
		}
		if errors.Is(err, ErrNotInstalled) {
			return nil
		}
		return p.callError(ctx, "disconnect", err)
	}

	if err := wallet.Disconnect(ctx); err != nil {
		return p.callError(ctx, "disconnect", fmt.Errorf("disconnect wallet: %w", err))
	}
	return nil
}

func (p *Provider) probe(ctx context.Context, op string) (Wallet, error) {
	if p.prober == nil {
		return nil, p.authError(op, domain.ErrProviderUnavailable, ErrNotInstalled)
	}

	wallet, err := p.prober.Probe(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, p.contextError(op, ctxErr)
		}
		if errors.Is(err, ErrNotInstalled) {
			return nil, p.authError(op, domain.ErrProviderUnavailable, fmt.Errorf("%w; install it from %s", err, p.installURL))
		}
		return nil, p.callError(ctx, op, err)
	}
	return wallet, nil
}

func (p *Provider) readIdentity(ctx context.Context, wallet Wallet, op string) (domain.Identity, error) {
	principal, err := wallet.Principal(ctx)
	if err != nil {
		return domain.Identity{}, p.callError(ctx, op, fmt.Errorf("read principal: %w", err))
	}
	accountID, err := wallet.AccountID(ctx)
	if err != nil {
		return domain.Identity{}, p.callError(ctx, op, fmt.Errorf("read account id: %w", err))
	}

	identity, err := domain.NewIdentity(domain.ProviderExtension, principal, accountID, p.clock.Now())
	if err != nil {
		return domain.Identity{}, p.authError(op, domain.ErrMalformedResponse, err)
	}
	return identity, nil
}

// callError classifies a failed bridge call: context first, then bad
// payloads, and anything else as an unreachable extension.
func (p *Provider) callError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return p.contextError(op, ctxErr)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return p.authError(op, domain.ErrTimeout, err)
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		return p.authError(op, domain.ErrMalformedResponse, err)
	}
	return p.authError(op, domain.ErrProviderUnavailable, err)
}

func (p *Provider) contextError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return p.authError(op, domain.ErrTimeout, err)
	}
	return err
}

func (p *Provider) authError(op string, kind error, err error) error {
	return domain.NewAuthError(domain.ProviderExtension, op, kind, err)
}
