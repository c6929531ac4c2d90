package cmd

import (
	"context"
	"crypto"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	chainstore "github.com/pollrush/pollrush-wallet/internal/adapters/credentials/chain"
	filestore "github.com/pollrush/pollrush-wallet/internal/adapters/credentials/file"
	passstore "github.com/pollrush/pollrush-wallet/internal/adapters/credentials/pass"
	"github.com/pollrush/pollrush-wallet/internal/adapters/identity/delegated"
	"github.com/pollrush/pollrush-wallet/internal/adapters/identity/extension"
	"github.com/pollrush/pollrush-wallet/internal/adapters/ledger/httpledger"
	tomlrepo "github.com/pollrush/pollrush-wallet/internal/adapters/repo/toml"
	"github.com/pollrush/pollrush-wallet/internal/application"
	"github.com/pollrush/pollrush-wallet/internal/config"
	"github.com/pollrush/pollrush-wallet/internal/domain"
	"github.com/pollrush/pollrush-wallet/internal/ports"
)

type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	store        *application.SessionStore
	bootstrapper *application.Bootstrapper
	extension    *extension.Provider
	ledgers      ports.LedgerRepository
	ledgerPath   string
	ledgerClient ports.LedgerClient
	now          func() time.Time
}

// wireApp composes the adapters selected by cfg. Authorization URLs for the
// delegated provider are printed to out.
func wireApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) (*app, error) {
	credentials, err := newCredentialStore(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("wire credential store: %w", err)
	}

	ledgers, err := tomlrepo.NewRepository(cfg.Ledgers.Path)
	if err != nil {
		return nil, fmt.Errorf("wire ledger registry: %w", err)
	}
	configured, err := ledgers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledgers: %w", err)
	}

	var verifyKey crypto.PublicKey
	if cfg.Delegated.VerifyKeyFile != "" {
		verifyKey, err = delegated.LoadVerifyKey(cfg.Delegated.VerifyKeyFile)
		if err != nil {
			return nil, fmt.Errorf("wire delegated provider: %w", err)
		}
	}

	delegatedProvider := &delegated.Provider{
		Config: delegated.Config{
			IdentityProviderURL: cfg.Delegated.IdentityProviderURL,
			ClientID:            cfg.Delegated.ClientID,
			ListenAddr:          cfg.Delegated.ListenAddr,
			AuthorizePath:       cfg.Delegated.AuthorizePath,
			TokenPath:           cfg.Delegated.TokenPath,
			RevokePath:          cfg.Delegated.RevokePath,
			RequestTimeout:      cfg.Delegated.RequestTimeout,
		},
		Credentials: credentials,
		Opener:      printOpener(out),
		Logger:      logger.Named("delegated"),
		VerifyKey:   verifyKey,
	}

	whitelist := make([]string, 0, len(configured))
	for _, ledger := range configured {
		whitelist = append(whitelist, string(ledger.Ref))
	}
	extensionProvider := extension.NewProvider(
		&extension.BridgeClient{
			BaseURL:        cfg.Extension.BridgeURL,
			RequestTimeout: cfg.Extension.RequestTimeout,
			Whitelist:      whitelist,
		},
		cfg.Extension.InstallURL,
		extension.WithLogger(logger.Named("extension")),
	)

	store := application.NewSessionStore(
		[]ports.IdentityProvider{delegatedProvider, extensionProvider},
		application.WithLogger(logger.Named("session")),
		application.WithRevokeTimeout(cfg.Session.RevokeTimeout),
	)

	// Extension sessions are never restored silently; only a stored
	// delegation is restored at startup.
	bootstrapper := application.NewBootstrapper(store, domain.ProviderDelegated, cfg.Delegated.RestoreTimeout,
		application.WithBootstrapLogger(logger.Named("bootstrap")),
	)

	return &app{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		bootstrapper: bootstrapper,
		extension:    extensionProvider,
		ledgers:      ledgers,
		ledgerPath:   ledgers.Path(),
		ledgerClient: httpledger.New(cfg.Ledgers.BaseURL, http.DefaultClient),
		now:          time.Now,
	}, nil
}

func newCredentialStore(cfg config.CredentialsConfig) (ports.CredentialStore, error) {
	switch cfg.Backend {
	case "file":
		return filestore.NewStore(cfg.Dir), nil
	case "pass":
		return passstore.NewStore(), nil
	default:
		return chainstore.NewPassFirstWithFileFallback(cfg.Dir)
	}
}

// session returns the store after the one-shot startup restore has run.
func (a *app) session(ctx context.Context) *application.SessionStore {
	result := a.bootstrapper.Run(ctx)
	if result.Err != nil {
		a.logger.Debug("starting without a session", zap.Error(result.Err))
	}
	if _, err := a.store.ExpireIfStale(ctx); err != nil {
		a.logger.Warn("expire stale session", zap.Error(err))
	}
	return a.store
}

// aggregator reads the ledger registry fresh, so edits apply to the next
// query.
func (a *app) aggregator(ctx context.Context) (*application.BalanceAggregator, error) {
	ledgers, err := a.ledgers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledgers: %w", err)
	}

	return application.NewBalanceAggregator(ledgers, a.ledgerClient,
		application.WithQueryTimeout(a.cfg.Ledgers.QueryTimeout),
		application.WithMaxConcurrency(a.cfg.Ledgers.MaxConcurrency),
		application.WithAggregatorLogger(a.logger.Named("balances")),
	), nil
}

func printOpener(out io.Writer) delegated.Opener {
	return delegated.OpenerFunc(func(_ context.Context, authURL string) error {
		_, err := fmt.Fprintf(out, "Open this URL in your browser to sign in:\n\n  %s\n\n", authURL)
		return err
	})
}
