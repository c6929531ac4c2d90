package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pollrush/pollrush-wallet/internal/adapters/httpapi"
	"github.com/pollrush/pollrush-wallet/internal/domain"
)

const (
	shutdownTimeout     = 10 * time.Second
	expiryCheckInterval = 30 * time.Second
)

// registryBalances builds an aggregator per request so ledger edits made
// while serving are picked up.
type registryBalances struct {
	app *app
}

func (r registryBalances) Balances(ctx context.Context, identity domain.Identity) (domain.BalanceReport, error) {
	aggregator, err := r.app.aggregator(ctx)
	if err != nil {
		return domain.BalanceReport{}, err
	}
	return aggregator.Balances(ctx, identity)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the wallet session and balances over HTTP on loopback",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app
			if addr == "" {
				addr = a.cfg.Serve.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			store := a.session(ctx)
			handler := httpapi.NewHandler(store, registryBalances{app: a}, a.extension.InstallURL(), a.logger.Named("http"))
			e := httpapi.NewServer(handler, a.logger.Named("http"))

			a.logger.Info("starting wallet session server", zap.String("address", addr))

			g, gCtx := errgroup.WithContext(ctx)

			g.Go(func() error {
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-gCtx.Done()
				a.logger.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return e.Shutdown(shutdownCtx)
			})

			g.Go(func() error {
				ticker := time.NewTicker(expiryCheckInterval)
				defer ticker.Stop()
				for {
					select {
					case <-gCtx.Done():
						return nil
					case <-ticker.C:
						if _, err := store.ExpireIfStale(gCtx); err != nil {
							a.logger.Warn("expire stale session", zap.Error(err))
						}
					}
				}
			})

			if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			a.logger.Info("server exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from serve.addr)")

	return cmd
}
