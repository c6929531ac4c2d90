package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

const defaultConnectTimeout = 5 * time.Minute

func newConnectCmd(opts *rootOptions) *cobra.Command {
	var (
		providerFlag string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a wallet through Internet Identity or the Plug extension",
		Long: `Connect a wallet through Internet Identity or the Plug extension.

An Internet Identity delegation is stored and restored by later commands.
A Plug connection is never restored on startup, so it lasts only for the
process that made it. Plug users should run ` + "`prw serve`" + ` and connect
through its API to keep the session.`,
		Example: `  prw connect
  prw connect --provider plug`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, err := domain.ParseProvider(providerFlag)
			if err != nil {
				return err
			}
			if timeout <= 0 {
				return errors.New("--timeout must be positive")
			}

			ctx := cmd.Context()
			store := opts.app.session(ctx)
			out := cmd.OutOrStdout()

			unsubscribe := store.Subscribe(func(state domain.SessionState) {
				if state.Status == domain.StatusConnecting {
					_, _ = fmt.Fprintf(out, "Waiting for %s...\n", state.Pending.Label())
				}
			})
			defer unsubscribe()

			connectCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			identity, err := store.BeginConnect(connectCtx, provider)
			if err != nil {
				if provider == domain.ProviderExtension && errors.Is(err, domain.ErrProviderUnavailable) {
					_, _ = fmt.Fprintf(out, "Plug was not found. Install it from %s and try again.\n", opts.app.extension.InstallURL())
				}
				return err
			}

			if _, err = fmt.Fprintf(out, "Connected with %s as %s\n", identity.Provider.Label(), identity.Principal); err != nil {
				return err
			}
			if identity.Provider == domain.ProviderExtension {
				_, err = fmt.Fprintln(out, "Plug sessions end with this command; run `prw serve` to keep one open.")
			}
			return err
		},
	}

	cmd.Flags().StringVar(&providerFlag, "provider", string(domain.ProviderDelegated), "identity provider: delegated (ii) or extension (plug)")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultConnectTimeout, "how long to wait for the user to approve")

	return cmd
}
