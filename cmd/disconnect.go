package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

func newDisconnectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect the wallet and forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store := opts.app.session(ctx)
			out := cmd.OutOrStdout()

			previous, wasConnected := store.State().Identity()

			err := store.Disconnect(ctx)
			if err != nil && !errors.Is(err, domain.ErrRevocationIncomplete) {
				return err
			}
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			if !wasConnected {
				_, err = fmt.Fprintln(out, "No wallet connected.")
				return err
			}
			_, err = fmt.Fprintf(out, "Disconnected %s (%s)\n", previous.Principal, previous.Provider.Label())
			return err
		},
	}
}
