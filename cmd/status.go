package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/pollrush/pollrush-wallet/internal/adapters/render/status"
	"github.com/pollrush/pollrush-wallet/internal/domain"
)

type statusJSON struct {
	Status      domain.SessionStatus `json:"status"`
	Provider    domain.Provider      `json:"provider,omitempty"`
	Principal   domain.Principal     `json:"principal,omitempty"`
	AccountID   string               `json:"account_id,omitempty"`
	ConnectedAt *time.Time           `json:"connected_at,omitempty"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the wallet session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			state := opts.app.session(cmd.Context()).State()
			out := cmd.OutOrStdout()

			if jsonOutput {
				payload, err := json.MarshalIndent(toStatusJSON(state), "", "  ")
				if err != nil {
					return fmt.Errorf("encode status: %w", err)
				}
				_, err = fmt.Fprintln(out, string(payload))
				return err
			}

			rendered, err := statusadapter.Render(statusadapter.Snapshot{State: state}, statusadapter.RenderOptions{Now: opts.app.now()})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}
			_, err = fmt.Fprintln(out, rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the session as JSON")

	return cmd
}

func toStatusJSON(state domain.SessionState) statusJSON {
	payload := statusJSON{Status: state.Status}
	identity, ok := state.Identity()
	if !ok {
		return payload
	}

	payload.Provider = identity.Provider
	payload.Principal = identity.Principal
	payload.AccountID = identity.AccountID
	connectedAt := identity.ConnectedAt
	payload.ConnectedAt = &connectedAt
	if !identity.ExpiresAt.IsZero() {
		expiresAt := identity.ExpiresAt
		payload.ExpiresAt = &expiresAt
	}
	return payload
}
