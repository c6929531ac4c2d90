package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/pollrush/pollrush-wallet/internal/adapters/render/status"
	"github.com/pollrush/pollrush-wallet/internal/domain"
)

type balanceJSON struct {
	Symbol  string           `json:"symbol"`
	Ledger  domain.LedgerRef `json:"ledger"`
	Units   uint64           `json:"units"`
	Display string           `json:"display"`
}

type balanceFailureJSON struct {
	Symbol string           `json:"symbol"`
	Ledger domain.LedgerRef `json:"ledger"`
	Error  string           `json:"error"`
}

type balancesJSON struct {
	Owner     domain.Principal     `json:"owner"`
	FetchedAt time.Time            `json:"fetched_at"`
	Partial   bool                 `json:"partial"`
	Balances  []balanceJSON        `json:"balances"`
	Failures  []balanceFailureJSON `json:"failures,omitempty"`
}

func newBalancesCmd(opts *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		fixed      bool
	)

	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show token balances for the connected wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			state := opts.app.session(ctx).State()
			identity, ok := state.Identity()
			if !ok {
				return fmt.Errorf("%w: run `prw connect` first", domain.ErrNotAuthenticated)
			}

			aggregator, err := opts.app.aggregator(ctx)
			if err != nil {
				return err
			}

			var report domain.BalanceReport
			if jsonOutput {
				report, err = aggregator.Balances(ctx, identity)
			} else {
				report, err = waitWithSpinner(ctx, cmd.ErrOrStderr(), "Fetching balances...", func(ctx context.Context) (domain.BalanceReport, error) {
					return aggregator.Balances(ctx, identity)
				})
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				payload, err := json.MarshalIndent(toBalancesJSON(report), "", "  ")
				if err != nil {
					return fmt.Errorf("encode balances: %w", err)
				}
				_, err = fmt.Fprintln(out, string(payload))
				return err
			}

			rendered, err := statusadapter.Render(
				statusadapter.Snapshot{State: state, Balances: &report},
				statusadapter.RenderOptions{Now: opts.app.now(), Fixed: fixed},
			)
			if err != nil {
				return fmt.Errorf("render balances: %w", err)
			}
			_, err = fmt.Fprintln(out, rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print balances as JSON")
	cmd.Flags().BoolVar(&fixed, "fixed", false, "print every decimal place instead of trimming zeros")

	return cmd
}

func toBalancesJSON(report domain.BalanceReport) balancesJSON {
	payload := balancesJSON{
		Owner:     report.Owner,
		FetchedAt: report.FetchedAt,
		Partial:   report.Partial(),
		Balances:  make([]balanceJSON, 0, len(report.Balances)),
	}
	for _, balance := range report.Balances {
		payload.Balances = append(payload.Balances, balanceJSON{
			Symbol:  balance.Symbol,
			Ledger:  balance.Ledger,
			Units:   balance.Amount.Units,
			Display: balance.Amount.String(),
		})
	}
	for _, failure := range report.Failures {
		payload.Failures = append(payload.Failures, balanceFailureJSON{
			Symbol: failure.Symbol,
			Ledger: failure.Ledger,
			Error:  failure.Err.Error(),
		})
	}
	return payload
}
