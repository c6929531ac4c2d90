package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pollrush/pollrush-wallet/internal/domain"
)

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Manage the token ledgers balances are read from",
	}

	cmd.AddCommand(
		newLedgerListCmd(opts),
		newLedgerAddCmd(opts),
		newLedgerRemoveCmd(opts),
	)

	return cmd
}

func newLedgerListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured ledgers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledgers, err := opts.app.ledgers.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(ledgers) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No ledgers configured.")
				return err
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("SYMBOL", "LEDGER", "DECIMALS", "OWNER", "ENDPOINT")
			for _, ledger := range ledgers {
				t.Row(ledger.Symbol, string(ledger.Ref), strconv.Itoa(int(ledger.Decimals)), string(ledger.Owner), ledger.Endpoint)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err
		},
	}
}

func newLedgerAddCmd(opts *rootOptions) *cobra.Command {
	var (
		ref      string
		symbol   string
		decimals uint8
		owner    string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a ledger",
		Example: `  prw ledger add --ref ryjl3-tyaaa-aaaaa-aaaba-cai --symbol ICP --decimals 8 --owner account_id`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger := domain.Ledger{
				Ref:      domain.LedgerRef(ref),
				Symbol:   symbol,
				Decimals: decimals,
				Owner:    domain.OwnerKind(owner),
				Endpoint: endpoint,
			}
			if err := opts.app.ledgers.Save(cmd.Context(), ledger); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Saved ledger %s (%s) to %s\n", ledger.Symbol, ledger.Ref, opts.app.ledgerPath)
			return err
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "ledger canister id")
	cmd.Flags().StringVar(&symbol, "symbol", "", "token symbol")
	cmd.Flags().Uint8Var(&decimals, "decimals", 8, "decimal places of the token")
	cmd.Flags().StringVar(&owner, "owner", string(domain.OwnerPrincipal), "owner form the ledger expects: principal or account_id")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "balance endpoint overriding ledgers.base_url")
	_ = cmd.MarkFlagRequired("ref")
	_ = cmd.MarkFlagRequired("symbol")

	return cmd
}

func newLedgerRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <ref>",
		Aliases: []string{"rm"},
		Short:   "Remove a ledger",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := domain.LedgerRef(args[0])
			if err := opts.app.ledgers.Delete(cmd.Context(), ref); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed ledger %s\n", ref)
			return err
		},
	}
}
