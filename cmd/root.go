package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pollrush/pollrush-wallet/internal/config"
	"github.com/pollrush/pollrush-wallet/internal/logger"
)

func Execute() error {
	return newRootCmd().Execute()
}

type rootOptions struct {
	cfgFile  string
	logLevel string
	app      *app
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "prw",
		Short:         "PollRush wallet (prw): connect a wallet and view token balances",
		Long:          "prw connects a PollRush wallet through Internet Identity or the Plug extension, shows the session and token balances, and serves the session to local clients.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.wire(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default ~/.pollrush/config.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, or error")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConnectCmd(opts),
		newDisconnectCmd(opts),
		newStatusCmd(opts),
		newBalancesCmd(opts),
		newLedgerCmd(opts),
		newServeCmd(opts),
	)

	return rootCmd
}

func (o *rootOptions) wire(cmd *cobra.Command) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	cfg, err := config.Load(o.cfgFile, homeDir)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	log := logger.NewWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	wired, err := wireApp(cmd.Context(), cfg, log, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	o.app = wired

	return nil
}
