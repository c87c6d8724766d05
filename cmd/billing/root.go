package main

import (
	"subscription-billing/internal/config"
	"subscription-billing/internal/infra/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	dev        bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "billing",
		Short:         "Subscription billing service",
		Long:          "Bills recurring client subscriptions in USD, charges them in NGN through Paystack, and mails renewal reminders.",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "config.yaml", "path to YAML config file")
	root.PersistentFlags().BoolVar(&flags.dev, "dev", false, "enable developer mode (console logs, unredacted PII)")

	root.AddCommand(
		newServeCmd(flags),
		newMigrateCmd(flags),
		newSweepCmd(flags),
		newAdminCmd(flags),
	)
	return root
}

// load reads config and builds the root logger.
func (f *rootFlags) load() (*config.Config, *zerolog.Logger, error) {
	cfg, err := config.LoadConfig(f.configPath, f.dev)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	return cfg, logger, nil
}
