package cmd

import (
	"os"

	"dailyjournal/config"
	"dailyjournal/pkg/logger"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string

	cfg *config.Config
}

// NewRootCommand creates the journal CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "journal",
		Short:         "Daily journal backend",
		Long:          "Serves the daily journal: live entry feeds over WebSocket and a small REST API backed by Postgres.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				// Not fatal; the OS environment still applies.
				logger.Sugar.Info("No .env file found, using environment variables from OS")
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
			opts.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		logger.Sugar.Errorf("%v", err)
		logger.Sync()
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
