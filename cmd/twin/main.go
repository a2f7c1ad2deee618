package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/twin-engine/internal/config"
)

// #region app

// app carries configuration shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var dbPath, logLevel string

	root := &cobra.Command{
		Use:           "twin",
		Short:         "Digital twin lifestyle simulation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			a.cfg = cfg
			a.logger = cfg.NewLogger(os.Stderr)
			slog.SetDefault(a.logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "run journal path (overrides TWIN_DB_PATH)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (overrides TWIN_LOG_LEVEL)")

	root.AddCommand(
		newReplCmd(a),
		newServeCmd(a),
		newInspectCmd(a),
		newReplayCmd(a),
		newRemoteCmd(a),
	)
	return root
}

// #endregion app

// #region main
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main
