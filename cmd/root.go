// Package cmd defines and implements the CLI commands for the regsync
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openregs/regsync/internal/app"
	"github.com/openregs/regsync/internal/config"
	"github.com/openregs/regsync/internal/logging"
)

var (
	cfgFile   string
	debugFlag bool
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can replace it
// with a mock factory.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.NewApp(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regsync",
		Short: "Syncs regulatory documents from the Federal Register into search.",
		Long: `regsync is a scheduled batch job that downloads metadata about proposed
and final regulations, notices, and public inspection documents from
FederalRegister.gov, normalizes them into canonical records, extracts full
text and legal citations, and indexes them for search.`,

		// Runs after flags parse but before RunE: load config, set up the
		// logger, then build and inject the service container.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := logging.Init(cfg.Logging.Development || debugFlag); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}

			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/regsync)")
	cmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "verbose tracing")

	cmd.AddCommand(newSyncCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	// A production logger from the start; PersistentPreRunE rebuilds it once
	// the config says whether development mode is on.
	if err := logging.Init(false); err != nil {
		panic(err)
	}
	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
