package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openregs/regsync/internal/clock"
	"github.com/openregs/regsync/internal/config"
	"github.com/openregs/regsync/internal/fulltext"
	"github.com/openregs/regsync/internal/registry"
	"github.com/openregs/regsync/internal/report"
	"github.com/openregs/regsync/internal/runner"
	"github.com/openregs/regsync/internal/search"
)

// newSyncCmd creates and configures the 'sync' subcommand, which runs one
// full acquisition pass.
func newSyncCmd() *cobra.Command {
	var opts config.Options

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Runs one document acquisition and indexing pass",
		Long: `Fetches regulatory documents from the registry and processes them one at
a time. By default the last 7 days of proposed rules, final rules, and
notices are synced; flags select a single document, the current public
inspection set, or a whole month or year swept in weekly windows.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Debug = debugFlag
			return runSyncCommand(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DocumentNumber, "document-number", "", "sync a specific document only")
	cmd.Flags().StringVar(&opts.ArticleType, "article-type", "", "limit to one registry type (rule, prorule, notice)")
	cmd.Flags().BoolVar(&opts.PublicInspection, "public-inspection", false, "sync the current public inspection documents")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "sync a whole year (or one month of it) in weekly windows")
	cmd.Flags().IntVar(&opts.Month, "month", 0, "with --year, sync that specific month")
	cmd.Flags().IntVar(&opts.Days, "days", 0, "without --year, sync the last N days (default 7)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "limit processing to N documents")
	cmd.Flags().BoolVar(&opts.Cache, "cache", false, "cache per-document detail fetches on disk")
	cmd.Flags().BoolVar(&opts.SkipText, "skip-text", false, "skip full text, citation, and index processing")

	return cmd
}

func runSyncCommand(cmd *cobra.Command, opts config.Options) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	// The cache covers only per-document detail fetches; search and listing
	// calls always go to the network.
	cacheDir := ""
	if opts.Cache {
		cacheDir = filepath.Join(appInstance.Layout().Root(), "cache")
	}
	regClient, err := registry.NewClient(cfg.Registry, cacheDir, logger)
	if err != nil {
		return fmt.Errorf("init registry client: %w", err)
	}

	extractor := fulltext.NewExtractor(regClient, appInstance.Layout(), logger)
	batcher := search.NewBatcher(appInstance.Index(), cfg.Search.BatchSize, logger)
	run := report.NewRun(logger, report.NewPrometheusSink(appInstance.Metrics()))

	sync := runner.New(
		opts,
		regClient,
		appInstance.Store(),
		extractor,
		appInstance.Citations(),
		batcher,
		appInstance.Layout(),
		clock.System{},
		run,
	)
	if err := sync.Run(cmd.Context()); err != nil {
		return fmt.Errorf("run sync: %w", err)
	}
	return nil
}
