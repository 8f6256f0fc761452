// Package app initializes and holds the long-lived services a sync run
// needs, acting as a small dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/openregs/regsync/internal/archive"
	"github.com/openregs/regsync/internal/citations"
	"github.com/openregs/regsync/internal/config"
	"github.com/openregs/regsync/internal/logging"
	"github.com/openregs/regsync/internal/metrics"
	"github.com/openregs/regsync/internal/regulation"
	"github.com/openregs/regsync/internal/search"
)

// App holds the shared services for one process: logger, record store,
// search index, artifact layout, citation client, and metrics. It is built
// once at startup and closed by a Cobra hook after the command finishes.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     regulation.Store
	index     search.DocumentAdder
	layout    *archive.Layout
	citations citations.Extractor
	metrics   *metrics.Metrics
}

// NewApp initializes services from the loaded configuration. It fails fast
// if any critical service cannot be reached.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	l := logging.L
	l.Info("Initializing services")

	layout, err := archive.NewLayout(cfg.Archive.Dir)
	if err != nil {
		return nil, fmt.Errorf("init archive: %w", err)
	}

	var store regulation.Store
	switch cfg.DB.Provider {
	case "postgres":
		l.Info("Connecting to PostgreSQL")
		store, err = regulation.NewPostgresStore(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
	case "noop":
		l.Info("Using no-op record store; records will be discarded")
		store = regulation.NoOpStore{}
	default:
		return nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}

	var index search.DocumentAdder
	if cfg.Search.Host != "" {
		l.Info("Using Meilisearch index",
			zap.String("host", cfg.Search.Host),
			zap.String("index", cfg.Search.Index))
		index = search.NewMeiliIndex(cfg.Search)
	} else {
		l.Info("Search host not configured; index writes will be discarded")
		index = search.NoOpIndex{}
	}

	var citationClient citations.Extractor
	if cfg.Citations.URL != "" {
		citationClient = citations.NewClient(
			cfg.Citations.URL,
			time.Duration(cfg.Citations.TimeoutSeconds)*time.Second,
			layout, l)
	} else {
		l.Info("Citation service not configured; citation extraction disabled")
	}

	return &App{
		cfg:       cfg,
		logger:    l,
		store:     store,
		index:     index,
		layout:    layout,
		citations: citationClient,
		metrics:   metrics.New(prometheus.DefaultRegisterer),
	}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the regulation record store.
func (a *App) Store() regulation.Store { return a.store }

// Index returns the search index writer.
func (a *App) Index() search.DocumentAdder { return a.index }

// Layout returns the on-disk artifact layout.
func (a *App) Layout() *archive.Layout { return a.layout }

// Citations returns the citation extractor, or nil when unconfigured.
func (a *App) Citations() citations.Extractor { return a.citations }

// Metrics returns the registered Prometheus instruments.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Close shuts down the services and flushes the logger.
func (a *App) Close() {
	a.logger.Info("Shutting down services")
	a.store.Close()
	if err := a.logger.Sync(); err != nil {
		// Best effort; stderr may already be gone.
		_ = err
	}
}
