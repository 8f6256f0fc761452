// Package runner drives one sync run: plan the targets, then process each
// document fully before the next. Execution is strictly sequential, and
// every failure is scoped to one identifier or sub-step and converted into a
// run warning; nothing here aborts the batch.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openregs/regsync/internal/archive"
	"github.com/openregs/regsync/internal/citations"
	"github.com/openregs/regsync/internal/clock"
	"github.com/openregs/regsync/internal/config"
	"github.com/openregs/regsync/internal/fulltext"
	"github.com/openregs/regsync/internal/planner"
	"github.com/openregs/regsync/internal/registry"
	"github.com/openregs/regsync/internal/regulation"
	"github.com/openregs/regsync/internal/report"
	"github.com/openregs/regsync/internal/search"
)

// RegistryClient is everything the runner needs from the registry.
type RegistryClient interface {
	Details(ctx context.Context, kind registry.Kind, documentNumber string) (*registry.Document, []byte, error)
	CurrentPublicInspection(ctx context.Context) (registry.Listing, error)
	Search(ctx context.Context, articleType string, gte, lte time.Time) (registry.Listing, error)
}

// TextExtractor produces normalized flat text for one document body.
type TextExtractor interface {
	Extract(ctx context.Context, kind registry.Kind, documentNumber string, format fulltext.Format, url string) (string, error)
}

// Runner holds the collaborators for one sync invocation.
type Runner struct {
	opts      config.Options
	registry  RegistryClient
	store     regulation.Store
	extractor TextExtractor
	citations citations.Extractor
	batcher   *search.Batcher
	layout    *archive.Layout
	clock     clock.Clock
	run       *report.Run
}

// New assembles a runner. All collaborators are required except citations,
// which may be nil when no citation service is configured.
func New(
	opts config.Options,
	reg RegistryClient,
	store regulation.Store,
	extractor TextExtractor,
	citationExtractor citations.Extractor,
	batcher *search.Batcher,
	layout *archive.Layout,
	clk clock.Clock,
	run *report.Run,
) *Runner {
	return &Runner{
		opts:      opts,
		registry:  reg,
		store:     store,
		extractor: extractor,
		citations: citationExtractor,
		batcher:   batcher,
		layout:    layout,
		clock:     clk,
		run:       run,
	}
}

// Run executes the whole pipeline and emits the final summary. The returned
// error is reserved for context cancellation; domain failures surface as
// warnings in the report instead.
func (r *Runner) Run(ctx context.Context) error {
	kind := registry.KindArticle
	if r.opts.PublicInspection {
		kind = registry.KindPublicInspection
	}

	targets := planner.Plan(ctx, r.opts, r.registry, r.clock, r.run)
	r.run.Logger().Info("Planned sync targets",
		zap.Int("targets", len(targets)),
		zap.String("kind", kind.String()))

	for _, documentNumber := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.processDocument(ctx, kind, documentNumber)
	}

	if err := r.batcher.Flush(ctx); err != nil {
		r.run.Warning(report.Warning{Message: fmt.Sprintf("Final index flush failed: %v", err)})
	}

	r.run.Summarize()
	if kind == registry.KindPublicInspection {
		r.run.Success(fmt.Sprintf("Processed %d current public inspection docs", r.run.Processed()))
	} else {
		r.run.Success(fmt.Sprintf("Processed %d %s regulations",
			r.run.Processed(), strings.Join(r.opts.ArticleTypes(), ", ")))
	}
	r.run.Success(fmt.Sprintf("Indexed %d documents as searchable", r.run.Indexed()))
	return nil
}

// processDocument runs the full fetch, reconcile, persist, extract, cite,
// index sequence for one document. Failures log a warning and return early;
// the caller moves on to the next identifier.
func (r *Runner) processDocument(ctx context.Context, kind registry.Kind, documentNumber string) {
	logger := r.run.Logger().With(
		zap.String("document_number", documentNumber),
		zap.String("kind", kind.String()))
	logger.Debug("Fetching document details")

	doc, raw, err := r.registry.Details(ctx, kind, documentNumber)
	if err != nil {
		r.run.Warning(report.Warning{
			Message:        fmt.Sprintf("Error while polling registry for details, skipping document: %v", err),
			DocumentNumber: documentNumber,
		})
		return
	}
	metaPath := r.layout.Path(kind.String(), documentNumber, "json")
	if err := r.layout.Write(metaPath, raw); err != nil {
		r.run.Warning(report.Warning{
			Message:        fmt.Sprintf("Failed to store metadata artifact: %v", err),
			DocumentNumber: documentNumber,
		})
		return
	}

	existing, err := r.store.Find(ctx, documentNumber)
	if err != nil {
		r.run.Warning(report.Warning{
			Message:        fmt.Sprintf("Failed to load existing record: %v", err),
			DocumentNumber: documentNumber,
		})
		return
	}

	next, skip, err := regulation.Reconcile(existing, kind, doc)
	if err != nil {
		r.run.Warning(report.Warning{
			Message:        fmt.Sprintf("Failed to reconcile metadata: %v", err),
			DocumentNumber: documentNumber,
		})
		return
	}
	if skip {
		logger.Debug("Not storing public inspection, document already released")
		return
	}
	if existing != nil && existing.DocumentType == regulation.DocumentTypePublicInspection &&
		next.DocumentType == regulation.DocumentTypeArticle {
		logger.Debug("Article replacing public inspection document, rebuilding record")
	}

	if err := r.store.Save(ctx, next); err != nil {
		r.run.Warning(report.Warning{
			Message:        fmt.Sprintf("Failed to save record: %v", err),
			DocumentNumber: documentNumber,
		})
		return
	}
	logger.Info("Saved regulation record")
	r.run.DocumentProcessed()

	if r.opts.SkipText {
		return
	}
	r.indexDocument(ctx, kind, documentNumber, doc, next, logger)
}

// indexDocument handles the full-text, citation, and index sub-steps after a
// record has been durably saved.
func (r *Runner) indexDocument(
	ctx context.Context,
	kind registry.Kind,
	documentNumber string,
	doc *registry.Document,
	rec regulation.Regulation,
	logger *zap.Logger,
) {
	format, sourceURL, ok := fulltext.Source(kind, doc)
	if !ok {
		r.run.MissingLink(documentNumber)
		return
	}

	logger.Debug("Fetching full text", zap.String("url", sourceURL))
	text, err := r.extractor.Extract(ctx, kind, documentNumber, format, sourceURL)
	if err != nil {
		r.run.Warning(report.Warning{
			Message:        fmt.Sprintf("Error fetching full text, not indexing document: %v", err),
			URL:            sourceURL,
			DocumentNumber: documentNumber,
		})
		return
	}

	var citationIDs []string
	if r.citations != nil {
		citationIDs, err = r.citations.Extract(ctx, documentNumber, text)
		if err != nil {
			r.run.CitationWarning(documentNumber,
				fmt.Sprintf("Failed to extract citations from %s", documentNumber))
			citationIDs = []string{}
		}
	} else {
		citationIDs = []string{}
	}

	fields := rec.BasicFields()
	fields["text"] = text
	fields["citation_ids"] = citationIDs

	logger.Debug("Indexing document text")
	if err := r.batcher.Add(ctx, fields); err != nil {
		r.run.Warning(report.Warning{
			Message:        fmt.Sprintf("Index batch write failed: %v", err),
			DocumentNumber: documentNumber,
		})
		return
	}

	if err := r.store.SaveCitations(ctx, documentNumber, citationIDs); err != nil {
		r.run.Warning(report.Warning{
			Message:        fmt.Sprintf("Failed to backfill citations: %v", err),
			DocumentNumber: documentNumber,
		})
		return
	}
	r.run.DocumentIndexed()
}
