// Package planner turns a run configuration into the ordered, deduplicated
// list of document numbers one sync run will process.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openregs/regsync/internal/clock"
	"github.com/openregs/regsync/internal/config"
	"github.com/openregs/regsync/internal/registry"
	"github.com/openregs/regsync/internal/report"
)

// Searcher is the slice of the registry client the planner needs.
type Searcher interface {
	CurrentPublicInspection(ctx context.Context) (registry.Listing, error)
	Search(ctx context.Context, articleType string, gte, lte time.Time) (registry.Listing, error)
}

// The registry search endpoint silently caps results at 1000 regardless of
// pagination. Counts at or above the cap mean the window was likely
// truncated; the warning is advisory only.
const resultCap = 1000

// Fixed 7-day windows per month: days 1-7, 8-14, 15-21, 22-28, 29-35. The
// fifth window deliberately runs past month end; the overlap into the next
// month is tolerated and deduplicated below.
const windowsPerMonth = 5

// Plan resolves the target document numbers for one run. Failed or malformed
// registry calls contribute zero identifiers and a warning; Plan itself never
// fails.
func Plan(ctx context.Context, opts config.Options, searcher Searcher, clk clock.Clock, run *report.Run) []string {
	var targets []string

	switch {
	case opts.DocumentNumber != "":
		// A single document wins outright, whatever else was asked for.
		targets = []string{opts.DocumentNumber}

	case opts.PublicInspection:
		targets = currentPublicInspection(ctx, searcher, run)

	default:
		for _, articleType := range opts.ArticleTypes() {
			if opts.Year != 0 {
				targets = append(targets, sweep(ctx, opts, articleType, searcher, run)...)
			} else {
				ending := midnight(clk.Now())
				beginning := ending.AddDate(0, 0, -opts.LookbackDays())
				targets = append(targets, window(ctx, searcher, articleType, beginning, ending, run)...)
			}
		}
	}

	targets = dedupe(targets)
	if opts.Limit > 0 && len(targets) > opts.Limit {
		targets = targets[:opts.Limit]
	}
	return targets
}

// sweep covers a month (or all twelve months of a year, most recent first)
// in fixed overlapping 7-day windows, to stay under the registry's result
// cap for high-volume types.
func sweep(ctx context.Context, opts config.Options, articleType string, searcher Searcher, run *report.Run) []string {
	months := make([]int, 0, 12)
	if opts.Month != 0 {
		months = append(months, opts.Month)
	} else {
		for m := 12; m >= 1; m-- {
			months = append(months, m)
		}
	}

	var targets []string
	for _, month := range months {
		beginning := time.Date(opts.Year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < windowsPerMonth; i++ {
			ending := beginning.AddDate(0, 0, 6)
			targets = append(targets, window(ctx, searcher, articleType, beginning, ending, run)...)
			beginning = beginning.AddDate(0, 0, 7)
		}
	}
	return targets
}

// window issues one search call and returns its document numbers.
func window(ctx context.Context, searcher Searcher, articleType string, beginning, ending time.Time, run *report.Run) []string {
	run.Logger().Info("Fetching articles",
		zap.String("type", articleType),
		zap.String("from", beginning.Format("01/02/2006")),
		zap.String("to", ending.Format("01/02/2006")))

	listing, err := searcher.Search(ctx, articleType, beginning, ending)
	if err != nil {
		warnListing(run, err)
		return nil
	}
	if listing.Count >= resultCap {
		run.Warning(report.Warning{Message: fmt.Sprintf(
			"Likely more than 1000 %s articles between %s and %s",
			articleType, beginning.Format("01/02/2006"), ending.Format("01/02/2006"))})
	}
	// No results is not an error; future months are legitimately empty.
	numbers := make([]string, 0, len(listing.Results))
	for _, doc := range listing.Results {
		numbers = append(numbers, doc.DocumentNumber)
	}
	return numbers
}

// currentPublicInspection fetches today's public-inspection set and filters
// it client-side to rules and proposed rules; the endpoint cannot filter by
// type itself.
func currentPublicInspection(ctx context.Context, searcher Searcher, run *report.Run) []string {
	listing, err := searcher.CurrentPublicInspection(ctx)
	if err != nil {
		warnListing(run, err)
		return nil
	}
	if listing.Count >= resultCap {
		run.Warning(report.Warning{Message: "Likely more than 1000 public inspection docs today, that is crazy"})
	}

	var numbers []string
	for _, doc := range listing.Results {
		switch strings.ToLower(doc.Type) {
		case "proposed rule", "rule":
			numbers = append(numbers, doc.DocumentNumber)
		default:
			run.Logger().Debug("Skipping non-rule public inspection doc",
				zap.String("document_number", doc.DocumentNumber),
				zap.String("type", doc.Type))
		}
	}
	return numbers
}

func warnListing(run *report.Run, err error) {
	var shapeErr *registry.ShapeError
	if errors.As(err, &shapeErr) {
		run.Warning(report.Warning{
			Message: fmt.Sprintf("%s; response: %s", shapeErr.Error(), shapeErr.Body),
			URL:     shapeErr.URL,
		})
		return
	}
	run.Warning(report.Warning{Message: fmt.Sprintf("Error while polling registry, skipping window: %v", err)})
}

// dedupe removes duplicates preserving first-seen order. Overlapping windows
// guarantee duplicates during year sweeps.
func dedupe(targets []string) []string {
	seen := make(map[string]struct{}, len(targets))
	out := targets[:0]
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// midnight truncates a time to the start of its day; only the date matters
// for publication-date conditions.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
