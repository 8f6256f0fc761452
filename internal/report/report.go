// Package report collects warnings and terminal summaries for one sync run.
// The accumulator is run-scoped and owned by the runner; nothing in here is
// global, and recording a warning never affects control flow.
package report

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Warning is one non-fatal failure recorded during the run.
type Warning struct {
	Message        string `json:"message"`
	URL            string `json:"url,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
}

// Run accumulates events for a single sync invocation and fans them out to
// sinks as they happen.
type Run struct {
	id     uuid.UUID
	logger *zap.Logger
	sinks  []Sink

	warnings         []Warning
	missingLinks     []string
	citationWarnings []Warning
	processed        int
	indexed          int
}

// NewRun creates a run accumulator with a fresh run ID.
func NewRun(logger *zap.Logger, sinks ...Sink) *Run {
	id := uuid.New()
	return &Run{
		id:     id,
		logger: logger.With(zap.String("run_id", id.String())),
		sinks:  sinks,
	}
}

// Logger returns the run-scoped logger (run ID attached).
func (r *Run) Logger() *zap.Logger { return r.logger }

// Warning records a general non-fatal failure.
func (r *Run) Warning(w Warning) {
	r.warnings = append(r.warnings, w)
	r.logger.Warn(w.Message,
		zap.String("url", w.URL),
		zap.String("document_number", w.DocumentNumber))
	r.emit(Event{Stage: StageWarning, Message: w.Message, URL: w.URL, DocumentNumber: w.DocumentNumber})
}

// MissingLink records a document whose metadata carried no full-text URL.
// Distinct from a fetch failure: the metadata fetch itself succeeded.
func (r *Run) MissingLink(documentNumber string) {
	r.missingLinks = append(r.missingLinks, documentNumber)
	r.logger.Warn("No full text link published", zap.String("document_number", documentNumber))
	r.emit(Event{Stage: StageMissingLink, DocumentNumber: documentNumber})
}

// CitationWarning records a best-effort citation extraction failure.
func (r *Run) CitationWarning(documentNumber, message string) {
	w := Warning{Message: message, DocumentNumber: documentNumber}
	r.citationWarnings = append(r.citationWarnings, w)
	r.logger.Warn(message, zap.String("document_number", documentNumber))
	r.emit(Event{Stage: StageCitationWarning, Message: message, DocumentNumber: documentNumber})
}

// DocumentProcessed counts one successfully saved record.
func (r *Run) DocumentProcessed() {
	r.processed++
	r.emit(Event{Stage: StageProcessed})
}

// DocumentIndexed counts one record made searchable.
func (r *Run) DocumentIndexed() {
	r.indexed++
	r.emit(Event{Stage: StageIndexed})
}

// Processed returns the count of saved records.
func (r *Run) Processed() int { return r.processed }

// Indexed returns the count of records made searchable.
func (r *Run) Indexed() int { return r.indexed }

// Warnings returns the accumulated general warnings.
func (r *Run) Warnings() []Warning { return r.warnings }

// MissingLinks returns documents with no published full-text URL.
func (r *Run) MissingLinks() []string { return r.missingLinks }

// CitationWarnings returns the accumulated citation failures.
func (r *Run) CitationWarnings() []Warning { return r.citationWarnings }

// Success records a terminal success message with its counts.
func (r *Run) Success(message string) {
	r.logger.Info(message)
	r.emit(Event{Stage: StageSuccess, Message: message})
}

// Summarize emits the itemized warning buckets at run end.
func (r *Run) Summarize() {
	if len(r.warnings) > 0 {
		r.logger.Warn(fmt.Sprintf("%d warnings", len(r.warnings)),
			zap.Any("warnings", r.warnings))
	}
	if len(r.missingLinks) > 0 {
		r.logger.Warn(fmt.Sprintf("Missing %d XML and HTML links for full text", len(r.missingLinks)),
			zap.Strings("missing_links", r.missingLinks))
	}
	if len(r.citationWarnings) > 0 {
		r.logger.Warn(fmt.Sprintf("%d warnings while extracting citations", len(r.citationWarnings)),
			zap.Any("citation_warnings", r.citationWarnings))
	}
}

func (r *Run) emit(evt Event) {
	for _, sink := range r.sinks {
		sink.Consume(evt)
	}
}
