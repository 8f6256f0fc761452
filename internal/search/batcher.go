// Package search accumulates normalized records and writes them to the
// search index in fixed-size batches.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DocumentAdder is the narrow slice of the search index the batcher needs.
// Adds must behave as upserts keyed by document number: re-indexing is a
// pure overwrite, never an accumulation.
type DocumentAdder interface {
	AddDocuments(ctx context.Context, docs []map[string]any) error
}

// DefaultBatchSize is the flush threshold when the config leaves it unset.
const DefaultBatchSize = 50

// Batcher buffers index documents and flushes them at a size threshold. The
// run must call Flush once at the end so no leftover document is dropped by
// a non-final batch.
type Batcher struct {
	index   DocumentAdder
	size    int
	pending []map[string]any
	logger  *zap.Logger
}

// NewBatcher builds a batcher flushing every size documents.
func NewBatcher(index DocumentAdder, size int, logger *zap.Logger) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher{index: index, size: size, logger: logger}
}

// Add buffers one document and flushes when the batch is full.
func (b *Batcher) Add(ctx context.Context, fields map[string]any) error {
	b.pending = append(b.pending, fields)
	if len(b.pending) < b.size {
		return nil
	}
	return b.Flush(ctx)
}

// Flush writes any buffered documents. Safe to call with an empty buffer.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	count := len(b.pending)
	if err := b.index.AddDocuments(ctx, b.pending); err != nil {
		return fmt.Errorf("flush %d documents to index: %w", count, err)
	}
	b.logger.Debug("Flushed index batch", zap.Int("documents", count))
	b.pending = b.pending[:0]
	return nil
}

// Pending reports the number of buffered documents.
func (b *Batcher) Pending() int { return len(b.pending) }
