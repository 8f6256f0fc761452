package regulation

import "context"

// Store persists canonical regulation records. Implementations must make
// Save an idempotent upsert: re-saving an unchanged record is equivalent to
// not saving at all, because runs sweep overlapping windows.
type Store interface {
	// Find returns the record for a document number, or nil when none exists.
	Find(ctx context.Context, documentNumber string) (*Regulation, error)

	// Save upserts the full record, overwriting every attribute column.
	Save(ctx context.Context, reg Regulation) error

	// SaveCitations backfills only the citation IDs after a successful index
	// write, so re-runs can reuse them.
	SaveCitations(ctx context.Context, documentNumber string, citationIDs []string) error

	// Close releases the underlying connections.
	Close()
}

// NoOpStore discards all writes. Useful for dry runs without a database.
type NoOpStore struct{}

// Find always reports no existing record.
func (NoOpStore) Find(_ context.Context, _ string) (*Regulation, error) { return nil, nil }

// Save does nothing.
func (NoOpStore) Save(_ context.Context, _ Regulation) error { return nil }

// SaveCitations does nothing.
func (NoOpStore) SaveCitations(_ context.Context, _ string, _ []string) error { return nil }

// Close does nothing.
func (NoOpStore) Close() {}
