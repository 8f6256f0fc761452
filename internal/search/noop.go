package search

import "context"

// NoOpIndex discards index writes. Used when no search host is configured,
// e.g. metadata-only syncs on a developer machine.
type NoOpIndex struct{}

// AddDocuments does nothing.
func (NoOpIndex) AddDocuments(_ context.Context, _ []map[string]any) error { return nil }
