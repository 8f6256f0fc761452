package search

import (
	"context"

	"github.com/meilisearch/meilisearch-go"

	"github.com/openregs/regsync/internal/config"
)

// primaryKey is the index primary key; it matches the canonical record key
// so index writes are upserts per document.
const primaryKey = "document_number"

// MeiliIndex adapts one Meilisearch index to the DocumentAdder interface.
type MeiliIndex struct {
	index meilisearch.IndexManager
}

// NewMeiliIndex connects to Meilisearch and binds the configured index.
func NewMeiliIndex(cfg config.SearchConfig) *MeiliIndex {
	var opts []meilisearch.Option
	if cfg.APIKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(cfg.APIKey))
	}
	client := meilisearch.New(cfg.Host, opts...)
	return &MeiliIndex{index: client.Index(cfg.Index)}
}

// AddDocuments upserts a batch of documents into the index.
func (m *MeiliIndex) AddDocuments(ctx context.Context, docs []map[string]any) error {
	pk := primaryKey
	_, err := m.index.AddDocumentsWithContext(ctx, docs, &pk)
	return err
}
