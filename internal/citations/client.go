// Package citations is the boundary client for the external citation
// extraction service. Extraction is best-effort: callers degrade to an empty
// citation list on failure, never abort the run.
package citations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/openregs/regsync/internal/archive"
	"github.com/openregs/regsync/internal/hash/sha256"
)

// Extractor returns ordered citation identifiers for a document's text.
type Extractor interface {
	Extract(ctx context.Context, documentNumber, text string) ([]string, error)
}

// Client calls the citation service over HTTP, with an identifier-keyed
// cache file so unchanged text never hits the service twice.
type Client struct {
	url    string
	http   *http.Client
	layout *archive.Layout
	hasher *sha256.Hasher
	logger *zap.Logger
}

// NewClient builds a citation client. url is the service's extract endpoint.
func NewClient(url string, timeout time.Duration, layout *archive.Layout, logger *zap.Logger) *Client {
	return &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		layout: layout,
		hasher: sha256.New(),
		logger: logger,
	}
}

// cacheEntry pins cached citations to the hash of the text they came from,
// so a changed body invalidates the cache without any TTL bookkeeping.
type cacheEntry struct {
	TextHash    string   `json:"text_hash"`
	CitationIDs []string `json:"citation_ids"`
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Results []struct {
		CitationID string `json:"citation_id"`
	} `json:"results"`
}

// Extract returns the citation identifiers found in text, consulting the
// per-document cache first.
func (c *Client) Extract(ctx context.Context, documentNumber, text string) ([]string, error) {
	textHash := c.hasher.Hash([]byte(text))
	cachePath := c.layout.CitationCachePath(documentNumber)

	var cached cacheEntry
	if err := c.layout.ReadJSON(cachePath, &cached); err == nil && cached.TextHash == textHash {
		c.logger.Debug("Citation cache hit", zap.String("document_number", documentNumber))
		return cached.CitationIDs, nil
	}

	ids, err := c.call(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract citations for %s: %w", documentNumber, err)
	}

	entry := cacheEntry{TextHash: textHash, CitationIDs: ids}
	if err := c.layout.WriteJSON(cachePath, entry); err != nil {
		// The cache is an optimization; a failed write is not a failed run.
		c.logger.Warn("Failed to write citation cache",
			zap.String("document_number", documentNumber), zap.Error(err))
	}
	return ids, nil
}

func (c *Client) call(ctx context.Context, text string) ([]string, error) {
	payload, err := json.Marshal(extractRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("citation service returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var parsed extractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		ids = append(ids, r.CitationID)
	}
	return ids, nil
}
