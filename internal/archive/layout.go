// Package archive owns the on-disk artifact layout: one metadata JSON, one
// raw body, and one normalized text file per (document, kind), plus a
// citation cache JSON per document.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Layout resolves and writes artifacts under a fixed root directory.
type Layout struct {
	root string
}

// NewLayout returns a layout rooted at dir, creating it if needed.
func NewLayout(root string) (*Layout, error) {
	if root == "" {
		return nil, fmt.Errorf("archive root required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create archive dir %s: %w", root, err)
	}
	return &Layout{root: root}, nil
}

// Path returns the artifact path for a (kind, document, extension) triple:
// <root>/<yearish>/<document_number>/<kind>.<ext>. The yearish component is
// the document-number prefix before the first dash, which groups documents
// by publication year on disk.
func (l *Layout) Path(kind, documentNumber, ext string) string {
	yearish := documentNumber
	if i := strings.Index(documentNumber, "-"); i > 0 {
		yearish = documentNumber[:i]
	}
	return filepath.Join(l.root, yearish, documentNumber, kind+"."+ext)
}

// CitationCachePath returns the citation cache file for a document.
func (l *Layout) CitationCachePath(documentNumber string) string {
	return l.Path("citation", documentNumber, "json")
}

// Write stores data at path, creating parent directories.
func (l *Layout) Write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteJSON marshals v and stores it at path.
func (l *Layout) WriteJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return l.Write(path, payload)
}

// ReadJSON loads path into v. Returns os.ErrNotExist (wrapped) when the
// artifact has not been written yet.
func (l *Layout) ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}

// Root exposes the base directory (used for the detail-fetch HTTP cache).
func (l *Layout) Root() string { return l.root }
