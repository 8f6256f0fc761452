// Package fulltext retrieves raw document bodies and flattens them into
// normalized plain text for citation extraction and indexing.
package fulltext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/openregs/regsync/internal/archive"
	"github.com/openregs/regsync/internal/registry"
)

// Format enumerates the supported source formats. A closed set: each format
// carries its own extraction strategy and there is no dynamic dispatch.
type Format string

// Supported source formats.
const (
	FormatHTML Format = "html"
	FormatXML  Format = "xml"
	FormatText Format = "txt"
)

// Ext returns the on-disk extension for raw bodies of this format.
func (f Format) Ext() string { return string(f) }

// Source resolves the full-text format and URL for a document. ok is false
// when the metadata carries no full-text link at all, which the caller
// records as a missing link rather than a fetch failure.
func Source(kind registry.Kind, doc *registry.Document) (Format, string, bool) {
	if kind == registry.KindPublicInspection {
		if doc.RawTextURL != "" {
			return FormatText, doc.RawTextURL, true
		}
		return "", "", false
	}
	if doc.BodyHTMLURL != "" {
		return FormatHTML, doc.BodyHTMLURL, true
	}
	if doc.FullTextXMLURL != "" {
		return FormatXML, doc.FullTextXMLURL, true
	}
	return "", "", false
}

// Downloader is the slice of the registry client the extractor needs.
type Downloader interface {
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

// Extractor downloads raw bodies, persists them through the archive, and
// produces normalized flat text.
type Extractor struct {
	downloader Downloader
	layout     *archive.Layout
	logger     *zap.Logger
}

// NewExtractor wires an extractor onto a downloader and artifact layout.
func NewExtractor(downloader Downloader, layout *archive.Layout, logger *zap.Logger) *Extractor {
	return &Extractor{downloader: downloader, layout: layout, logger: logger}
}

// Extract fetches the body at url, stores the raw artifact, and returns the
// flattened text, persisting it as the .txt artifact for markup formats. For
// plain-text sources the raw artifact already is the text file.
func (e *Extractor) Extract(ctx context.Context, kind registry.Kind, documentNumber string, format Format, url string) (string, error) {
	body, err := e.downloader.Download(ctx, url)
	if err != nil {
		return "", err
	}

	rawPath := e.layout.Path(kind.String(), documentNumber, format.Ext())
	if err := e.layout.Write(rawPath, body); err != nil {
		return "", err
	}

	text, err := Flatten(format, body)
	if err != nil {
		return "", fmt.Errorf("flatten %s body for %s: %w", format, documentNumber, err)
	}

	if format != FormatText {
		textPath := e.layout.Path(kind.String(), documentNumber, "txt")
		if err := e.layout.Write(textPath, []byte(text)); err != nil {
			return "", err
		}
	}

	e.logger.Debug("Extracted full text",
		zap.String("document_number", documentNumber),
		zap.String("format", string(format)),
		zap.Int("bytes", len(text)))
	return text, nil
}

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// Flatten normalizes a raw body into flat text. Markup formats keep only the
// inline reading order of textual content: every text node in document
// order, trimmed, empties dropped, joined with single spaces. Plain text
// only collapses line breaks to spaces. Deterministic for a given body.
func Flatten(format Format, body []byte) (string, error) {
	switch format {
	case FormatHTML:
		doc, err := htmlquery.Parse(bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		nodes, err := htmlquery.QueryAll(doc, "//text()")
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(nodes))
		for _, node := range nodes {
			if s := strings.TrimSpace(htmlquery.InnerText(node)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " "), nil

	case FormatXML:
		doc, err := xmlquery.Parse(bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		nodes, err := xmlquery.QueryAll(doc, "//text()")
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(nodes))
		for _, node := range nodes {
			if s := strings.TrimSpace(node.InnerText()); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " "), nil

	case FormatText:
		return lineBreaks.Replace(string(body)), nil

	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}
