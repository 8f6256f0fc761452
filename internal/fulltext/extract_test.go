package fulltext

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openregs/regsync/internal/archive"
	"github.com/openregs/regsync/internal/registry"
)

func TestSourceResolution(t *testing.T) {
	tests := []struct {
		name       string
		kind       registry.Kind
		doc        registry.Document
		wantFormat Format
		wantURL    string
		wantOK     bool
	}{
		{
			name:       "article prefers body html",
			kind:       registry.KindArticle,
			doc:        registry.Document{BodyHTMLURL: "http://x/body.html", FullTextXMLURL: "http://x/full.xml"},
			wantFormat: FormatHTML,
			wantURL:    "http://x/body.html",
			wantOK:     true,
		},
		{
			name:       "article falls back to xml",
			kind:       registry.KindArticle,
			doc:        registry.Document{FullTextXMLURL: "http://x/full.xml"},
			wantFormat: FormatXML,
			wantURL:    "http://x/full.xml",
			wantOK:     true,
		},
		{
			name:   "article with no link",
			kind:   registry.KindArticle,
			doc:    registry.Document{RawTextURL: "http://x/raw.txt"},
			wantOK: false,
		},
		{
			name:       "inspection uses raw text",
			kind:       registry.KindPublicInspection,
			doc:        registry.Document{RawTextURL: "http://x/raw.txt"},
			wantFormat: FormatText,
			wantURL:    "http://x/raw.txt",
			wantOK:     true,
		},
		{
			name:   "inspection with no link",
			kind:   registry.KindPublicInspection,
			doc:    registry.Document{BodyHTMLURL: "http://x/body.html"},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, url, ok := Source(tt.kind, &tt.doc)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantFormat, format)
				assert.Equal(t, tt.wantURL, url)
			}
		})
	}
}

func TestFlattenHTML(t *testing.T) {
	body := []byte(`<html><head><title>T</title></head>
<body><h1> Rule </h1><p>Section <b>one</b>.</p><p></p><div>  </div><p>End.</p></body></html>`)

	text, err := Flatten(FormatHTML, body)
	require.NoError(t, err)
	assert.Equal(t, "T Rule Section one . End.", text,
		"text nodes in document order, trimmed, empties dropped, space-joined")
}

func TestFlattenXML(t *testing.T) {
	body := []byte(`<?xml version="1.0"?><RULE><AGENCY>EPA</AGENCY><P>Section
one.</P><P>  </P><SIG>Signed.</SIG></RULE>`)

	text, err := Flatten(FormatXML, body)
	require.NoError(t, err)
	assert.Equal(t, "EPA Section\none. Signed.", text,
		"markup is discarded, inner whitespace of a single node is kept")
}

func TestFlattenText(t *testing.T) {
	body := []byte("Line one.\r\nLine two.\nLine three.")

	text, err := Flatten(FormatText, body)
	require.NoError(t, err)
	assert.Equal(t, "Line one.  Line two. Line three.", text,
		"each CR and LF becomes one space, nothing else changes")
}

func TestFlattenIsIdempotentPerBody(t *testing.T) {
	body := []byte(`<html><body><p>Alpha</p><p>Beta</p></body></html>`)
	first, err := Flatten(FormatHTML, body)
	require.NoError(t, err)
	second, err := Flatten(FormatHTML, body)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same body, byte-identical normalized text")
}

func TestFlattenUnknownFormat(t *testing.T) {
	_, err := Flatten(Format("pdf"), []byte("x"))
	assert.Error(t, err)
}

type fakeDownloader struct {
	body []byte
	err  error
}

func (f fakeDownloader) Download(_ context.Context, _ string) ([]byte, error) {
	return f.body, f.err
}

func TestExtractorPersistsArtifacts(t *testing.T) {
	layout, err := archive.NewLayout(t.TempDir())
	require.NoError(t, err)

	body := []byte(`<html><body><p>Alpha</p><p>Beta</p></body></html>`)
	e := NewExtractor(fakeDownloader{body: body}, layout, zap.NewNop())

	text, err := e.Extract(context.Background(), registry.KindArticle, "2013-12345", FormatHTML, "http://x/body.html")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Beta", text)

	raw, err := os.ReadFile(layout.Path("article", "2013-12345", "html"))
	require.NoError(t, err)
	assert.Equal(t, body, raw, "the raw body is archived untouched")

	flat, err := os.ReadFile(layout.Path("article", "2013-12345", "txt"))
	require.NoError(t, err)
	assert.Equal(t, "Alpha Beta", string(flat))
}

func TestExtractorFailsWhenDownloadFails(t *testing.T) {
	layout, err := archive.NewLayout(t.TempDir())
	require.NoError(t, err)

	e := NewExtractor(fakeDownloader{err: fmt.Errorf("boom")}, layout, zap.NewNop())
	_, err = e.Extract(context.Background(), registry.KindArticle, "2013-12345", FormatHTML, "http://x/body.html")
	assert.Error(t, err)

	_, statErr := os.Stat(layout.Path("article", "2013-12345", "html"))
	assert.True(t, os.IsNotExist(statErr), "nothing is archived on a failed download")
}
