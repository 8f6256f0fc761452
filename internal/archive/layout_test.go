package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathGroupsByDocumentNumberPrefix(t *testing.T) {
	root := t.TempDir()
	layout, err := NewLayout(root)
	require.NoError(t, err)

	assert.Equal(t,
		filepath.Join(root, "2013", "2013-12345", "article.html"),
		layout.Path("article", "2013-12345", "html"))
	assert.Equal(t,
		filepath.Join(root, "2013", "2013-12345", "public_inspection.txt"),
		layout.Path("public_inspection", "2013-12345", "txt"))
	assert.Equal(t,
		filepath.Join(root, "2013", "2013-12345", "citation.json"),
		layout.CitationCachePath("2013-12345"))
}

func TestPathWithoutDashKeepsWholeNumber(t *testing.T) {
	root := t.TempDir()
	layout, err := NewLayout(root)
	require.NoError(t, err)

	assert.Equal(t,
		filepath.Join(root, "E9123", "E9123", "article.json"),
		layout.Path("article", "E9123", "json"))
}

func TestWriteCreatesParentDirectories(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	require.NoError(t, err)

	path := layout.Path("article", "2013-12345", "json")
	require.NoError(t, layout.Write(path, []byte(`{"a": 1}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(data))
}

func TestWriteJSONRoundTrip(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	require.NoError(t, err)

	type entry struct {
		TextHash    string   `json:"text_hash"`
		CitationIDs []string `json:"citation_ids"`
	}
	path := layout.CitationCachePath("2013-12345")
	require.NoError(t, layout.WriteJSON(path, entry{TextHash: "abc", CitationIDs: []string{"44-USC-1503"}}))

	var got entry
	require.NoError(t, layout.ReadJSON(path, &got))
	assert.Equal(t, "abc", got.TextHash)
	assert.Equal(t, []string{"44-USC-1503"}, got.CitationIDs)
}

func TestReadJSONMissingFile(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	require.NoError(t, err)

	var v map[string]any
	err = layout.ReadJSON(filepath.Join(layout.Root(), "absent.json"), &v)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLayoutRequiresRoot(t *testing.T) {
	_, err := NewLayout("")
	assert.Error(t, err)
}
