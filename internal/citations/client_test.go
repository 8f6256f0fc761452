package citations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openregs/regsync/internal/archive"
)

func citationServer(t *testing.T, calls *atomic.Int32, ids []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Text)

		results := make([]map[string]string, 0, len(ids))
		for _, id := range ids {
			results = append(results, map[string]string{"citation_id": id})
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"results": results}))
	}))
}

func TestExtractReturnsCitationIDs(t *testing.T) {
	var calls atomic.Int32
	srv := citationServer(t, &calls, []string{"44-USC-1503", "5-USC-553"})
	defer srv.Close()

	layout, err := archive.NewLayout(t.TempDir())
	require.NoError(t, err)
	c := NewClient(srv.URL, time.Second, layout, zap.NewNop())

	ids, err := c.Extract(context.Background(), "2013-12345", "See 44 U.S.C. 1503 and 5 U.S.C. 553.")
	require.NoError(t, err)
	assert.Equal(t, []string{"44-USC-1503", "5-USC-553"}, ids)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractCachesByTextHash(t *testing.T) {
	var calls atomic.Int32
	srv := citationServer(t, &calls, []string{"44-USC-1503"})
	defer srv.Close()

	layout, err := archive.NewLayout(t.TempDir())
	require.NoError(t, err)
	c := NewClient(srv.URL, time.Second, layout, zap.NewNop())

	first, err := c.Extract(context.Background(), "2013-12345", "See 44 U.S.C. 1503.")
	require.NoError(t, err)
	second, err := c.Extract(context.Background(), "2013-12345", "See 44 U.S.C. 1503.")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "unchanged text is served from the cache")
}

func TestExtractRefetchesWhenTextChanges(t *testing.T) {
	var calls atomic.Int32
	srv := citationServer(t, &calls, []string{"44-USC-1503"})
	defer srv.Close()

	layout, err := archive.NewLayout(t.TempDir())
	require.NoError(t, err)
	c := NewClient(srv.URL, time.Second, layout, zap.NewNop())

	_, err = c.Extract(context.Background(), "2013-12345", "Original body.")
	require.NoError(t, err)
	_, err = c.Extract(context.Background(), "2013-12345", "Amended body.")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load(), "a changed body invalidates the cache")
}

func TestExtractNon200IsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	layout, err := archive.NewLayout(t.TempDir())
	require.NoError(t, err)
	c := NewClient(srv.URL, time.Second, layout, zap.NewNop())

	_, err = c.Extract(context.Background(), "2013-12345", "Some text.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestExtractEmptyResults(t *testing.T) {
	var calls atomic.Int32
	srv := citationServer(t, &calls, nil)
	defer srv.Close()

	layout, err := archive.NewLayout(t.TempDir())
	require.NoError(t, err)
	c := NewClient(srv.URL, time.Second, layout, zap.NewNop())

	ids, err := c.Extract(context.Background(), "2013-12345", "No citations here.")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
}
