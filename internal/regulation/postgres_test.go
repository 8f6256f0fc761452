package regulation

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStoreWithPool(mock), mock
}

func TestPostgresStoreFindMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT document_type").
		WithArgs("2013-404").
		WillReturnRows(pgxmock.NewRows([]string{"document_type"}))

	reg, err := store.Find(context.Background(), "2013-404")
	require.NoError(t, err)
	assert.Nil(t, reg, "absent records come back nil, not as an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFind(t *testing.T) {
	store, mock := newMockStore(t)

	postedAt := time.Date(2013, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"document_type", "article_type", "stage", "agency_names", "agency_ids",
		"title", "docket_ids", "publication_date", "posted_at", "url",
		"pdf_url", "abstract", "effective_on", "rins", "comments_close_on",
		"citation_ids",
	}).AddRow(
		"article", "regulation", "final",
		[]byte(`["Environmental Protection Agency"]`), []byte(`[145]`),
		"Air Quality Standards", []byte(`["EPA-HQ-OAR-2013-0001"]`),
		"2013-05-01", &postedAt, "https://example.test/2013-12345",
		"https://example.test/2013-12345.pdf", "Revises the standards.",
		"2013-07-01", []byte(`["2060-AR13"]`), "2013-06-01",
		[]byte(`["usc/42/7401"]`),
	)
	mock.ExpectQuery("SELECT document_type").
		WithArgs("2013-12345").
		WillReturnRows(rows)

	reg, err := store.Find(context.Background(), "2013-12345")
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Equal(t, "2013-12345", reg.DocumentNumber)
	assert.Equal(t, "article", reg.DocumentType)
	assert.Equal(t, []string{"Environmental Protection Agency"}, reg.AgencyNames)
	assert.Equal(t, []int{145}, reg.AgencyIDs)
	assert.Equal(t, postedAt, reg.PostedAt)
	assert.Equal(t, []string{"usc/42/7401"}, reg.CitationIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSave(t *testing.T) {
	store, mock := newMockStore(t)

	reg := Regulation{
		DocumentNumber:  "2013-12345",
		DocumentType:    "article",
		ArticleType:     "regulation",
		Stage:           "final",
		AgencyNames:     []string{"Environmental Protection Agency"},
		AgencyIDs:       []int{145},
		Title:           "Air Quality Standards",
		DocketIDs:       []string{"EPA-HQ-OAR-2013-0001"},
		PublicationDate: "2013-05-01",
		PostedAt:        time.Date(2013, 5, 1, 12, 0, 0, 0, time.UTC),
		URL:             "https://example.test/2013-12345",
	}

	mock.ExpectExec("INSERT INTO regulations").
		WithArgs(
			"2013-12345", "article", "regulation", "final",
			[]byte(`["Environmental Protection Agency"]`), []byte(`[145]`),
			"Air Quality Standards", []byte(`["EPA-HQ-OAR-2013-0001"]`),
			"2013-05-01", pgxmock.AnyArg(), "https://example.test/2013-12345",
			"", "", "", []byte(`null`), "", []byte(`null`),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(context.Background(), reg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSaveIsIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	reg := Regulation{DocumentNumber: "2013-12345", DocumentType: "article", ArticleType: "notice"}

	// Re-saving the same record issues the same upsert; the second run is an
	// update that changes nothing.
	for i := 0; i < 2; i++ {
		mock.ExpectExec("INSERT INTO regulations").
			WithArgs(
				"2013-12345", "article", "notice", "",
				[]byte(`null`), []byte(`null`), "", []byte(`null`), "",
				pgxmock.AnyArg(), "", "", "", "", []byte(`null`), "", []byte(`null`),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, store.Save(context.Background(), reg))
	require.NoError(t, store.Save(context.Background(), reg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSaveCitations(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE regulations SET citation_ids").
		WithArgs("2013-12345", []byte(`["usc/42/7401","cfr/40/50"]`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.SaveCitations(context.Background(), "2013-12345", []string{"usc/42/7401", "cfr/40/50"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
