package regulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on PostgreSQL. List-valued attributes live
// in JSONB columns. Expected schema:
//
//	CREATE TABLE regulations (
//	    document_number   TEXT PRIMARY KEY,
//	    document_type     TEXT NOT NULL,
//	    article_type      TEXT NOT NULL,
//	    stage             TEXT,
//	    agency_names      JSONB,
//	    agency_ids        JSONB,
//	    title             TEXT,
//	    docket_ids        JSONB,
//	    publication_date  TEXT,
//	    posted_at         TIMESTAMPTZ,
//	    url               TEXT,
//	    pdf_url           TEXT,
//	    abstract          TEXT,
//	    effective_on      TEXT,
//	    rins              JSONB,
//	    comments_close_on TEXT,
//	    citation_ids      JSONB,
//	    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresStore struct {
	db PgxPool
}

// NewPostgresStore connects to Postgres and pings the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

// NewPostgresStoreWithPool wraps an existing pool (or a mock in tests).
func NewPostgresStoreWithPool(db PgxPool) *PostgresStore {
	return &PostgresStore{db: db}
}

const findQuery = `
SELECT document_type, article_type, stage, agency_names, agency_ids, title,
       docket_ids, publication_date, posted_at, url, pdf_url, abstract,
       effective_on, rins, comments_close_on, citation_ids
FROM regulations
WHERE document_number = $1
`

// Find loads a record by document number; nil when absent.
func (s *PostgresStore) Find(ctx context.Context, documentNumber string) (*Regulation, error) {
	reg := Regulation{DocumentNumber: documentNumber}
	var (
		agencyNames, agencyIDs, docketIDs, rins, citationIDs []byte
		postedAt                                             *time.Time
	)
	err := s.db.QueryRow(ctx, findQuery, documentNumber).Scan(
		&reg.DocumentType, &reg.ArticleType, &reg.Stage, &agencyNames,
		&agencyIDs, &reg.Title, &docketIDs, &reg.PublicationDate, &postedAt,
		&reg.URL, &reg.PDFURL, &reg.Abstract, &reg.EffectiveOn, &rins,
		&reg.CommentsCloseOn, &citationIDs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find regulation %s: %w", documentNumber, err)
	}
	if postedAt != nil {
		reg.PostedAt = postedAt.UTC()
	}
	for _, col := range []struct {
		data []byte
		dest any
	}{
		{agencyNames, &reg.AgencyNames},
		{agencyIDs, &reg.AgencyIDs},
		{docketIDs, &reg.DocketIDs},
		{rins, &reg.RINs},
		{citationIDs, &reg.CitationIDs},
	} {
		if len(col.data) == 0 {
			continue
		}
		if err := json.Unmarshal(col.data, col.dest); err != nil {
			return nil, fmt.Errorf("decode regulation %s: %w", documentNumber, err)
		}
	}
	return &reg, nil
}

const saveQuery = `
INSERT INTO regulations (
    document_number, document_type, article_type, stage, agency_names,
    agency_ids, title, docket_ids, publication_date, posted_at, url, pdf_url,
    abstract, effective_on, rins, comments_close_on, citation_ids, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
ON CONFLICT (document_number) DO UPDATE SET
    document_type = EXCLUDED.document_type,
    article_type = EXCLUDED.article_type,
    stage = EXCLUDED.stage,
    agency_names = EXCLUDED.agency_names,
    agency_ids = EXCLUDED.agency_ids,
    title = EXCLUDED.title,
    docket_ids = EXCLUDED.docket_ids,
    publication_date = EXCLUDED.publication_date,
    posted_at = EXCLUDED.posted_at,
    url = EXCLUDED.url,
    pdf_url = EXCLUDED.pdf_url,
    abstract = EXCLUDED.abstract,
    effective_on = EXCLUDED.effective_on,
    rins = EXCLUDED.rins,
    comments_close_on = EXCLUDED.comments_close_on,
    citation_ids = EXCLUDED.citation_ids,
    updated_at = NOW()
`

// Save upserts the full record. Every attribute column is overwritten, which
// is what makes the preview-to-article rebuild drop preview-only fields.
func (s *PostgresStore) Save(ctx context.Context, reg Regulation) error {
	cols, err := marshalListColumns(reg)
	if err != nil {
		return err
	}
	var postedAt *time.Time
	if !reg.PostedAt.IsZero() {
		t := reg.PostedAt.UTC()
		postedAt = &t
	}
	_, err = s.db.Exec(ctx, saveQuery,
		reg.DocumentNumber, reg.DocumentType, reg.ArticleType, reg.Stage,
		cols.agencyNames, cols.agencyIDs, reg.Title, cols.docketIDs,
		reg.PublicationDate, postedAt, reg.URL, reg.PDFURL, reg.Abstract,
		reg.EffectiveOn, cols.rins, reg.CommentsCloseOn, cols.citationIDs,
	)
	if err != nil {
		return fmt.Errorf("save regulation %s: %w", reg.DocumentNumber, err)
	}
	return nil
}

const saveCitationsQuery = `
UPDATE regulations SET citation_ids = $2, updated_at = NOW()
WHERE document_number = $1
`

// SaveCitations backfills extracted citation IDs on an existing record.
func (s *PostgresStore) SaveCitations(ctx context.Context, documentNumber string, citationIDs []string) error {
	payload, err := json.Marshal(citationIDs)
	if err != nil {
		return fmt.Errorf("encode citations for %s: %w", documentNumber, err)
	}
	if _, err := s.db.Exec(ctx, saveCitationsQuery, documentNumber, payload); err != nil {
		return fmt.Errorf("save citations for %s: %w", documentNumber, err)
	}
	return nil
}

// Close shuts down the pool.
func (s *PostgresStore) Close() {
	s.db.Close()
}

type listColumns struct {
	agencyNames, agencyIDs, docketIDs, rins, citationIDs []byte
}

func marshalListColumns(reg Regulation) (listColumns, error) {
	var cols listColumns
	var err error
	for _, col := range []struct {
		src  any
		dest *[]byte
	}{
		{reg.AgencyNames, &cols.agencyNames},
		{reg.AgencyIDs, &cols.agencyIDs},
		{reg.DocketIDs, &cols.docketIDs},
		{reg.RINs, &cols.rins},
		{reg.CitationIDs, &cols.citationIDs},
	} {
		if *col.dest, err = json.Marshal(col.src); err != nil {
			return listColumns{}, fmt.Errorf("encode regulation %s: %w", reg.DocumentNumber, err)
		}
	}
	return cols, nil
}
