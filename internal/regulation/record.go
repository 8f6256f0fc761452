// Package regulation defines the canonical record for one regulatory
// document and the reconciliation rules that map registry metadata onto it.
package regulation

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/openregs/regsync/internal/registry"
)

// Document lifecycle stages stored on records.
const (
	DocumentTypeArticle          = "article"
	DocumentTypePublicInspection = "public_inspection"
)

// Article types and rule stages derived from the registry type string.
const (
	ArticleTypeRegulation = "regulation"
	StageProposed         = "proposed"
	StageFinal            = "final"
)

// Regulation is the canonical persisted entity, keyed by document number.
// The same record represents a document across its whole lifecycle; only
// DocumentType says which stage it currently captures.
type Regulation struct {
	DocumentNumber string `json:"document_number"`
	DocumentType   string `json:"document_type"`
	ArticleType    string `json:"article_type"`
	// Stage is set only when ArticleType is "regulation".
	Stage string `json:"stage,omitempty"`

	AgencyNames []string `json:"agency_names"`
	AgencyIDs   []int    `json:"agency_ids"`

	Title           string    `json:"title"`
	DocketIDs       []string  `json:"docket_ids"`
	PublicationDate string    `json:"publication_date"`
	PostedAt        time.Time `json:"posted_at"`
	URL             string    `json:"url"`
	PDFURL          string    `json:"pdf_url"`

	Abstract        string   `json:"abstract,omitempty"`
	EffectiveOn     string   `json:"effective_on,omitempty"`
	RINs            []string `json:"rins,omitempty"`
	CommentsCloseOn string   `json:"comments_close_on,omitempty"`

	// CitationIDs is absent until full-text processing completes.
	CitationIDs []string `json:"citation_ids,omitempty"`
}

// BasicFields is the fixed projection of a record that gets synced to the
// search index alongside the full text and citations.
func (r Regulation) BasicFields() map[string]any {
	return map[string]any{
		"document_number":   r.DocumentNumber,
		"document_type":     r.DocumentType,
		"article_type":      r.ArticleType,
		"stage":             r.Stage,
		"agency_names":      r.AgencyNames,
		"agency_ids":        r.AgencyIDs,
		"title":             r.Title,
		"docket_ids":        r.DocketIDs,
		"publication_date":  r.PublicationDate,
		"posted_at":         r.PostedAt,
		"url":               r.URL,
		"pdf_url":           r.PDFURL,
		"abstract":          r.Abstract,
		"effective_on":      r.EffectiveOn,
		"rins":              r.RINs,
		"comments_close_on": r.CommentsCloseOn,
	}
}

// typeToStage maps the registry type string to a rule stage. Anything not
// listed is a notice-like category.
var typeToStage = map[string]string{
	"Proposed Rule": StageProposed,
	"Rule":          StageFinal,
}

// Reconcile maps fetched metadata onto the next record value, applying the
// lifecycle policy:
//
//   - A public-inspection fetch for a document already stored as an article
//     is a no-op; the published article is authoritative (skip=true).
//   - An article fetch for a document stored as a public inspection rebuilds
//     the record from scratch; no preview-only fields survive.
//   - Otherwise the record is rebuilt from the fresh metadata, carrying over
//     only previously extracted citations.
//
// The returned record is a value; nothing is mutated in place.
func Reconcile(existing *Regulation, kind registry.Kind, doc *registry.Document) (next Regulation, skip bool, err error) {
	if existing != nil && kind == registry.KindPublicInspection && existing.DocumentType != DocumentTypePublicInspection {
		return *existing, true, nil
	}

	next = Regulation{
		DocumentNumber:  doc.DocumentNumber,
		DocumentType:    kind.String(),
		PublicationDate: doc.PublicationDate,
		URL:             doc.HTMLURL,
		PDFURL:          doc.PDFURL,
	}
	for _, agency := range doc.Agencies {
		next.AgencyNames = append(next.AgencyNames, agency.DisplayName())
		next.AgencyIDs = append(next.AgencyIDs, agency.ID)
	}

	if stage, ok := typeToStage[doc.Type]; ok {
		next.ArticleType = ArticleTypeRegulation
		next.Stage = stage
	} else {
		next.ArticleType = strings.ToLower(doc.Type)
	}

	switch kind {
	case registry.KindArticle:
		next.Title = doc.Title
		next.DocketIDs = doc.DocketIDs
		next.Abstract = doc.Abstract
		next.EffectiveOn = doc.EffectiveOn
		next.RINs = doc.RINs
		next.CommentsCloseOn = doc.CommentsCloseOn
		next.PostedAt, err = NoonUTC(doc.PublicationDate)
		if err != nil {
			return Regulation{}, false, fmt.Errorf("document %s: %w", doc.DocumentNumber, err)
		}
	case registry.KindPublicInspection:
		next.Title = doc.Title
		if next.Title == "" && doc.TOCSubject != "" && doc.TOCDoc != "" {
			// The registry leaves the preview title blank surprisingly often;
			// subject + doc type reconstructs the final title almost always.
			next.Title = doc.TOCSubject + " " + doc.TOCDoc
		}
		next.DocketIDs = doc.DocketNumbers
		next.PostedAt, err = filedAtUTC(doc.FiledAt)
		if err != nil {
			return Regulation{}, false, fmt.Errorf("document %s: %w", doc.DocumentNumber, err)
		}
	}

	// Citations survive a re-fetch only within the same lifecycle stage; the
	// preview-to-article rebuild drops them along with everything else.
	if existing != nil && existing.DocumentType == next.DocumentType {
		next.CitationIDs = existing.CitationIDs
	}

	return next, false, nil
}

// NoonUTC anchors a date-only publication date at noon UTC. Publication dates
// carry no time of day; noon keeps the date stable across time zones.
func NoonUTC(publicationDate string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", publicationDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse publication date %q: %w", publicationDate, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC), nil
}

// filedAtUTC parses the preview "filed at" timestamp, which carries a real
// time of day and offset.
func filedAtUTC(filedAt string) (time.Time, error) {
	if filedAt == "" {
		return time.Time{}, fmt.Errorf("filed_at is blank")
	}
	t, err := dateparse.ParseAny(filedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse filed_at %q: %w", filedAt, err)
	}
	return t.UTC(), nil
}
