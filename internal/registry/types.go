// Package registry is a typed client for the Federal Register API. It covers
// the three endpoints the sync pipeline needs: per-document detail fetches,
// the current public-inspection listing, and windowed article searches.
package registry

import (
	"encoding/json"
	"fmt"
)

// Kind distinguishes the two document lifecycles the registry publishes.
type Kind string

// Supported document kinds.
const (
	KindArticle          Kind = "article"
	KindPublicInspection Kind = "public_inspection"
)

// Endpoint returns the API path segment for this kind's detail endpoint.
func (k Kind) Endpoint() string {
	if k == KindPublicInspection {
		return "public-inspection-documents"
	}
	return "articles"
}

// String returns the kind as stored on canonical records and artifact paths.
func (k Kind) String() string { return string(k) }

// Agency identifies one issuing agency on a document.
type Agency struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	RawName string `json:"raw_name"`
}

// DisplayName prefers the curated agency name over the raw one.
func (a Agency) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.RawName
}

// Document is the detail-endpoint metadata for one document. Both kinds
// decode into the same shape; kind-specific fields are simply absent for the
// other kind and are validated at the reconciliation boundary.
type Document struct {
	DocumentNumber  string   `json:"document_number"`
	Type            string   `json:"type"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	PublicationDate string   `json:"publication_date"`
	Agencies        []Agency `json:"agencies"`
	HTMLURL         string   `json:"html_url"`
	PDFURL          string   `json:"pdf_url"`

	// Published articles only.
	DocketIDs       []string `json:"docket_ids"`
	EffectiveOn     string   `json:"effective_on"`
	RINs            []string `json:"regulation_id_numbers"`
	CommentsCloseOn string   `json:"comments_close_on"`
	BodyHTMLURL     string   `json:"body_html_url"`
	FullTextXMLURL  string   `json:"full_text_xml_url"`

	// Public inspection documents only.
	DocketNumbers []string `json:"docket_numbers"`
	FiledAt       string   `json:"filed_at"`
	RawTextURL    string   `json:"raw_text_url"`
	TOCSubject    string   `json:"toc_subject"`
	TOCDoc        string   `json:"toc_doc"`
}

// ListedDocument is one entry of a listing or search response.
type ListedDocument struct {
	DocumentNumber string `json:"document_number"`
	Type           string `json:"type"`
}

// Listing is a validated listing/search response.
type Listing struct {
	Count   int
	Results []ListedDocument
}

// listingPayload is the wire shape. Count is a pointer so a missing count
// field is distinguishable from zero results.
type listingPayload struct {
	Count   *int             `json:"count"`
	Results []ListedDocument `json:"results"`
	Errors  json.RawMessage  `json:"errors"`
}

// ShapeError reports a response that decoded but did not have the expected
// shape: an errors payload, or a missing count field. Callers log it with the
// full body context and treat the affected listing as empty.
type ShapeError struct {
	URL    string
	Reason string
	Body   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected response shape from %s: %s", e.URL, e.Reason)
}
