package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/openregs/regsync/internal/config"
)

// Client issues requests against the registry through a Colly collector. Two
// collectors are held: a plain one, and one backed by an on-disk response
// cache used exclusively for per-document detail fetches when the run enables
// caching. Search and listing calls never go through the cached collector.
type Client struct {
	baseURL string
	base    *colly.Collector
	cached  *colly.Collector
	retry   *retryPolicy
	logger  *zap.Logger
}

// NewClient constructs a registry client. cacheDir enables the detail-fetch
// cache when non-empty.
func NewClient(cfg config.RegistryConfig, cacheDir string, logger *zap.Logger) (*Client, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	build := func(opts ...colly.CollectorOption) *colly.Collector {
		opts = append(opts, colly.UserAgent(cfg.UserAgent), colly.AllowURLRevisit())
		c := colly.NewCollector(opts...)
		c.WithTransport(&http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          32,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
		})
		c.SetRequestTimeout(timeout)
		return c
	}

	client := &Client{
		baseURL: cfg.BaseURL,
		base:    build(),
		retry:   newRetryPolicy(cfg.MaxRetries),
		logger:  logger,
	}
	if cacheDir != "" {
		client.cached = build(colly.CacheDir(cacheDir))
	}
	return client, nil
}

// Details fetches the detail metadata for one document. The parsed metadata
// and the raw response body are both returned; the caller persists the raw
// JSON as the metadata artifact.
func (c *Client) Details(ctx context.Context, kind Kind, documentNumber string) (*Document, []byte, error) {
	endpoint := fmt.Sprintf("%s/%s/%s.json", c.baseURL, kind.Endpoint(), documentNumber)
	body, err := c.get(ctx, endpoint, true)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch details %s: %w", endpoint, err)
	}
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse details %s: %w", endpoint, err)
	}
	return &doc, body, nil
}

// CurrentPublicInspection fetches the registry's current public-inspection
// listing. A single unpaginated call; type filtering is the caller's job.
func (c *Client) CurrentPublicInspection(ctx context.Context) (Listing, error) {
	q := url.Values{}
	q.Add("fields[]", "document_number")
	q.Add("fields[]", "type")
	endpoint := c.baseURL + "/public-inspection-documents/current.json?" + q.Encode()
	return c.listing(ctx, endpoint)
}

// Search fetches document numbers of published articles of one type within
// an inclusive publication-date window. The registry caps results at 1000 per
// call no matter how it is paginated, so exactly one page of 1000 is asked
// for; the caller inspects Count for the truncation warning.
func (c *Client) Search(ctx context.Context, articleType string, gte, lte time.Time) (Listing, error) {
	q := url.Values{}
	q.Set("conditions[type]", articleType)
	q.Set("conditions[publication_date][gte]", gte.Format("01/02/2006"))
	q.Set("conditions[publication_date][lte]", lte.Format("01/02/2006"))
	q.Add("fields[]", "document_number")
	q.Set("per_page", "1000")
	endpoint := c.baseURL + "/articles.json?" + q.Encode()
	return c.listing(ctx, endpoint)
}

// Download retrieves a raw full-text body (HTML, XML, or plain text).
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := c.get(ctx, rawURL, false)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	return body, nil
}

func (c *Client) listing(ctx context.Context, endpoint string) (Listing, error) {
	body, err := c.get(ctx, endpoint, false)
	if err != nil {
		return Listing{}, fmt.Errorf("fetch listing %s: %w", endpoint, err)
	}
	var payload listingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Listing{}, fmt.Errorf("parse listing %s: %w", endpoint, err)
	}
	if len(payload.Errors) > 0 && string(payload.Errors) != "null" {
		return Listing{}, &ShapeError{URL: endpoint, Reason: "errors payload", Body: string(body)}
	}
	if payload.Count == nil {
		return Listing{}, &ShapeError{URL: endpoint, Reason: "no count field", Body: string(body)}
	}
	return Listing{Count: *payload.Count, Results: payload.Results}, nil
}

// get runs one GET with retry. cached selects the detail-fetch collector when
// the cache is enabled.
func (c *Client) get(ctx context.Context, rawURL string, cached bool) ([]byte, error) {
	collector := c.base
	if cached && c.cached != nil {
		collector = c.cached
	}
	var lastErr error
	for attempt := 0; ; attempt++ {
		body, err := fetchOnce(ctx, collector, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !c.retry.shouldRetry(err, attempt) {
			return nil, lastErr
		}
		c.logger.Debug("Retrying registry fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retry.backoff(attempt)):
		}
	}
}

// fetchOnce performs a single request on a clone of the collector so the
// response handlers stay request-scoped.
func fetchOnce(ctx context.Context, base *colly.Collector, rawURL string) ([]byte, error) {
	collector := base.Clone()

	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{body: append([]byte{}, r.Body...)})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown collector error")
		}
		if r != nil && r.StatusCode != 0 {
			err = fmt.Errorf("status %d: %w", r.StatusCode, err)
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return res.body, res.err
	default:
		return nil, errors.New("fetch produced no result")
	}
}

type fetchResult struct {
	body []byte
	err  error
}
