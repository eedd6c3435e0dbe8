// Package pubmed implements driven.LiteratureSearch over the NCBI E-utilities
// API: esearch resolves a query to PMIDs, efetch returns their MEDLINE records.
package pubmed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/faersight/internal/adapters/driven/httpx"
	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.LiteratureSearch = (*Client)(nil)

// Default configuration values. NCBI allows 3 requests per second without
// an API key and 10 with one.
const (
	DefaultBaseURL      = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	DefaultTimeout      = 30 * time.Second
	anonymousRate       = 3
	keyedRate           = 10
	toolName            = "faersight"
	defaultSearchResult = 20
)

// Config configures the PubMed client.
type Config struct {
	BaseURL string

	// Email and APIKey identify the caller to NCBI. Both are optional.
	Email  string
	APIKey string

	Timeout time.Duration
}

// Client searches PubMed.
type Client struct {
	http   *httpx.Client
	email  string
	apiKey string
}

// NewClient creates a PubMed client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	rps := float64(anonymousRate)
	if cfg.APIKey != "" {
		rps = keyedRate
	}

	return &Client{
		http: httpx.New(httpx.Config{
			Provider:          "pubmed",
			BaseURL:           strings.TrimRight(cfg.BaseURL, "/"),
			Timeout:           cfg.Timeout,
			RequestsPerSecond: rps,
		}),
		email:  cfg.Email,
		apiKey: cfg.APIKey,
	}
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// Search returns at most maxResults records in PubMed relevance order.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]domain.LiteratureRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty literature query", domain.ErrInvalidInput)
	}
	if maxResults <= 0 {
		maxResults = defaultSearchResult
	}

	ids, err := c.search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	logger.Info("pubmed: %d articles for %q", len(ids), query)
	if len(ids) == 0 {
		return []domain.LiteratureRecord{}, nil
	}

	records, err := c.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	return orderByIDs(records, ids), nil
}

func (c *Client) search(ctx context.Context, query string, maxResults int) ([]string, error) {
	var out esearchResponse
	_, err := c.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(c.params(map[string]string{
			"db":      "pubmed",
			"term":    query,
			"retmax":  strconv.Itoa(maxResults),
			"retmode": "json",
		})).SetResult(&out).Get("/esearch.fcgi")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: esearch: %w", domain.ErrLiteratureUnavailable, err)
	}
	return out.Result.IDList, nil
}

func (c *Client) fetch(ctx context.Context, ids []string) ([]domain.LiteratureRecord, error) {
	resp, err := c.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Accept", "text/plain").
			SetQueryParams(c.params(map[string]string{
				"db":      "pubmed",
				"id":      strings.Join(ids, ","),
				"rettype": "medline",
				"retmode": "text",
			})).Get("/efetch.fcgi")
	})
	if err != nil {
		return nil, fmt.Errorf("%w: efetch: %w", domain.ErrLiteratureUnavailable, err)
	}
	return ParseMedline(strings.NewReader(resp.String()))
}

func (c *Client) params(p map[string]string) map[string]string {
	p["tool"] = toolName
	if c.email != "" {
		p["email"] = c.email
	}
	if c.apiKey != "" {
		p["api_key"] = c.apiKey
	}
	return p
}

// orderByIDs restores esearch order; efetch does not promise it.
func orderByIDs(records []domain.LiteratureRecord, ids []string) []domain.LiteratureRecord {
	byID := make(map[string]domain.LiteratureRecord, len(records))
	for _, r := range records {
		byID[r.PMID] = r
	}
	out := make([]domain.LiteratureRecord, 0, len(records))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
			delete(byID, id)
		}
	}
	return out
}
