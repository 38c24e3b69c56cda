// Package embed turns coupon text into fixed-dimension vectors via the
// embedding API. Failures are non-fatal by contract: a record persists
// without a vector. Identical coupon text shows up across shops constantly,
// so responses are memoized in a bounded LRU keyed by the normalized text.
package embed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hafiznor/go-scrape-coupons/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultCacheSize = 1024
)

// Client calls the embedding service.
type Client struct {
	http   *resty.Client
	apiKey string
	model  string
	cache  *lru.Cache[string, []float64]
}

// New builds an embedding client for the given API key and model.
func New(apiKey, model string) *Client {
	client := resty.New()
	client.SetBaseURL(defaultBaseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("content-type", "application/json")
	cache, _ := lru.New[string, []float64](defaultCacheSize)
	return &Client{http: client, apiKey: apiKey, model: model, cache: cache}
}

// SetBaseURL overrides the API endpoint, primarily for tests.
func (c *Client) SetBaseURL(url string) {
	c.http.SetBaseURL(url)
}

// HTTPClient exposes the underlying transport so tests can mock it.
func (c *Client) HTTPClient() *http.Client {
	return c.http.GetClient()
}

type embedRequest struct {
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed returns the vector for text. The text is whitespace-normalized
// before both the cache lookup and the request so trivially different
// extractions share an entry.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	normalized := parser.CleanText(text)
	if normalized == "" {
		return nil, fmt.Errorf("nothing to embed")
	}
	if vector, ok := c.cache.Get(normalized); ok {
		return vector, nil
	}

	var body embedRequest
	body.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: normalized}}

	var parsed embedResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(body).
		SetResult(&parsed).
		Post(fmt.Sprintf("/models/%s:embedContent", c.model))
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("embedding request: status %d: %s", res.StatusCode(), res.String())
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding response has no values")
	}

	c.cache.Add(normalized, parsed.Embedding.Values)
	return parsed.Embedding.Values, nil
}
