// Package classify maps shop names onto the fixed category enumeration by
// calling the generative-language API. The whole batch goes out in a single
// request; a malformed response is a total failure for the batch, never a
// partial one.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hafiznor/go-scrape-coupons/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the classification service.
type Client struct {
	http   *resty.Client
	apiKey string
	model  string
}

// New builds a classifier client for the given API key and model.
func New(apiKey, model string) *Client {
	client := resty.New()
	client.SetBaseURL(defaultBaseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("content-type", "application/json")
	return &Client{http: client, apiKey: apiKey, model: model}
}

// SetBaseURL overrides the API endpoint, primarily for tests.
func (c *Client) SetBaseURL(url string) {
	c.http.SetBaseURL(url)
}

// HTTPClient exposes the underlying transport so tests can mock it.
func (c *Client) HTTPClient() *http.Client {
	return c.http.GetClient()
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Categorize classifies a batch of shop names. The returned map contains
// only shops the service assigned a known category; on any failure it is
// empty and the error describes why. Callers exclude unmapped shops rather
// than treating the miss as fatal.
func (c *Client) Categorize(ctx context.Context, names []string) (map[string]models.Category, error) {
	empty := map[string]models.Category{}
	if len(names) == 0 {
		return empty, nil
	}

	prompt := buildPrompt(names)
	var parsed generateResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}).
		SetResult(&parsed).
		Post(fmt.Sprintf("/models/%s:generateContent", c.model))
	if err != nil {
		return empty, fmt.Errorf("classification request: %w", err)
	}
	if res.IsError() {
		return empty, fmt.Errorf("classification request: status %d: %s", res.StatusCode(), res.String())
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return empty, fmt.Errorf("classification response has no candidates")
	}

	raw := stripFences(parsed.Candidates[0].Content.Parts[0].Text)
	var mapping map[string]string
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return empty, fmt.Errorf("classification response is not a JSON object: %w", err)
	}

	out := make(map[string]models.Category, len(mapping))
	for name, value := range mapping {
		category := models.Category(strings.TrimSpace(value))
		if !category.Valid() {
			continue
		}
		out[name] = category
	}
	return out, nil
}

func buildPrompt(names []string) string {
	categories := make([]string, 0, len(models.Categories()))
	for _, c := range models.Categories() {
		categories = append(categories, string(c))
	}
	var b strings.Builder
	b.WriteString("Categorize these shop names into one of these categories: ")
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString(".\n\nShop names: ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n\nReturn only a JSON object mapping each shop name to its category. Example format:\n")
	b.WriteString(`{"ShopName1": "Fashion", "ShopName2": "Travel"}`)
	return b.String()
}

// stripFences removes the markdown code fences the model likes to wrap JSON
// in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
