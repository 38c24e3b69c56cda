// Package store persists shops and coupons through the Supabase PostgREST
// API: upserts keyed on shop name and coupon source URL, plus the
// inactive/expired maintenance operations run after a refresh.
package store

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hafiznor/go-scrape-coupons/models"
)

// Client talks to one Supabase project.
type Client struct {
	http *resty.Client
}

// New builds a store client for the project URL and service key.
func New(baseURL, key string) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL + "/rest/v1")
	client.SetTimeout(30 * time.Second)
	client.SetHeader("apikey", key)
	client.SetHeader("Authorization", "Bearer "+key)
	client.SetHeader("content-type", "application/json")
	return &Client{http: client}
}

// HTTPClient exposes the underlying transport so tests can mock it.
func (c *Client) HTTPClient() *http.Client {
	return c.http.GetClient()
}

type shopRow struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Category string `json:"category"`
}

// CouponRow is the persisted shape of one coupon.
type CouponRow struct {
	ShopID             string    `json:"shop_id"`
	Title              string    `json:"title"`
	Code               string    `json:"code"`
	Description        string    `json:"description"`
	TermsAndConditions string    `json:"terms_and_conditions"`
	ExpiryDate         *string   `json:"expiry_date"`
	SourceURL          string    `json:"source_url"`
	Category           string    `json:"category"`
	ImageURL           string    `json:"image_url"`
	Embedding          []float64 `json:"embedding,omitempty"`
	IsActive           bool      `json:"is_active"`
}

// Statistics summarizes the store after a refresh.
type Statistics struct {
	Shops           int `json:"shops"`
	ActiveCoupons   int `json:"active_coupons"`
	InactiveCoupons int `json:"inactive_coupons"`
}

// UpsertShop inserts or updates a shop keyed on its name and returns the
// row identity.
func (c *Client) UpsertShop(ctx context.Context, name, imageURL string, category models.Category) (string, error) {
	var rows []shopRow
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", "name").
		SetHeader("Prefer", "resolution=merge-duplicates,return=representation").
		SetBody([]shopRow{{Name: name, ImageURL: imageURL, Category: string(category)}}).
		SetResult(&rows).
		Post("/shops")
	if err != nil {
		return "", fmt.Errorf("upsert shop %q: %w", name, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("upsert shop %q: status %d: %s", name, res.StatusCode(), res.String())
	}
	if len(rows) == 0 || rows[0].ID == "" {
		return "", fmt.Errorf("upsert shop %q: no identity returned", name)
	}
	return rows[0].ID, nil
}

// UpsertCoupon inserts or updates a coupon keyed on its source URL.
func (c *Client) UpsertCoupon(ctx context.Context, row CouponRow) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", "source_url").
		SetHeader("Prefer", "resolution=merge-duplicates").
		SetBody([]CouponRow{row}).
		Post("/coupons")
	if err != nil {
		return fmt.Errorf("upsert coupon %s: %w", row.SourceURL, err)
	}
	if res.IsError() {
		return fmt.Errorf("upsert coupon %s: status %d: %s", row.SourceURL, res.StatusCode(), res.String())
	}
	return nil
}

// MarkAllInactive flags every active coupon inactive. Run before a full
// refresh so coupons the site no longer lists end up inactive instead of
// stale.
func (c *Client) MarkAllInactive(ctx context.Context) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("is_active", "eq.true").
		SetBody(map[string]bool{"is_active": false}).
		Patch("/coupons")
	if err != nil {
		return fmt.Errorf("mark all inactive: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("mark all inactive: status %d: %s", res.StatusCode(), res.String())
	}
	return nil
}

// DeactivateExpired flags coupons whose expiry date has passed.
func (c *Client) DeactivateExpired(ctx context.Context, asOf time.Time) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("expiry_date", "lt."+asOf.Format("2006-01-02")).
		SetQueryParam("is_active", "eq.true").
		SetBody(map[string]bool{"is_active": false}).
		Patch("/coupons")
	if err != nil {
		return fmt.Errorf("deactivate expired: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("deactivate expired: status %d: %s", res.StatusCode(), res.String())
	}
	return nil
}

// DeleteInactiveUnreferenced removes inactive coupons no user has saved.
// The anti-join lives in a database function; PostgREST filters cannot
// express it.
func (c *Client) DeleteInactiveUnreferenced(ctx context.Context) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{}).
		Post("/rpc/delete_inactive_unreferenced")
	if err != nil {
		return fmt.Errorf("delete inactive unreferenced: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("delete inactive unreferenced: status %d: %s", res.StatusCode(), res.String())
	}
	return nil
}

// AggregateStatistics returns shop and coupon counts.
func (c *Client) AggregateStatistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{}).
		SetResult(&stats).
		Post("/rpc/coupon_statistics")
	if err != nil {
		return Statistics{}, fmt.Errorf("aggregate statistics: %w", err)
	}
	if res.IsError() {
		return Statistics{}, fmt.Errorf("aggregate statistics: status %d: %s", res.StatusCode(), res.String())
	}
	return stats, nil
}
