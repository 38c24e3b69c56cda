// Package config defines scraper configuration and environment helpers.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable for a scrape run. Credentials are required;
// everything else has workable defaults.
type Config struct {
	BaseURL     string
	ListingPath string
	MaxShops    int

	// Traversal timing. PopupTimeout bounds the wait for the reveal popup,
	// SettleDelay covers content that renders with no completion signal.
	NavigationTimeout time.Duration
	PopupTimeout      time.Duration
	SettleDelay       time.Duration
	DismissDelay      time.Duration

	Headless    bool
	OutputFile  string
	MetricsAddr string
	Verbose     bool

	// External collaborators.
	StoreURL        string
	StoreKey        string
	ClassifierKey   string
	ClassifierModel string
	EmbedModel      string
}

// DefaultConfig returns conservative defaults for the production target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://www.cuponation.com.my",
		ListingPath:       "/allshop",
		MaxShops:          500,
		NavigationTimeout: 60 * time.Second,
		PopupTimeout:      10 * time.Second,
		SettleDelay:       1500 * time.Millisecond,
		DismissDelay:      500 * time.Millisecond,
		Headless:          true,
		OutputFile:        "output/coupons.json",
		MetricsAddr:       "",
		Verbose:           false,
		ClassifierModel:   "gemini-1.5-flash",
		EmbedModel:        "text-embedding-004",
	}
}

// Validate ensures all configuration values are coherent. Missing store or
// classifier credentials are construction errors: the run cannot proceed
// meaningfully without them.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.ListingPath == "" || c.ListingPath[0] != '/' {
		return fmt.Errorf("listing path must start with /")
	}
	if c.MaxShops <= 0 {
		return fmt.Errorf("max shops must be positive")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.PopupTimeout <= 0 {
		return fmt.Errorf("popup timeout must be positive")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.DismissDelay < 0 {
		return fmt.Errorf("dismiss delay cannot be negative")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.StoreURL == "" {
		return fmt.Errorf("store URL is required (SUPABASE_URL)")
	}
	if c.StoreKey == "" {
		return fmt.Errorf("store key is required (SUPABASE_ANON_KEY)")
	}
	if c.ClassifierKey == "" {
		return fmt.Errorf("classifier key is required (GEMINI_API_KEY)")
	}
	return nil
}

// ListingURL returns the absolute catalog listing URL.
func (c *Config) ListingURL() string {
	return c.BaseURL + c.ListingPath
}

// ShopURL resolves a catalog-relative shop path against the base URL.
func (c *Config) ShopURL(path string) string {
	return c.BaseURL + path
}

// EnvString reads an environment variable, reporting whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return value, ok
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, true, nil
}

// EnvBool reads a boolean environment variable.
func EnvBool(key string) (bool, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return parsed, true, nil
}
