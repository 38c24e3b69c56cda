// Package scraper implements the stateful extraction traversal engine: it
// walks the paginated shop catalog, opens per-shop detail pages, reveals
// verified coupon cards through their popup flow, and accumulates a
// deduplicated result set.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hafiznor/go-scrape-coupons/browser"
	"github.com/hafiznor/go-scrape-coupons/config"
	"github.com/hafiznor/go-scrape-coupons/models"
)

// Engine drives one extraction run. All traversal runs on a single
// goroutine: popup ownership and tab focus are context-global browser state
// that cannot be safely interleaved, so shops and cards are processed
// strictly in sequence and no internal locking is needed.
type Engine struct {
	cfg       *config.Config
	browser   browser.Browser
	selectors Selectors
	Metrics   *Metrics

	shops     map[string]*models.ShopEntry
	order     []string
	processed map[string]struct{}

	duplicateCount int
	abandonedCount int
	errorCount     int
	errorsByType   map[string]int
}

// New builds an engine over a launched browser.
func New(cfg *config.Config, b browser.Browser) *Engine {
	return &Engine{
		cfg:          cfg,
		browser:      b,
		selectors:    DefaultSelectors(),
		Metrics:      NewMetrics(),
		shops:        make(map[string]*models.ShopEntry),
		processed:    make(map[string]struct{}),
		errorsByType: make(map[string]int),
	}
}

// SetSelectors swaps the selector chains, primarily for fixture tests.
func (e *Engine) SetSelectors(s Selectors) {
	e.selectors = s
}

// Run walks the catalog until the configured shop budget is reached, the
// listing is exhausted, or ctx is cancelled. The returned result is always
// usable: on a top-level fault it carries everything accumulated so far and
// the error describes where traversal stopped.
func (e *Engine) Run(ctx context.Context) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	bctx, err := e.browser.NewContext(browser.ContextOptions{
		NavigationTimeout: e.cfg.NavigationTimeout,
	})
	if err != nil {
		return e.result(start), fmt.Errorf("open browser context: %w", err)
	}
	defer bctx.Close()

	listing, err := bctx.NewPage()
	if err != nil {
		return e.result(start), fmt.Errorf("open listing page: %w", err)
	}
	slog.Info("navigating to catalog", slog.String("url", e.cfg.ListingURL()))
	if err := listing.Goto(e.cfg.ListingURL()); err != nil {
		navErr := ErrNavigation{URL: e.cfg.ListingURL(), Err: err}
		e.recordFault(navErr)
		return e.result(start), navErr
	}

	for len(e.order) < e.cfg.MaxShops {
		if ctx.Err() != nil {
			slog.Info("run cancelled, keeping partial results", slog.Int("shops", len(e.order)))
			break
		}

		link, ok := e.nextUnseenShop(listing)
		if !ok {
			slog.Info("catalog exhausted", slog.Int("shops", len(e.order)))
			break
		}

		slog.Info("processing shop",
			slog.String("shop", link.name),
			slog.Int("position", len(e.order)+1),
			slog.Int("budget", e.cfg.MaxShops),
		)
		e.processed[link.name] = struct{}{}
		e.processShop(bctx, link)

		// Pagination state is not preserved; already-processed names are
		// skipped on the reloaded first page instead.
		listing.BringToFront()
		if err := listing.Goto(e.cfg.ListingURL()); err != nil {
			navErr := ErrNavigation{URL: e.cfg.ListingURL(), Err: err}
			e.recordFault(navErr)
			return e.result(start), navErr
		}
	}

	return e.result(start), nil
}

// processShop extracts the logo and drains every verified card of one shop.
// The aggregator entry is recorded even when the drain aborts early so that
// partial coupons survive.
func (e *Engine) processShop(bctx browser.Context, link shopLink) {
	started := time.Now()
	entry := &models.ShopEntry{Name: link.name, Path: link.path}
	entry.ImageURL = e.shopImage(bctx, link)

	sess := newSession(bctx, e.cfg.ShopURL(link.path))
	if err := sess.reset(); err != nil {
		e.recordFault(ErrNavigation{URL: sess.url, Err: err})
	} else {
		e.drainShop(sess, entry)
	}
	sess.invalidate()

	e.shops[link.name] = entry
	e.order = append(e.order, link.name)
	e.Metrics.IncShop()
	e.Metrics.ObserveShopDuration(time.Since(started))
}

// shopImage resolves the shop logo on a throwaway preview page. The
// class-anchored chain is tried first; failing that, any visible image
// whose src or alt mentions the shop name is accepted. An empty string is a
// valid miss, not an error.
func (e *Engine) shopImage(bctx browser.Context, link shopLink) string {
	page, err := bctx.NewPage()
	if err != nil {
		return ""
	}
	defer page.Close()

	if err := page.Goto(e.cfg.ShopURL(link.path)); err != nil {
		slog.Debug("logo preview navigation failed", slog.String("shop", link.name), slog.Any("error", err))
		return ""
	}

	if element, ok := FirstVisible(page, e.selectors.ShopLogo); ok {
		if src, ok := element.Attribute("src"); ok {
			return src
		}
	}

	images, err := page.Query("img").All()
	if err != nil {
		return ""
	}
	needle := strings.ToLower(link.name)
	for _, img := range images {
		visible, err := img.IsVisible()
		if err != nil || !visible {
			continue
		}
		src, _ := img.Attribute("src")
		if src == "" {
			continue
		}
		alt, _ := img.Attribute("alt")
		if strings.Contains(strings.ToLower(src), needle) || strings.Contains(strings.ToLower(alt), needle) {
			return src
		}
	}
	return ""
}

func (e *Engine) recordFault(err error) {
	label := errorTypeLabel(err)
	e.errorCount++
	e.errorsByType[label]++
	e.Metrics.IncError(label)
	slog.Error("traversal fault",
		slog.String("category", label),
		slog.Any("error", err),
	)
}

func (e *Engine) result(start time.Time) *models.RunResult {
	order := make([]string, len(e.order))
	copy(order, e.order)
	errorsByType := make(map[string]int, len(e.errorsByType))
	for k, v := range e.errorsByType {
		errorsByType[k] = v
	}

	coupons := 0
	for _, entry := range e.shops {
		coupons += len(entry.Coupons)
	}

	return &models.RunResult{
		Shops:          e.shops,
		Order:          order,
		StartTime:      start,
		EndTime:        time.Now(),
		ShopsProcessed: len(order),
		CouponCount:    coupons,
		DuplicateCount: e.duplicateCount,
		AbandonedCount: e.abandonedCount,
		ErrorCount:     e.errorCount,
		ErrorsByType:   errorsByType,
	}
}
