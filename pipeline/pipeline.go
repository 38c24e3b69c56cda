// Package pipeline turns a finished scrape into persisted rows: categorize
// shops in one batch, embed coupon text, upsert everything, then run the
// store maintenance pass.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/hafiznor/go-scrape-coupons/models"
	"github.com/hafiznor/go-scrape-coupons/parser"
	"github.com/hafiznor/go-scrape-coupons/store"
)

// Classifier assigns a category to each shop name.
type Classifier interface {
	Categorize(ctx context.Context, names []string) (map[string]models.Category, error)
}

// Embedder produces a vector for coupon text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Store persists shops and coupons.
type Store interface {
	UpsertShop(ctx context.Context, name, imageURL string, category models.Category) (string, error)
	UpsertCoupon(ctx context.Context, row store.CouponRow) error
	MarkAllInactive(ctx context.Context) error
	DeactivateExpired(ctx context.Context, asOf time.Time) error
	DeleteInactiveUnreferenced(ctx context.Context) error
	AggregateStatistics(ctx context.Context) (store.Statistics, error)
}

// Report counts what the save pass accomplished.
type Report struct {
	ShopsSaved       int
	ShopsSkipped     int
	CouponsSaved     int
	CouponsFailed    int
	EmbeddingsMissed int
}

// Pipeline wires the classifier, embedder, and store behind one Save call.
type Pipeline struct {
	classifier Classifier
	embedder   Embedder
	store      Store
	logger     *slog.Logger
}

// New builds a pipeline. A nil logger falls back to the default.
func New(classifier Classifier, embedder Embedder, st Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		classifier: classifier,
		embedder:   embedder,
		store:      st,
		logger:     logger,
	}
}

// Save persists a scrape run. Shops fail independently: a shop without a
// category or a failed shop upsert is skipped, a failed coupon upsert is
// counted, and the rest of the run continues. The report is returned even
// when maintenance fails.
func (p *Pipeline) Save(ctx context.Context, result *models.RunResult) (*Report, error) {
	report := &Report{}
	if result == nil || len(result.Order) == 0 {
		return report, nil
	}

	if err := p.store.MarkAllInactive(ctx); err != nil {
		return report, err
	}

	categories, err := p.classifier.Categorize(ctx, result.Order)
	if err != nil {
		p.logger.Error("categorization failed, skipping uncategorized shops", "error", err)
		categories = map[string]models.Category{}
	}

	for _, name := range result.Order {
		entry := result.Shops[name]
		if entry == nil {
			continue
		}
		category, ok := categories[name]
		if !ok {
			p.logger.Warn("no category for shop, skipping", "shop", name)
			report.ShopsSkipped++
			continue
		}
		if err := p.saveShop(ctx, entry, category, report); err != nil {
			p.logger.Error("shop save failed", "shop", name, "error", err)
			report.ShopsSkipped++
			continue
		}
		report.ShopsSaved++
	}

	if err := p.maintain(ctx); err != nil {
		return report, err
	}
	return report, nil
}

func (p *Pipeline) saveShop(ctx context.Context, entry *models.ShopEntry, category models.Category, report *Report) error {
	shopID, err := p.store.UpsertShop(ctx, entry.Name, entry.ImageURL, category)
	if err != nil {
		return err
	}

	for _, coupon := range entry.Coupons {
		if err := parser.ValidateRecord(&coupon); err != nil {
			p.logger.Warn("dropping malformed coupon", "shop", entry.Name, "error", err)
			report.CouponsFailed++
			continue
		}
		vector, err := p.embedder.Embed(ctx, coupon.Title+" "+coupon.Description)
		if err != nil {
			p.logger.Warn("embedding failed, saving coupon without vector",
				"shop", entry.Name, "coupon", coupon.Title, "error", err)
			vector = nil
			report.EmbeddingsMissed++
		}

		row := store.CouponRow{
			ShopID:             shopID,
			Title:              coupon.Title,
			Code:               coupon.Code,
			Description:        coupon.Description,
			TermsAndConditions: coupon.TermsAndConditions,
			ExpiryDate:         parser.ExpiryISO(coupon.ExpiryDate),
			SourceURL:          coupon.URL,
			Category:           string(category),
			ImageURL:           entry.ImageURL,
			Embedding:          vector,
			IsActive:           true,
		}
		if err := p.store.UpsertCoupon(ctx, row); err != nil {
			p.logger.Error("coupon save failed",
				"shop", entry.Name, "url", coupon.URL, "error", err)
			report.CouponsFailed++
			continue
		}
		report.CouponsSaved++
	}
	return nil
}

// maintain deactivates expired coupons, prunes unreferenced inactive rows,
// and logs store totals.
func (p *Pipeline) maintain(ctx context.Context) error {
	if err := p.store.DeactivateExpired(ctx, time.Now()); err != nil {
		return err
	}
	if err := p.store.DeleteInactiveUnreferenced(ctx); err != nil {
		return err
	}
	stats, err := p.store.AggregateStatistics(ctx)
	if err != nil {
		p.logger.Warn("statistics unavailable", "error", err)
		return nil
	}
	p.logger.Info("store totals",
		"shops", stats.Shops,
		"active_coupons", stats.ActiveCoupons,
		"inactive_coupons", stats.InactiveCoupons)
	return nil
}
