package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the traversal engine.
type Metrics struct {
	Registry          *prometheus.Registry
	ShopsProcessed    prometheus.Counter
	CardsSeen         prometheus.Counter
	CouponsRecorded   prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	CardsAbandoned    prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
	ShopDuration      prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	shops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_shops_processed_total",
		Help: "Total shops fully traversed.",
	})
	cards := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_cards_seen_total",
		Help: "Total verified coupon cards attempted.",
	})
	recorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_coupons_recorded_total",
		Help: "Total coupon records appended to the result.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_duplicates_skipped_total",
		Help: "Total cards skipped because their origin URL was already seen.",
	})
	abandoned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_cards_abandoned_total",
		Help: "Total cards abandoned after the reveal popup never arrived.",
	})
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total traversal faults by type.",
		},
		[]string{"error_type"},
	)
	shopDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scraper_shop_duration_seconds",
		Help:    "Wall time spent draining a single shop.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	registry.MustRegister(shops, cards, recorded, duplicates, abandoned, errorsTotal, shopDuration)

	return &Metrics{
		Registry:          registry,
		ShopsProcessed:    shops,
		CardsSeen:         cards,
		CouponsRecorded:   recorded,
		DuplicatesSkipped: duplicates,
		CardsAbandoned:    abandoned,
		ErrorsTotal:       errorsTotal,
		ShopDuration:      shopDuration,
	}
}

// IncShop increments the processed-shop counter.
func (m *Metrics) IncShop() {
	if m == nil {
		return
	}
	m.ShopsProcessed.Inc()
}

// IncCard increments the attempted-card counter.
func (m *Metrics) IncCard() {
	if m == nil {
		return
	}
	m.CardsSeen.Inc()
}

// IncRecorded increments the recorded-coupon counter.
func (m *Metrics) IncRecorded() {
	if m == nil {
		return
	}
	m.CouponsRecorded.Inc()
}

// IncDuplicate increments the duplicate-skip counter.
func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.DuplicatesSkipped.Inc()
}

// IncAbandoned increments the abandoned-card counter.
func (m *Metrics) IncAbandoned() {
	if m == nil {
		return
	}
	m.CardsAbandoned.Inc()
}

// IncError increments the fault counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveShopDuration records the wall time spent on one shop.
func (m *Metrics) ObserveShopDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ShopDuration.Observe(d.Seconds())
}
