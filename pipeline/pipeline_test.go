package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hafiznor/go-scrape-coupons/models"
	"github.com/hafiznor/go-scrape-coupons/store"
)

type fakeClassifier struct {
	categories map[string]models.Category
	err        error
	batches    [][]string
}

func (f *fakeClassifier) Categorize(_ context.Context, names []string) (map[string]models.Category, error) {
	f.batches = append(f.batches, names)
	if f.err != nil {
		return map[string]models.Category{}, f.err
	}
	return f.categories, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

type fakeStore struct {
	shopErr   error
	couponErr error
	shops     []string
	coupons   []store.CouponRow
	markedAll bool
	expiredAt time.Time
	pruned    bool
	statsErr  error
}

func (f *fakeStore) UpsertShop(_ context.Context, name, imageURL string, _ models.Category) (string, error) {
	if f.shopErr != nil {
		return "", f.shopErr
	}
	f.shops = append(f.shops, name)
	return "id-" + name, nil
}

func (f *fakeStore) UpsertCoupon(_ context.Context, row store.CouponRow) error {
	if f.couponErr != nil {
		return f.couponErr
	}
	f.coupons = append(f.coupons, row)
	return nil
}

func (f *fakeStore) MarkAllInactive(context.Context) error {
	f.markedAll = true
	return nil
}

func (f *fakeStore) DeactivateExpired(_ context.Context, asOf time.Time) error {
	f.expiredAt = asOf
	return nil
}

func (f *fakeStore) DeleteInactiveUnreferenced(context.Context) error {
	f.pruned = true
	return nil
}

func (f *fakeStore) AggregateStatistics(context.Context) (store.Statistics, error) {
	if f.statsErr != nil {
		return store.Statistics{}, f.statsErr
	}
	return store.Statistics{Shops: 1, ActiveCoupons: 2}, nil
}

func runFixture() *models.RunResult {
	acme := &models.ShopEntry{Name: "Acme", ImageURL: "https://cdn.test/acme.png"}
	acme.Append(models.CouponRecord{
		Title:       "10% off",
		Code:        "ACME10",
		Description: "Ten percent off sitewide",
		ExpiryDate:  "31/12/2026",
		URL:         "https://shops.test/go/acme-10off",
	})
	acme.Append(models.CouponRecord{
		Title: "Free shipping",
		Code:  "SHIPFREE",
		URL:   "https://shops.test/go/acme-freeship",
	})
	zen := &models.ShopEntry{Name: "Zen"}
	zen.Append(models.CouponRecord{
		Title: "RM5 off",
		Code:  "ZEN5",
		URL:   "https://shops.test/go/zen-5",
	})
	return &models.RunResult{
		Shops: map[string]*models.ShopEntry{"Acme": acme, "Zen": zen},
		Order: []string{"Acme", "Zen"},
	}
}

func TestSavePersistsEveryShopAndCoupon(t *testing.T) {
	classifier := &fakeClassifier{categories: map[string]models.Category{
		"Acme": models.CategoryFashion,
		"Zen":  models.CategoryTravel,
	}}
	embedder := &fakeEmbedder{}
	st := &fakeStore{}
	p := New(classifier, embedder, st, nil)

	report, err := p.Save(context.Background(), runFixture())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if !st.markedAll {
		t.Error("expected MarkAllInactive before upserts")
	}
	if report.ShopsSaved != 2 || report.CouponsSaved != 3 {
		t.Fatalf("report = %+v, want 2 shops and 3 coupons saved", report)
	}
	if len(classifier.batches) != 1 || len(classifier.batches[0]) != 2 {
		t.Fatalf("classifier batches = %v, want one batch of both shops", classifier.batches)
	}
	if embedder.calls != 3 {
		t.Errorf("embedder calls = %d, want 3", embedder.calls)
	}
	if !st.pruned || st.expiredAt.IsZero() {
		t.Error("expected maintenance pass after upserts")
	}

	first := st.coupons[0]
	if first.ShopID != "id-Acme" || first.Category != "Fashion" || !first.IsActive {
		t.Errorf("first coupon row = %+v", first)
	}
	if first.ExpiryDate == nil || *first.ExpiryDate != "2026-12-31" {
		t.Errorf("expiry = %v, want 2026-12-31", first.ExpiryDate)
	}
	if st.coupons[1].ExpiryDate != nil {
		t.Errorf("expected nil expiry for undated coupon, got %v", *st.coupons[1].ExpiryDate)
	}
}

func TestSaveSkipsShopWithoutCategory(t *testing.T) {
	classifier := &fakeClassifier{categories: map[string]models.Category{
		"Acme": models.CategoryFashion,
	}}
	st := &fakeStore{}
	p := New(classifier, &fakeEmbedder{}, st, nil)

	report, err := p.Save(context.Background(), runFixture())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if report.ShopsSaved != 1 || report.ShopsSkipped != 1 {
		t.Fatalf("report = %+v, want 1 saved 1 skipped", report)
	}
	if len(st.shops) != 1 || st.shops[0] != "Acme" {
		t.Fatalf("persisted shops = %v", st.shops)
	}
}

func TestSaveClassifierFailureSkipsAllShopsButMaintains(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("quota exhausted")}
	st := &fakeStore{}
	p := New(classifier, &fakeEmbedder{}, st, nil)

	report, err := p.Save(context.Background(), runFixture())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if report.ShopsSaved != 0 || report.ShopsSkipped != 2 {
		t.Fatalf("report = %+v, want all shops skipped", report)
	}
	if !st.pruned {
		t.Error("maintenance should still run")
	}
}

func TestSaveEmbeddingFailureStillSavesCoupon(t *testing.T) {
	classifier := &fakeClassifier{categories: map[string]models.Category{
		"Acme": models.CategoryFashion,
		"Zen":  models.CategoryTravel,
	}}
	st := &fakeStore{}
	p := New(classifier, &fakeEmbedder{err: errors.New("model offline")}, st, nil)

	report, err := p.Save(context.Background(), runFixture())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if report.CouponsSaved != 3 || report.EmbeddingsMissed != 3 {
		t.Fatalf("report = %+v, want coupons saved without vectors", report)
	}
	for _, row := range st.coupons {
		if row.Embedding != nil {
			t.Errorf("coupon %s carries a vector after embed failure", row.SourceURL)
		}
	}
}

func TestSaveShopUpsertFailureSkipsOnlyThatShop(t *testing.T) {
	classifier := &fakeClassifier{categories: map[string]models.Category{
		"Acme": models.CategoryFashion,
		"Zen":  models.CategoryTravel,
	}}
	st := &fakeStore{shopErr: errors.New("unauthorized")}
	p := New(classifier, &fakeEmbedder{}, st, nil)

	report, err := p.Save(context.Background(), runFixture())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if report.ShopsSaved != 0 || report.ShopsSkipped != 2 || report.CouponsSaved != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestSaveEmptyRunSkipsStoreEntirely(t *testing.T) {
	st := &fakeStore{}
	p := New(&fakeClassifier{}, &fakeEmbedder{}, st, nil)

	report, err := p.Save(context.Background(), &models.RunResult{})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if report.ShopsSaved != 0 || st.markedAll {
		t.Fatalf("empty run touched the store: report=%+v marked=%v", report, st.markedAll)
	}
}
