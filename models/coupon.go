// Package models defines data structures shared across the scraper.
package models

import "time"

// CouponRecord is a single revealed coupon. URL is the destination of the
// reveal popup and is the dedup key within a shop's traversal.
type CouponRecord struct {
	Title              string `json:"title"`
	Code               string `json:"code"`
	Description        string `json:"description"`
	TermsAndConditions string `json:"termsAndConditions"`
	ExpiryDate         string `json:"expiryDate"`
	URL                string `json:"url"`
}

// ShopEntry accumulates everything extracted for one shop during a run.
// The shop display name keys the run's result map; entries are only ever
// mutated by appending coupons.
type ShopEntry struct {
	Name     string         `json:"-"`
	Path     string         `json:"-"`
	ImageURL string         `json:"imageUrl"`
	Coupons  []CouponRecord `json:"coupons"`
}

// Append adds a coupon to the entry.
func (s *ShopEntry) Append(c CouponRecord) {
	s.Coupons = append(s.Coupons, c)
}

// RunResult holds the overall outcome of a traversal run.
type RunResult struct {
	Shops map[string]*ShopEntry
	Order []string

	StartTime time.Time
	EndTime   time.Time

	ShopsProcessed int
	CouponCount    int
	DuplicateCount int
	AbandonedCount int
	ErrorCount     int
	ErrorsByType   map[string]int
}

// Category is one of the fixed shop categories the classification service
// may return.
type Category string

const (
	CategoryFoodDrink  Category = "Food & Drink"
	CategoryFashion    Category = "Fashion"
	CategoryTech       Category = "Tech"
	CategoryBeauty     Category = "Beauty"
	CategoryHomeLiving Category = "Home & Living"
	CategoryTravel     Category = "Travel"
	CategoryEcommerce  Category = "E-commerce"
)

// Categories lists every category the classifier may assign.
func Categories() []Category {
	return []Category{
		CategoryFoodDrink,
		CategoryFashion,
		CategoryTech,
		CategoryBeauty,
		CategoryHomeLiving,
		CategoryTravel,
		CategoryEcommerce,
	}
}

// Valid reports whether c is a member of the fixed enumeration.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}
