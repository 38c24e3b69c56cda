// Package parser holds the cosmetic text transforms applied to extracted
// coupon fields: whitespace cleanup, expiry-date parsing, and the sentinel
// values used when an element is missing from the page.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/hafiznor/go-scrape-coupons/models"
)

// Sentinel values recorded when an extraction target is absent. Absence is a
// valid outcome, never an error.
const (
	NoTitle       = "No title found"
	NoCode        = "No code found"
	NoDescription = "No description found"
	NoTerms       = "No terms and conditions found"
	NoExpiry      = "No expiry date found"
)

// CleanText collapses runs of whitespace into single spaces and trims the
// result. Card text frequently embeds layout newlines and non-breaking
// spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// JoinParagraphs joins non-empty cleaned paragraphs with newlines.
func JoinParagraphs(paragraphs []string) string {
	kept := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if cleaned := CleanText(p); cleaned != "" {
			kept = append(kept, cleaned)
		}
	}
	return strings.Join(kept, "\n")
}

// Expiry text shows up as "Valid until 31/12/2026", "Expires 31-12-2026",
// "31 December 2026" and similar variations.
var expiryLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 January 2006",
	"02 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"2006-01-02",
}

var expiryPrefixes = []string{
	"valid until",
	"valid till",
	"expires on",
	"expires",
	"expiry",
	"ends",
}

// ParseExpiry extracts an expiry date from raw card text. The boolean is
// false when no recognizable date is present, including for the NoExpiry
// sentinel.
func ParseExpiry(raw string) (time.Time, bool) {
	text := strings.ToLower(CleanText(raw))
	if text == "" || text == strings.ToLower(NoExpiry) {
		return time.Time{}, false
	}
	for _, prefix := range expiryPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
			break
		}
	}
	text = strings.TrimPrefix(text, ":")
	text = strings.TrimSpace(text)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
		if t, err := time.Parse(layout, titleCase(text)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// titleCase uppercases the first letter of each word so month names match
// the reference layouts.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ExpiryISO returns the expiry as an ISO date string, or nil when the raw
// text carries no parseable date. The store treats nil as "no expiry".
func ExpiryISO(raw string) *string {
	t, ok := ParseExpiry(raw)
	if !ok {
		return nil
	}
	iso := t.Format("2006-01-02")
	return &iso
}

// ValidateRecord ensures a coupon carries the minimum fields worth keeping.
func ValidateRecord(c *models.CouponRecord) error {
	if c == nil {
		return fmt.Errorf("coupon is nil")
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("coupon missing origin url")
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("coupon missing title for %s", c.URL)
	}
	return nil
}
