package scraper

import (
	"github.com/hafiznor/go-scrape-coupons/browser"
	"github.com/hafiznor/go-scrape-coupons/parser"
)

// FirstVisible evaluates an ordered chain of selector descriptors and
// returns the first matching element that is currently visible. The target
// renders structurally similar hidden duplicates and ad shells, so
// visibility is the tie-break. Absence is a valid outcome, not an error;
// callers fall back to sentinels or wider searches.
func FirstVisible(scope browser.Scope, candidates []Selector) (browser.Element, bool) {
	for _, candidate := range candidates {
		matches, err := candidate.Locate(scope).All()
		if err != nil {
			continue
		}
		for _, match := range matches {
			visible, err := match.IsVisible()
			if err != nil || !visible {
				continue
			}
			return match, true
		}
	}
	return nil, false
}

// VisibleText returns the cleaned inner text of the first visible match, or
// the sentinel when no candidate yields non-empty text.
func VisibleText(scope browser.Scope, candidates []Selector, sentinel string) string {
	element, ok := FirstVisible(scope, candidates)
	if !ok {
		return sentinel
	}
	text, err := element.InnerText()
	if err != nil {
		return sentinel
	}
	if cleaned := parser.CleanText(text); cleaned != "" {
		return cleaned
	}
	return sentinel
}
