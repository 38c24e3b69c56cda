package scraper

import (
	"log/slog"

	"github.com/hafiznor/go-scrape-coupons/browser"
	"github.com/hafiznor/go-scrape-coupons/models"
	"github.com/hafiznor/go-scrape-coupons/parser"
)

// shopLink is one unprocessed entry discovered on the catalog listing.
type shopLink struct {
	name string
	path string
}

// nextUnseenShop re-queries the listing page and returns the first shop not
// yet in the processed set. The listing re-renders identical entries after
// every reload, so skipping by display name is what provides forward
// progress. ok is false when a full pass yields nothing new: the catalog is
// exhausted.
func (e *Engine) nextUnseenShop(listing browser.Page) (shopLink, bool) {
	links, err := listing.Query(e.selectors.ShopLink).All()
	if err != nil {
		slog.Error("listing query failed", slog.Any("error", err))
		return shopLink{}, false
	}
	slog.Debug("catalog listing scanned", slog.Int("links", len(links)))

	for _, link := range links {
		text, err := link.InnerText()
		if err != nil {
			continue
		}
		name := parser.CleanText(text)
		if name == "" {
			continue
		}
		if _, done := e.processed[name]; done {
			continue
		}
		path, ok := link.Attribute("href")
		if !ok {
			continue
		}
		return shopLink{name: name, path: path}, true
	}
	return shopLink{}, false
}

// drainShop runs the per-shop outer loop: enumerate reveal buttons, attempt
// every index once, and repeat while passes still produce records. The
// popup/reopen cycle re-renders the page between cards, so a pass that
// recorded anything warrants another look; a pass that recorded nothing
// (all cards stale, unverified, or duplicates) means the shop is exhausted.
// Without that bound a layout that never stabilizes would spin forever.
func (e *Engine) drainShop(sess *session, entry *models.ShopEntry) {
	for {
		if sess.page == nil {
			if err := sess.reset(); err != nil {
				e.recordFault(ErrNavigation{URL: sess.url, Err: err})
				return
			}
		}

		count, err := sess.page.ByRole(e.selectors.RevealRole, e.selectors.RevealName).Count()
		if err != nil || count == 0 {
			slog.Debug("no reveal buttons remain", slog.String("shop", entry.Name))
			return
		}
		slog.Info("pass started",
			slog.String("shop", entry.Name),
			slog.Int("buttons", count),
		)

		recordedThisPass := false
		for idx := 0; idx < count; idx++ {
			if e.processCard(sess, entry, idx) == outcomeRecorded {
				recordedThisPass = true
			}
		}

		if !recordedThisPass {
			slog.Info("shop drained", slog.String("shop", entry.Name), slog.Int("coupons", len(entry.Coupons)))
			return
		}
	}
}
