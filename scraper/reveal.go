package scraper

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hafiznor/go-scrape-coupons/browser"
	"github.com/hafiznor/go-scrape-coupons/models"
	"github.com/hafiznor/go-scrape-coupons/parser"
)

// session is the live traversal state for one shop: the current detail-page
// tab plus the origin URLs already recorded. The tab is invalidated whenever
// the reveal flow consumes it (popup redirects repurpose it into an ad) and
// reopened by reset so card indices always resolve against a known-good DOM.
type session struct {
	ctx  browser.Context
	url  string
	page browser.Page
	seen map[string]struct{}
}

func newSession(ctx browser.Context, url string) *session {
	return &session{ctx: ctx, url: url, seen: make(map[string]struct{})}
}

// reset tears down whatever tab is active and opens a fresh detail page.
func (s *session) reset() error {
	s.invalidate()
	page, err := s.ctx.NewPage()
	if err != nil {
		return err
	}
	if err := page.Goto(s.url); err != nil {
		page.Close()
		return err
	}
	s.page = page
	return nil
}

// invalidate closes the active tab, if any, without replacing it.
func (s *session) invalidate() {
	if s.page != nil {
		s.page.Close()
		s.page = nil
	}
}

func (s *session) duplicate(origin string) bool {
	_, ok := s.seen[origin]
	return ok
}

func (s *session) markSeen(origin string) {
	s.seen[origin] = struct{}{}
}

// outcome is the terminal state of one card attempt.
type outcome int

const (
	outcomeRecorded outcome = iota
	outcomeSkippedDuplicate
	outcomeAbandoned
	outcomeStale
	outcomeUnverified
	outcomeAborted
)

// processCard runs the reveal state machine for the card at idx. Cards are
// re-enumerated by index on every call: the prior card's popup/reopen cycle
// mutates the DOM, so handles cached across iterations would be stale.
// Whatever happens, the session ends the call either with a fresh detail
// page or explicitly invalidated; no fault propagates past the card.
func (e *Engine) processCard(sess *session, entry *models.ShopEntry, idx int) outcome {
	shop := entry.Name

	if sess.page == nil {
		if err := sess.reset(); err != nil {
			e.recordFault(ErrNavigation{URL: sess.url, Err: err})
			return outcomeAborted
		}
	}

	buttons, err := sess.page.ByRole(e.selectors.RevealRole, e.selectors.RevealName).All()
	if err != nil || idx >= len(buttons) {
		slog.Debug("card index no longer available", slog.String("shop", shop), slog.Int("card", idx))
		return outcomeStale
	}
	button := buttons[idx]

	card := button.Query(e.selectors.CardContainer).First()
	cardText, err := card.InnerText()
	if err != nil {
		slog.Debug("card container unreadable", slog.String("shop", shop), slog.Int("card", idx))
		return outcomeStale
	}
	if !strings.Contains(strings.ToLower(cardText), e.selectors.VerifiedMarker) {
		return outcomeUnverified
	}

	e.Metrics.IncCard()

	// Pre-reveal metadata comes off the card itself; after the click the
	// card is gone.
	title := VisibleText(card, e.selectors.CardTitle, parser.NoTitle)
	expiry := VisibleText(card, e.selectors.CardExpiry, parser.NoExpiry)

	popup, err := sess.ctx.ExpectPage(button.Click, e.cfg.PopupTimeout)
	if err != nil {
		e.abandonedCount++
		e.Metrics.IncAbandoned()
		e.recordFault(ErrPopupTimeout{Shop: shop, Card: idx, Err: err})
		return outcomeAbandoned
	}
	if err := popup.WaitReady(); err != nil {
		popup.Close()
		e.abandonedCount++
		e.Metrics.IncAbandoned()
		e.recordFault(ErrPopupTimeout{Shop: shop, Card: idx, Err: err})
		return outcomeAbandoned
	}

	// The click repurposed the shop tab into an advertisement; its content
	// is no longer shop data.
	sess.invalidate()

	origin := popup.URL()
	if origin == "" {
		// An origin-less popup cannot be deduplicated or persisted.
		popup.Close()
		e.abandonedCount++
		e.Metrics.IncAbandoned()
		e.recordFault(ErrExtraction{Shop: shop, Card: idx, Err: fmt.Errorf("popup carries no url")})
		if err := sess.reset(); err != nil {
			e.recordFault(ErrNavigation{URL: sess.url, Err: err})
		}
		return outcomeAbandoned
	}
	if sess.duplicate(origin) {
		slog.Debug("coupon already recorded", slog.String("shop", shop), slog.String("url", origin))
		popup.Close()
		e.duplicateCount++
		e.Metrics.IncDuplicate()
		if err := sess.reset(); err != nil {
			e.recordFault(ErrNavigation{URL: sess.url, Err: err})
		}
		return outcomeSkippedDuplicate
	}

	record := e.extractCoupon(popup, title, expiry, origin)

	e.closePopup(popup)
	if err := sess.reset(); err != nil {
		e.recordFault(ErrNavigation{URL: sess.url, Err: err})
	}

	entry.Append(record)
	sess.markSeen(origin)
	e.Metrics.IncRecorded()
	slog.Info("coupon recorded",
		slog.String("shop", shop),
		slog.String("title", record.Title),
		slog.String("url", origin),
	)
	return outcomeRecorded
}

// extractCoupon pulls code, description, and terms off an open popup.
// Missing pieces degrade to sentinels; the popup still yields a record.
func (e *Engine) extractCoupon(popup browser.Page, title, expiry, origin string) models.CouponRecord {
	code := parser.NoCode
	if element, ok := FirstVisible(popup, e.selectors.PopupCode); ok {
		if text, err := element.InnerText(); err == nil {
			if cleaned := parser.CleanText(text); cleaned != "" {
				code = cleaned
			}
		}
	}

	// Code and description share a tag pattern on the popup; a candidate
	// equal to the code verbatim is the code, not a description.
	description := parser.NoDescription
scan:
	for _, candidate := range e.selectors.PopupDescription {
		matches, err := candidate.Locate(popup).All()
		if err != nil {
			continue
		}
		for _, match := range matches {
			visible, err := match.IsVisible()
			if err != nil || !visible {
				continue
			}
			text, err := match.InnerText()
			if err != nil {
				continue
			}
			if cleaned := parser.CleanText(text); cleaned != "" && cleaned != code {
				description = cleaned
				break scan
			}
		}
	}

	terms := e.extractTerms(popup)

	return models.CouponRecord{
		Title:              title,
		Code:               code,
		Description:        description,
		TermsAndConditions: terms,
		ExpiryDate:         expiry,
		URL:                origin,
	}
}

// extractTerms expands the terms disclosure, harvests its paragraphs, and
// dismisses it again. The disclosure renders asynchronously with no
// completion signal, hence the fixed settle delay.
func (e *Engine) extractTerms(popup browser.Page) string {
	trigger, ok := e.findTermsTrigger(popup)
	if !ok {
		return parser.NoTerms
	}
	if err := trigger.Click(); err != nil {
		slog.Debug("terms trigger click failed", slog.Any("error", err))
		return parser.NoTerms
	}
	popup.Sleep(e.cfg.SettleDelay)

	terms := parser.NoTerms
	for _, candidate := range e.selectors.TermsBody {
		matches, err := candidate.Locate(popup).All()
		if err != nil || len(matches) == 0 {
			continue
		}
		paragraphs := make([]string, 0, len(matches))
		for _, match := range matches {
			if text, err := match.InnerText(); err == nil {
				paragraphs = append(paragraphs, text)
			}
		}
		if joined := parser.JoinParagraphs(paragraphs); joined != "" {
			terms = joined
			break
		}
	}

	e.dismissTerms(popup)
	return terms
}

func (e *Engine) findTermsTrigger(popup browser.Page) (browser.Element, bool) {
	if element, ok := FirstVisible(popup, []Selector{{Text: e.selectors.TermsText}}); ok {
		return element, true
	}
	for _, candidate := range e.selectors.TermsTriggerFallback {
		matches, err := candidate.Locate(popup).All()
		if err != nil {
			continue
		}
		for _, match := range matches {
			visible, err := match.IsVisible()
			if err != nil || !visible {
				continue
			}
			text, err := match.InnerText()
			if err != nil {
				continue
			}
			if strings.Contains(strings.ToLower(text), e.selectors.TermsKeyword) {
				return match, true
			}
		}
	}
	return nil, false
}

// dismissTerms closes the disclosure; the popup is discarded right after,
// so failure here is logged and ignored.
func (e *Engine) dismissTerms(popup browser.Page) {
	if element, ok := FirstVisible(popup, e.selectors.TermsClose); ok {
		if err := element.Click(); err == nil {
			popup.Sleep(e.cfg.DismissDelay)
			return
		}
	}
	slog.Debug("terms close control missing, sending Escape")
	if err := popup.Press("Escape"); err != nil {
		slog.Debug("escape dispatch failed", slog.Any("error", err))
	}
	popup.Sleep(e.cfg.DismissDelay)
}

// closePopup dismisses and closes the reveal popup.
func (e *Engine) closePopup(popup browser.Page) {
	if element, ok := FirstVisible(popup, e.selectors.PopupClose); ok {
		if err := element.Click(); err != nil {
			popup.Press("Escape")
		}
	} else {
		popup.Press("Escape")
	}
	popup.Sleep(e.cfg.DismissDelay)
	popup.Close()
}
