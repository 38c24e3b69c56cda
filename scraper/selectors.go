package scraper

import "github.com/hafiznor/go-scrape-coupons/browser"

// Selector is one descriptor in an ordered fallback chain. Exactly one of
// Query, Role, or Text drives the lookup.
type Selector struct {
	// Query is a CSS selector or, with the xpath= prefix, an XPath.
	Query string
	// Role/Name locate by ARIA role and accessible name.
	Role string
	Name string
	// Text locates by visible text content.
	Text string
}

// Locate resolves the descriptor within a scope.
func (s Selector) Locate(scope browser.Scope) browser.Element {
	switch {
	case s.Role != "":
		return scope.ByRole(s.Role, s.Name)
	case s.Text != "":
		return scope.ByText(s.Text)
	default:
		return scope.Query(s.Query)
	}
}

// Selectors carries every lookup the engine performs against the target
// site. The values are data, not code: they change when the site's build
// hashes change, and fixture tests swap them wholesale.
type Selectors struct {
	ShopLink string
	ShopLogo []Selector

	RevealRole string
	RevealName string

	CardContainer  string
	VerifiedMarker string
	CardTitle      []Selector
	CardExpiry     []Selector

	PopupCode        []Selector
	PopupDescription []Selector
	PopupClose       []Selector

	TermsText            string
	TermsKeyword         string
	TermsTriggerFallback []Selector
	TermsBody            []Selector
	TermsClose           []Selector
}

// DefaultSelectors returns the chains for the current production layout.
func DefaultSelectors() Selectors {
	return Selectors{
		ShopLink: `a[class*="188gvwx0"][class*="188gvwx2"][class*="188gvwxs"][class*="188gvwxo"]`,
		ShopLogo: []Selector{
			{Query: `img[class*="_62by6g0"][class*="_62by6go"][class*="_62by6gp"][class*="_62by6gs"][class*="_62by6gu"]`},
		},

		RevealRole: "button",
		RevealName: "See promo code",

		CardContainer:  `xpath=ancestor::*[contains(@data-testid, "vouchers-ui-voucher-card-top-container")]`,
		VerifiedMarker: "verified",
		CardTitle: []Selector{
			{Query: `div[class*="n9fwq61"][class*="n9fwq65"][class*="n9fwq63"]`},
		},
		CardExpiry: []Selector{
			{Query: `div[class*="_7ldhzz0"] span[class*="az57m40"][class*="az57m4c"]`},
			{Query: `span[class*="az57m40"][class*="az57m4c"]`},
		},

		PopupCode: []Selector{
			{Query: `h4[class*="az57m40"][class*="az57m46"][class*="b8qpi79"]`},
		},
		PopupDescription: []Selector{
			{Query: `h4[class*="az57m40"][class*="az57m46"]`},
			{Query: `div[class*="az57"] h4`},
			{Query: `div[role="dialog"] h4`},
		},
		PopupClose: []Selector{
			{Query: `span[data-testid="CloseIcon"]`},
		},

		TermsText:    "Terms and conditions",
		TermsKeyword: "terms and conditions",
		TermsTriggerFallback: []Selector{
			{Query: `button:has-text("Terms and conditions")`},
			{Query: `button[class*="ekdz"]`},
		},
		TermsBody: []Selector{
			{Query: `div[class*="_1mq6bor0"][class*="_1mq6bor9"][class*="_1mq6bor2"]`},
			{Query: `div[role="dialog"] div p`},
			{Query: `div[aria-modal="true"] div p`},
			{Query: `[role="dialog"] p`},
		},
		TermsClose: []Selector{
			{Query: `button[aria-label="Close"]`},
			{Query: `span[data-testid="CloseIcon"]`},
			{Query: `button:has(svg)`},
			{Query: `button.close-button`},
		},
	}
}
