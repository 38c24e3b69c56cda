// Package browser abstracts the headless-browser capability the traversal
// engine depends on: navigation, element lookup, visibility checks, event
// dispatch, and popup interception. The production implementation drives
// Playwright; tests substitute a scripted fake.
package browser

import "time"

// Scope is anything elements can be located within: a whole page or a
// sub-element.
type Scope interface {
	// Query locates elements by selector. Playwright selector syntax,
	// including the xpath= prefix, is passed through unchanged.
	Query(selector string) Element
	// ByRole locates elements by ARIA role and accessible name.
	ByRole(role, name string) Element
	// ByText locates elements containing the given visible text.
	ByText(text string) Element
}

// Element is a lazy handle to zero or more matched elements. Lookups always
// resolve against the live page, so a handle never goes stale; an element
// that has since disappeared simply resolves to no matches.
type Element interface {
	Scope

	First() Element
	Nth(i int) Element
	All() ([]Element, error)
	Count() (int, error)

	IsVisible() (bool, error)
	InnerText() (string, error)
	// Attribute reads an attribute value; ok is false when the attribute
	// (or the element itself) is absent.
	Attribute(name string) (value string, ok bool)
	Click() error
}

// Page is a single browser tab.
type Page interface {
	Scope

	// Goto navigates and waits for the page's network activity to go
	// quiescent.
	Goto(url string) error
	// WaitReady blocks until the page reaches a quiescent load state.
	WaitReady() error
	URL() string
	Press(key string) error
	// Sleep waits a fixed settle duration for content that renders with no
	// observable completion signal.
	Sleep(d time.Duration)
	BringToFront() error
	Close() error
}

// Context is an isolated browsing context owning a set of pages.
type Context interface {
	NewPage() (Page, error)
	// ExpectPage runs trigger and waits up to timeout for a new page to be
	// opened as a result. The error reports a timeout when no page arrives.
	ExpectPage(trigger func() error, timeout time.Duration) (Page, error)
	Close() error
}

// ContextOptions configures a new browsing context.
type ContextOptions struct {
	NavigationTimeout time.Duration
}

// Browser is a running browser instance.
type Browser interface {
	NewContext(opts ContextOptions) (Context, error)
	Close() error
}
