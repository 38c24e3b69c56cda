// Package browsertest provides a scripted in-memory implementation of the
// browser interfaces. Tests describe pages as trees of Elems keyed by the
// exact lookup strings the engine uses, so traversal logic runs without a
// real browser.
package browsertest

import (
	"fmt"
	"time"

	"github.com/hafiznor/go-scrape-coupons/browser"
)

// RoleKey builds the lookup key a ByRole call resolves against.
func RoleKey(role, name string) string {
	return "role=" + role + "[name=" + name + "]"
}

// TextKey builds the lookup key a ByText call resolves against.
func TextKey(text string) string {
	return "text=" + text
}

// Elem is a scripted DOM node. Kids maps lookup strings (selectors, RoleKey,
// TextKey) to the elements that lookup resolves to.
type Elem struct {
	Visible  bool
	Text     string
	Attrs    map[string]string
	Kids     map[string][]*Elem
	OpensURL string
	ClickErr error
	OnClick  func()
	Clicks   int
}

// NewElem returns a visible element with the given inner text.
func NewElem(text string) *Elem {
	return &Elem{Visible: true, Text: text}
}

// Hidden marks the element invisible and returns it.
func (e *Elem) Hidden() *Elem {
	e.Visible = false
	return e
}

// Attr sets an attribute and returns the element.
func (e *Elem) Attr(key, value string) *Elem {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	e.Attrs[key] = value
	return e
}

// With registers children under a lookup key and returns the element.
func (e *Elem) With(key string, kids ...*Elem) *Elem {
	if e.Kids == nil {
		e.Kids = map[string][]*Elem{}
	}
	e.Kids[key] = append(e.Kids[key], kids...)
	return e
}

// Opens sets the URL a click on this element pops open.
func (e *Elem) Opens(url string) *Elem {
	e.OpensURL = url
	return e
}

// Browser is the scripted browser root.
type Browser struct {
	Context *Context
	Closed  bool
}

// New returns a scripted browser with an empty routing table.
func New() *Browser {
	return &Browser{Context: &Context{Routes: map[string]func() *Elem{}}}
}

func (b *Browser) NewContext(opts browser.ContextOptions) (browser.Context, error) {
	return b.Context, nil
}

func (b *Browser) Close() error {
	b.Closed = true
	return nil
}

// Context is a scripted browsing context. Routes maps absolute URLs to DOM
// builders; builders run on every navigation so page state can change
// between visits.
type Context struct {
	Routes map[string]func() *Elem

	Pages           []*Page
	ExpectPageCalls int
	Closed          bool

	pending *Page
}

// Route registers a DOM builder for a URL.
func (c *Context) Route(url string, build func() *Elem) {
	c.Routes[url] = build
}

func (c *Context) NewPage() (browser.Page, error) {
	page := &Page{ctx: c}
	c.Pages = append(c.Pages, page)
	return page, nil
}

func (c *Context) ExpectPage(trigger func() error, timeout time.Duration) (browser.Page, error) {
	c.ExpectPageCalls++
	c.pending = nil
	if err := trigger(); err != nil {
		return nil, err
	}
	if c.pending == nil {
		return nil, fmt.Errorf("timeout %s exceeded while waiting for new page", timeout)
	}
	page := c.pending
	c.pending = nil
	return page, nil
}

func (c *Context) Close() error {
	c.Closed = true
	return nil
}

func (c *Context) render(url string) *Elem {
	if build, ok := c.Routes[url]; ok {
		return build()
	}
	return &Elem{Visible: true}
}

func (c *Context) openPopup(url string) {
	page := &Page{ctx: c, url: url}
	page.root = c.render(url)
	c.Pages = append(c.Pages, page)
	c.pending = page
}

// Page is a scripted tab.
type Page struct {
	ctx  *Context
	root *Elem
	url  string

	Closed      bool
	Pressed     []string
	Slept       []time.Duration
	Navigations []string
}

func (p *Page) Goto(url string) error {
	if p.Closed {
		return fmt.Errorf("goto %s: page is closed", url)
	}
	p.Navigations = append(p.Navigations, url)
	p.url = url
	p.root = p.ctx.render(url)
	return nil
}

func (p *Page) WaitReady() error { return nil }

func (p *Page) URL() string { return p.url }

func (p *Page) Press(key string) error {
	p.Pressed = append(p.Pressed, key)
	return nil
}

func (p *Page) Sleep(d time.Duration) {
	p.Slept = append(p.Slept, d)
}

func (p *Page) BringToFront() error { return nil }

func (p *Page) Close() error {
	p.Closed = true
	return nil
}

func (p *Page) Query(selector string) browser.Element {
	return loc{page: p, get: func() []*Elem {
		if p.root == nil {
			return nil
		}
		return p.root.Kids[selector]
	}}
}

func (p *Page) ByRole(role, name string) browser.Element {
	return p.Query(RoleKey(role, name))
}

func (p *Page) ByText(text string) browser.Element {
	return p.Query(TextKey(text))
}

// loc resolves lazily against the owning page, mirroring live-locator
// semantics: a lookup held across a navigation resolves against the new DOM.
type loc struct {
	page *Page
	get  func() []*Elem
}

func (l loc) child(key string) browser.Element {
	return loc{page: l.page, get: func() []*Elem {
		matches := l.get()
		if len(matches) == 0 {
			return nil
		}
		return matches[0].Kids[key]
	}}
}

func (l loc) Query(selector string) browser.Element { return l.child(selector) }

func (l loc) ByRole(role, name string) browser.Element { return l.child(RoleKey(role, name)) }

func (l loc) ByText(text string) browser.Element { return l.child(TextKey(text)) }

func (l loc) First() browser.Element {
	return loc{page: l.page, get: func() []*Elem {
		matches := l.get()
		if len(matches) == 0 {
			return nil
		}
		return matches[:1]
	}}
}

func (l loc) Nth(i int) browser.Element {
	return loc{page: l.page, get: func() []*Elem {
		matches := l.get()
		if i < 0 || i >= len(matches) {
			return nil
		}
		return matches[i : i+1]
	}}
}

func (l loc) All() ([]browser.Element, error) {
	matches := l.get()
	out := make([]browser.Element, len(matches))
	for i, m := range matches {
		pinned := m
		out[i] = loc{page: l.page, get: func() []*Elem { return []*Elem{pinned} }}
	}
	return out, nil
}

func (l loc) Count() (int, error) {
	return len(l.get()), nil
}

func (l loc) IsVisible() (bool, error) {
	matches := l.get()
	if len(matches) == 0 {
		return false, nil
	}
	return matches[0].Visible, nil
}

func (l loc) InnerText() (string, error) {
	matches := l.get()
	if len(matches) == 0 {
		return "", fmt.Errorf("inner text: no matching element")
	}
	return matches[0].Text, nil
}

func (l loc) Attribute(name string) (string, bool) {
	matches := l.get()
	if len(matches) == 0 {
		return "", false
	}
	value, ok := matches[0].Attrs[name]
	return value, ok && value != ""
}

func (l loc) Click() error {
	matches := l.get()
	if len(matches) == 0 {
		return fmt.Errorf("click: no matching element")
	}
	e := matches[0]
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	if e.ClickErr != nil {
		return e.ClickErr
	}
	if e.OpensURL != "" {
		l.page.ctx.openPopup(e.OpensURL)
	}
	return nil
}
