package browser

import (
	"fmt"
	"time"

	pw "github.com/playwright-community/playwright-go"
)

// Launch starts a headless Chromium via Playwright and returns it behind the
// Browser interface. The caller owns the returned Browser and must Close it.
func Launch(headless bool) (Browser, error) {
	runner, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright driver: %w", err)
	}
	chromium, err := runner.Chromium.Launch(pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(headless),
	})
	if err != nil {
		runner.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &pwBrowser{runner: runner, browser: chromium}, nil
}

type pwBrowser struct {
	runner  *pw.Playwright
	browser pw.Browser
}

func (b *pwBrowser) NewContext(opts ContextOptions) (Context, error) {
	ctx, err := b.browser.NewContext(pw.BrowserNewContextOptions{})
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	if opts.NavigationTimeout > 0 {
		ctx.SetDefaultNavigationTimeout(float64(opts.NavigationTimeout.Milliseconds()))
	}
	return &pwContext{ctx: ctx}, nil
}

func (b *pwBrowser) Close() error {
	err := b.browser.Close()
	if stopErr := b.runner.Stop(); err == nil {
		err = stopErr
	}
	return err
}

type pwContext struct {
	ctx pw.BrowserContext
}

func (c *pwContext) NewPage() (Page, error) {
	page, err := c.ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	return &pwPage{page: page}, nil
}

func (c *pwContext) ExpectPage(trigger func() error, timeout time.Duration) (Page, error) {
	page, err := c.ctx.ExpectPage(trigger, pw.BrowserContextExpectPageOptions{
		Timeout: pw.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("wait for new page: %w", err)
	}
	return &pwPage{page: page}, nil
}

func (c *pwContext) Close() error {
	return c.ctx.Close()
}

type pwPage struct {
	page pw.Page
}

func (p *pwPage) Goto(url string) error {
	if _, err := p.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (p *pwPage) WaitReady() error {
	return p.page.WaitForLoadState(pw.PageWaitForLoadStateOptions{
		State: pw.LoadStateNetworkidle,
	})
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Press(key string) error {
	return p.page.Keyboard().Press(key)
}

func (p *pwPage) Sleep(d time.Duration) {
	p.page.WaitForTimeout(float64(d.Milliseconds()))
}

func (p *pwPage) BringToFront() error {
	return p.page.BringToFront()
}

func (p *pwPage) Close() error {
	return p.page.Close()
}

func (p *pwPage) Query(selector string) Element {
	return pwElement{loc: p.page.Locator(selector)}
}

func (p *pwPage) ByRole(role, name string) Element {
	return pwElement{loc: p.page.GetByRole(pw.AriaRole(role), pw.PageGetByRoleOptions{Name: name})}
}

func (p *pwPage) ByText(text string) Element {
	return pwElement{loc: p.page.GetByText(text)}
}

type pwElement struct {
	loc pw.Locator
}

func (e pwElement) Query(selector string) Element {
	return pwElement{loc: e.loc.Locator(selector)}
}

func (e pwElement) ByRole(role, name string) Element {
	return pwElement{loc: e.loc.GetByRole(pw.AriaRole(role), pw.LocatorGetByRoleOptions{Name: name})}
}

func (e pwElement) ByText(text string) Element {
	return pwElement{loc: e.loc.GetByText(text)}
}

func (e pwElement) First() Element {
	return pwElement{loc: e.loc.First()}
}

func (e pwElement) Nth(i int) Element {
	return pwElement{loc: e.loc.Nth(i)}
}

func (e pwElement) All() ([]Element, error) {
	matches, err := e.loc.All()
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(matches))
	for i, m := range matches {
		out[i] = pwElement{loc: m}
	}
	return out, nil
}

func (e pwElement) Count() (int, error) {
	return e.loc.Count()
}

func (e pwElement) IsVisible() (bool, error) {
	return e.loc.IsVisible()
}

func (e pwElement) InnerText() (string, error) {
	return e.loc.InnerText()
}

func (e pwElement) Attribute(name string) (string, bool) {
	value, err := e.loc.GetAttribute(name)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

func (e pwElement) Click() error {
	return e.loc.Click()
}
