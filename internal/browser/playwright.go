package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	pw "github.com/playwright-community/playwright-go"

	"taxsync/internal/logger"
	"taxsync/pkg/utils"
)

// Options configures a live browser session.
type Options struct {
	UserAgent      string
	ProfileDir     string
	ExecutablePath string
	ElementTimeout time.Duration
	Headed         bool
}

// Playwright drives headless Chromium through playwright-go.
type Playwright struct {
	runtime *pw.Playwright
	browser pw.Browser
	context pw.BrowserContext
	page    pw.Page
	logger  *logger.Logger
	opts    Options
}

// Ensure Playwright implements Driver.
var _ Driver = (*Playwright)(nil)

// NewPlaywright starts Chromium. When ProfileDir is set the session profile is
// persisted there; only one process may use a profile directory at a time.
func NewPlaywright(opts Options, log *logger.Logger) (*Playwright, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = utils.DefaultUserAgent
	}

	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = 10 * time.Second
	}

	runtime, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	d := &Playwright{
		runtime: runtime,
		logger:  log,
		opts:    opts,
	}

	var executable *string
	if opts.ExecutablePath != "" {
		executable = pw.String(opts.ExecutablePath)
	}

	if opts.ProfileDir != "" {
		if err := os.MkdirAll(opts.ProfileDir, 0o755); err != nil {
			d.stop()
			return nil, fmt.Errorf("failed to create profile dir: %w", err)
		}

		bctx, err := runtime.Chromium.LaunchPersistentContext(opts.ProfileDir, pw.BrowserTypeLaunchPersistentContextOptions{
			Headless:       pw.Bool(!opts.Headed),
			UserAgent:      pw.String(opts.UserAgent),
			ExecutablePath: executable,
		})
		if err != nil {
			d.stop()
			return nil, fmt.Errorf("failed to launch persistent chromium: %w", err)
		}

		d.context = bctx
	} else {
		browser, err := runtime.Chromium.Launch(pw.BrowserTypeLaunchOptions{
			Headless:       pw.Bool(!opts.Headed),
			ExecutablePath: executable,
		})
		if err != nil {
			d.stop()
			return nil, fmt.Errorf("failed to launch chromium: %w", err)
		}

		d.browser = browser

		bctx, err := browser.NewContext(pw.BrowserNewContextOptions{
			UserAgent: pw.String(opts.UserAgent),
		})
		if err != nil {
			d.stop()
			return nil, fmt.Errorf("failed to create browser context: %w", err)
		}

		d.context = bctx
	}

	if pages := d.context.Pages(); len(pages) > 0 {
		d.page = pages[0]
	} else {
		page, err := d.context.NewPage()
		if err != nil {
			d.stop()
			return nil, fmt.Errorf("failed to open page: %w", err)
		}

		d.page = page
	}

	return d, nil
}

func (d *Playwright) timeoutMs() *float64 {
	return pw.Float(float64(d.opts.ElementTimeout.Milliseconds()))
}

func (d *Playwright) base(t Target) pw.Locator {
	if t.Role != "" {
		return d.page.GetByRole(pw.AriaRole(t.Role), pw.PageGetByRoleOptions{Name: t.Name})
	}

	return d.page.Locator(t.Selector)
}

func (d *Playwright) locate(t Target) pw.Locator {
	if t.Index > 0 {
		return d.base(t).Nth(t.Index)
	}

	return d.base(t).First()
}

// elementError maps a playwright timeout to ErrElementNotFound.
func elementError(action string, t Target, err error) error {
	if errors.Is(err, pw.ErrTimeout) {
		return fmt.Errorf("%w: %s %s", ErrElementNotFound, action, t)
	}

	return fmt.Errorf("%s %s: %w", action, t, err)
}

// Open navigates to url.
func (d *Playwright) Open(ctx context.Context, url string, timeout time.Duration) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	d.logger.Debug(fmt.Sprintf("🌐 Navigating to %s", url))

	resp, err := d.page.Goto(url, pw.PageGotoOptions{
		Timeout:   pw.Float(float64(timeout.Milliseconds())),
		WaitUntil: pw.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
	}

	if resp != nil && (resp.Status() < 200 || resp.Status() > 299) {
		return fmt.Errorf("%w: %s returned status %d", ErrNavigation, url, resp.Status())
	}

	return nil
}

// Fill types value into the target field.
func (d *Playwright) Fill(ctx context.Context, t Target, value string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	if err := d.locate(t).Fill(value, pw.LocatorFillOptions{Timeout: d.timeoutMs()}); err != nil {
		return elementError("fill", t, err)
	}

	return nil
}

// Click clicks the target.
func (d *Playwright) Click(ctx context.Context, t Target) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	if err := d.locate(t).Click(pw.LocatorClickOptions{Timeout: d.timeoutMs()}); err != nil {
		return elementError("click", t, err)
	}

	return nil
}

// Press sends a key to the target.
func (d *Playwright) Press(ctx context.Context, t Target, key string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	if err := d.locate(t).Press(key, pw.LocatorPressOptions{Timeout: d.timeoutMs()}); err != nil {
		return elementError("press", t, err)
	}

	return nil
}

// Evaluate runs a script in the page.
func (d *Playwright) Evaluate(ctx context.Context, expression string) (any, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	result, err := d.page.Evaluate(expression)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expression, err)
	}

	return result, nil
}

// Count returns how many elements currently match.
func (d *Playwright) Count(ctx context.Context, t Target) (int, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	n, err := d.base(t).Count()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t, err)
	}

	return n, nil
}

// Texts returns the inner text of every match.
func (d *Playwright) Texts(ctx context.Context, t Target) ([]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	texts, err := d.base(t).AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t, err)
	}

	return texts, nil
}

// WaitNetworkIdle waits for the network to settle, logging instead of failing.
func (d *Playwright) WaitNetworkIdle(ctx context.Context, timeout time.Duration) {
	if ctx.Err() != nil {
		return
	}

	err := d.page.WaitForLoadState(pw.PageWaitForLoadStateOptions{
		State:   pw.LoadStateNetworkidle,
		Timeout: pw.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		d.logger.Warn(fmt.Sprintf("⚠️  Network did not go idle within %s: %v", timeout, err))
	}
}

// ReadVisibleText returns the rendered text of the page body.
func (d *Playwright) ReadVisibleText(ctx context.Context) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}

	text, err := d.page.Locator("body").InnerText(pw.LocatorInnerTextOptions{Timeout: d.timeoutMs()})
	if err != nil {
		return "", elementError("read", CSS("body"), err)
	}

	return text, nil
}

// Screenshot writes a full-page PNG.
func (d *Playwright) Screenshot(path string) error {
	if _, err := d.page.Screenshot(pw.PageScreenshotOptions{
		Path:     pw.String(path),
		FullPage: pw.Bool(true),
	}); err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}

	return nil
}

// DumpHTML writes the current DOM.
func (d *Playwright) DumpHTML(path string) error {
	content, err := d.page.Content()
	if err != nil {
		return fmt.Errorf("read page content: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write html dump: %w", err)
	}

	return nil
}

// URL returns the current page URL.
func (d *Playwright) URL() string {
	return d.page.URL()
}

// Close shuts down the browser and the playwright driver.
func (d *Playwright) Close() error {
	var errs []error

	if d.context != nil {
		if err := d.context.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := d.runtime.Stop(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (d *Playwright) stop() {
	if err := d.runtime.Stop(); err != nil {
		d.logger.Warn(fmt.Sprintf("Failed to stop playwright: %v", err))
	}
}
