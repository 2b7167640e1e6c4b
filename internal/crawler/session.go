package crawler

import (
	"context"
	"fmt"
	"time"

	"taxsync/internal/browser"
	"taxsync/internal/logger"
)

// Timing holds the waits an adapter script uses between steps.
type Timing struct {
	Navigation time.Duration
	Idle       time.Duration
	Settle     time.Duration
}

// Session is one adapter run against a driver: it numbers diagnostic captures
// and paces the script.
type Session struct {
	driver      browser.Driver
	diag        *browser.Diagnostics
	logger      *logger.Logger
	timing      Timing
	lastCapture string
}

// NewSession wraps driver. diag may be nil to disable captures.
func NewSession(driver browser.Driver, diag *browser.Diagnostics, log *logger.Logger, timing Timing) *Session {
	if diag == nil {
		diag = &browser.Diagnostics{}
	}

	return &Session{
		driver: driver,
		diag:   diag,
		logger: log,
		timing: timing,
	}
}

// Driver returns the underlying driver.
func (s *Session) Driver() browser.Driver {
	return s.driver
}

// Logger returns the session logger.
func (s *Session) Logger() *logger.Logger {
	return s.logger
}

// Open navigates to url and waits for the network to settle.
func (s *Session) Open(ctx context.Context, url string) error {
	s.logger.Info(fmt.Sprintf("🌐 Opening %s", url))

	if err := s.driver.Open(ctx, url, s.timing.Navigation); err != nil {
		return err
	}

	s.WaitIdle(ctx)

	return nil
}

// WaitIdle waits for network idle, best effort.
func (s *Session) WaitIdle(ctx context.Context) {
	s.driver.WaitNetworkIdle(ctx, s.timing.Idle)
}

// Pause waits the configured settle delay.
func (s *Session) Pause(ctx context.Context) error {
	return s.sleep(ctx, s.timing.Settle)
}

// ShortPause waits a third of the settle delay.
func (s *Session) ShortPause(ctx context.Context) error {
	return s.sleep(ctx, s.timing.Settle/3)
}

// LongPause waits three times the settle delay, for map applications that
// render long after load.
func (s *Session) LongPause(ctx context.Context) error {
	return s.sleep(ctx, s.timing.Settle*3)
}

func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Capture dumps the current page under label. Failures are logged, not returned.
func (s *Session) Capture(label string) {
	if cp, ok := s.driver.(browser.Checkpointer); ok {
		cp.Checkpoint(browser.SanitizeLabel(label))
	}

	path, err := s.diag.Capture(s.driver, label)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("⚠️  Diagnostic capture %s failed: %v", label, err))
	}

	if path != "" {
		s.lastCapture = path
		s.logger.Debug(fmt.Sprintf("📸 Captured %s", path))
	}
}

// LastCapture returns the path of the most recent HTML dump.
func (s *Session) LastCapture() string {
	return s.lastCapture
}

// Text reads the page's visible text.
func (s *Session) Text(ctx context.Context) (string, error) {
	return s.driver.ReadVisibleText(ctx)
}

// FirstPresent returns the first selector with at least one match.
func (s *Session) FirstPresent(ctx context.Context, selectors ...string) (browser.Target, bool) {
	for _, sel := range selectors {
		target := browser.CSS(sel)

		n, err := s.driver.Count(ctx, target)
		if err == nil && n > 0 {
			s.logger.Debug(fmt.Sprintf("Found element with selector: %s", sel))

			return target, true
		}
	}

	return browser.Target{}, false
}
