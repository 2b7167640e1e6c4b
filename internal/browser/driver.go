// Package browser provides the navigation drivers the jurisdiction adapters script:
// a live headless Chromium session and an offline replay of dumped pages.
package browser

import (
	"context"
	"fmt"
	"time"

	"taxsync/internal/models"
)

// Driver errors.
var (
	ErrNavigation      = models.ErrNavigation
	ErrElementNotFound = models.ErrElementNotFound
)

// Driver is one browser session. Implementations are not safe for concurrent use.
type Driver interface {
	// Open loads url. Non-2xx responses and load timeouts fail with ErrNavigation.
	Open(ctx context.Context, url string, timeout time.Duration) error
	Fill(ctx context.Context, target Target, value string) error
	Click(ctx context.Context, target Target) error
	Press(ctx context.Context, target Target, key string) error
	Evaluate(ctx context.Context, expression string) (any, error)
	Count(ctx context.Context, target Target) (int, error)
	// Texts returns the visible text of every element matching target.
	Texts(ctx context.Context, target Target) ([]string, error)
	// WaitNetworkIdle waits at most timeout and never fails.
	WaitNetworkIdle(ctx context.Context, timeout time.Duration)
	ReadVisibleText(ctx context.Context) (string, error)
	Screenshot(path string) error
	DumpHTML(path string) error
	URL() string
	Close() error
}

// Checkpointer is implemented by drivers that need to know when the adapter
// reaches a named step.
type Checkpointer interface {
	Checkpoint(label string)
}

// Target addresses an element by CSS selector or by ARIA role and accessible name.
// Index picks the nth match; the first match is used by default.
type Target struct {
	Selector string
	Role     string
	Name     string
	Index    int
}

// CSS targets the first element matching selector.
func CSS(selector string) Target {
	return Target{Selector: selector}
}

// Role targets the first element with the given ARIA role and accessible name.
func Role(role, name string) Target {
	return Target{Role: role, Name: name}
}

// Nth returns a copy of t addressing the ith match.
func (t Target) Nth(i int) Target {
	t.Index = i

	return t
}

// String returns a short description for errors and logs.
func (t Target) String() string {
	desc := t.Selector
	if t.Role != "" {
		desc = fmt.Sprintf("role=%s[name=%q]", t.Role, t.Name)
	}

	if t.Index > 0 {
		desc = fmt.Sprintf("%s >> nth=%d", desc, t.Index)
	}

	return desc
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", models.ErrTimeoutExceeded, err)
	}

	return nil
}
