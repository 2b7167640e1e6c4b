package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"taxsync/internal/logger"
)

// ErrNoRecordedPages is returned when a replay directory holds no HTML dumps.
var ErrNoRecordedPages = errors.New("no recorded pages")

var (
	recordedPagePattern = regexp.MustCompile(`^(\d+)-(.+)\.html$`)
	hasTextPattern      = regexp.MustCompile(`:has-text\((?:"([^"]*)"|'([^']*)')\)`)
)

var roleSelectors = map[string]string{
	"button":   `button, [role="button"], input[type="submit"], input[type="button"]`,
	"link":     `a[href], [role="link"]`,
	"textbox":  `input:not([type]), input[type="text"], input[type="search"], textarea, [role="textbox"]`,
	"option":   `option, [role="option"]`,
	"combobox": `select, [role="combobox"]`,
}

type recordedPage struct {
	label string
	path  string
	step  int
}

// Replay re-runs an adapter script against HTML pages dumped by an earlier
// live session. Pages are named NN-label.html; Checkpoint moves to the next
// page with the same label, mirroring the point at which it was dumped.
type Replay struct {
	doc    *goquery.Document
	logger *logger.Logger
	url    string
	pages  []recordedPage
	cursor int
}

// Ensure Replay implements Driver and Checkpointer.
var (
	_ Driver       = (*Replay)(nil)
	_ Checkpointer = (*Replay)(nil)
)

// NewReplay indexes the recorded pages in dir.
func NewReplay(dir string, log *logger.Logger) (*Replay, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay dir: %w", err)
	}

	var pages []recordedPage

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		m := recordedPagePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}

		step, _ := strconv.Atoi(m[1])
		pages = append(pages, recordedPage{
			step:  step,
			label: m[2],
			path:  filepath.Join(dir, entry.Name()),
		})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRecordedPages, dir)
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].step < pages[j].step })

	return &Replay{
		pages:  pages,
		cursor: -1,
		logger: log,
	}, nil
}

func (r *Replay) load(i int) error {
	f, err := os.Open(r.pages[i].path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrNavigation, r.pages[i].path, err)
	}

	r.doc = doc
	r.cursor = i

	r.logger.Debug(fmt.Sprintf("📼 Replaying page %s", filepath.Base(r.pages[i].path)))

	return nil
}

// Open loads the first recorded page. Later opens keep the current page until
// the next checkpoint.
func (r *Replay) Open(ctx context.Context, url string, _ time.Duration) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.url = url

	if r.cursor < 0 {
		return r.load(0)
	}

	return nil
}

// Checkpoint syncs the current page to the recording dumped under label.
func (r *Replay) Checkpoint(label string) {
	if r.cursor >= 0 && r.pages[r.cursor].label == label {
		return
	}

	for i := r.cursor + 1; i < len(r.pages); i++ {
		if r.pages[i].label == label {
			if err := r.load(i); err != nil {
				r.logger.Warn(fmt.Sprintf("⚠️  Replay checkpoint %s: %v", label, err))
			}

			return
		}
	}

	r.logger.Debug(fmt.Sprintf("No recorded page for checkpoint %s", label))
}

func (r *Replay) find(t Target) *goquery.Selection {
	if r.doc == nil {
		return &goquery.Selection{}
	}

	if t.Role != "" {
		return r.findByRole(t.Role, t.Name)
	}

	return r.query(t.Selector)
}

func (r *Replay) findByRole(role, name string) *goquery.Selection {
	selector, ok := roleSelectors[role]
	if !ok {
		selector = fmt.Sprintf(`[role=%q]`, role)
	}

	want := strings.ToLower(name)

	return r.doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if want == "" {
			return true
		}

		for _, attr := range []string{"aria-label", "value", "title", "placeholder"} {
			if v, ok := s.Attr(attr); ok && strings.Contains(strings.ToLower(v), want) {
				return true
			}
		}

		return strings.Contains(strings.ToLower(s.Text()), want)
	})
}

// query evaluates a CSS selector, adding support for :has-text("...").
func (r *Replay) query(selector string) *goquery.Selection {
	if !strings.Contains(selector, ":has-text(") {
		return r.doc.Find(selector)
	}

	var result *goquery.Selection

	for _, group := range splitTopLevel(selector, func(c rune) bool { return c == ',' }) {
		sel := r.queryGroup(group)
		if result == nil {
			result = sel
		} else {
			result = result.AddSelection(sel)
		}
	}

	if result == nil {
		return &goquery.Selection{}
	}

	return result
}

func (r *Replay) queryGroup(group string) *goquery.Selection {
	var sel *goquery.Selection

	child := false

	for _, token := range splitTopLevel(group, isSpace) {
		if token == ">" {
			child = true

			continue
		}

		base, texts := extractHasText(token)

		switch {
		case sel == nil:
			sel = r.doc.Find(base)
		case child:
			sel = sel.ChildrenFiltered(base)
		default:
			sel = sel.Find(base)
		}

		child = false

		if len(texts) > 0 {
			sel = sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
				content := strings.ToLower(strings.Join(strings.Fields(s.Text()), " "))
				for _, text := range texts {
					if !strings.Contains(content, strings.ToLower(text)) {
						return false
					}
				}

				return true
			})
		}
	}

	if sel == nil {
		return &goquery.Selection{}
	}

	return sel
}

func extractHasText(token string) (string, []string) {
	var texts []string

	for _, m := range hasTextPattern.FindAllStringSubmatch(token, -1) {
		text := m[1]
		if text == "" {
			text = m[2]
		}

		texts = append(texts, strings.Join(strings.Fields(text), " "))
	}

	base := strings.TrimSpace(hasTextPattern.ReplaceAllString(token, ""))
	if base == "" {
		base = "*"
	}

	return base, texts
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

// splitTopLevel splits s on separators outside quotes, parentheses and brackets.
func splitTopLevel(s string, sep func(rune) bool) []string {
	var (
		parts []string
		cur   strings.Builder
		quote rune
		depth int
	)

	flush := func() {
		if part := strings.TrimSpace(cur.String()); part != "" {
			parts = append(parts, part)
		}

		cur.Reset()
	}

	for _, c := range s {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case depth == 0 && sep(c):
			flush()

			continue
		}

		cur.WriteRune(c)
	}

	flush()

	return parts
}

func (r *Replay) require(action string, t Target) (*goquery.Selection, error) {
	sel := r.find(t)
	if sel.Length() <= t.Index {
		return nil, fmt.Errorf("%w: %s %s", ErrElementNotFound, action, t)
	}

	return sel.Eq(t.Index), nil
}

// Fill records value on the matched input.
func (r *Replay) Fill(ctx context.Context, t Target, value string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	sel, err := r.require("fill", t)
	if err != nil {
		return err
	}

	sel.SetAttr("value", value)

	return nil
}

// Click checks that the target exists.
func (r *Replay) Click(ctx context.Context, t Target) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	_, err := r.require("click", t)

	return err
}

// Press checks that the target exists.
func (r *Replay) Press(ctx context.Context, t Target, _ string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	_, err := r.require("press", t)

	return err
}

// Evaluate is a no-op; recorded pages carry no script state.
func (r *Replay) Evaluate(ctx context.Context, _ string) (any, error) {
	return nil, checkContext(ctx)
}

// Count returns the number of matches on the current page.
func (r *Replay) Count(ctx context.Context, t Target) (int, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	return r.find(t).Length(), nil
}

// Texts returns the visible text of every match.
func (r *Replay) Texts(ctx context.Context, t Target) ([]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	sel := r.find(t)
	texts := make([]string, 0, sel.Length())

	for _, node := range sel.Nodes {
		texts = append(texts, VisibleText(node))
	}

	return texts, nil
}

// WaitNetworkIdle returns immediately.
func (r *Replay) WaitNetworkIdle(context.Context, time.Duration) {}

// ReadVisibleText returns the text of the current page body.
func (r *Replay) ReadVisibleText(ctx context.Context) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}

	if r.doc == nil {
		return "", fmt.Errorf("%w: no page loaded", ErrNavigation)
	}

	body := r.doc.Find("body")
	if body.Length() == 0 {
		return VisibleText(r.doc.Selection.Nodes[0]), nil
	}

	return VisibleText(body.Nodes[0]), nil
}

// Screenshot is not available offline.
func (r *Replay) Screenshot(string) error {
	return nil
}

// DumpHTML writes the current page.
func (r *Replay) DumpHTML(path string) error {
	if r.doc == nil {
		return nil
	}

	content, err := r.doc.Html()
	if err != nil {
		return fmt.Errorf("render replay page: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write html dump: %w", err)
	}

	return nil
}

// URL returns the last opened URL.
func (r *Replay) URL() string {
	return r.url
}

// Close releases nothing.
func (r *Replay) Close() error {
	return nil
}
