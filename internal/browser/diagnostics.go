package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeLabelChars = regexp.MustCompile(`[^a-z0-9]+`)

// Diagnostics writes numbered screenshots and HTML dumps for one adapter run
// under <base>/<provider>/<timestamp>/.
type Diagnostics struct {
	dir  string
	step int
}

// NewDiagnostics creates the run directory. An empty base disables capture.
func NewDiagnostics(base, provider string, now time.Time) (*Diagnostics, error) {
	if base == "" {
		return &Diagnostics{}, nil
	}

	dir := filepath.Join(base, provider, now.Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics dir: %w", err)
	}

	return &Diagnostics{dir: dir}, nil
}

// Dir returns the run directory, empty when capture is disabled.
func (d *Diagnostics) Dir() string {
	return d.dir
}

// Enabled reports whether captures are written.
func (d *Diagnostics) Enabled() bool {
	return d.dir != ""
}

// Capture writes NN-label.png and NN-label.html from the driver's current page
// and returns the HTML path. Both writes are attempted; the first error is returned.
func (d *Diagnostics) Capture(driver Driver, label string) (string, error) {
	if !d.Enabled() {
		return "", nil
	}

	d.step++
	name := fmt.Sprintf("%02d-%s", d.step, SanitizeLabel(label))

	shotErr := driver.Screenshot(filepath.Join(d.dir, name+".png"))

	htmlPath := filepath.Join(d.dir, name+".html")
	if err := driver.DumpHTML(htmlPath); err != nil {
		return "", err
	}

	return htmlPath, shotErr
}

// SanitizeLabel turns a step label into a file-name fragment.
func SanitizeLabel(label string) string {
	s := unsafeLabelChars.ReplaceAllString(strings.ToLower(label), "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return "page"
	}

	return s
}
