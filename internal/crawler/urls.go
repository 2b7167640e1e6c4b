package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPortalURL indicates a portal URL that cannot be extended with query parameters.
var ErrInvalidPortalURL = errors.New("invalid portal url")

// PaymentHistoryURL builds the NYC datalet URL for one PIN and tax year.
func PaymentHistoryURL(base, pin string, taxYear int) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPortalURL, base)
	}

	q := u.Query()
	q.Set("mode", "pa_pymts_hist")
	q.Set("UseSearch", "no")
	q.Set("pin", pin)
	q.Set("jur", "65")
	q.Set("taxyr", strconv.Itoa(taxYear))
	q.Set("LMparent", "20")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ExpandPIN substitutes {pin} in a bill URL template.
func ExpandPIN(template, pin string) string {
	return strings.ReplaceAll(template, "{pin}", url.QueryEscape(pin))
}

// NYCFiscalYear returns the fiscal year in effect at now. NYC fiscal years
// start on July 1 and are named for the year they end.
func NYCFiscalYear(now time.Time) int {
	if now.Month() >= time.July {
		return now.Year() + 1
	}

	return now.Year()
}
