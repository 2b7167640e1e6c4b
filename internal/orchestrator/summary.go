package orchestrator

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"taxsync/internal/models"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// WriteSummary renders the run as a table followed by counts. Colors are
// only used when styled is set.
func WriteSummary(w io.Writer, run *models.SyncRun, styled bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	if styled {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleDefault)
	}

	t.AppendHeader(table.Row{"#", "Provider", "Property", "State", "Scrape", "Delivery", "Duration", "Detail"})

	for i, o := range run.Outcomes {
		t.AppendRow(table.Row{
			i + 1,
			o.Property.Provider,
			o.Property.String(),
			paint(string(o.State), stateColor(o.State), styled),
			paint(scrapeMark(o), scrapeColor(o), styled),
			paint(string(o.Delivery), deliveryColor(o.Delivery), styled),
			o.Duration.Round(time.Millisecond),
			detail(o),
		})
	}

	t.AppendFooter(table.Row{"", "", "Total", run.Attempted, run.Succeeded, "", "", ""})
	t.Render()

	fmt.Fprintf(w, "\nRun %s: %d attempted, %d succeeded, %d failed, %d timed out\n",
		run.ID, run.Attempted, run.Succeeded, run.Count(models.StateFailed), run.Count(models.StateTimedOut))

	if run.CallbackURL != "" {
		delivered := 0

		for _, o := range run.Outcomes {
			if o.Delivery == models.DeliveryDelivered {
				delivered++
			}
		}

		fmt.Fprintf(w, "Callback %s: %d/%d delivered\n", run.CallbackURL, delivered, len(run.Outcomes))
	}
}

func scrapeMark(o *models.Outcome) string {
	if o.Record != nil && o.Record.Success {
		return "✓"
	}

	return "✗"
}

func detail(o *models.Outcome) string {
	switch {
	case o.DeliveryError != "":
		return o.DeliveryError
	case o.Record == nil:
		return ""
	case !o.Record.Success:
		return fmt.Sprintf("%s: %s", o.Record.ErrorCode, o.Record.Error)
	case o.Record.AnnualTax != nil:
		return fmt.Sprintf("annual $%.2f", *o.Record.AnnualTax)
	}

	return o.Record.ParcelNumber
}

func paint(s string, c text.Colors, styled bool) string {
	if !styled || len(c) == 0 {
		return s
	}

	return c.Sprint(s)
}

func stateColor(s models.RunState) text.Colors {
	switch s {
	case models.StateSucceeded:
		return text.Colors{text.FgGreen}
	case models.StateFailed:
		return text.Colors{text.FgRed}
	case models.StateTimedOut:
		return text.Colors{text.FgYellow}
	}

	return nil
}

func scrapeColor(o *models.Outcome) text.Colors {
	if o.Record != nil && o.Record.Success {
		return text.Colors{text.FgGreen}
	}

	return text.Colors{text.FgRed}
}

func deliveryColor(d models.DeliveryStatus) text.Colors {
	switch d {
	case models.DeliveryDelivered:
		return text.Colors{text.FgGreen}
	case models.DeliveryFailed:
		return text.Colors{text.FgRed}
	case models.DeliveryUnknown:
		return text.Colors{text.FgYellow}
	}

	return nil
}
