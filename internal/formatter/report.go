// Package formatter renders tax records for people reading a terminal.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"taxsync/internal/models"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Report renders rec as a field list followed by an installment table.
func Report(rec *models.TaxRecord) string {
	if rec == nil {
		return "✗ no record\n"
	}

	var sb strings.Builder

	mark := "✓"
	if !rec.Success {
		mark = "✗"
	}

	fmt.Fprintf(&sb, "%s %s\n\n", mark, rec.Provider.Label())

	fields := [][2]string{
		{"Property", deref(rec.PropertyID)},
		{"Parcel", rec.ParcelNumber},
		{"Address", rec.Address},
		{"Owner", rec.Owner},
		{"Tax year", taxYear(rec)},
		{"Assessed value", money(rec.AssessedValue)},
		{"Market value", money(rec.MarketValue)},
		{"Annual tax", money(rec.AnnualTax)},
		{"Period amount", money(rec.QuarterlyAmount)},
	}

	if !rec.Success {
		fields = append(fields, [2]string{"Error", fmt.Sprintf("%s (%s)", rec.Error, rec.ErrorCode)})

		if rec.Raw != nil && rec.Raw.SnapshotPath != "" {
			fields = append(fields, [2]string{"Snapshot", rec.Raw.SnapshotPath})
		}
	}

	for _, line := range alignFields(fields) {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if len(rec.Installments) > 0 {
		rows := [][]string{{"#", "Amount", "Due", "Status"}}

		for _, inst := range rec.Installments {
			rows = append(rows, []string{
				strconv.Itoa(inst.Number),
				fmt.Sprintf("$%.2f", inst.Amount),
				inst.DueDate,
				statusMark(inst.Status),
			})
		}

		sb.WriteString("\n")

		for _, line := range processTable(rows) {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	if len(rec.Notes) > 0 {
		sb.WriteString("\n")

		for _, note := range rec.Notes {
			fmt.Fprintf(&sb, "⚠️ %s\n", note)
		}
	}

	return sb.String()
}

// alignFields pads labels to a common display width and drops empty values.
func alignFields(fields [][2]string) []string {
	width := 0

	for _, f := range fields {
		if f[1] != "" {
			width = max(width, runewidth.StringWidth(f[0]))
		}
	}

	var lines []string

	for _, f := range fields {
		if f[1] == "" {
			continue
		}

		lines = append(lines, fmt.Sprintf("  %s  %s", runewidth.FillRight(f[0]+":", width+1), f[1]))
	}

	return lines
}

// processTable lays rows out as a markdown table; the first row is the header.
func processTable(table [][]string) []string {
	if len(table) == 0 {
		return nil
	}

	colCount := 0
	for _, row := range table {
		colCount = max(colCount, len(row))
	}

	// Calculate max widths (using display width)
	colWidths := make([]int, colCount)

	for _, row := range table {
		for i, cell := range row {
			colWidths[i] = max(colWidths[i], runewidth.StringWidth(cell))
		}
	}

	for i := range colWidths {
		colWidths[i] = max(colWidths[i], 3)
	}

	result := make([]string, 0, len(table)+1)

	for i, row := range table {
		result = append(result, renderRow(row, colWidths))

		if i == 0 {
			sep := make([]string, colCount)
			for j, w := range colWidths {
				sep[j] = strings.Repeat("-", w)
			}

			result = append(result, renderRow(sep, colWidths))
		}
	}

	return result
}

func renderRow(row []string, widths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, w := range widths {
		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(" ")
		sb.WriteString(runewidth.FillRight(content, w))
		sb.WriteString(" |")
	}

	return sb.String()
}

func statusMark(s models.InstallmentStatus) string {
	switch s {
	case models.StatusPaid:
		return "✓ paid"
	case models.StatusUnpaid:
		return "✗ unpaid"
	}

	return "? unknown"
}

func taxYear(rec *models.TaxRecord) string {
	if rec.TaxYear == nil {
		return ""
	}

	if !rec.YearVerified {
		return fmt.Sprintf("%d (unverified)", *rec.TaxYear)
	}

	return strconv.Itoa(*rec.TaxYear)
}

func money(v *float64) string {
	if v == nil {
		return ""
	}

	return "$" + commas(*v)
}

// commas formats v with two decimals and thousands separators.
func commas(v float64) string {
	return printer.Sprintf("%.2f", v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
