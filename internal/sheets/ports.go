package sheets

import (
	"context"

	"ledgerbook/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportMirror keeps a copy of each month report in an external
	// spreadsheet, one tab per month.
	ReportMirror interface {
		// MirrorMonth replaces the tab for report.Month with the report rows
		// and totals, creating the tab when missing.
		MirrorMonth(ctx context.Context, report core.MonthReport) (ref string, err error)
		// MirroredMonths lists the month keys that currently have a tab.
		MirroredMonths(ctx context.Context) ([]string, error)
		// RemoveMonth drops the tab for month. Missing tabs are not an error.
		RemoveMonth(ctx context.Context, month string) error
	}
)

// Header is the first row of every mirrored tab.
var Header = []string{"Date", "Party", "Purpose", "Debit", "Credit", "Reference"}

// MonthValues lays out a month report as spreadsheet rows: the header, one
// row per entry in chronological order, a blank row and the totals.
func MonthValues(report core.MonthReport) [][]interface{} {
	rows := make([][]interface{}, 0, len(report.Rows)+3)

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	rows = append(rows, header)

	for _, e := range report.Rows {
		rows = append(rows, []interface{}{e.Date, e.PartyName, e.Purpose, e.Debit, e.Credit, e.Reference})
	}

	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Totals", "", "", report.Totals.TotalDebit, report.Totals.TotalCredit, ""})
	return rows
}
