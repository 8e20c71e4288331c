// Package export turns ledger reports into downloadable artifacts.
package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"ledgerbook/internal/core"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"

	maxSheetNameLen = 31
)

var (
	monthHeader = []interface{}{"Date", "Party", "Purpose", "Debit", "Credit", "Reference"}
	partyHeader = []interface{}{"Date", "Purpose", "Debit", "Credit", "Reference"}
)

func MonthWorkbookFilename(month string) string { return fmt.Sprintf("month_%s.xlsx", month) }
func MonthPDFFilename(month string) string      { return fmt.Sprintf("month_%s.pdf", month) }
func PartyWorkbookFilename(name string) string  { return fmt.Sprintf("party_%s.xlsx", name) }

// MonthSheetName and PartySheetName return the single sheet name used by
// each workbook, already made safe for Excel.
func MonthSheetName(month string) string { return SanitizeSheetName("Month " + month) }
func PartySheetName(name string) string  { return SanitizeSheetName("Party " + name) }

// SanitizeSheetName replaces characters Excel rejects in sheet names and
// truncates to 31 characters.
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	if utf8.RuneCountInString(name) > maxSheetNameLen {
		name = string([]rune(name)[:maxSheetNameLen])
	}
	// Excel rejects a leading or trailing quote, so trim after truncating.
	name = strings.Trim(name, "'")
	if strings.TrimSpace(name) == "" {
		return "Sheet1"
	}
	return name
}

// WriteMonthWorkbook writes the month report as a single-sheet workbook:
// header, one row per entry, a blank row and the totals row.
func WriteMonthWorkbook(w io.Writer, report core.MonthReport) error {
	rows := make([][]interface{}, 0, len(report.Rows)+3)
	rows = append(rows, monthHeader)
	for _, e := range report.Rows {
		rows = append(rows, []interface{}{e.Date, e.PartyName, e.Purpose, e.Debit, e.Credit, e.Reference})
	}
	rows = append(rows, nil)
	rows = append(rows, []interface{}{"", "", "Totals", report.Totals.TotalDebit, report.Totals.TotalCredit})

	return writeWorkbook(w, MonthSheetName(report.Month), rows)
}

// WritePartyWorkbook writes a party statement, oldest entry first.
func WritePartyWorkbook(w io.Writer, st core.PartyStatement) error {
	rows := make([][]interface{}, 0, len(st.Entries)+3)
	rows = append(rows, partyHeader)
	for _, e := range st.Entries {
		rows = append(rows, []interface{}{e.Date, e.Purpose, e.Debit, e.Credit, e.Reference})
	}
	rows = append(rows, nil)
	rows = append(rows, []interface{}{"", "Totals", st.Totals.TotalDebit, st.Totals.TotalCredit})

	return writeWorkbook(w, PartySheetName(st.Party.Name), rows)
}

func writeWorkbook(w io.Writer, sheet string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
