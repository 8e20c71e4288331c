package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"ledgerbook/internal/core"
)

// Printable is the text content of the month PDF.
type Printable struct {
	Title   string
	Header  string
	Lines   []string
	Trailer string
}

// MonthPrintable lays out the month report as pipe-delimited lines.
func MonthPrintable(report core.MonthReport) Printable {
	p := Printable{
		Title:   fmt.Sprintf("Monthly Report — %s", report.Month),
		Header:  "Date | Party | Purpose | Debit | Credit | Reference",
		Lines:   make([]string, 0, len(report.Rows)),
		Trailer: fmt.Sprintf("Totals — Debit: %s   Credit: %s", core.FormatAmount(report.Totals.TotalDebit), core.FormatAmount(report.Totals.TotalCredit)),
	}
	for _, e := range report.Rows {
		purpose := e.Purpose
		if purpose == "" {
			purpose = "-"
		}
		p.Lines = append(p.Lines, strings.Join([]string{
			e.Date,
			e.PartyName,
			purpose,
			core.FormatAmount(e.Debit),
			core.FormatAmount(e.Credit),
			e.Reference,
		}, " | "))
	}
	return p
}

// pdfText maps s onto the cp1252 range of the PDF core fonts. Characters
// outside it become '?'.
func pdfText(s string) string {
	return strings.Map(func(r rune) rune {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return '?'
		}
		return r
	}, s)
}

// WriteMonthPDF renders the month report as a simple one-column PDF.
func WriteMonthPDF(w io.Writer, report core.MonthReport) error {
	p := MonthPrintable(report)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetTitle(p.Title, true)
	pdf.AddPage()
	cp1252 := pdf.UnicodeTranslatorFromDescriptor("")
	tr := func(s string) string { return cp1252(pdfText(s)) }

	pdf.SetFont("Helvetica", "", 18)
	pdf.CellFormat(0, 10, tr(p.Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.MultiCell(0, 5, tr(p.Header), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range p.Lines {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}

	pdf.Ln(4)
	pdf.MultiCell(0, 5, tr(p.Trailer), "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
