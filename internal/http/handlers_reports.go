package http

import (
	"bytes"
	"io"
	"net/http"

	"ledgerbook/internal/core"
	"ledgerbook/internal/export"
	"ledgerbook/internal/log"
)

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month, err := PathMonth(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}

	report, err := s.monthReport(r.Context(), month)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse(report).Write(w)
}

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.monthList(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse(months).Write(w)
}

func (s *Server) handleExportMonthTabular(w http.ResponseWriter, r *http.Request) {
	s.exportMonth(w, r, "month_xlsx", export.ContentTypeXLSX, export.MonthWorkbookFilename, export.WriteMonthWorkbook)
}

func (s *Server) handleExportMonthPrintable(w http.ResponseWriter, r *http.Request) {
	s.exportMonth(w, r, "month_pdf", export.ContentTypePDF, export.MonthPDFFilename, export.WriteMonthPDF)
}

func (s *Server) exportMonth(w http.ResponseWriter, r *http.Request, kind, contentType string,
	filename func(string) string, write func(io.Writer, core.MonthReport) error) {
	month, err := PathMonth(r)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	report, err := s.monthReport(r.Context(), month)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, report); err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	s.metrics.Exports.WithLabelValues(kind).Inc()
	log.FromContext(r.Context()).WithComponent(log.ComponentExport).InfoContext(r.Context(), "Month exported",
		log.FieldExportKind, kind, log.FieldMonth, month, log.FieldRowCount, len(report.Rows))
	NewAttachment(contentType, filename(month), buf.Bytes()).Write(w)
}

func (s *Server) handleExportPartyTabular(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	statement, err := s.ledger.PartyStatement(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePartyWorkbook(&buf, statement); err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}

	s.metrics.Exports.WithLabelValues("party_xlsx").Inc()
	log.FromContext(r.Context()).WithComponent(log.ComponentExport).InfoContext(r.Context(), "Party exported",
		log.NewFields().WithParty(statement.Party.ID, statement.Party.Name).ToSlice()...)
	NewAttachment(export.ContentTypeXLSX, export.PartyWorkbookFilename(statement.Party.Name), buf.Bytes()).Write(w)
}
