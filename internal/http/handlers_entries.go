package http

import (
	"net/http"

	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
)

func (s *Server) handleRecordEntry(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}

	debit, err := core.ParseAmount(p.Get("debit"))
	if err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}
	credit, err := core.ParseAmount(p.Get("credit"))
	if err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}

	entry := core.NewEntry{
		Date:      p.Get("date"),
		PartyName: p.Get("partyName"),
		Purpose:   p.Get("purpose"),
		Debit:     debit,
		Credit:    credit,
		Reference: p.Get("reference"),
		Mobile:    p.Get("mobile"),
		Email:     p.Get("email"),
	}

	party, err := s.ledger.RecordEntry(r.Context(), entry)
	if err != nil {
		s.writeError(w, r, log.OpRecord, err)
		return
	}

	s.invalidateMonth(core.MonthOf(entry.Date))
	s.metrics.EntriesRecorded.Inc()
	log.FromContext(r.Context()).InfoContext(r.Context(), "Entry recorded",
		log.NewFields().
			WithOperation(log.OpRecord).
			WithParty(party.ID, party.Name).
			WithAmounts(debit, credit).
			WithMonth(core.MonthOf(entry.Date)).
			ToSlice()...)

	NewJSONResponse(partyResponse{OK: true, Party: party}).Write(w)
}
