package http

import (
	"net/http"

	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
)

type partyResponse struct {
	OK    bool       `json:"ok"`
	Party core.Party `json:"party"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) handleCreateParty(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	party, err := s.ledger.CreateParty(r.Context(), core.PartyContact{
		Name:   p.Get("name"),
		Mobile: p.Get("mobile"),
		Email:  p.Get("email"),
	})
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	NewJSONResponse(partyResponse{OK: true, Party: party}).Write(w)
}

func (s *Server) handleListParties(w http.ResponseWriter, r *http.Request) {
	parties, err := s.ledger.ListParties(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse(parties).Write(w)
}

func (s *Server) handleGetParty(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}

	ledger, err := s.ledger.GetPartyLedger(r.Context(), id)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse(ledger).Write(w)
}

func (s *Server) handleDeleteParty(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		s.errorResponse(r, log.OpDelete, err, OKErrorResponse).Write(w)
		return
	}

	party, err := s.ledger.DeleteParty(r.Context(), id)
	if err != nil {
		s.errorResponse(r, log.OpDelete, err, OKErrorResponse).Write(w)
		return
	}

	s.invalidateAll()
	s.metrics.PartiesDeleted.Inc()
	log.FromContext(r.Context()).InfoContext(r.Context(), "Party deleted",
		log.NewFields().WithOperation(log.OpDelete).WithParty(party.ID, party.Name).ToSlice()...)

	NewJSONResponse(okResponse{OK: true}).Write(w)
}
