package ledger

import (
	"context"
	"log/slog"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/core"
	"ledgerbook/internal/storage"
)

// ListParties returns every party with its totals, ordered by name without
// regard to case.
func (s *Service) ListParties(ctx context.Context) ([]core.PartySummary, error) {
	rows, err := s.store.Queries().ListPartySummaries(ctx)
	if err != nil {
		return nil, storeError("list parties", err)
	}

	out := make([]core.PartySummary, 0, len(rows))
	for _, r := range rows {
		if err := checkTotals("list parties", r.TotalDebit, r.TotalCredit); err != nil {
			return nil, err
		}
		balance := core.Balance(r.TotalDebit, r.TotalCredit)
		out = append(out, core.PartySummary{
			Party:       r.Party,
			TotalDebit:  r.TotalDebit,
			TotalCredit: r.TotalCredit,
			Balance:     balance,
			Status:      core.StatusOf(balance),
		})
	}
	return out, nil
}

// GetPartyLedger returns the party with its entries, most recent first.
func (s *Service) GetPartyLedger(ctx context.Context, partyID int64) (core.PartyLedger, error) {
	q := s.store.Queries()
	party, err := getParty(ctx, q, partyID)
	if err != nil {
		return core.PartyLedger{}, err
	}

	entries, err := q.ListEntriesByParty(ctx, partyID)
	if err != nil {
		return core.PartyLedger{}, storeError("list party entries", err)
	}
	totals, err := q.PartyTotals(ctx, partyID)
	if err != nil {
		return core.PartyLedger{}, storeError("party totals", err)
	}
	if err := checkTotals("party totals", totals.TotalDebit, totals.TotalCredit); err != nil {
		return core.PartyLedger{}, err
	}

	balance := totals.Balance()
	return core.PartyLedger{
		Party:   party,
		Entries: entries,
		Balance: balance,
		Status:  core.StatusOf(balance),
	}, nil
}

// PartyStatement returns the party's entries oldest first with totals.
func (s *Service) PartyStatement(ctx context.Context, partyID int64) (core.PartyStatement, error) {
	q := s.store.Queries()
	party, err := getParty(ctx, q, partyID)
	if err != nil {
		return core.PartyStatement{}, err
	}

	entries, err := q.ListEntriesByPartyChronological(ctx, partyID)
	if err != nil {
		return core.PartyStatement{}, storeError("list party entries", err)
	}
	totals := core.TotalsOf(entries)
	if err := checkTotals("party statement", totals.TotalDebit, totals.TotalCredit); err != nil {
		return core.PartyStatement{}, err
	}
	return core.PartyStatement{
		Party:   party,
		Entries: entries,
		Totals:  totals,
		Balance: totals.Balance(),
	}, nil
}

// MonthlyReport returns the entries dated in month (YYYY-MM), oldest first,
// with their totals. A month without entries is an empty report.
func (s *Service) MonthlyReport(ctx context.Context, month string) (core.MonthReport, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.MonthReport{}, err
	}

	q := s.store.Queries()
	rows, err := q.ListEntriesByMonth(ctx, month)
	if err != nil {
		return core.MonthReport{}, storeError("list month entries", err)
	}
	totals, err := q.MonthTotals(ctx, month)
	if err != nil {
		return core.MonthReport{}, storeError("month totals", err)
	}
	if err := checkTotals("month totals", totals.TotalDebit, totals.TotalCredit); err != nil {
		return core.MonthReport{}, err
	}

	return core.MonthReport{
		Month:  month,
		Rows:   rows,
		Totals: totals,
	}, nil
}

// ListMonths returns every month that has entries, most recent first.
func (s *Service) ListMonths(ctx context.Context) ([]core.MonthSummary, error) {
	months, err := s.store.Queries().ListMonthSummaries(ctx)
	if err != nil {
		return nil, storeError("list months", err)
	}
	for _, m := range months {
		if err := checkTotals("list months", m.TotalDebit, m.TotalCredit); err != nil {
			return nil, err
		}
	}
	return months, nil
}

// DeleteParty removes the party and all of its entries in one transaction.
func (s *Service) DeleteParty(ctx context.Context, partyID int64) (core.Party, error) {
	var (
		party   core.Party
		removed int64
	)
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		var err error
		party, err = getParty(ctx, q, partyID)
		if err != nil {
			return err
		}
		removed, err = q.DeleteEntriesByParty(ctx, partyID)
		if err != nil {
			return storeError("delete party entries", err)
		}
		n, err := q.DeleteParty(ctx, partyID)
		if err != nil {
			return storeError("delete party", err)
		}
		if n == 0 {
			return partyNotFound(partyID)
		}
		return nil
	})
	if err != nil {
		return core.Party{}, err
	}

	slog.InfoContext(ctx, "Party deleted",
		"party_id", party.ID,
		"party_name", party.Name,
		"entries_removed", removed)

	s.publish(ctx, amqp.NewPartyDeletedEvent(party.ID, party.Name))
	return party, nil
}
