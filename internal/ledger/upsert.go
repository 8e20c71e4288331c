package ledger

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/core"
	"ledgerbook/internal/storage"
)

// RecordEntry finds or creates the party named in e and appends the entry,
// all in one transaction. Non-empty mobile/email refresh the party's contact
// details; empty ones leave them as they are.
func (s *Service) RecordEntry(ctx context.Context, e core.NewEntry) (core.Party, error) {
	if err := e.Validate(); err != nil {
		return core.Party{}, err
	}

	var (
		party   core.Party
		entryID int64
		created bool
	)
	err := s.store.WithinTx(ctx, func(q *storage.Queries) error {
		mobile, email := core.StringOrNil(e.Mobile), core.StringOrNil(e.Email)

		existing, err := q.GetPartyByName(ctx, e.PartyName)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id, err := q.CreateParty(ctx, e.PartyName, mobile, email)
			if err != nil {
				return storeError("create party", err)
			}
			created = true
			if party, err = getParty(ctx, q, id); err != nil {
				return err
			}
		case err != nil:
			return storeError("find party", err)
		default:
			party = existing
			if mobile != nil || email != nil {
				if err := q.UpdatePartyContact(ctx, existing.ID, mobile, email); err != nil {
					return storeError("update party contact", err)
				}
				if party, err = getParty(ctx, q, existing.ID); err != nil {
					return err
				}
			}
		}

		entryID, err = q.InsertEntry(ctx, storage.InsertEntryParams{
			Date:      e.Date,
			PartyID:   party.ID,
			PartyName: party.Name,
			Purpose:   e.Purpose,
			Debit:     e.Debit,
			Credit:    e.Credit,
			Reference: e.Reference,
		})
		if err != nil {
			return storeError("insert entry", err)
		}
		return nil
	})
	if err != nil {
		return core.Party{}, err
	}

	slog.InfoContext(ctx, "Entry recorded",
		"entry_id", entryID,
		"party_id", party.ID,
		"party_name", party.Name,
		"party_created", created,
		"date", e.Date,
		"debit", e.Debit,
		"credit", e.Credit)

	if created {
		s.publish(ctx, amqp.NewPartyCreatedEvent(party.ID, party.Name))
	}
	s.publish(ctx, amqp.NewEntryRecordedEvent(party.ID, party.Name, entryID, core.MonthOf(e.Date)))
	return party, nil
}

// CreateParty inserts the party unless one with the same name exists, and
// returns the stored record either way. An existing party is never modified.
func (s *Service) CreateParty(ctx context.Context, c core.PartyContact) (core.Party, error) {
	if err := c.Validate(); err != nil {
		return core.Party{}, err
	}

	q := s.store.Queries()
	created, err := q.InsertPartyIgnore(ctx, c.Name, core.StringOrNil(c.Mobile), core.StringOrNil(c.Email))
	if err != nil {
		return core.Party{}, storeError("insert party", err)
	}
	party, err := q.GetPartyByName(ctx, c.Name)
	if err != nil {
		return core.Party{}, storeError("get party by name", err)
	}

	if created {
		slog.InfoContext(ctx, "Party created", "party_id", party.ID, "party_name", party.Name)
		s.publish(ctx, amqp.NewPartyCreatedEvent(party.ID, party.Name))
	}
	return party, nil
}
