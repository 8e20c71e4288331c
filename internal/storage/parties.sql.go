package storage

import (
	"context"
	"database/sql"

	"ledgerbook/internal/core"
)

const partyColumns = `id, name, mobile, email, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanParty(row scanner) (core.Party, error) {
	var (
		p             core.Party
		mobile, email sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &mobile, &email, &p.CreatedAt); err != nil {
		return core.Party{}, err
	}
	if mobile.Valid {
		p.Mobile = &mobile.String
	}
	if email.Valid {
		p.Email = &email.String
	}
	return p, nil
}

const getParty = `SELECT ` + partyColumns + ` FROM parties WHERE id = ?`

func (q *Queries) GetParty(ctx context.Context, id int64) (core.Party, error) {
	return scanParty(q.db.QueryRowContext(ctx, getParty, id))
}

const getPartyByName = `SELECT ` + partyColumns + ` FROM parties WHERE name = ?`

func (q *Queries) GetPartyByName(ctx context.Context, name string) (core.Party, error) {
	return scanParty(q.db.QueryRowContext(ctx, getPartyByName, name))
}

const createParty = `INSERT INTO parties (name, mobile, email) VALUES (?, ?, ?)`

func (q *Queries) CreateParty(ctx context.Context, name string, mobile, email *string) (int64, error) {
	res, err := q.db.ExecContext(ctx, createParty, name, mobile, email)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const insertPartyIgnore = `INSERT OR IGNORE INTO parties (name, mobile, email) VALUES (?, ?, ?)`

// InsertPartyIgnore creates the party unless the name is already taken.
func (q *Queries) InsertPartyIgnore(ctx context.Context, name string, mobile, email *string) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertPartyIgnore, name, mobile, email)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// A nil mobile or email keeps the stored value.
const updatePartyContact = `UPDATE parties
SET mobile = COALESCE(?, mobile), email = COALESCE(?, email)
WHERE id = ?`

func (q *Queries) UpdatePartyContact(ctx context.Context, id int64, mobile, email *string) error {
	_, err := q.db.ExecContext(ctx, updatePartyContact, mobile, email, id)
	return err
}

const listPartySummaries = `SELECT p.id, p.name, p.mobile, p.email, p.created_at,
    COALESCE(SUM(e.debit), 0.0) AS total_debit,
    COALESCE(SUM(e.credit), 0.0) AS total_credit
FROM parties p
LEFT JOIN entries e ON e.party_id = p.id
GROUP BY p.id
ORDER BY p.name COLLATE NOCASE, p.id`

type PartyTotalsRow struct {
	Party       core.Party
	TotalDebit  float64
	TotalCredit float64
}

func (q *Queries) ListPartySummaries(ctx context.Context) ([]PartyTotalsRow, error) {
	rows, err := q.db.QueryContext(ctx, listPartySummaries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PartyTotalsRow
	for rows.Next() {
		var (
			i             PartyTotalsRow
			mobile, email sql.NullString
		)
		if err := rows.Scan(&i.Party.ID, &i.Party.Name, &mobile, &email, &i.Party.CreatedAt, &i.TotalDebit, &i.TotalCredit); err != nil {
			return nil, err
		}
		if mobile.Valid {
			i.Party.Mobile = &mobile.String
		}
		if email.Valid {
			i.Party.Email = &email.String
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const partyTotals = `SELECT COALESCE(SUM(debit), 0.0), COALESCE(SUM(credit), 0.0)
FROM entries WHERE party_id = ?`

func (q *Queries) PartyTotals(ctx context.Context, partyID int64) (core.Totals, error) {
	var t core.Totals
	err := q.db.QueryRowContext(ctx, partyTotals, partyID).Scan(&t.TotalDebit, &t.TotalCredit)
	return t, err
}

const deleteParty = `DELETE FROM parties WHERE id = ?`

func (q *Queries) DeleteParty(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteParty, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countParties = `SELECT COUNT(*) FROM parties`

func (q *Queries) CountParties(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countParties).Scan(&n)
	return n, err
}
