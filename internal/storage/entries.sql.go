package storage

import (
	"context"
	"database/sql"

	"ledgerbook/internal/core"
)

const entryColumns = `id, date, party_id, party_name, purpose, debit, credit, reference, created_at`

func scanEntries(rows *sql.Rows) ([]core.Entry, error) {
	defer rows.Close()

	items := []core.Entry{}
	for rows.Next() {
		var (
			e       core.Entry
			partyID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Date, &partyID, &e.PartyName, &e.Purpose, &e.Debit, &e.Credit, &e.Reference, &e.CreatedAt); err != nil {
			return nil, err
		}
		if partyID.Valid {
			e.PartyID = &partyID.Int64
		}
		items = append(items, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertEntry = `INSERT INTO entries (date, party_id, party_name, purpose, debit, credit, reference)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type InsertEntryParams struct {
	Date      string
	PartyID   int64
	PartyName string
	Purpose   string
	Debit     float64
	Credit    float64
	Reference string
}

func (q *Queries) InsertEntry(ctx context.Context, arg InsertEntryParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertEntry,
		arg.Date,
		arg.PartyID,
		arg.PartyName,
		arg.Purpose,
		arg.Debit,
		arg.Credit,
		arg.Reference,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listEntriesByPartyDesc = `SELECT ` + entryColumns + ` FROM entries
WHERE party_id = ?
ORDER BY date DESC, id DESC`

// ListEntriesByParty returns the party's entries, most recent first.
func (q *Queries) ListEntriesByParty(ctx context.Context, partyID int64) ([]core.Entry, error) {
	rows, err := q.db.QueryContext(ctx, listEntriesByPartyDesc, partyID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

const listEntriesByPartyAsc = `SELECT ` + entryColumns + ` FROM entries
WHERE party_id = ?
ORDER BY date ASC, id ASC`

// ListEntriesByPartyChronological returns the party's entries, oldest first.
func (q *Queries) ListEntriesByPartyChronological(ctx context.Context, partyID int64) ([]core.Entry, error) {
	rows, err := q.db.QueryContext(ctx, listEntriesByPartyAsc, partyID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

const listEntriesByMonth = `SELECT ` + entryColumns + ` FROM entries
WHERE substr(date, 1, 7) = ?
ORDER BY date ASC, id ASC`

func (q *Queries) ListEntriesByMonth(ctx context.Context, month string) ([]core.Entry, error) {
	rows, err := q.db.QueryContext(ctx, listEntriesByMonth, month)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

const monthTotals = `SELECT COALESCE(SUM(debit), 0.0), COALESCE(SUM(credit), 0.0)
FROM entries WHERE substr(date, 1, 7) = ?`

func (q *Queries) MonthTotals(ctx context.Context, month string) (core.Totals, error) {
	var t core.Totals
	err := q.db.QueryRowContext(ctx, monthTotals, month).Scan(&t.TotalDebit, &t.TotalCredit)
	return t, err
}

const listMonthSummaries = `SELECT substr(date, 1, 7) AS month,
    COALESCE(SUM(debit), 0.0) AS total_debit,
    COALESCE(SUM(credit), 0.0) AS total_credit
FROM entries
GROUP BY month
ORDER BY month DESC`

func (q *Queries) ListMonthSummaries(ctx context.Context) ([]core.MonthSummary, error) {
	rows, err := q.db.QueryContext(ctx, listMonthSummaries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.MonthSummary{}
	for rows.Next() {
		var m core.MonthSummary
		if err := rows.Scan(&m.Month, &m.TotalDebit, &m.TotalCredit); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteEntriesByParty = `DELETE FROM entries WHERE party_id = ?`

func (q *Queries) DeleteEntriesByParty(ctx context.Context, partyID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEntriesByParty, partyID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countEntries = `SELECT COUNT(*) FROM entries`

func (q *Queries) CountEntries(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countEntries).Scan(&n)
	return n, err
}
