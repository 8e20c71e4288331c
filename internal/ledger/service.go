// Package ledger implements the ledger engine and the entry upsert workflow
// on top of the SQLite store.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/core"
	"ledgerbook/internal/storage"
)

// Store is the subset of the repository the ledger needs.
type Store interface {
	Queries() *storage.Queries
	WithinTx(ctx context.Context, fn func(q *storage.Queries) error) error
}

// Publisher announces committed changes. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

type Service struct {
	store     Store
	publisher Publisher
}

var _ Store = (*storage.SQLiteRepository)(nil)
var _ Publisher = (*amqp.Client)(nil)

// NewService wires the ledger. publisher may be nil.
func NewService(store Store, publisher Publisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
	}
}

func (s *Service) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping ledger event", "event_type", ev.Type)
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		// The write is already committed.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event_type", ev.Type,
			"party_id", ev.PartyID,
			"error", err)
	}
}

// storeError tags an unexpected store failure as internal.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrInternal, op, err)
}

var errAmountOverflow = errors.New("amount overflow")

// checkTotals rejects totals that overflowed while being summed.
func checkTotals(op string, values ...float64) error {
	if core.Finite(values...) {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", core.ErrInternal, op, errAmountOverflow)
}

func partyNotFound(id int64) error {
	return fmt.Errorf("party %d: %w", id, core.ErrNotFound)
}

func getParty(ctx context.Context, q *storage.Queries, id int64) (core.Party, error) {
	p, err := q.GetParty(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Party{}, partyNotFound(id)
	}
	if err != nil {
		return core.Party{}, storeError("get party", err)
	}
	return p, nil
}
