package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
	"ledgerbook/internal/sheets"
)

// Reports is the read side of the ledger the worker mirrors from.
type Reports interface {
	MonthlyReport(ctx context.Context, month string) (core.MonthReport, error)
	ListMonths(ctx context.Context) ([]core.MonthSummary, error)
}

// MirrorWorker keeps the spreadsheet mirror in step with the ledger.
type MirrorWorker struct {
	reports Reports
	mirror  sheets.ReportMirror
	logger  *log.Logger
}

func NewMirrorWorker(reports Reports, mirror sheets.ReportMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		reports: reports,
		mirror:  mirror,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single ledger event from AMQP. A returned error
// makes the consumer requeue the message.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventType, string(ev.Type),
		log.FieldPartyID, ev.PartyID,
		log.FieldMonth, ev.Month)

	switch ev.Type {
	case amqp.EventEntryRecorded:
		if err := core.ValidateMonth(ev.Month); err != nil {
			// Bad payloads are dropped, not requeued.
			w.logger.WarnContext(ctx, "Dropping entry event with invalid month", log.FieldError, err)
			return nil
		}
		return w.MirrorMonth(ctx, ev.Month)
	case amqp.EventPartyDeleted:
		// The party's entries may have spanned any month.
		return w.ResyncAll(ctx)
	case amqp.EventPartyCreated:
		return nil
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event type", log.FieldEventType, string(ev.Type))
		return nil
	}
}

// MirrorMonth re-reads one month report and writes it to the mirror. A month
// left without entries is removed from the mirror.
func (w *MirrorWorker) MirrorMonth(ctx context.Context, month string) error {
	report, err := w.reports.MonthlyReport(ctx, month)
	if err != nil {
		return fmt.Errorf("read month report %s: %w", month, err)
	}

	if len(report.Rows) == 0 {
		if err := w.mirror.RemoveMonth(ctx, month); err != nil {
			return fmt.Errorf("remove mirrored month %s: %w", month, err)
		}
		w.logger.InfoContext(ctx, "Removed empty month from mirror", log.FieldMonth, month)
		return nil
	}

	ref, err := w.mirror.MirrorMonth(ctx, report)
	if err != nil {
		return fmt.Errorf("mirror month %s: %w", month, err)
	}

	w.logger.InfoContext(ctx, "Mirrored month report",
		log.FieldMonth, month,
		log.FieldRowCount, len(report.Rows),
		"sheets_ref", ref)
	return nil
}

// ResyncAll mirrors every month that has entries and removes mirrored months
// that no longer do. It keeps going past individual failures and returns
// them joined.
func (w *MirrorWorker) ResyncAll(ctx context.Context) error {
	months, err := w.reports.ListMonths(ctx)
	if err != nil {
		return fmt.Errorf("list months: %w", err)
	}

	live := make(map[string]struct{}, len(months))
	var errs []error
	for _, m := range months {
		live[m.Month] = struct{}{}
		if err := w.MirrorMonth(ctx, m.Month); err != nil {
			errs = append(errs, err)
		}
	}

	mirrored, err := w.mirror.MirroredMonths(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("list mirrored months: %w", err))
	}
	stale := 0
	for _, m := range mirrored {
		if _, ok := live[m]; ok {
			continue
		}
		if err := w.mirror.RemoveMonth(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("remove mirrored month %s: %w", m, err))
			continue
		}
		stale++
	}

	w.logger.InfoContext(ctx, "Mirror resync completed",
		log.FieldOperation, log.OpSync,
		"months", len(months),
		"stale_removed", stale,
		"errors", len(errs))
	return errors.Join(errs...)
}

// RunPeriodicSync calls ResyncAll every interval until ctx is done. It is a
// backstop for events lost while the worker or broker was down.
func (w *MirrorWorker) RunPeriodicSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ResyncAll(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic mirror resync failed", log.FieldError, err)
			}
		}
	}
}
