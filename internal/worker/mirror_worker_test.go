package worker

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/core"
	"ledgerbook/internal/sheets/memory"
)

type fakeReports struct {
	mu      sync.Mutex
	reports map[string]core.MonthReport
	failFor string
	reads   int
}

func newFakeReports(reports ...core.MonthReport) *fakeReports {
	f := &fakeReports{reports: map[string]core.MonthReport{}}
	for _, r := range reports {
		f.reports[r.Month] = r
	}
	return f
}

func (f *fakeReports) MonthlyReport(_ context.Context, month string) (core.MonthReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if month == f.failFor {
		return core.MonthReport{}, errors.New("database is locked")
	}
	if r, ok := f.reports[month]; ok {
		return r, nil
	}
	return core.MonthReport{Month: month, Rows: []core.Entry{}}, nil
}

func (f *fakeReports) ListMonths(_ context.Context) ([]core.MonthSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.MonthSummary, 0, len(f.reports))
	for m, r := range f.reports {
		out = append(out, core.MonthSummary{Month: m, TotalDebit: r.Totals.TotalDebit, TotalCredit: r.Totals.TotalCredit})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out, nil
}

func (f *fakeReports) remove(month string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reports, month)
}

func report(month string, credits ...float64) core.MonthReport {
	r := core.MonthReport{Month: month}
	for i, c := range credits {
		r.Rows = append(r.Rows, core.Entry{ID: int64(i + 1), Date: month + "-01", PartyName: "Acme", Credit: c})
		r.Totals.TotalCredit += c
	}
	return r
}

func TestHandleEvent_EntryRecordedMirrorsMonth(t *testing.T) {
	reports := newFakeReports(report("2024-01", 100, 5))
	mirror := memory.New()
	w := NewMirrorWorker(reports, mirror, nil)

	err := w.HandleEvent(context.Background(), amqp.NewEntryRecordedEvent(1, "Acme", 2, "2024-01"))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	rows, ok := mirror.Tab("2024-01")
	if !ok || len(rows) != 5 {
		t.Fatalf("mirrored rows = %v", rows)
	}
}

func TestHandleEvent_InvalidMonthIsDropped(t *testing.T) {
	reports := newFakeReports()
	mirror := memory.New()
	w := NewMirrorWorker(reports, mirror, nil)

	if err := w.HandleEvent(context.Background(), amqp.NewEntryRecordedEvent(1, "Acme", 2, "garbage")); err != nil {
		t.Errorf("bad events must not be requeued: %v", err)
	}
	if reports.reads != 0 || mirror.Writes() != 0 {
		t.Error("bad event should not touch the ledger or mirror")
	}
}

func TestHandleEvent_PartyCreatedIsIgnored(t *testing.T) {
	reports := newFakeReports(report("2024-01", 1))
	mirror := memory.New()
	w := NewMirrorWorker(reports, mirror, nil)

	if err := w.HandleEvent(context.Background(), amqp.NewPartyCreatedEvent(1, "Acme")); err != nil {
		t.Fatal(err)
	}
	if mirror.Writes() != 0 {
		t.Errorf("party.created wrote %d tabs", mirror.Writes())
	}
	if err := w.HandleEvent(context.Background(), &amqp.LedgerEvent{Type: "party.renamed"}); err != nil {
		t.Errorf("unknown events should be acked: %v", err)
	}
}

func TestHandleEvent_PartyDeletedResyncsEverything(t *testing.T) {
	reports := newFakeReports(report("2024-01", 1), report("2024-02", 2), report("2024-03", 3))
	mirror := memory.New()
	w := NewMirrorWorker(reports, mirror, nil)
	ctx := context.Background()

	if err := w.ResyncAll(ctx); err != nil {
		t.Fatalf("ResyncAll: %v", err)
	}

	// The deleted party owned every entry of 2024-02.
	reports.remove("2024-02")
	if err := w.HandleEvent(ctx, amqp.NewPartyDeletedEvent(9, "Gone")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	months, _ := mirror.MirroredMonths(ctx)
	if strings.Join(months, ",") != "2024-01,2024-03" {
		t.Errorf("mirrored months = %v", months)
	}
}

func TestMirrorMonth_EmptyMonthIsRemoved(t *testing.T) {
	reports := newFakeReports(report("2024-04", 10))
	mirror := memory.New()
	w := NewMirrorWorker(reports, mirror, nil)
	ctx := context.Background()

	if err := w.MirrorMonth(ctx, "2024-04"); err != nil {
		t.Fatal(err)
	}
	reports.remove("2024-04")
	if err := w.MirrorMonth(ctx, "2024-04"); err != nil {
		t.Fatal(err)
	}
	if _, ok := mirror.Tab("2024-04"); ok {
		t.Error("empty month still mirrored")
	}
}

func TestResyncAll_ContinuesPastFailures(t *testing.T) {
	reports := newFakeReports(report("2024-01", 1), report("2024-02", 2))
	reports.failFor = "2024-02"
	mirror := memory.New()
	w := NewMirrorWorker(reports, mirror, nil)

	err := w.ResyncAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "2024-02") {
		t.Fatalf("expected joined error naming 2024-02, got %v", err)
	}
	if _, ok := mirror.Tab("2024-01"); !ok {
		t.Error("healthy month was not mirrored")
	}
}

func TestHandleEvent_ReadFailureRequeues(t *testing.T) {
	reports := newFakeReports()
	reports.failFor = "2024-06"
	w := NewMirrorWorker(reports, memory.New(), nil)

	if err := w.HandleEvent(context.Background(), amqp.NewEntryRecordedEvent(1, "Acme", 1, "2024-06")); err == nil {
		t.Error("expected error so the message is requeued")
	}
}

func TestRunPeriodicSync(t *testing.T) {
	reports := newFakeReports(report("2024-01", 1))
	mirror := memory.New()
	w := NewMirrorWorker(reports, mirror, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunPeriodicSync(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for mirror.Writes() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodicSync did not stop after cancel")
	}
	if mirror.Writes() == 0 {
		t.Error("periodic sync never ran")
	}
}
