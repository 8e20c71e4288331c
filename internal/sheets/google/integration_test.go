//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"ledgerbook/internal/core"
)

// Integration tests require a real spreadsheet shared with the service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_MirrorRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := New(ctx, Config{
		SpreadsheetID:      spreadsheetID,
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		SheetBase:          "Ledger Test",
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	month := "1999-01"
	report := core.MonthReport{
		Month:  month,
		Rows:   []core.Entry{{Date: "1999-01-02", PartyName: "Integration", Credit: 1}},
		Totals: core.Totals{TotalCredit: 1},
	}

	ref, err := client.MirrorMonth(ctx, report)
	if err != nil {
		t.Fatalf("MirrorMonth: %v", err)
	}
	t.Logf("Mirrored to %s", ref)

	months, err := client.MirroredMonths(ctx)
	if err != nil {
		t.Fatalf("MirroredMonths: %v", err)
	}
	found := false
	for _, m := range months {
		found = found || m == month
	}
	if !found {
		t.Errorf("mirrored month %s not listed in %v", month, months)
	}

	if err := client.RemoveMonth(ctx, month); err != nil {
		t.Fatalf("RemoveMonth: %v", err)
	}
}
