package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"ledgerbook/internal/core"
	ports "ledgerbook/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetBase is the tab name suffix used when none is configured.
const DefaultSheetBase = "Ledger"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Tabs are named "<month> <base>", e.g. "2024-01 Ledger".
	sheetBase string
}

// Ensure interface conformance
var _ ports.ReportMirror = (*Client)(nil)

type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	SheetBase          string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	if len(opts) == 0 {
		credentialsJSON, err := serviceAccountCredentials(ctx, cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	base := strings.TrimSpace(cfg.SheetBase)
	if base == "" {
		base = DefaultSheetBase
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: base}, nil
}

// serviceAccountCredentials resolves the service account key from inline JSON,
// a file, or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func serviceAccountCredentials(ctx context.Context, inline, file string) ([]byte, error) {
	inline = strings.TrimSpace(inline)
	file = strings.TrimSpace(file)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", file, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// MirrorMonth clears the month's tab and writes the report into it.
func (c *Client) MirrorMonth(ctx context.Context, report core.MonthReport) (string, error) {
	if err := core.ValidateMonth(report.Month); err != nil {
		return "", err
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	name := c.sheetName(report.Month)
	tabs, err := c.tabs(ctx)
	if err != nil {
		return "", err
	}
	if _, ok := tabs[name]; !ok {
		if err := c.addTab(ctx, name); err != nil {
			return "", err
		}
	}

	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(name, "A:F"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("clear %s: %w", name, err)
	}

	values := ports.MonthValues(report)
	rng := a1(name, fmt.Sprintf("A1:F%d", len(values)))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return rng, nil
}

// MirroredMonths lists the months that have a tab named after sheetBase.
func (c *Client) MirroredMonths(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	tabs, err := c.tabs(ctx)
	if err != nil {
		return nil, err
	}
	months := make([]string, 0, len(tabs))
	for title := range tabs {
		if m, ok := c.monthOf(title); ok {
			months = append(months, m)
		}
	}
	sort.Strings(months)
	return months, nil
}

func (c *Client) RemoveMonth(ctx context.Context, month string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	name := c.sheetName(month)
	tabs, err := c.tabs(ctx)
	if err != nil {
		return err
	}
	id, ok := tabs[name]
	if !ok {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{
		{DeleteSheet: &gsheet.DeleteSheetRequest{SheetId: id, ForceSendFields: []string{"SheetId"}}},
	}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete tab %s: %w", name, err)
	}
	return nil
}

// tabs maps every tab title in the spreadsheet to its sheet id.
func (c *Client) tabs(ctx context.Context) (map[string]int64, error) {
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	out := make(map[string]int64, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		out[s.Properties.Title] = s.Properties.SheetId
	}
	return out, nil
}

func (c *Client) addTab(ctx context.Context, name string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{
		{AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}}},
	}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", name, err)
	}
	slog.InfoContext(ctx, "Created mirror tab", "sheet", name)
	return nil
}

func (c *Client) sheetName(month string) string {
	return fmt.Sprintf("%s %s", month, c.sheetBase)
}

// monthOf is the inverse of sheetName. Tabs not created by the mirror are
// ignored.
func (c *Client) monthOf(title string) (string, bool) {
	month, ok := strings.CutSuffix(title, " "+c.sheetBase)
	if !ok || core.ValidateMonth(month) != nil {
		return "", false
	}
	return month, true
}

// a1 builds an A1 range, quoting the sheet name.
func a1(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cells)
}
