package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"ledgerbook/internal/auth"
	"ledgerbook/internal/core"
	"ledgerbook/internal/export"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/storage"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	authenticator := auth.NewPasswordAuthenticator(repo, bcrypt.MinCost)
	if _, err := authenticator.EnsureDefaultUser(context.Background(), "admin", "admin123"); err != nil {
		t.Fatalf("EnsureDefaultUser: %v", err)
	}

	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 1000
	}
	srv := NewServer(":0", Deps{
		Ledger: ledger.NewService(repo, nil),
		Auth:   authenticator,
		Store:  repo,
	}, opts)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	switch {
	case strings.HasPrefix(body, "{"):
		req.Header.Set("Content-Type", "application/json")
	case body != "":
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d, body %s", rr.Code, want, rr.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	expectStatus(t, rr, http.StatusOK)
	if got := decode[map[string]any](t, rr)["status"]; got != "ok" {
		t.Errorf("health status = %v", got)
	}

	rr = do(t, srv, http.MethodGet, "/readyz", "")
	expectStatus(t, rr, http.StatusOK)
	body := decode[map[string]any](t, rr)
	if body["status"] != "ready" || body["checks"].(map[string]any)["store"] != "ok" {
		t.Errorf("unexpected readiness body %v", body)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func TestReadyReportsStoreFailure(t *testing.T) {
	srv := newTestServer(t, Options{})
	srv.store = failingPinger{}

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	expectStatus(t, rr, http.StatusServiceUnavailable)
	if strings.Contains(rr.Body.String(), "locked") {
		t.Error("readiness must not leak store errors")
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/login", `{"username":"admin","password":"admin123"}`)
	expectStatus(t, rr, http.StatusOK)
	got := decode[loginResponse](t, rr)
	if !got.OK || got.Username != "admin" || got.Role != core.DefaultRole {
		t.Errorf("login response = %+v", got)
	}

	for _, body := range []string{
		`{"username":"admin","password":"wrong"}`,
		`{"username":"ghost","password":"admin123"}`,
		"username=admin&password=",
	} {
		rr := do(t, srv, http.MethodPost, "/api/login", body)
		expectStatus(t, rr, http.StatusUnauthorized)
		if msg := decode[map[string]string](t, rr)["error"]; msg != "Invalid credentials" {
			t.Errorf("error = %q", msg)
		}
	}

	rr = do(t, srv, http.MethodPost, "/api/login", `{"username":`)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestChangeCredentials(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/change-credentials", `{"oldUsername":"admin","oldPassword":"admin123","newUsername":"owner"}`)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = do(t, srv, http.MethodPost, "/api/change-credentials", `{"oldUsername":"admin","oldPassword":"nope","newUsername":"owner","newPassword":"s3cret"}`)
	expectStatus(t, rr, http.StatusUnauthorized)

	tooLong := `{"oldUsername":"admin","oldPassword":"admin123","newUsername":"owner","newPassword":"` + strings.Repeat("p", 80) + `"}`
	rr = do(t, srv, http.MethodPost, "/api/change-credentials", tooLong)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = do(t, srv, http.MethodPost, "/api/change-credentials", `{"oldUsername":"admin","oldPassword":"admin123","newUsername":"owner","newPassword":"s3cret"}`)
	expectStatus(t, rr, http.StatusOK)
	if got := decode[messageResponse](t, rr); !got.OK || got.Message == "" {
		t.Errorf("response = %+v", got)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/login", `{"username":"admin","password":"admin123"}`), http.StatusUnauthorized)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/login", `{"username":"owner","password":"s3cret"}`), http.StatusOK)
}

func TestEntryAndPartyFlow(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/entry", `{"date":"2024-01-05","partyName":"Acme","purpose":"Invoice","credit":100,"mobile":"555"}`)
	expectStatus(t, rr, http.StatusOK)
	first := decode[partyResponse](t, rr)
	if !first.OK || first.Party.Name != "Acme" || first.Party.Mobile == nil || *first.Party.Mobile != "555" {
		t.Fatalf("first entry response = %+v", first)
	}

	rr = do(t, srv, http.MethodPost, "/api/entry", "date=2024-01-20&partyName=Acme&debit=40&email=a%40acme.test")
	expectStatus(t, rr, http.StatusOK)
	second := decode[partyResponse](t, rr)
	if second.Party.ID != first.Party.ID {
		t.Fatalf("second entry created a new party: %d vs %d", second.Party.ID, first.Party.ID)
	}
	if second.Party.Mobile == nil || *second.Party.Mobile != "555" || second.Party.Email == nil {
		t.Errorf("contact not refreshed non-destructively: %+v", second.Party)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/entry", `{"date":"2024-02-01","partyName":"Bolt","debit":"12,5"}`), http.StatusOK)

	rr = do(t, srv, http.MethodGet, "/api/parties", "")
	expectStatus(t, rr, http.StatusOK)
	parties := decode[[]core.PartySummary](t, rr)
	if len(parties) != 2 || parties[0].Name != "Acme" || parties[1].Name != "Bolt" {
		t.Fatalf("parties = %+v", parties)
	}
	if parties[0].Balance != 60 || parties[0].Status != core.StatusCollect {
		t.Errorf("Acme = %+v", parties[0])
	}
	if parties[1].Balance != -12.5 || parties[1].Status != core.StatusPay {
		t.Errorf("Bolt = %+v", parties[1])
	}

	rr = do(t, srv, http.MethodGet, "/api/party/"+itoa(first.Party.ID), "")
	expectStatus(t, rr, http.StatusOK)
	pl := decode[core.PartyLedger](t, rr)
	if len(pl.Entries) != 2 || pl.Entries[0].Date != "2024-01-20" || pl.Balance != 60 {
		t.Errorf("party ledger = %+v", pl)
	}

	rr = do(t, srv, http.MethodGet, "/api/month/2024-01", "")
	expectStatus(t, rr, http.StatusOK)
	report := decode[core.MonthReport](t, rr)
	if len(report.Rows) != 2 || report.Rows[0].Date != "2024-01-05" {
		t.Errorf("report rows = %+v", report.Rows)
	}
	if report.Totals != (core.Totals{TotalDebit: 40, TotalCredit: 100}) {
		t.Errorf("report totals = %+v", report.Totals)
	}

	rr = do(t, srv, http.MethodGet, "/api/months", "")
	expectStatus(t, rr, http.StatusOK)
	months := decode[[]core.MonthSummary](t, rr)
	if len(months) != 2 || months[0].Month != "2024-02" || months[1].TotalCredit != 100 {
		t.Errorf("months = %+v", months)
	}

	if !strings.Contains(do(t, srv, http.MethodGet, "/metrics", "").Body.String(), "ledgerbook_entries_recorded_total 3") {
		t.Error("entries counter not exported")
	}
}

func TestCreateParty(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/parties", `{"name":"Acme","email":"x@acme.test"}`)
	expectStatus(t, rr, http.StatusOK)
	created := decode[partyResponse](t, rr)

	rr = do(t, srv, http.MethodPost, "/api/parties", `{"name":"Acme","email":"other@acme.test"}`)
	expectStatus(t, rr, http.StatusOK)
	again := decode[partyResponse](t, rr)
	if again.Party.ID != created.Party.ID || *again.Party.Email != "x@acme.test" {
		t.Errorf("create party must not update an existing party: %+v", again.Party)
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/parties", `{"name":"  "}`), http.StatusBadRequest)
}

func TestRecordEntryValidation(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"missing party", `{"date":"2024-01-01","partyName":" "}`},
		{"missing date", `{"partyName":"Acme"}`},
		{"bad date", `{"date":"2024-13-01","partyName":"Acme"}`},
		{"bad amount", `{"date":"2024-01-01","partyName":"Acme","debit":"ten"}`},
		{"negative amount", `{"date":"2024-01-01","partyName":"Acme","credit":-5}`},
		{"overflowing amount", `{"date":"2024-01-01","partyName":"Acme","debit":"1e400"}`},
		{"amount above cap", `{"date":"2024-01-01","partyName":"Acme","credit":"2000000000000000"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/entry", tt.body)
			expectStatus(t, rr, http.StatusBadRequest)
			if decode[map[string]string](t, rr)["error"] == "" {
				t.Error("missing error message")
			}
		})
	}

	if got := decode[[]core.PartySummary](t, do(t, srv, http.MethodGet, "/api/parties", "")); len(got) != 0 {
		t.Errorf("rejected entries must not create parties: %+v", got)
	}
}

func TestPartyPathErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	expectStatus(t, do(t, srv, http.MethodGet, "/api/party/abc", ""), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/party/999", ""), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/export/party/999/csv", ""), http.StatusNotFound)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/month/2024-13", ""), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/export/month/jan/pdf", ""), http.StatusBadRequest)
}

func TestDeleteParty(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodDelete, "/api/party/42", "")
	expectStatus(t, rr, http.StatusNotFound)
	var notFound struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &notFound); err != nil || notFound.OK || notFound.Error == "" {
		t.Errorf("delete 404 body = %s", rr.Body.String())
	}

	party := decode[partyResponse](t, do(t, srv, http.MethodPost, "/api/entry", `{"date":"2024-03-03","partyName":"Acme","debit":5}`)).Party

	// Warm the report cache so the delete has something to invalidate.
	if got := decode[core.MonthReport](t, do(t, srv, http.MethodGet, "/api/month/2024-03", "")); len(got.Rows) != 1 {
		t.Fatalf("report before delete = %+v", got)
	}

	rr = do(t, srv, http.MethodDelete, "/api/party/"+itoa(party.ID), "")
	expectStatus(t, rr, http.StatusOK)
	if got := decode[okResponse](t, rr); !got.OK {
		t.Errorf("delete body = %s", rr.Body.String())
	}

	report := decode[core.MonthReport](t, do(t, srv, http.MethodGet, "/api/month/2024-03", ""))
	if len(report.Rows) != 0 || report.Totals != (core.Totals{}) {
		t.Errorf("report after delete = %+v", report)
	}
	if months := decode[[]core.MonthSummary](t, do(t, srv, http.MethodGet, "/api/months", "")); len(months) != 0 {
		t.Errorf("months after delete = %+v", months)
	}
	expectStatus(t, do(t, srv, http.MethodGet, "/api/party/"+itoa(party.ID), ""), http.StatusNotFound)
}

func TestMonthCacheInvalidatedByEntry(t *testing.T) {
	srv := newTestServer(t, Options{})

	if got := decode[core.MonthReport](t, do(t, srv, http.MethodGet, "/api/month/2024-05", "")); len(got.Rows) != 0 {
		t.Fatalf("expected empty month, got %+v", got)
	}
	do(t, srv, http.MethodGet, "/api/months", "")

	expectStatus(t, do(t, srv, http.MethodPost, "/api/entry", `{"date":"2024-05-09","partyName":"Acme","credit":7}`), http.StatusOK)

	if got := decode[core.MonthReport](t, do(t, srv, http.MethodGet, "/api/month/2024-05", "")); len(got.Rows) != 1 || got.Totals.TotalCredit != 7 {
		t.Errorf("stale report served: %+v", got)
	}
	if got := decode[[]core.MonthSummary](t, do(t, srv, http.MethodGet, "/api/months", "")); len(got) != 1 {
		t.Errorf("stale month list served: %+v", got)
	}
}

func TestExports(t *testing.T) {
	srv := newTestServer(t, Options{})
	party := decode[partyResponse](t, do(t, srv, http.MethodPost, "/api/entry", `{"date":"2024-01-05","partyName":"Acme","credit":100}`)).Party

	rr := do(t, srv, http.MethodGet, "/api/export/month/2024-01/csv", "")
	expectStatus(t, rr, http.StatusOK)
	if got := rr.Header().Get("Content-Type"); got != export.ContentTypeXLSX {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rr.Header().Get("Content-Disposition"); got != "attachment; filename=month_2024-01.xlsx" {
		t.Errorf("Content-Disposition = %q", got)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Month 2024-01", "B2"); v != "Acme" {
		t.Errorf("B2 = %q", v)
	}

	rr = do(t, srv, http.MethodGet, "/api/export/month/2024-01/pdf", "")
	expectStatus(t, rr, http.StatusOK)
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
		t.Error("month pdf export is not a PDF")
	}
	if got := rr.Header().Get("Content-Disposition"); got != "attachment; filename=month_2024-01.pdf" {
		t.Errorf("Content-Disposition = %q", got)
	}

	rr = do(t, srv, http.MethodGet, "/api/export/month/2030-12/csv", "")
	expectStatus(t, rr, http.StatusOK)

	rr = do(t, srv, http.MethodGet, "/api/export/party/"+itoa(party.ID)+"/csv", "")
	expectStatus(t, rr, http.StatusOK)
	if got := rr.Header().Get("Content-Disposition"); got != "attachment; filename=party_Acme.xlsx" {
		t.Errorf("Content-Disposition = %q", got)
	}
}

func TestRateLimitAppliesToWritesOnly(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		expectStatus(t, do(t, srv, http.MethodPost, "/api/parties", `{"name":"Acme"}`), http.StatusOK)
	}
	rr := do(t, srv, http.MethodPost, "/api/parties", `{"name":"Acme"}`)
	expectStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	expectStatus(t, do(t, srv, http.MethodGet, "/api/parties", ""), http.StatusOK)
}

func TestResponseHeaders(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/api/parties", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Error("API responses must not be cached")
	}
	if got := decode[[]core.PartySummary](t, rr); got == nil {
		t.Error("empty party list must encode as []")
	}
}

type brokenLedger struct{ Ledger }

func (brokenLedger) ListParties(context.Context) ([]core.PartySummary, error) {
	return nil, errors.New("disk I/O error")
}

type wrappedFailureLedger struct{ Ledger }

func (wrappedFailureLedger) ListMonths(context.Context) ([]core.MonthSummary, error) {
	return nil, fmt.Errorf("%w: list months: %w", core.ErrInternal, errors.New("disk I/O error"))
}

func TestInternalErrorsCarryUnderlyingMessage(t *testing.T) {
	srv := newTestServer(t, Options{})
	srv.ledger = brokenLedger{}

	rr := do(t, srv, http.MethodGet, "/api/parties", "")
	expectStatus(t, rr, http.StatusInternalServerError)
	if msg := decode[map[string]string](t, rr)["error"]; msg != "internal error: disk I/O error" {
		t.Errorf("error = %q", msg)
	}
}

func TestWrappedInternalErrorIsNotPrefixedTwice(t *testing.T) {
	srv := newTestServer(t, Options{})
	srv.ledger = wrappedFailureLedger{}

	rr := do(t, srv, http.MethodGet, "/api/months", "")
	expectStatus(t, rr, http.StatusInternalServerError)
	if msg := decode[map[string]string](t, rr)["error"]; msg != "internal error: list months: disk I/O error" {
		t.Errorf("error = %q", msg)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
