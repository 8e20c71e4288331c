package trace

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"ledgerbook/internal/log"
)

func newTestLogger(buf *bytes.Buffer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Format = "json"
	cfg.Output = buf
	return log.New(cfg)
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seenID, loggerComponent string
	h := NewMiddleware(newTestLogger(&buf), func(*http.Request) string { return "10.0.0.1" }).
		Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = GetRequestID(r.Context())
			loggerComponent = log.FromContext(r.Context()).Component()
			w.WriteHeader(http.StatusTeapot)
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/months", nil))

	if _, err := uuid.Parse(seenID); err != nil {
		t.Fatalf("request id %q is not a uuid", seenID)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seenID {
		t.Errorf("response header = %q, want %q", got, seenID)
	}
	if loggerComponent != log.ComponentHTTP {
		t.Errorf("context logger component = %q", loggerComponent)
	}

	var entry map[string]any
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "HTTP request completed" || entry["level"] != "WARN" {
		t.Errorf("unexpected log entry %v", entry)
	}
	if entry[log.FieldRequestID] != seenID || entry[log.FieldStatusCode] != float64(http.StatusTeapot) {
		t.Errorf("log entry missing request fields: %v", entry)
	}
}

func TestMiddlewareHonoursIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	incoming := uuid.NewString()
	h := NewMiddleware(newTestLogger(&buf), nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, incoming)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != incoming {
		t.Errorf("request id = %q, want %q", got, incoming)
	}

	req.Header.Set(HeaderRequestID, "not-a-uuid\nforged")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got == "not-a-uuid\nforged" {
		t.Error("malformed request id must be replaced")
	}
}
