package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewJSONResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse(map[string]int{"count": 2}).Status(http.StatusCreated).Header("X-Extra", "yes").Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if rr.Header().Get("X-Extra") != "yes" {
		t.Error("custom header missing")
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"count":2}` {
		t.Errorf("body = %s", got)
	}
}

func TestNewJSONResponseUnencodable(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse(map[string]interface{}{"bad": make(chan int)}).Write(rr)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal error") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestNewAttachment(t *testing.T) {
	tests := []struct {
		filename    string
		disposition string
	}{
		{"month_2024-01.xlsx", "attachment; filename=month_2024-01.xlsx"},
		{"party_Acme Ltd.xlsx", `attachment; filename="party_Acme Ltd.xlsx"`},
		{"party_Café.xlsx", "attachment; filename*=utf-8''party_Caf%C3%A9.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewAttachment("application/pdf", tt.filename, []byte("%PDF-1.3")).Write(rr)

			if got := rr.Header().Get("Content-Disposition"); got != tt.disposition {
				t.Errorf("Content-Disposition = %q, want %q", got, tt.disposition)
			}
			if rr.Header().Get("Content-Type") != "application/pdf" {
				t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
			}
			if rr.Header().Get("Content-Length") != "8" || rr.Body.String() != "%PDF-1.3" {
				t.Errorf("unexpected body %q", rr.Body.String())
			}
		})
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *ResponseBuilder
		status  int
		want    map[string]interface{}
	}{
		{"bad request", BadRequestError("party name is required"), http.StatusBadRequest, map[string]interface{}{"error": "party name is required"}},
		{"not found", NotFoundError("party 7 not found"), http.StatusNotFound, map[string]interface{}{"error": "party 7 not found"}},
		{"internal", InternalServerError(), http.StatusInternalServerError, map[string]interface{}{"error": "internal error"}},
		{"ok error", OKErrorResponse(http.StatusNotFound, "gone"), http.StatusNotFound, map[string]interface{}{"ok": false, "error": "gone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.builder.Write(rr)

			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			var got map[string]interface{}
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("body = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
