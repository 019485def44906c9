package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "budgettracker/internal/log"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf})
	m := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		if applog.FromContext(r.Context()).Component() != applog.ComponentTrace {
			t.Error("request logger not in context")
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	if !strings.HasPrefix(seen, "req_") || rr.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("request id = %q, header = %q", seen, rr.Header().Get(HeaderRequestID))
	}
	if !strings.Contains(buf.String(), "HTTP request completed") || !strings.Contains(buf.String(), "status_code=500") {
		t.Errorf("completion not logged: %s", buf.String())
	}
	if got := m.GetMetrics(); got.TotalRequests != 1 || got.ServerErrors != 1 {
		t.Errorf("metrics = %+v", got)
	}
}

func TestMiddleware_IncomingRequestID(t *testing.T) {
	m := NewMiddleware(applog.New(applog.Config{Output: &bytes.Buffer{}}), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		header string
		keep   bool
	}{
		{"abc-123", true},
		{"has spaces", false},
		{strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.header)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if got := rr.Header().Get(HeaderRequestID) == tt.header; got != tt.keep {
			t.Errorf("header %q kept = %v, want %v", tt.header, got, tt.keep)
		}
	}
}
