package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "fintrack/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var logs bytes.Buffer
	cfg := applog.DefaultConfig()
	cfg.Output = &logs
	m := NewMiddleware(applog.New(cfg), func(*http.Request) string { return "192.0.2.1" })

	var seen string
	var ctxLogger *applog.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		ctxLogger = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if !strings.HasPrefix(seen, "req_") || rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("request id %q not propagated (header %q)", seen, rec.Header().Get(HeaderRequestID))
	}
	if ctxLogger == nil || ctxLogger.Component() != applog.ComponentTrace {
		t.Error("request logger not stored in context")
	}
	out := logs.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", "status_code=418", "client_ip=192.0.2.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in logs:\n%s", want, out)
		}
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d", got)
	}
}

func TestMiddleware_ReusesIncomingRequestID(t *testing.T) {
	m := NewMiddleware(applog.New(applog.Config{Output: &bytes.Buffer{}}), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		incoming string
		reuse    bool
	}{
		{"abc-123", true},
		{"bad id with spaces", false},
		{strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(HeaderRequestID, tt.incoming)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		got := rec.Header().Get(HeaderRequestID)
		if (got == tt.incoming) != tt.reuse {
			t.Errorf("incoming %q: got %q, reuse=%v", tt.incoming, got, tt.reuse)
		}
	}
}
