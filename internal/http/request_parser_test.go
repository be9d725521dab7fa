package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestParseTransaction(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantAmount  string
		wantUse     string
		wantErr     error
	}{
		{
			name:        "json with string amount",
			contentType: "application/json",
			body:        `{"date":"2025-03-05","amount":"-9.99","use":"Coffee"}`,
			wantAmount:  "-9.99",
			wantUse:     "Coffee",
		},
		{
			name:        "json number keeps precision",
			contentType: "application/json",
			body:        `{"date":"05/03/2025","amount":1234.56,"use":"Bonus"}`,
			wantAmount:  "1234.56",
			wantUse:     "Bonus",
		},
		{
			name:        "kind signs the magnitude",
			contentType: "application/json",
			body:        `{"date":"05-03-2025","amount":"20","kind":"e","use":"Taxi"}`,
			wantAmount:  "-20",
			wantUse:     "Taxi",
		},
		{
			name:        "json detected without content type",
			contentType: "",
			body:        `  {"date":"05-03-2025","amount":"5","use":"x"}`,
			wantAmount:  "5",
			wantUse:     "x",
		},
		{
			name:        "form strips control characters",
			contentType: "application/x-www-form-urlencoded",
			body:        "date=05-03-2025&amount=7&use=Lun%00ch",
			wantAmount:  "7",
			wantUse:     "Lunch",
		},
		{
			name:        "bad amount",
			contentType: "application/json",
			body:        `{"date":"05-03-2025","amount":"abc","use":"x"}`,
			wantErr:     core.ErrInvalidAmount,
		},
		{
			name:        "json array",
			contentType: "application/json",
			body:        `[1,2]`,
			wantErr:     errBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			got, err := ParseTransaction(httptest.NewRecorder(), req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("amount = %s, want %s", got.Amount, tt.wantAmount)
			}
			if got.Use != tt.wantUse {
				t.Errorf("use = %q, want %q", got.Use, tt.wantUse)
			}
			if !got.Date.Equal(core.NewDate(2025, 3, 5)) {
				t.Errorf("date = %s", got.Date)
			}
		})
	}
}

func TestParseTransactionBodyLimit(t *testing.T) {
	body := `{"date":"05-03-2025","amount":"5","use":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	if _, err := ParseTransaction(httptest.NewRecorder(), req); !errors.Is(err, errBadRequest) {
		t.Errorf("err = %v, want bad request", err)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		check   func(t *testing.T, f core.Filter)
		wantErr error
	}{
		{
			name:  "empty",
			query: "",
			check: func(t *testing.T, f core.Filter) {
				if !f.From.IsZero() || f.MinAmount != nil || f.Kind != "" {
					t.Errorf("expected zero filter, got %+v", f)
				}
			},
		},
		{
			name:  "bounds are magnitudes and zero is allowed",
			query: "min=0&max=-50",
			check: func(t *testing.T, f core.Filter) {
				if !f.MinAmount.IsZero() || !f.MaxAmount.Equal(decimal.NewFromInt(50)) {
					t.Errorf("bounds = %s..%s", f.MinAmount, f.MaxAmount)
				}
			},
		},
		{
			name:  "kind and text fields",
			query: "kind=income&use=rent&currency=eur&q=march",
			check: func(t *testing.T, f core.Filter) {
				if f.Kind != core.Income || f.Use != "rent" || f.Currency != "eur" || f.Search != "march" {
					t.Errorf("got %+v", f)
				}
			},
		},
		{name: "bad date", query: "from=yesterday-ish", wantErr: core.ErrInvalidDate},
		{name: "bad kind", query: "type=loan", wantErr: core.ErrInvalidKind},
		{name: "inverted amounts", query: "min=50&max=10", wantErr: core.ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			f, err := ParseFilter(q)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestParseDays(t *testing.T) {
	q := url.Values{"days": {"14"}, "bad": {"two"}, "zero": {"0"}, "neg": {"-3"}}

	if n, err := ParseDays(q, "days", 30); err != nil || n != 14 {
		t.Errorf("days = %d, %v", n, err)
	}
	if n, err := ParseDays(q, "window", 30); err != nil || n != 30 {
		t.Errorf("default = %d, %v", n, err)
	}
	for _, key := range []string{"bad", "zero", "neg"} {
		if _, err := ParseDays(q, key, 30); !errors.Is(err, errBadRequest) {
			t.Errorf("%s: err = %v, want bad request", key, err)
		}
	}
}

func TestParseOptionalDate(t *testing.T) {
	q := url.Values{"end": {"2025-02-28"}}

	d, err := ParseOptionalDate(q, "end")
	if err != nil || !d.Equal(core.NewDate(2025, 2, 28)) {
		t.Errorf("end = %s, %v", d, err)
	}
	if d, err := ParseOptionalDate(q, "start"); err != nil || !d.IsZero() {
		t.Errorf("absent = %s, %v", d, err)
	}
}
