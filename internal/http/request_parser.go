// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// transaction bodies, filter queries, path positions and day counts.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = badRequest("read body: %v", p.err)
		return p.err
	}

	if len(strings.TrimSpace(string(p.body))) == 0 {
		p.err = badRequest("empty request body")
		return p.err
	}

	if p.IsJSONContent() {
		dec := json.NewDecoder(bytes.NewReader(p.body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = badRequest("malformed JSON: %v", err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = badRequest("malformed form body: %v", p.err)
	}
	return p.err
}

// IsJSONContent reports whether the body should be decoded as JSON, either by
// content type or because it starts with an object.
func (p *RequestBodyParser) IsJSONContent() bool {
	if strings.HasPrefix(strings.ToLower(p.contentType), "application/json") {
		return true
	}
	trimmed := strings.TrimLeftFunc(string(p.body), unicode.IsSpace)
	return strings.HasPrefix(trimmed, "{")
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters, keeping tabs.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// ParseTransaction reads a transaction from the request body. The amount sign
// decides the kind unless an explicit "kind" is sent, in which case the
// magnitude is signed accordingly. Empty currency is left for the service
// to default.
func ParseTransaction(w http.ResponseWriter, r *http.Request) (core.Transaction, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return core.Transaction{}, err
	}

	date, err := core.ParseDate(p.Get("date"))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	if k := p.Get("kind"); k != "" {
		kind, err := core.ParseKind(k)
		if err != nil {
			return core.Transaction{}, err
		}
		amount = kind.Signed(amount)
	}

	return core.Transaction{
		Date:     date,
		Amount:   amount,
		Currency: strings.ToUpper(p.Get("currency")),
		Use:      p.Get("use"),
		Comment:  p.Get("comment"),
	}, nil
}

// ParseFilter builds a filter from query parameters. Unknown parameters are
// ignored; malformed values are rejected.
func ParseFilter(q url.Values) (core.Filter, error) {
	var f core.Filter
	var err error

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		if f.From, err = core.ParseDate(v); err != nil {
			return core.Filter{}, fmt.Errorf("from: %w", err)
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if f.To, err = core.ParseDate(v); err != nil {
			return core.Filter{}, fmt.Errorf("to: %w", err)
		}
	}
	if f.MinAmount, err = parseBound(q, "min"); err != nil {
		return core.Filter{}, err
	}
	if f.MaxAmount, err = parseBound(q, "max"); err != nil {
		return core.Filter{}, err
	}
	kind := q.Get("kind")
	if kind == "" {
		kind = q.Get("type")
	}
	if v := strings.TrimSpace(kind); v != "" {
		if f.Kind, err = core.ParseKind(v); err != nil {
			return core.Filter{}, err
		}
	}
	f.Use = strings.TrimSpace(sanitizeInput(q.Get("use")))
	f.Currency = strings.TrimSpace(q.Get("currency"))
	f.Search = strings.TrimSpace(sanitizeInput(q.Get("q")))

	if err := f.Validate(); err != nil {
		return core.Filter{}, err
	}
	return f, nil
}

// parseBound reads an amount bound as a magnitude. Zero is a valid bound.
func parseBound(q url.Values, key string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseAmount(v)
	if errors.Is(err, core.ErrZeroAmount) {
		d, err = decimal.Zero, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	d = d.Abs()
	return &d, nil
}

// ParsePosition reads the {pos} path value.
func ParsePosition(r *http.Request) (int, error) {
	raw := r.PathValue("pos")
	pos, err := strconv.Atoi(raw)
	if err != nil || pos < 0 {
		return 0, badRequest("invalid position %q", raw)
	}
	return pos, nil
}

// ParseDays reads a positive day count, falling back to def when absent.
func ParseDays(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer, got %q", key, raw)
	}
	if n < 1 {
		return 0, badRequest("%s must be at least 1, got %d", key, n)
	}
	return n, nil
}

// ParseOptionalDate reads a date parameter; absent means the zero date.
func ParseOptionalDate(q url.Values, key string) (core.Date, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
