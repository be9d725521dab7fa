package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/forecast"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

type transactionList struct {
	Transactions []core.Entry `json:"transactions"`
	Count        int          `json:"count"`
}

type summaryResponse struct {
	services.Report
	SavingsRate decimal.Decimal `json:"savings_rate"`
}

func logError(r *http.Request, msg string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), msg,
		applog.FieldError, err,
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	entries, err := s.ledger.Filter(r.Context(), f)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	NewJSONResponse().Body(transactionList{Transactions: entries, Count: len(entries)}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	pos, err := ParsePosition(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	entry, err := s.ledger.Get(r.Context(), pos)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(entry).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := ParseTransaction(w, r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	entry, err := s.ledger.Add(r.Context(), t)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+strconv.Itoa(entry.Position)).
		Body(entry).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	pos, err := ParsePosition(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	t, err := ParseTransaction(w, r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	entry, err := s.ledger.Update(r.Context(), pos, t)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(entry).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	pos, err := ParsePosition(r)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	removed, err := s.ledger.Delete(r.Context(), pos)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(removed).Write(w)
}

// report runs the filtered summary shared by the /api/summary endpoints.
func (s *Server) report(w http.ResponseWriter, r *http.Request) (services.Report, bool) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		FromError(r, err).Write(w)
		return services.Report{}, false
	}
	rep, err := s.ledger.Summarize(r.Context(), f)
	if err != nil {
		FromError(r, err).Write(w)
		return services.Report{}, false
	}
	return rep, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(summaryResponse{Report: rep, SavingsRate: rep.Summary.SavingsRate()}).Write(w)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	months := rep.Monthly
	if months == nil {
		months = []core.MonthOverview{}
	}
	NewJSONResponse().Body(map[string]any{"months": months}).Write(w)
}

func (s *Server) handleUses(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(map[string]any{"uses": nonNil(rep.Uses)}).Write(w)
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.report(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(map[string]any{"currencies": nonNil(rep.Currencies)}).Write(w)
}

func nonNil(items []core.CategoryAmount) []core.CategoryAmount {
	if items == nil {
		return []core.CategoryAmount{}
	}
	return items
}

func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	aggs, err := s.forecasts.Aggregates(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if aggs == nil {
		aggs = []forecast.DailyAggregate{}
	}
	NewJSONResponse().Body(map[string]any{"days": aggs}).Write(w)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	days, err := ParseDays(r.URL.Query(), "days", s.forecasts.Settings().DefaultHorizon)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	res, err := s.forecasts.Forecast(r.Context(), days)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := ParseDays(q, "days", s.forecasts.Settings().DefaultWindow)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	end, err := ParseOptionalDate(q, "end")
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	res, err := s.forecasts.Backtest(r.Context(), days, end)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	settings := s.forecasts.Settings()
	days, err := ParseDays(q, "days", settings.DefaultHorizon)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	window, err := ParseDays(q, "window", settings.DefaultWindow)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	d, err := s.forecasts.Dashboard(r.Context(), days, window)
	if err != nil {
		FromError(r, fmt.Errorf("dashboard: %w", err)).Write(w)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

type metricsResponse struct {
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rate_limit"`
	Security  security.DetectionMetrics `json:"security"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(metricsResponse{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}).Write(w)
}
