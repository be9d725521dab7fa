package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Options tunes the middleware chain in front of the API.
type Options struct {
	Logger          *applog.Logger
	RequestTimeout  time.Duration
	RateLimit       ratelimit.Config
	TrustedProxies  []string
	BlockSuspicious bool
}

// DefaultOptions returns the settings used when the caller has no config.
func DefaultOptions() Options {
	return Options{
		RequestTimeout: 15 * time.Second,
		RateLimit:      ratelimit.DefaultConfig(),
	}
}

// Server is the JSON API over the ledger, forecast and backtest services.
type Server struct {
	http.Server

	ledger    *services.LedgerService
	forecasts *services.ForecastService
	logger    *applog.Logger

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledgerSvc *services.LedgerService, forecastSvc *services.ForecastService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultOptions().RequestTimeout
	}

	detector := security.NewDetector()
	detector.Block = opts.BlockSuspicious
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			opts.Logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		ledger:    ledgerSvc,
		forecasts: forecastSvc,
		logger:    opts.Logger.WithComponent(applog.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		tracer:    trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		detector:  detector,
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("GET /api/transactions/filter", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/transactions/{pos}", s.handleGetTransaction)
	api.HandleFunc("PUT /api/transactions/{pos}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{pos}", s.handleDeleteTransaction)
	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/summary/monthly", s.handleMonthly)
	api.HandleFunc("GET /api/summary/uses", s.handleUses)
	api.HandleFunc("GET /api/summary/currencies", s.handleCurrencies)
	api.HandleFunc("GET /api/aggregates", s.handleAggregates)
	api.HandleFunc("GET /api/forecast", s.handleForecast)
	api.HandleFunc("GET /api/backtest", s.handleBacktest)
	api.HandleFunc("GET /api/dashboard", s.handleDashboard)
	api.HandleFunc("GET /api/metrics", s.handleMetrics)
	api.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	chain := s.tracer.Middleware(
		headers.Middleware(
			detector.Middleware(
				s.limiter.Middleware(detector.ExtractClientIP, rateLimited)(
					withTimeout(opts.RequestTimeout, api)))))

	mux := http.NewServeMux()
	mux.Handle("/api/", chain)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
}

// withTimeout bounds the request context; services stop at the deadline.
func withTimeout(d time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Shutdown gracefully shuts down the server and the limiter cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the ledger can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if _, err := s.ledger.Transactions(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
