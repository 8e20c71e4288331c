package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"ledgerbook/internal/cache"
	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
	"ledgerbook/internal/metrics"
	"ledgerbook/internal/middleware/ratelimit"
	"ledgerbook/internal/middleware/security"
	"ledgerbook/internal/middleware/trace"
)

// Ledger is the ledger engine and upsert workflow as seen by the handlers.
type Ledger interface {
	ListParties(ctx context.Context) ([]core.PartySummary, error)
	GetPartyLedger(ctx context.Context, partyID int64) (core.PartyLedger, error)
	PartyStatement(ctx context.Context, partyID int64) (core.PartyStatement, error)
	MonthlyReport(ctx context.Context, month string) (core.MonthReport, error)
	ListMonths(ctx context.Context) ([]core.MonthSummary, error)
	DeleteParty(ctx context.Context, partyID int64) (core.Party, error)
	RecordEntry(ctx context.Context, e core.NewEntry) (core.Party, error)
	CreateParty(ctx context.Context, c core.PartyContact) (core.Party, error)
}

// Authenticator checks and rotates the owner's credentials.
type Authenticator interface {
	VerifyCredentials(ctx context.Context, username, password string) (core.User, error)
	RotateCredentials(ctx context.Context, oldUsername, oldPassword, newUsername, newPassword string) error
}

// Pinger reports store availability for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Ledger  Ledger
	Auth    Authenticator
	Store   Pinger
	Metrics *metrics.Metrics
	Logger  *log.Logger
}

type Options struct {
	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheSize          int
	// StaticDir, when set, is served at / for the browser front end.
	StaticDir string
}

type Server struct {
	http.Server

	ledger  Ledger
	auth    Authenticator
	store   Pinger
	metrics *metrics.Metrics
	logger  *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	cacheManager     *cache.Manager

	reportCache *cache.LRUCache[core.MonthReport]
	monthsCache *cache.LRUCache[[]core.MonthSummary]
	reports     *cache.Loader[core.MonthReport]
	months      *cache.Loader[[]core.MonthSummary]

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	s := &Server{
		ledger:    deps.Ledger,
		auth:      deps.Auth,
		store:     deps.Store,
		metrics:   deps.Metrics,
		logger:    deps.Logger.WithComponent(log.ComponentHTTP),
		startedAt: time.Now(),

		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: security.NewDetector(deps.Metrics.SuspiciousRequests.Inc),
		cacheManager:     cache.NewManager(),

		reportCache: cache.NewLRUCache[core.MonthReport](opts.CacheSize, opts.CacheTTL),
		monthsCache: cache.NewLRUCache[[]core.MonthSummary](1, opts.CacheTTL),
	}
	s.reports = cache.NewLoader[core.MonthReport](s.reportCache)
	s.months = cache.NewLoader[[]core.MonthSummary](s.monthsCache)

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.Register(s.monthsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	s.routes(mux, opts.StaticDir)

	traceMiddleware := trace.NewMiddleware(deps.Logger, s.securityDetector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, ratelimit.MutatingOnly, s.onRateLimited)

	var handler http.Handler = mux
	handler = s.metrics.Middleware(handler)
	handler = limit(handler)
	handler = headers.Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux, staticDir string) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, security.NoStore(h))
	}

	api("POST /api/login", s.handleLogin)
	api("POST /api/change-credentials", s.handleChangeCredentials)

	api("POST /api/parties", s.handleCreateParty)
	api("GET /api/parties", s.handleListParties)
	api("GET /api/party/{id}", s.handleGetParty)
	api("DELETE /api/party/{id}", s.handleDeleteParty)

	api("POST /api/entry", s.handleRecordEntry)

	api("GET /api/month/{month}", s.handleMonthlyReport)
	api("GET /api/months", s.handleListMonths)

	api("GET /api/export/month/{month}/csv", s.handleExportMonthTabular)
	api("GET /api/export/month/{month}/pdf", s.handleExportMonthPrintable)
	api("GET /api/export/party/{id}/csv", s.handleExportPartyTabular)

	if staticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(staticDir)))
	}
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited.Inc()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// writeError maps err to its status code and writes the JSON error body.
// Internal details are logged, never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.errorResponse(r, op, err, ErrorResponse).Write(w)
}

func (s *Server) errorResponse(r *http.Request, op string, err error, build func(int, string) *ResponseBuilder) *ResponseBuilder {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	switch core.KindOf(err) {
	case core.KindInvalidInput:
		logger.InfoContext(ctx, "Rejected invalid input", log.NewFields().WithOperation(op).WithError(err, log.ErrorTypeValidation).ToSlice()...)
		return build(http.StatusBadRequest, err.Error())
	case core.KindInvalidCredentials:
		return build(http.StatusUnauthorized, "Invalid credentials")
	case core.KindNotFound:
		return build(http.StatusNotFound, err.Error())
	default:
		logger.ErrorContext(ctx, "Request failed", log.NewFields().WithOperation(op).WithError(err, log.ErrorTypeInternal).ToSlice()...)
		msg := err.Error()
		if !errors.Is(err, core.ErrInternal) {
			msg = core.ErrInternal.Error() + ": " + msg
		}
		return build(http.StatusInternalServerError, msg)
	}
}

// monthReport serves the month report through the cache.
func (s *Server) monthReport(ctx context.Context, month string) (core.MonthReport, error) {
	loaded := false
	report, err := s.reports.Get(ctx, month, func(ctx context.Context) (core.MonthReport, error) {
		loaded = true
		return s.ledger.MonthlyReport(ctx, month)
	})
	s.recordCacheLookup(loaded, err)
	return report, err
}

func (s *Server) monthList(ctx context.Context) ([]core.MonthSummary, error) {
	loaded := false
	months, err := s.months.Get(ctx, monthsCacheKey, func(ctx context.Context) ([]core.MonthSummary, error) {
		loaded = true
		return s.ledger.ListMonths(ctx)
	})
	s.recordCacheLookup(loaded, err)
	return months, err
}

func (s *Server) recordCacheLookup(loaded bool, err error) {
	switch {
	case err != nil:
		s.metrics.CacheLookups.WithLabelValues("error").Inc()
	case loaded:
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
	}
}

// invalidateMonth drops the cached report for month and the month list.
func (s *Server) invalidateMonth(month string) {
	s.reports.Forget(month)
	s.months.Forget(monthsCacheKey)
}

// invalidateAll drops every cached report, used when a party and its
// entries across many months disappear.
func (s *Server) invalidateAll() {
	s.reports.Purge()
	s.months.Purge()
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServe runs the server until Shutdown; http.ErrServerClosed is
// not reported as an error.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
