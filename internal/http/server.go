package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gocache "github.com/patrickmn/go-cache"

	"budgetbee/internal/auth"
	"budgetbee/internal/core"
	"budgetbee/internal/log"
	"budgetbee/internal/middleware/ratelimit"
	"budgetbee/internal/middleware/security"
	"budgetbee/internal/middleware/trace"
)

// Deps are the collaborators the server routes to.
type Deps struct {
	Expenses ExpenseService
	Budgets  BudgetService
	Analyzer Analyzer
	Overview OverviewReader
	Profiles ProfileStore
	Ready    Pinger
	Verifier *auth.Verifier
	Logger   *log.Logger
}

// Options tune transport behaviour.
type Options struct {
	Addr                      string
	AllowedOrigins            []string
	RateLimitPerMinute        int
	AnalyzeRateLimitPerMinute int
	OverviewCacheTTL          time.Duration
}

type Server struct {
	http.Server
	deps Deps

	logger         *log.Logger
	tracer         *trace.Middleware
	detector       *security.Detector
	writeLimiter   *ratelimit.Limiter
	analyzeLimiter *ratelimit.Limiter

	// month overviews keyed by "<user>:<yyyy>-<mm>"
	overviewCache *gocache.Cache

	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	ttl := opts.OverviewCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	detector := security.NewDetector()
	s := &Server{
		deps:           deps,
		logger:         logger.WithComponent(log.ComponentHTTP),
		tracer:         trace.NewMiddleware(detector.ExtractClientIP, logger),
		detector:       detector,
		writeLimiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		analyzeLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.AnalyzeRateLimitPerMinute, Burst: 3}),
		overviewCache:  gocache.New(ttl, 2*ttl),
		now:            time.Now,
	}

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(security.NewCORS(opts.AllowedOrigins).Middleware)
	r.Use(detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusNotFound).Error(msgNotFound).Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusMethodNotAllowed).Error("Method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	writes := s.writeLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)
	analyze := s.analyzeLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.Verifier.Middleware)

		r.With(analyze).Post("/analyze-spending", s.handleAnalyze)

		r.Get("/expenses", s.handleListExpenses)
		r.With(writes).Post("/expenses", s.handleCreateExpense)
		r.Get("/expenses/{id}", s.handleGetExpense)
		r.With(writes).Put("/expenses/{id}", s.handleUpdateExpense)
		r.With(writes).Delete("/expenses/{id}", s.handleDeleteExpense)

		r.Get("/budgets", s.handleListBudgets)
		r.With(writes).Post("/budgets", s.handleCreateBudget)
		r.With(writes).Put("/budgets/{id}", s.handleUpdateBudget)
		r.With(writes).Delete("/budgets/{id}", s.handleDeleteBudget)

		r.Get("/overview", s.handleMonthOverview)

		r.Get("/profile", s.handleGetProfile)
		r.With(writes).Put("/profile", s.handleUpdateProfile)
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// analysis waits on the AI gateway
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.writeLimiter.Stop()
		s.analyzeLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldPath, r.URL.Path)
	NewJSONResponse().Status(http.StatusTooManyRequests).Error(msgRateLimited).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics exposes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	wm := s.writeLimiter.GetMetrics()
	am := s.analyzeLimiter.GetMetrics()

	var b strings.Builder
	fmt.Fprintf(&b, "budgetbee_http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(&b, "budgetbee_http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(&b, "budgetbee_http_avg_response_microseconds %d\n", tm.AverageResponseTime)
	fmt.Fprintf(&b, "budgetbee_ratelimit_hits_total{limiter=\"write\"} %d\n", wm.TotalHits)
	fmt.Fprintf(&b, "budgetbee_ratelimit_hits_total{limiter=\"analyze\"} %d\n", am.TotalHits)
	fmt.Fprintf(&b, "budgetbee_ratelimit_clients{limiter=\"write\"} %d\n", wm.ClientCount)
	fmt.Fprintf(&b, "budgetbee_ratelimit_clients{limiter=\"analyze\"} %d\n", am.ClientCount)
	fmt.Fprintf(&b, "budgetbee_suspicious_requests_total %d\n", s.detector.SuspiciousRequests())
	fmt.Fprintf(&b, "budgetbee_overview_cache_items %d\n", s.overviewCache.ItemCount())

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(b.String()))
}

func overviewKey(userID string, year, month int) string {
	return fmt.Sprintf("%s:%04d-%02d", userID, year, month)
}

func (s *Server) getOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	key := overviewKey(userID, year, month)
	if v, ok := s.overviewCache.Get(key); ok {
		if ov, ok := v.(core.MonthOverview); ok {
			return ov, nil
		}
	}
	ov, err := s.deps.Overview.MonthOverview(ctx, userID, year, month)
	if err != nil {
		return core.MonthOverview{}, err
	}
	s.overviewCache.SetDefault(key, ov)
	return ov, nil
}

// invalidateOverview drops every cached month of a user.
func (s *Server) invalidateOverview(userID string) {
	prefix := userID + ":"
	for key := range s.overviewCache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.overviewCache.Delete(key)
		}
	}
}
