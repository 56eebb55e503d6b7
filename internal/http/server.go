package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"wealthtrack/internal/log"
	"wealthtrack/internal/middleware/ratelimit"
	"wealthtrack/internal/middleware/security"
	"wealthtrack/internal/middleware/trace"
	"wealthtrack/internal/services"
)

const (
	serviceName = "wealthtrack"
	// requestTimeout bounds the store work behind a single request.
	requestTimeout = 10 * time.Second
)

// Services are the application services behind the API.
type Services struct {
	Auth        *services.AuthService
	Expenses    *services.ExpenseService
	Investments *services.InvestmentService
	Dashboard   *services.DashboardService
	Export      *services.ExportService
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the server. Zero values pick defaults.
type Options struct {
	RateLimitPerMinute int
	Version            string
	TrustedProxies     []string
}

type Server struct {
	http.Server
	svc       Services
	ready     Pinger
	validator *Validator
	version   string
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc Services, ready Pinger, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.Version == "" {
		opts.Version = "dev"
	}

	detector := security.NewDetector(logger)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s := &Server{
		svc:       svc,
		ready:     ready,
		validator: NewValidator(),
		version:   opts.Version,
		logger:    logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		detector: detector,
	}
	s.tracer = trace.NewMiddleware(detector.ExtractClientIP, logger)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/me", s.handleMe)

	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/summary/by-category", s.handleCategorySummary)
	mux.HandleFunc("GET /api/expenses/summary/by-month", s.handleMonthlySummary)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("POST /api/investments", s.handleCreateInvestment)
	mux.HandleFunc("GET /api/investments", s.handleListInvestments)
	mux.HandleFunc("POST /api/investments/bulk-update-prices", s.handleBulkUpdatePrices)
	mux.HandleFunc("GET /api/investments/analytics/portfolio-summary", s.handlePortfolioSummary)
	mux.HandleFunc("GET /api/investments/analytics/asset-allocation", s.handleAssetAllocation)
	mux.HandleFunc("GET /api/investments/analytics/top-performers", s.handleTopPerformers)
	mux.HandleFunc("GET /api/investments/analytics/worst-performers", s.handleWorstPerformers)
	mux.HandleFunc("GET /api/investments/analytics/maturing-soon", s.handleMaturingSoon)
	mux.HandleFunc("GET /api/investments/analytics/platform-summary", s.handlePlatformSummary)
	mux.HandleFunc("GET /api/investments/analytics/trends", s.handleTrends)
	mux.HandleFunc("GET /api/investments/analytics/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/investments/{id}", s.handleGetInvestment)
	mux.HandleFunc("PUT /api/investments/{id}", s.handleUpdateInvestment)
	mux.HandleFunc("DELETE /api/investments/{id}", s.handleDeleteInvestment)
	mux.HandleFunc("PATCH /api/investments/{id}/price", s.handleUpdatePrice)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/dashboard/health-score", s.handleHealthScore)
	mux.HandleFunc("GET /api/dashboard/overview", s.handleOverview)

	mux.HandleFunc("GET /api/export/expenses/csv", s.handleExportExpensesCSV)
	mux.HandleFunc("GET /api/export/investments/csv", s.handleExportInvestmentsCSV)
	mux.HandleFunc("GET /api/export/xlsx", s.handleExportWorkbook)
	mux.HandleFunc("GET /api/export/complete", s.handleExportComplete)

	// Outermost first: trace, security headers with detection, rate
	// limiting, bearer authentication.
	var h http.Handler = mux
	h = s.requireAuth(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		ErrorJSON(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// fail maps err onto an error response. Unexpected errors are logged and
// reported without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	b := ErrorFromDomain(err)
	if b.StatusCode() >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
	}
	b.Write(w)
}

func (s *Server) ok(w http.ResponseWriter, v any) {
	NewJSONResponse().Body(v).Write(w)
}

func (s *Server) created(w http.ResponseWriter, v any) {
	NewJSONResponse().Status(http.StatusCreated).Body(v).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.ok(w, map[string]string{
		"name":    serviceName,
		"version": s.version,
		"status":  "running",
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// withTimeout bounds the store and service work of one request.
func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

func isPublicPath(path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return true
	}
	return path == "/api/auth/register" || path == "/api/auth/login"
}
