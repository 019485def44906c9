package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "budgettracker/internal/log"
	"budgettracker/internal/middleware/ratelimit"
	"budgettracker/internal/middleware/security"
	"budgettracker/internal/middleware/trace"
	"budgettracker/internal/services"
)

// Services are the application services behind the API. Advice may be nil.
type Services struct {
	Accounts     *services.AccountService
	Categories   *services.CategoryService
	Budgets      *services.BudgetService
	Transactions *services.TransactionService
	Advice       *services.AdviceService
}

// Pinger reports whether a dependency answers. *storage.SQLiteRepository
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	RateLimitPerMinute int
	// Ready is checked by /readyz; nil means always ready.
	Ready  Pinger
	Logger *applog.Logger
}

type Server struct {
	http.Server
	svc      Services
	ready    Pinger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	detector := security.NewDetector()
	s := &Server{
		svc:      svc,
		ready:    opts.Ready,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(logger.WithComponent(applog.ComponentHTTP), detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", s.api())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(detector.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// api routes every ledger endpoint. They all require a caller identity and
// share one rate limit per client.
func (s *Server) api() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories/tree", s.handleCategoryTree)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /api/budgets/{id}", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)
	mux.HandleFunc("POST /api/budgets/{id}/summary", s.handleBudgetSummary)
	mux.HandleFunc("POST /api/budgets/{id}/advice", s.handleBudgetAdvice)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/export", s.handleExportTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/advice/health", s.handleAdviceHealth)

	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})
	return requireUser(limit(mux))
}

// requireUser rejects requests without a caller identity.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := ownerFrom(r)
		if owner == "" {
			UnauthorizedError().Write(w)
			return
		}
		ctx := applog.NewContext(r.Context(), applog.FromContext(r.Context()).With(applog.FieldUserID, owner))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Metrics reports request and security counters.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics, security.DetectionMetrics) {
	return s.tracer.GetMetrics(), s.limiter.GetMetrics(), s.detector.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "storage unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
