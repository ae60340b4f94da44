package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

// HeaderUserID identifies the caller on every /api route except registration.
const HeaderUserID = "X-User-ID"

// FinanceAPI is the part of services.FinanceService the handlers use.
type FinanceAPI interface {
	Ping(ctx context.Context) error

	ProvisionUser(ctx context.Context, email, password string) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)

	ListAccounts(ctx context.Context, userID int64) ([]core.Account, error)
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) (core.Account, error)
	DeleteAccount(ctx context.Context, userID, id int64) error
	ReorderAccounts(ctx context.Context, userID int64, ids []int64) error

	ListCategories(ctx context.Context, userID int64, income *bool) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id int64) error

	ListCurrencies(ctx context.Context, userID int64) ([]core.Currency, error)
	AddCurrency(ctx context.Context, userID int64, code string) (core.Currency, error)
	SetCurrencyRate(ctx context.Context, userID, id int64, rate decimal.Decimal) (core.Currency, error)
	DeleteCurrency(ctx context.Context, userID, id int64) error
	RequestRateRefresh(ctx context.Context, userID int64) (bool, error)

	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
	ListTransactions(ctx context.Context, userID int64, f storage.TransactionFilter) ([]core.Transaction, error)
	SetSaved(ctx context.Context, userID, id int64, saved bool) error

	UpsertBudget(ctx context.Context, userID, categoryID int64, period string, amount decimal.Decimal) (core.Budget, error)
	ListBudgets(ctx context.Context, userID int64, period string) ([]core.Budget, error)
	DeleteBudget(ctx context.Context, userID, id int64) error
	BudgetUsage(ctx context.Context, userID, budgetID int64) (services.BudgetUsage, error)

	Statistics(ctx context.Context, userID int64, q stats.Query) (stats.Report, error)
	TransactionDates(ctx context.Context, userID int64) (services.TransactionDates, error)
	ExportStatistics(ctx context.Context, userID int64, q stats.Query) (string, error)
	MonthlyChart(ctx context.Context, userID int64, year int) ([]byte, error)
}

var _ FinanceAPI = (*services.FinanceService)(nil)

// Options configures the middleware stack.
type Options struct {
	Logger             *log.Logger
	RateLimitRPM       int
	CORSAllowedOrigins []string
	// RequestTimeout bounds each /api request. Zero uses 30s.
	RequestTimeout time.Duration
}

type Server struct {
	http.Server
	svc         FinanceAPI
	logger      *log.Logger
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	events      *log.StructuredLogger

	shutdownOnce sync.Once
}

type ctxKey int

const userIDKey ctxKey = iota

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc FinanceAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if len(opts.CORSAllowedOrigins) == 0 {
		opts.CORSAllowedOrigins = []string{"*"}
	}

	detector := security.NewDetector(logger)
	s := &Server{
		svc:         svc,
		logger:      logger.WithComponent(log.ComponentHTTP),
		events:      log.NewStructuredLogger(logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger, func(r *http.Request) string { return trace.GetRequestID(r.Context()) }))
	r.Use(middleware.Recoverer)
	r.Use(security.APIHeaderPolicy().Middleware)
	r.Use(detector.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderUserID, trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(opts.RequestTimeout))
		limited := logger.WithComponent(log.ComponentRateLimit)
		api.Use(s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			limited.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, detector.ExtractClientIP(r))
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
		}))

		api.Post("/users", s.handleRegister)

		api.Group(func(authed chi.Router) {
			authed.Use(s.requireUser)
			s.registerRoutes(authed)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", s.handleListAccounts)
		r.Post("/", s.handleCreateAccount)
		r.Post("/order", s.handleReorderAccounts)
		r.Put("/{id}", s.handleUpdateAccount)
		r.Delete("/{id}", s.handleDeleteAccount)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", s.handleListCategories)
		r.Post("/", s.handleCreateCategory)
		r.Put("/{id}", s.handleUpdateCategory)
		r.Delete("/{id}", s.handleDeleteCategory)
	})
	r.Route("/currencies", func(r chi.Router) {
		r.Get("/", s.handleListCurrencies)
		r.Post("/", s.handleAddCurrency)
		r.Post("/refresh", s.handleRefreshRates)
		r.Put("/{id}", s.handleSetCurrencyRate)
		r.Delete("/{id}", s.handleDeleteCurrency)
	})
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", s.handleListTransactions)
		r.Post("/", s.handleCreateTransaction)
		r.Get("/dates", s.handleTransactionDates)
		r.Get("/{id}", s.handleGetTransaction)
		r.Put("/{id}", s.handleUpdateTransaction)
		r.Delete("/{id}", s.handleDeleteTransaction)
		r.Put("/{id}/saved", s.handleSetSaved)
	})
	r.Route("/budgets", func(r chi.Router) {
		r.Get("/", s.handleListBudgets)
		r.Put("/", s.handleUpsertBudget)
		r.Delete("/{id}", s.handleDeleteBudget)
		r.Get("/{id}/usage", s.handleBudgetUsage)
	})
	r.Route("/statistics", func(r chi.Router) {
		r.Get("/data", s.handleStatistics)
		r.Get("/chart.png", s.handleMonthlyChart)
		r.Post("/export", s.handleExportStatistics)
	})
}

// requireUser resolves X-User-ID to an existing user.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderUserID)
		if raw == "" {
			UnauthorizedError("missing " + HeaderUserID + " header").Write(w)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			BadRequestError("invalid " + HeaderUserID + " header").Write(w)
			return
		}
		if _, err := s.svc.GetUser(r.Context(), id); err != nil {
			if statusFor(err) == http.StatusNotFound {
				log.FromContext(r.Context()).WarnContext(r.Context(), "Unknown user id",
					log.FieldUserID, id,
					log.FieldPath, r.URL.Path)
				UnauthorizedError("unknown user").Write(w)
				return
			}
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the caller resolved by requireUser.
func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops background middleware goroutines and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
