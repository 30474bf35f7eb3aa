package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/middleware/auth"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
)

// Ports used by the handlers.
type (
	Ledger interface {
		Today() civil.Date
		CreateTransaction(ctx context.Context, in services.TransactionInput) ([]core.Transaction, error)
		Dashboard(ctx context.Context, period core.Period) (core.DashboardSummary, error)
		Daily(ctx context.Context, year int, month time.Month) ([]core.DayBucket, error)
		Bills(ctx context.Context) (services.BillsOverview, error)
		Wallets(ctx context.Context) ([]services.WalletSummary, error)
		Transactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
		Bill(ctx context.Context, id string) (services.BillDetail, error)
	}

	Catalog interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		CreateRecurringBill(ctx context.Context, b core.RecurringBill) (core.RecurringBill, error)
		GetRecurringBill(ctx context.Context, id string) (core.RecurringBill, error)
		UpdateRecurringBill(ctx context.Context, b core.RecurringBill) (core.RecurringBill, error)
		DeleteRecurringBill(ctx context.Context, id string) error
		CreateWallet(ctx context.Context, w core.InvestmentWallet) (core.InvestmentWallet, error)
		ListInvestments(ctx context.Context) ([]core.Investment, error)
		CreateInvestment(ctx context.Context, inv core.Investment) (core.Investment, error)
		CreateInvestmentTransaction(ctx context.Context, t core.InvestmentTransaction) (core.InvestmentTransaction, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Options wires the server. Ready may be nil, in which case /readyz always
// succeeds.
type Options struct {
	Addr               string
	Ledger             Ledger
	Catalog            Catalog
	Quotes             services.RateSource
	Ready              Pinger
	APIToken           string
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	ledger  Ledger
	catalog Catalog
	quotes  services.RateSource
	ready   Pinger

	limiter  *ratelimit.Limiter
	gate     *auth.Gate
	tracer   *trace.Middleware
	detector *security.Detector

	shutdownOnce sync.Once
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledger:   opts.Ledger,
		catalog:  opts.Catalog,
		quotes:   opts.Quotes,
		ready:    opts.Ready,
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		gate: auth.NewGate(opts.APIToken, writeUnauthorized),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, log.NewStructuredLogger(httpLogger))

	api := http.NewServeMux()
	api.HandleFunc("/api/dashboard", s.handleDashboard)
	api.HandleFunc("/api/dashboard/daily", s.handleDaily)
	api.HandleFunc("/api/recurring-bills", s.handleRecurringBills)
	api.HandleFunc("/api/recurring-bills/{id}", s.handleRecurringBill)
	api.HandleFunc("/api/transactions", s.handleTransactions)
	api.HandleFunc("/api/categories", s.handleCategories)
	api.HandleFunc("/api/quotes", s.handleQuotes)
	api.HandleFunc("/api/investments", s.handleInvestments)
	api.HandleFunc("/api/investments/wallets", s.handleWallets)
	api.HandleFunc("/api/investments/transactions", s.handleInvestmentTransactions)
	api.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})

	protected := s.gate.Middleware(
		s.limiter.Middleware(s.detector.ExtractClientIP, writeRateLimited,
			http.MethodPost, http.MethodPut, http.MethodDelete)(api))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/api/", protected)

	var handler http.Handler = mux
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestID)(handler)
	handler = log.Middleware(httpLogger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics exposes the middleware counters for diagnostics.
type Metrics struct {
	Requests     int64 `json:"requests"`
	ServerErrors int64 `json:"serverErrors"`
	RateLimited  int64 `json:"rateLimited"`
	Unauthorized int64 `json:"unauthorized"`
	Suspicious   int64 `json:"suspicious"`
}

func (s *Server) Metrics() Metrics {
	tm := s.tracer.GetMetrics()
	return Metrics{
		Requests:     tm.TotalRequests,
		ServerErrors: tm.ServerErrors,
		RateLimited:  s.limiter.GetMetrics().Rejected,
		Unauthorized: s.gate.Denied(),
		Suspicious:   s.detector.GetMetrics().SuspiciousRequests,
	}
}
