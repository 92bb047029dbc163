// Package http exposes the JSON API for expenses, budgets, the chat
// assistant, and market data lookups.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"financebot/internal/agent"
	"financebot/internal/backend"
	"financebot/internal/cache"
	applog "financebot/internal/log"
	"financebot/internal/market"
	"financebot/internal/services"
)

// Assistant answers chat queries and runs the search tools.
type Assistant interface {
	Respond(ctx context.Context, query string) (string, error)
	SearchNews(ctx context.Context, query string) (string, error)
	SearchFiles(ctx context.Context, query string) (agent.FileSearchResult, error)
}

// QuoteProvider returns the latest stock quote for a symbol.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (market.Quote, error)
}

// RateProvider returns the conversion rate between two currencies.
type RateProvider interface {
	Rate(ctx context.Context, base, target string) (market.Rate, error)
}

type Server struct {
	http.Server
	svc         *services.FinanceService
	store       backend.Store
	assistant   Assistant
	quotes      QuoteProvider
	rates       RateProvider
	rateLimiter *rateLimiter

	// Upstream lookups are cached to spare the providers
	quoteCache   *cache.LRUCache[market.Quote]
	rateCache    *cache.LRUCache[market.Rate]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// assistant may be nil when no API key is configured.
func NewServer(addr string, store backend.Store, svc *services.FinanceService, assistant Assistant, quotes QuoteProvider, rates RateProvider) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:          svc,
		store:        store,
		assistant:    assistant,
		quotes:       quotes,
		rates:        rates,
		rateLimiter:  newRateLimiter(),
		quoteCache:   cache.NewLRUCache[market.Quote](100, time.Minute),
		rateCache:    cache.NewLRUCache[market.Rate](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.quoteCache)
	s.cacheManager.Register(s.rateCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/expenses", s.withMiddleware(s.handleAddExpense))
	mux.HandleFunc("GET /api/expenses", s.withMiddleware(s.handleListExpenses))
	mux.HandleFunc("POST /api/set-budget", s.withMiddleware(s.handleSetBudget))
	mux.HandleFunc("GET /api/get-budgets/{userID}", s.withMiddleware(s.handleGetBudgets))
	mux.HandleFunc("GET /api/budget-status", s.withMiddleware(s.handleBudgetStatus))

	mux.HandleFunc("POST /api/agent", s.withMiddleware(s.handleAgent))
	mux.HandleFunc("GET /api/web-search", s.withMiddleware(s.handleWebSearch))
	mux.HandleFunc("GET /api/file-search", s.withMiddleware(s.handleFileSearch))

	mux.HandleFunc("GET /api/stock-price/{symbol}", s.withMiddleware(s.handleStockPrice))
	mux.HandleFunc("GET /api/exchange-rate", s.withMiddleware(s.handleExchangeRate))

	return s
}

// withMiddleware adds security headers, rate limiting on writes, and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		logger := applog.FromContext(r.Context()).
			WithComponent(applog.ComponentHTTP).
			With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, logger)
		r = r.WithContext(ctx)

		sl := applog.NewStructuredLogger(logger)
		sl.LogHTTPStart(ctx, r, clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		sl.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// handleRoot returns a service banner with the endpoint map.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "financebot backend is running",
		"status":  "active",
		"endpoints": map[string]any{
			"api": map[string]string{
				"expenses":      "/api/expenses",
				"set_budget":    "/api/set-budget",
				"get_budgets":   "/api/get-budgets/{user_id}",
				"budget_status": "/api/budget-status",
				"agent":         "/api/agent",
				"web_search":    "/api/web-search",
				"file_search":   "/api/file-search",
				"stock_price":   "/api/stock-price/{ticker}",
				"exchange_rate": "/api/exchange-rate",
			},
		},
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops background cleanup goroutines and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
