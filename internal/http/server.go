// Package http serves the household ledger as a JSON API.
//
// Handlers translate requests into engine calls and engine errors into
// the status taxonomy in respond.go. The server owns two LRU response
// caches for the analytics reads and a per-IP rate limiter for mutating
// methods; Shutdown stops both cleanup goroutines before draining
// in-flight requests.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/cache"
	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/ledger"
	"github.com/sakshipatil0812/FinancialyAI/internal/log"
)

const (
	analyticsCacheTTL = 5 * time.Minute
	cacheCleanupEvery = 10 * time.Minute

	// readTimeout bounds snapshot-loading reads so one slow store call
	// cannot pin a request forever.
	readTimeout = 7 * time.Second
)

type Server struct {
	http.Server

	engine *ledger.Engine
	logger *log.Logger

	rateLimiter *rateLimiter
	security    *securityMetrics
	metrics     *appMetrics

	monthCache *cache.LRUCache[core.MonthAggregate]
	trendCache *cache.LRUCache[core.TrendSeries]
	cleanup    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes, caches, and middleware around the engine.
// A nil logger falls back to a default one tagged with the http
// component.
func NewServer(addr string, engine *ledger.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP})
	} else {
		logger = logger.WithComponent(log.ComponentHTTP)
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		engine:      engine,
		logger:      logger,
		rateLimiter: newRateLimiter(),
		security:    &securityMetrics{},
		metrics:     &appMetrics{started: time.Now()},
		monthCache:  cache.NewLRUCache[core.MonthAggregate](100, analyticsCacheTTL),
		trendCache:  cache.NewLRUCache[core.TrendSeries](100, analyticsCacheTTL),
		cleanup:     cache.NewManager(),
	}

	s.cleanup.Register(s.monthCache)
	s.cleanup.Register(s.trendCache)
	s.cleanup.StartCleanup(cacheCleanupEvery)

	// Probes and metrics stay outside the middleware so orchestration
	// traffic is never rate limited or logged per request.
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/household", s.withSecurityHeaders(s.handleGetHousehold))

	mux.HandleFunc("POST /api/expenses", s.withSecurityHeaders(s.handleCreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withSecurityHeaders(s.handleDeleteExpense))
	mux.HandleFunc("POST /api/goals/{id}/transfer", s.withSecurityHeaders(s.handleGoalTransfer))
	mux.HandleFunc("POST /api/trips/{id}/expenses", s.withSecurityHeaders(s.handleAddTripExpense))

	mux.HandleFunc("GET /api/analytics/month", s.withSecurityHeaders(s.handleMonthAggregate))
	mux.HandleFunc("GET /api/analytics/trend", s.withSecurityHeaders(s.handleTrend))
	mux.HandleFunc("GET /api/export/csv", s.withSecurityHeaders(s.handleExportCSV))

	mux.HandleFunc("PUT /api/rules", s.withSecurityHeaders(s.handleReplaceRules))
	mux.HandleFunc("PUT /api/budgets", s.withSecurityHeaders(s.handleReplaceBudgets))
	mux.HandleFunc("PUT /api/goals", s.withSecurityHeaders(s.handleReplaceGoals))
	mux.HandleFunc("PUT /api/trips", s.withSecurityHeaders(s.handleReplaceTrips))
	mux.HandleFunc("PUT /api/subscriptions", s.withSecurityHeaders(s.handleReplaceSubscriptions))
	mux.HandleFunc("PUT /api/settings", s.withSecurityHeaders(s.handleUpdateSettings))

	mux.HandleFunc("POST /api/notifications/{id}/read", s.withSecurityHeaders(s.handleMarkNotificationRead))
	mux.HandleFunc("POST /api/notifications/read-all", s.withSecurityHeaders(s.handleMarkAllNotificationsRead))

	mux.HandleFunc("POST /api/oracle/receipt", s.withSecurityHeaders(s.handleOracleReceipt))
	mux.HandleFunc("POST /api/oracle/statement", s.withSecurityHeaders(s.handleOracleStatement))
	mux.HandleFunc("POST /api/oracle/recurring/scan", s.withSecurityHeaders(s.handleOracleRecurringScan))
	mux.HandleFunc("POST /api/oracle/budget/suggest", s.withSecurityHeaders(s.handleOracleBudgetSuggest))
	mux.HandleFunc("POST /api/oracle/goal-transfer/suggest", s.withSecurityHeaders(s.handleOracleGoalTransferSuggest))
	mux.HandleFunc("POST /api/oracle/report", s.withSecurityHeaders(s.handleOracleReport))
	mux.HandleFunc("POST /api/oracle/chat", s.withSecurityHeaders(s.handleOracleChat))

	return s
}

// invalidateAnalytics drops every cached aggregate. Called after writes
// that touch the household expense list; writes from other processes
// (the subscription worker) are covered by the cache TTL instead.
func (s *Server) invalidateAnalytics() {
	s.monthCache.Clear()
	s.trendCache.Clear()
}

// Shutdown stops the cleanup goroutines, then drains in-flight
// requests. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cleanup.Stop()
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
