package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/log"
)

// handleMonthAggregate serves one month's totals, cached for five
// minutes and dropped on any expense write.
func (s *Server) handleMonthAggregate(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	key := fmt.Sprintf("%04d-%02d", year, month)
	if agg, ok := s.monthCache.Get(key); ok {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
		writeJSON(w, http.StatusOK, agg)
		return
	}
	atomic.AddInt64(&s.metrics.cacheMisses, 1)

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	agg, err := s.engine.MonthlyAggregate(ctx, month, year)
	if err != nil {
		s.respondError(w, r, err, "month aggregate",
			log.FieldYear, year, log.FieldMonth, month)
		return
	}

	s.monthCache.Set(key, agg)
	writeJSON(w, http.StatusOK, agg)
}

// handleTrend serves the cumulative daily-spend series for the asof
// month next to the month before it. asof defaults to today.
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	asOf := today()
	if v := strings.TrimSpace(r.URL.Query().Get("asof")); v != "" {
		parsed, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid asof date")
			return
		}
		asOf = parsed
	}

	key := asOf.String()
	if series, ok := s.trendCache.Get(key); ok {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
		writeJSON(w, http.StatusOK, series)
		return
	}
	atomic.AddInt64(&s.metrics.cacheMisses, 1)

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	series, err := s.engine.Trend(ctx, asOf)
	if err != nil {
		s.respondError(w, r, err, "trend series")
		return
	}

	s.trendCache.Set(key, series)
	writeJSON(w, http.StatusOK, series)
}

// handleExportCSV streams the whole ledger as a CSV download, one row
// per positive split.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	csv, err := s.engine.ExportCSV(ctx)
	if err != nil {
		s.respondError(w, r, err, "export csv")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, csv)
}
