package http

import (
	"net/http"
	"strings"
	"testing"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

func TestMonthAggregate(t *testing.T) {
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/analytics/month?year=2025&month=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	agg := decodeBody[core.MonthAggregate](t, rec)
	if agg.Year != 2025 || agg.Month != 3 {
		t.Errorf("period = %d-%d, want 2025-3", agg.Year, agg.Month)
	}
	if agg.Total.Cents != 15000 {
		t.Errorf("total = %d, want 15000", agg.Total.Cents)
	}
	if agg.PerCategory["c-groceries"].Cents != 12000 || agg.PerCategory["c-other"].Cents != 3000 {
		t.Errorf("perCategory = %v", agg.PerCategory)
	}
	if agg.PerMember["m-alice"].Cents != 6000 || agg.PerMember["m-bob"].Cents != 9000 {
		t.Errorf("perMember = %v", agg.PerMember)
	}
}

func TestMonthAggregateBadParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "month out of range", target: "/api/analytics/month?year=2025&month=13"},
		{name: "month not a number", target: "/api/analytics/month?year=2025&month=abc"},
		{name: "year not a number", target: "/api/analytics/month?year=abc&month=3"},
	}

	s := newTestServer(t, &fakeStore{h: seedHousehold()}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodGet, tt.target, nil)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestMonthAggregateCacheInvalidation(t *testing.T) {
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/analytics/month?year=2025&month=3", nil)
	agg := decodeBody[core.MonthAggregate](t, rec)
	if agg.Total.Cents != 15000 {
		t.Fatalf("total = %d, want 15000", agg.Total.Cents)
	}

	draft := draftFixture(5000)
	draft.Date = core.NewDate(2025, 3, 20)
	if rec := doJSON(t, s, http.MethodPost, "/api/expenses", draft); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}

	// The write must evict the cached aggregate, not wait out the TTL.
	rec = doJSON(t, s, http.MethodGet, "/api/analytics/month?year=2025&month=3", nil)
	agg = decodeBody[core.MonthAggregate](t, rec)
	if agg.Total.Cents != 20000 {
		t.Errorf("total after write = %d, want 20000", agg.Total.Cents)
	}
}

func TestTrend(t *testing.T) {
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/analytics/trend?asof=2025-03-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	series := decodeBody[core.TrendSeries](t, rec)
	if len(series.Labels) != 31 {
		t.Fatalf("labels = %d, want 31 for March", len(series.Labels))
	}
	day := func(n int) *int64 { return series.Current[n-1] }
	if v := day(5); v == nil || *v != 12000 {
		t.Errorf("day 5 = %v, want 12000", v)
	}
	if v := day(15); v == nil || *v != 15000 {
		t.Errorf("day 15 = %v, want 15000", v)
	}
	if day(16) != nil {
		t.Errorf("day 16 = %v, want nil past asof", *day(16))
	}
	for i, v := range series.Previous {
		if v != 0 {
			t.Errorf("previous day %d = %d, want 0 with no February spend", i+1, v)
		}
	}
}

func TestTrendBadAsOf(t *testing.T) {
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/analytics/trend?asof=not-a-date", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/export/csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "expenses.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if lines[0] != "Expense ID,Date,Description,Amount,Category,Payer,Member,Split Amount" {
		t.Errorf("header = %q", lines[0])
	}
	// One row per split: two for the supermarket run, one for the cinema.
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4", len(lines))
	}
	for _, part := range []string{"Supermarket", "Alice", "Groceries", "120.00", "60.00"} {
		if !strings.Contains(lines[1], part) {
			t.Errorf("row %q missing %q", lines[1], part)
		}
	}
}
