package core

import "testing"

func TestAggregateMonth(t *testing.T) {
	expenses := []Expense{
		{
			ID: "e-1", Date: NewDate(2025, 3, 5), CategoryID: "cat-1", Amount: Money{Cents: 1000},
			Splits: []Split{
				{MemberID: "m-1", Amount: Money{Cents: 500}},
				{MemberID: "m-2", Amount: Money{Cents: 500}},
			},
		},
		{
			ID: "e-2", Date: NewDate(2025, 3, 12), CategoryID: "cat-5", Amount: Money{Cents: 2000},
			Splits: []Split{{MemberID: "m-1", Amount: Money{Cents: 2000}}},
		},
		// Different month, must be filtered out.
		{
			ID: "e-3", Date: NewDate(2025, 2, 28), CategoryID: "cat-1", Amount: Money{Cents: 700},
			Splits: []Split{{MemberID: "m-2", Amount: Money{Cents: 700}}},
		},
		// Same month, previous year, must be filtered out.
		{
			ID: "e-4", Date: NewDate(2024, 3, 12), CategoryID: "cat-1", Amount: Money{Cents: 900},
			Splits: []Split{{MemberID: "m-2", Amount: Money{Cents: 900}}},
		},
	}

	agg := AggregateMonth(expenses, 3, 2025)
	if agg.Total.Cents != 3000 {
		t.Fatalf("total expected 3000, got %d", agg.Total.Cents)
	}
	if agg.PerCategory["cat-1"].Cents != 1000 || agg.PerCategory["cat-5"].Cents != 2000 {
		t.Fatalf("per-category mismatch: %+v", agg.PerCategory)
	}
	if agg.PerMember["m-1"].Cents != 2500 || agg.PerMember["m-2"].Cents != 500 {
		t.Fatalf("per-member mismatch: %+v", agg.PerMember)
	}
}

func TestAggregateMonthImportedSplits(t *testing.T) {
	// Imported rows may carry splits summing to less than the amount.
	// Member totals follow the splits; category and grand totals follow
	// the full amounts, never the splits.
	expenses := []Expense{
		{
			ID: "e-1", Date: NewDate(2025, 6, 1), CategoryID: "cat-1", Amount: Money{Cents: 5000},
			Splits: []Split{{MemberID: "m-1", Amount: Money{Cents: 2000}}},
		},
		{
			ID: "e-2", Date: NewDate(2025, 6, 2), CategoryID: "cat-1", Amount: Money{Cents: 1000},
			Splits: []Split{
				{MemberID: "m-1", Amount: Money{Cents: 800}},
				{MemberID: "m-2", Amount: Money{Cents: 400}},
			},
		},
	}
	agg := AggregateMonth(expenses, 6, 2025)
	if agg.Total.Cents != 6000 {
		t.Fatalf("total expected 6000, got %d", agg.Total.Cents)
	}
	if agg.PerCategory["cat-1"].Cents != 6000 {
		t.Fatalf("category total expected 6000, got %d", agg.PerCategory["cat-1"].Cents)
	}
	if agg.PerMember["m-1"].Cents != 2800 || agg.PerMember["m-2"].Cents != 400 {
		t.Fatalf("per-member mismatch: %+v", agg.PerMember)
	}
}

func TestAggregateMonthEmpty(t *testing.T) {
	agg := AggregateMonth(nil, 1, 2025)
	if agg.Total.Cents != 0 || len(agg.PerCategory) != 0 || len(agg.PerMember) != 0 {
		t.Fatalf("expected empty aggregate, got %+v", agg)
	}
}
