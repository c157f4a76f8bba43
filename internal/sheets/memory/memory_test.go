package memory

import (
	"context"
	"testing"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/sheets"
)

func TestMemoryStoreAppendAndDelete(t *testing.T) {
	s := New()
	names := sheets.Names{
		Members:    map[string]string{"m-1": "Alice", "m-2": "Bob"},
		Categories: map[string]string{"c-1": "Groceries"},
	}

	ref, err := s.AppendExpense(context.Background(), core.Expense{
		ID:          "e-1",
		Description: "Weekly shop",
		Amount:      core.Money{Cents: 4500},
		Date:        core.NewDate(2025, 3, 15),
		PayerID:     "m-1",
		CategoryID:  "c-1",
		Splits: []core.Split{
			{MemberID: "m-1", Amount: core.Money{Cents: 2250}},
			{MemberID: "m-2", Amount: core.Money{Cents: 2250}},
		},
	}, names)
	if err != nil || ref != "mem:1-2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected one row per split, got %d", len(rows))
	}
	if rows[0].Member != "Alice" || rows[1].Member != "Bob" {
		t.Errorf("unexpected members: %q, %q", rows[0].Member, rows[1].Member)
	}
	if rows[0].Category != "Groceries" || rows[0].Payer != "Alice" {
		t.Errorf("unexpected category/payer: %q, %q", rows[0].Category, rows[0].Payer)
	}
	if rows[0].Total.Cents != 4500 || rows[0].Share.Cents != 2250 {
		t.Errorf("unexpected amounts: total=%d share=%d", rows[0].Total.Cents, rows[0].Share.Cents)
	}

	removed, err := s.DeleteExpenseRows(context.Background(), "e-1")
	if err != nil || removed != 2 {
		t.Fatalf("unexpected delete: removed=%d err=%v", removed, err)
	}
	if len(s.Rows()) != 0 {
		t.Errorf("expected no rows after delete, got %d", len(s.Rows()))
	}
}

func TestMemoryStoreDeleteLeavesOtherExpenses(t *testing.T) {
	s := New()
	for _, id := range []string{"e-1", "e-2"} {
		_, err := s.AppendExpense(context.Background(), core.Expense{
			ID:     id,
			Amount: core.Money{Cents: 100},
			Date:   core.NewDate(2025, 1, 2),
			Splits: []core.Split{{MemberID: "m-1", Amount: core.Money{Cents: 100}}},
		}, sheets.Names{})
		if err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	removed, err := s.DeleteExpenseRows(context.Background(), "e-1")
	if err != nil || removed != 1 {
		t.Fatalf("unexpected delete: removed=%d err=%v", removed, err)
	}
	rows := s.Rows()
	if len(rows) != 1 || rows[0].ExpenseID != "e-2" {
		t.Fatalf("expected only e-2 to survive, got %+v", rows)
	}
}

func TestMemoryStoreRejectsInvalidInput(t *testing.T) {
	s := New()
	if _, err := s.AppendExpense(context.Background(), core.Expense{ID: "e-1"}, sheets.Names{}); err == nil {
		t.Error("expected error for expense without splits")
	}
	if _, err := s.AppendExpense(context.Background(), core.Expense{
		Splits: []core.Split{{MemberID: "m-1", Amount: core.Money{Cents: 1}}},
	}, sheets.Names{}); err == nil {
		t.Error("expected error for expense without id")
	}
	if _, err := s.DeleteExpenseRows(context.Background(), " "); err == nil {
		t.Error("expected error for empty expense id")
	}
	if _, err := s.AppendAlert(context.Background(), core.Notification{Message: "x"}); err == nil {
		t.Error("expected error for alert without id")
	}
}

func TestMemoryStoreAlerts(t *testing.T) {
	s := New()
	ref, err := s.AppendAlert(context.Background(), core.Notification{
		ID:        "n-1",
		Message:   "Approaching budget for Groceries",
		Timestamp: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
		Severity:  core.SeverityWarning,
	})
	if err != nil || ref != "mem:alert:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	alerts := s.Alerts()
	if len(alerts) != 1 || alerts[0].Severity != core.SeverityWarning {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}
}
