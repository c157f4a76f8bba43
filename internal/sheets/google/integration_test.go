//go:build integration

package google

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	ports "github.com/sakshipatil0812/FinancialyAI/internal/sheets"
)

// Integration tests require a real spreadsheet and service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_MirrorFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") == "" &&
		os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") == "" &&
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	names := ports.Names{
		Members:    map[string]string{"it-m1": "Integration Alice", "it-m2": "Integration Bob"},
		Categories: map[string]string{"it-c1": "Integration Groceries"},
	}

	// Unique id so repeated runs never collide
	expenseID := fmt.Sprintf("it-%d", time.Now().UnixNano())
	expense := core.Expense{
		ID:          expenseID,
		Description: "Integration test expense",
		Amount:      core.Money{Cents: 2599},
		Date:        core.NewDate(time.Now().Year(), int(time.Now().Month()), 1),
		PayerID:     "it-m1",
		CategoryID:  "it-c1",
		Splits: []core.Split{
			{MemberID: "it-m1", Amount: core.Money{Cents: 1300}},
			{MemberID: "it-m2", Amount: core.Money{Cents: 1299}},
		},
	}

	t.Run("AppendExpense", func(t *testing.T) {
		ref, err := client.AppendExpense(ctx, expense, names)
		if err != nil {
			t.Fatalf("Failed to append expense: %v", err)
		}
		t.Logf("Appended expense rows at %s", ref)
		if !strings.Contains(ref, "!A") {
			t.Errorf("expected a range reference, got %q", ref)
		}
	})

	t.Run("DeleteExpenseRows", func(t *testing.T) {
		removed, err := client.DeleteExpenseRows(ctx, expenseID)
		if err != nil {
			t.Fatalf("Failed to delete expense rows: %v", err)
		}
		t.Logf("Removed %d rows for %s", removed, expenseID)
		if removed != len(expense.Splits) {
			t.Errorf("expected %d rows removed, got %d", len(expense.Splits), removed)
		}
	})

	t.Run("AppendAlert", func(t *testing.T) {
		ref, err := client.AppendAlert(ctx, core.Notification{
			ID:        fmt.Sprintf("it-alert-%d", time.Now().UnixNano()),
			Message:   "Integration test alert",
			Timestamp: time.Now().UTC(),
			Severity:  core.SeverityWarning,
		})
		if err != nil {
			t.Fatalf("Failed to append alert: %v", err)
		}
		t.Logf("Appended alert at %s", ref)
	})
}
