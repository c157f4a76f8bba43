package sheets

import (
	"context"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

// Names maps member and category ids to display names for mirror rows.
// Unknown ids fall back to the raw id so a stale index never blocks a
// mirror write.
type Names struct {
	Members    map[string]string
	Categories map[string]string
}

func (n Names) Member(id string) string {
	if name, ok := n.Members[id]; ok && name != "" {
		return name
	}
	return id
}

func (n Names) Category(id string) string {
	if name, ok := n.Categories[id]; ok && name != "" {
		return name
	}
	return id
}

// Ports for outbound adapters.
type (
	// MirrorWriter appends one spreadsheet row per split of an expense.
	MirrorWriter interface {
		AppendExpense(ctx context.Context, e core.Expense, names Names) (rowRef string, err error)
	}

	// MirrorDeleter removes every row previously mirrored for an expense.
	// The expense is already gone from the store by the time a delete
	// event arrives, so lookup is by id only.
	MirrorDeleter interface {
		DeleteExpenseRows(ctx context.Context, expenseID string) (removed int, err error)
	}

	// AlertWriter appends one row per raised alert notification.
	AlertWriter interface {
		AppendAlert(ctx context.Context, n core.Notification) (rowRef string, err error)
	}
)
