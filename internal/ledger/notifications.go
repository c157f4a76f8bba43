package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

func newNotification(message string, severity core.Severity) core.Notification {
	return core.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Timestamp: time.Now().UTC(),
		Severity:  severity,
	}
}

// budgetNotifications applies the 90%/100% crossing rules for the asOf
// month. At most one notification fires per call: crossing the budget
// beats approaching it, and once a threshold has been crossed it stays
// silent for later expenses in the same month.
func (e *Engine) budgetNotifications(h *core.Household, categoryID string, amount core.Money, asOf core.Date) []core.Notification {
	budget, ok := h.BudgetFor(categoryID)
	if !ok || budget.Amount.Cents <= 0 {
		return nil
	}

	before := monthCategorySpend(h.Expenses, categoryID, asOf)
	after := before + amount.Cents
	limit := budget.Amount.Cents

	category, _ := h.CategoryByID(categoryID)

	switch {
	case before < limit && after >= limit:
		return []core.Notification{newNotification(
			fmt.Sprintf("Budget exceeded for %s: spent %s of %s this month",
				category.Name, core.Money{Cents: after}.DecimalString(), budget.Amount.DecimalString()),
			core.SeverityError,
		)}
	// after*10 >= limit*9 is the exact integer form of after >= 90% of limit.
	case before*10 < limit*9 && after*10 >= limit*9 && after < limit:
		return []core.Notification{newNotification(
			fmt.Sprintf("Approaching budget for %s: spent %s of %s this month",
				category.Name, core.Money{Cents: after}.DecimalString(), budget.Amount.DecimalString()),
			core.SeverityWarning,
		)}
	}
	return nil
}

// monthCategorySpend totals full expense amounts for one category in the
// asOf month. The new expense counts toward the asOf month regardless of
// its own date, so the total here uses expense dates but the window
// always follows the creation time.
func monthCategorySpend(expenses []core.Expense, categoryID string, asOf core.Date) int64 {
	var total int64
	for _, e := range expenses {
		if e.CategoryID == categoryID && e.Date.Month() == asOf.Month() && e.Date.Year() == asOf.Year() {
			total += e.Amount.Cents
		}
	}
	return total
}

// MarkNotificationRead flips one notification's read flag.
func (e *Engine) MarkNotificationRead(ctx context.Context, id string) error {
	return e.store.MarkNotificationRead(ctx, id)
}

// MarkAllNotificationsRead flips every unread notification.
func (e *Engine) MarkAllNotificationsRead(ctx context.Context) error {
	return e.store.MarkAllNotificationsRead(ctx)
}
