package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sakshipatil0812/FinancialyAI/internal/amqp"
	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

// ProcessDueSubscriptions materializes one expense for every
// subscription whose due date has arrived, splits it equally across all
// members with the first member paying, runs the budget checks against
// the now month, and advances the due date past now. Missed periods
// collapse into a single charge per run. Each charge leaves an info
// notification so the household sees what was billed automatically.
func (e *Engine) ProcessDueSubscriptions(ctx context.Context, now core.Date) (int, error) {
	h, err := e.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load household: %w", err)
	}
	if len(h.Members) == 0 {
		return 0, errors.New("household has no members")
	}

	slog.InfoContext(ctx, "Processing due subscriptions", "subscriptions", len(h.Subscriptions), "as_of", now.String())

	memberIDs := make([]string, len(h.Members))
	for i, m := range h.Members {
		memberIDs[i] = m.ID
	}
	payer := h.Members[0]

	processed, failed := 0, 0
	for _, sub := range h.Subscriptions {
		if sub.NextDue.Time.After(now.Time) {
			continue
		}

		expense := core.Expense{
			ID:          uuid.NewString(),
			Description: sub.Description,
			Amount:      sub.Amount,
			Date:        sub.NextDue,
			PayerID:     payer.ID,
			CategoryID:  sub.CategoryID,
			Splits:      core.ComputeEqualSplit(sub.Amount.Cents, memberIDs),
		}

		notifications := e.budgetNotifications(h, sub.CategoryID, sub.Amount, now)

		if err := e.store.AppendExpense(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to record subscription expense",
				"error", err, "subscription_id", sub.ID, "description", sub.Description)
			failed++
			continue
		}
		// Keep the in-memory month totals current for the next subscription.
		h.Expenses = append(h.Expenses, expense)

		next := core.NextAfter(sub.NextDue, sub.Frequency)
		for !next.Time.After(now.Time) {
			advanced := core.NextAfter(next, sub.Frequency)
			if !advanced.Time.After(next.Time) {
				break
			}
			next = advanced
		}
		if err := e.store.AdvanceSubscription(ctx, sub.ID, next); err != nil {
			slog.ErrorContext(ctx, "Failed to advance subscription",
				"error", err, "subscription_id", sub.ID)
			failed++
			continue
		}

		notifications = append(notifications, newNotification(
			fmt.Sprintf("Recurring charge recorded: %s (%s)", sub.Description, sub.Amount.DecimalString()),
			core.SeverityInfo,
		))
		e.appendNotifications(ctx, notifications)
		e.publishMirror(ctx, expense.ID, amqp.MirrorActionRecord)
		e.publishAlerts(ctx, h, notifications)
		processed++
	}

	slog.InfoContext(ctx, "Subscription processing complete", "processed", processed, "failed", failed)

	if failed > 0 {
		return processed, fmt.Errorf("%d of %d due subscriptions failed", failed, processed+failed)
	}
	return processed, nil
}
