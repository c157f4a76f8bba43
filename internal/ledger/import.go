package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sakshipatil0812/FinancialyAI/internal/amqp"
	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/gemini"
)

// ImportStatement turns a bank statement into imported expenses. Only
// debit rows are admitted; keyword rules categorize first, one oracle
// batch covers the rest, and anything unresolved lands in the fallback
// category. Historical rows get no anomaly or budget checks, just an
// info notification summarizing the import.
func (e *Engine) ImportStatement(ctx context.Context, file []byte, mimeType, payerID string) ([]core.Expense, error) {
	if e.oracle == nil {
		return nil, fmt.Errorf("statement import needs the oracle: %w", gemini.ErrUnavailable)
	}

	h, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load household: %w", err)
	}
	if _, ok := h.MemberByID(payerID); !ok {
		return nil, core.ErrUnknownPayer
	}

	rows, err := e.oracle.ParseStatement(ctx, file, mimeType)
	if err != nil {
		return nil, fmt.Errorf("parse statement: %w", err)
	}

	var debits []gemini.StatementRow
	for _, row := range rows {
		if row.Type == gemini.RowDebit {
			debits = append(debits, row)
		}
	}
	if len(debits) == 0 {
		slog.InfoContext(ctx, "Statement import found no debit rows", "rows", len(rows))
		return []core.Expense{}, nil
	}

	categoryIDs := e.categorize(ctx, h, debits)

	expenses := make([]core.Expense, 0, len(debits))
	for i, row := range debits {
		expense := core.Expense{
			ID:          uuid.NewString(),
			Description: row.Description,
			Amount:      row.Amount,
			Date:        row.Date,
			PayerID:     payerID,
			CategoryID:  categoryIDs[i],
			Splits:      []core.Split{{MemberID: payerID, Amount: row.Amount}},
		}
		if err := e.store.AppendExpense(ctx, expense); err != nil {
			return nil, fmt.Errorf("append imported expense %d of %d: %w", i+1, len(debits), err)
		}
		e.publishMirror(ctx, expense.ID, amqp.MirrorActionRecord)
		expenses = append(expenses, expense)
	}

	e.appendNotifications(ctx, []core.Notification{newNotification(
		fmt.Sprintf("Imported %d expenses from your statement", len(expenses)),
		core.SeverityInfo,
	)})

	slog.InfoContext(ctx, "Statement imported", "rows", len(rows), "imported", len(expenses))
	return expenses, nil
}

// categorize resolves one category id per row: keyword rules first, then
// a single oracle batch for the leftovers. Oracle failure or an invented
// id falls back to the default category, never to an error.
func (e *Engine) categorize(ctx context.Context, h *core.Household, rows []gemini.StatementRow) []string {
	fallback, _ := h.FallbackCategory()

	ids := make([]string, len(rows))
	var pending []int
	for i, row := range rows {
		if id, ok := core.SuggestCategory(row.Description, h.Rules, h.Categories); ok {
			ids[i] = id
			continue
		}
		ids[i] = fallback.ID
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return ids
	}

	descriptions := make([]string, len(pending))
	for j, i := range pending {
		descriptions[j] = rows[i].Description
	}
	suggested, err := e.oracle.CategorizeBatch(ctx, descriptions, h.Categories)
	if err != nil {
		slog.WarnContext(ctx, "Batch categorization failed, keeping fallback category", "error", err, "rows", len(pending))
		return ids
	}
	for j, i := range pending {
		if _, ok := h.CategoryByID(suggested[j]); ok {
			ids[i] = suggested[j]
		}
	}
	return ids
}

// ScanRecurring asks the oracle for repeating charges in the expense
// history and merges fresh finds into the subscription list. Existing
// descriptions are left alone; unknown category ids drop to the
// fallback; next due dates land on or after asOf so a stale last
// payment never triggers retroactive billing.
func (e *Engine) ScanRecurring(ctx context.Context, asOf core.Date) ([]core.Subscription, error) {
	if e.oracle == nil {
		return nil, fmt.Errorf("recurring scan needs the oracle: %w", gemini.ErrUnavailable)
	}

	h, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load household: %w", err)
	}

	candidates, err := e.oracle.DetectRecurring(ctx, h.Expenses, h.Subscriptions, h.Categories)
	if err != nil {
		return nil, fmt.Errorf("detect recurring: %w", err)
	}

	fallback, _ := h.FallbackCategory()
	subs := append([]core.Subscription{}, h.Subscriptions...)
	added := 0
	for _, cand := range candidates {
		if hasSubscription(subs, cand.Description) {
			continue
		}
		categoryID := cand.CategoryID
		if _, ok := h.CategoryByID(categoryID); !ok {
			categoryID = fallback.ID
		}
		subs = append(subs, core.Subscription{
			ID:          uuid.NewString(),
			Description: strings.TrimSpace(cand.Description),
			Amount:      cand.Amount,
			Frequency:   cand.Frequency,
			NextDue:     nextDueOnOrAfter(cand.LastPaymentDate, cand.Frequency, asOf),
			CategoryID:  categoryID,
		})
		added++
	}

	if added == 0 {
		slog.InfoContext(ctx, "Recurring scan found nothing new", "candidates", len(candidates))
		return subs, nil
	}
	if err := e.store.ReplaceSubscriptions(ctx, subs); err != nil {
		return nil, fmt.Errorf("replace subscriptions: %w", err)
	}

	slog.InfoContext(ctx, "Recurring scan complete", "candidates", len(candidates), "added", added)
	return subs, nil
}

func hasSubscription(subs []core.Subscription, description string) bool {
	needle := strings.TrimSpace(description)
	for _, s := range subs {
		if strings.EqualFold(strings.TrimSpace(s.Description), needle) {
			return true
		}
	}
	return false
}

// nextDueOnOrAfter advances one period past the last payment, then keeps
// stepping until the result is not before asOf.
func nextDueOnOrAfter(lastPayment core.Date, f core.Frequency, asOf core.Date) core.Date {
	next := core.NextAfter(lastPayment, f)
	for next.Time.Before(asOf.Time) {
		advanced := core.NextAfter(next, f)
		if !advanced.Time.After(next.Time) {
			break
		}
		next = advanced
	}
	return next
}
