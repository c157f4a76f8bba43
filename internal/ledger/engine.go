// Package ledger implements the household ledger engine: expense
// admission, budget threshold notifications, statement imports, goal
// transfers, and the subscription scheduler. The engine owns no I/O of
// its own; persistence, the AI oracle, and the message broker arrive as
// narrow interfaces so callers can swap them out.
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

// Store persists the household ledger. *storage.Repository satisfies it.
type Store interface {
	Load(ctx context.Context) (*core.Household, error)
	AppendExpense(ctx context.Context, e core.Expense) error
	AppendTripExpense(ctx context.Context, tripID string, e core.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	AppendNotifications(ctx context.Context, notifications []core.Notification) error
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	UpdateGoalSaved(ctx context.Context, goalID string, saved core.Money) error
	AdvanceSubscription(ctx context.Context, id string, nextDue core.Date) error
	ReplaceRules(ctx context.Context, rules []core.Rule) error
	ReplaceBudgets(ctx context.Context, budgets []core.Budget) error
	ReplaceGoals(ctx context.Context, goals []core.BucketGoal) error
	ReplaceTrips(ctx context.Context, trips []core.Trip) error
	ReplaceSubscriptions(ctx context.Context, subs []core.Subscription) error
	SaveSettings(ctx context.Context, s core.Settings) error
}

// Oracle supplies AI-derived judgements as plain data. *gemini.Client
// satisfies it. Every call may fail; the engine degrades instead of
// letting oracle trouble reach the ledger write path.
type Oracle interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string, categories []core.Category) (*gemini.ReceiptExtraction, error)
	ParseStatement(ctx context.Context, file []byte, mimeType string) ([]gemini.StatementRow, error)
	CategorizeBatch(ctx context.Context, descriptions []string, categories []core.Category) ([]string, error)
	DetectAnomaly(ctx context.Context, draft core.ExpenseDraft, recent []core.Expense, categories []core.Category) (*gemini.AnomalyVerdict, error)
	DetectRecurring(ctx context.Context, expenses []core.Expense, subscriptions []core.Subscription, categories []core.Category) ([]gemini.RecurringCandidate, error)
	SuggestBudget(ctx context.Context, expenses []core.Expense, budgets []core.Budget, categories []core.Category) ([]gemini.BudgetSuggestion, error)
	SuggestTransfer(ctx context.Context, goal core.BucketGoal, income, monthSpend core.Money) (*gemini.TransferSuggestion, error)
	GenerateReport(ctx context.Context, agg core.MonthAggregate, h *core.Household) (string, error)
	Chat(ctx context.Context, h *core.Household, history []gemini.ChatMessage, question string, onChunk func(text string)) (string, error)
}

// Publisher hands events to the message broker. *amqp.Client satisfies
// it. A nil Publisher is tolerated: the mirror worker sweeps pending
// rows from the store, so dropped publishes are delays, not losses.
type Publisher interface {
	PublishMirror(ctx context.Context, expenseID, action string) error
	PublishAlert(ctx context.Context, n core.Notification) error
}

type Engine struct {
	store     Store
	oracle    Oracle
	publisher Publisher
}

// NewEngine wires the engine to its collaborators. oracle and publisher
// may be nil; every dependent feature then degrades per its contract.
func NewEngine(store Store, oracle Oracle, publisher Publisher) *Engine {
	return &Engine{
		store:     store,
		oracle:    oracle,
		publisher: publisher,
	}
}

// RecordExpense validates a draft and admits it into the household
// ledger. Budget threshold notifications are computed against the asOf
// month (the creation month, not the expense date), then the oracle
// anomaly check runs; its failure never blocks the write. Returns the
// finalized expense and the notifications that were appended, budget
// notification first.
func (e *Engine) RecordExpense(ctx context.Context, draft core.ExpenseDraft, asOf core.Date) (*core.Expense, []core.Notification, error) {
	h, err := e.store.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load household: %w", err)
	}

	draft.Splits = core.DropZeroSplits(draft.Splits)
	if err := draft.Validate(h); err != nil {
		return nil, nil, err
	}

	expense := core.Expense{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(draft.Description),
		Amount:      draft.Amount,
		Date:        draft.Date,
		PayerID:     draft.PayerID,
		CategoryID:  draft.CategoryID,
		Splits:      draft.Splits,
	}

	notifications := e.budgetNotifications(h, draft.CategoryID, draft.Amount, asOf)
	if anomaly := e.checkAnomaly(ctx, h, draft); anomaly != nil {
		notifications = append(notifications, *anomaly)
	}

	// Save to SQLite first (fast, reliable); everything after this point
	// must not fail the request.
	if err := e.store.AppendExpense(ctx, expense); err != nil {
		return nil, nil, fmt.Errorf("append expense: %w", err)
	}

	e.appendNotifications(ctx, notifications)
	e.publishMirror(ctx, expense.ID, amqp.MirrorActionRecord)
	e.publishAlerts(ctx, h, notifications)

	return &expense, notifications, nil
}

// DeleteExpense removes an expense and its splits, then asks the mirror
// worker to drop the row from the spreadsheet.
func (e *Engine) DeleteExpense(ctx context.Context, id string) error {
	if err := e.store.DeleteExpense(ctx, id); err != nil {
		return err
	}
	e.publishMirror(ctx, id, amqp.MirrorActionDelete)
	return nil
}

// Snapshot returns the full household state.
func (e *Engine) Snapshot(ctx context.Context) (*core.Household, error) {
	return e.store.Load(ctx)
}

// MonthlyAggregate summarizes one calendar month of household spending.
func (e *Engine) MonthlyAggregate(ctx context.Context, month, year int) (core.MonthAggregate, error) {
	h, err := e.store.Load(ctx)
	if err != nil {
		return core.MonthAggregate{}, fmt.Errorf("load household: %w", err)
	}
	return core.AggregateMonth(h.Expenses, month, year), nil
}

// Trend returns cumulative daily spend for today's month next to the
// month before it.
func (e *Engine) Trend(ctx context.Context, today core.Date) (core.TrendSeries, error) {
	h, err := e.store.Load(ctx)
	if err != nil {
		return core.TrendSeries{}, fmt.Errorf("load household: %w", err)
	}
	return core.BuildTrendSeries(h.Expenses, today), nil
}

// ExportCSV renders the household expense list as one CSV row per
// positive split.
func (e *Engine) ExportCSV(ctx context.Context) (string, error) {
	h, err := e.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load household: %w", err)
	}
	return core.ExportCSV(h.Expenses, h.Members, h.Categories), nil
}

// checkAnomaly asks the oracle whether the draft looks out of line with
// recent spending. Failures are logged and swallowed: anomaly detection
// never blocks admission.
func (e *Engine) checkAnomaly(ctx context.Context, h *core.Household, draft core.ExpenseDraft) *core.Notification {
	if e.oracle == nil {
		return nil
	}

	verdict, err := e.oracle.DetectAnomaly(ctx, draft, h.Expenses, h.Categories)
	if err != nil {
		slog.WarnContext(ctx, "Anomaly check skipped", "error", err, "description", draft.Description)
		return nil
	}
	if verdict == nil || !verdict.IsAnomalous {
		return nil
	}

	n := newNotification(
		fmt.Sprintf("Unusual expense %q: %s", strings.TrimSpace(draft.Description), verdict.Reasoning),
		core.SeverityWarning,
	)
	return &n
}

func (e *Engine) appendNotifications(ctx context.Context, notifications []core.Notification) {
	if len(notifications) == 0 {
		return
	}
	if err := e.store.AppendNotifications(ctx, notifications); err != nil {
		// Don't fail the request - the expense is already saved.
		slog.ErrorContext(ctx, "Failed to append notifications", "error", err, "count", len(notifications))
	}
}

func (e *Engine) publishMirror(ctx context.Context, expenseID, action string) {
	if e.publisher == nil {
		slog.WarnContext(ctx, "Publisher not available, skipping mirror publish", "expense_id", expenseID)
		return
	}
	if err := e.publisher.PublishMirror(ctx, expenseID, action); err != nil {
		// Don't fail the request - the mirror worker sweeps pending rows.
		slog.ErrorContext(ctx, "Failed to publish mirror message", "error", err, "expense_id", expenseID, "action", action)
	}
}

// publishAlerts forwards warning and error notifications to the alert
// queue. The household's email-alerts toggle switches the whole channel;
// info and success notifications never leave the store.
func (e *Engine) publishAlerts(ctx context.Context, h *core.Household, notifications []core.Notification) {
	if e.publisher == nil || !h.Settings.EmailAlerts {
		return
	}
	for _, n := range notifications {
		if n.Severity != core.SeverityWarning && n.Severity != core.SeverityError {
			continue
		}
		if err := e.publisher.PublishAlert(ctx, n); err != nil {
			slog.ErrorContext(ctx, "Failed to publish alert message", "error", err, "notification_id", n.ID)
		}
	}
}
