// Package worker holds the background consumers: the mirror worker
// keeps the spreadsheet backup in step with the ledger, the alert
// worker forwards raised notifications to the alerts sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/amqp"
	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/sheets"
	"github.com/sakshipatil0812/FinancialyAI/internal/storage"
)

// namesMaxAge bounds how stale the member and category index may get.
// Names change rarely; an hourly refresh is plenty for a backup sheet.
const namesMaxAge = time.Hour

// Store is what the mirror worker needs from persistence.
type Store interface {
	GetExpense(ctx context.Context, id string) (*core.Expense, error)
	GetPendingMirrorExpenses(ctx context.Context, limit int) ([]storage.PendingMirrorExpense, error)
	MarkMirrored(ctx context.Context, id string) error
	MarkMirrorError(ctx context.Context, id string) error
	ListMembers(ctx context.Context) ([]core.Member, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

var _ Store = (*storage.Repository)(nil)

// MirrorWorker copies ledger expenses into the spreadsheet backup. It
// consumes mirror events and sweeps rows the events missed.
type MirrorWorker struct {
	store     Store
	writer    sheets.MirrorWriter
	deleter   sheets.MirrorDeleter
	batchSize int

	mu          sync.Mutex
	names       sheets.Names
	namesLoaded time.Time
}

func NewMirrorWorker(store Store, writer sheets.MirrorWriter, deleter sheets.MirrorDeleter, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		store:     store,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleMirrorMessage processes a single mirror event from AMQP.
// Returning an error requeues the message, so only retryable failures
// propagate; everything else is logged and dropped.
func (w *MirrorWorker) HandleMirrorMessage(ctx context.Context, msg *amqp.MirrorMessage) error {
	slog.InfoContext(ctx, "Processing mirror message",
		"expense_id", msg.ExpenseID,
		"action", msg.Action)

	switch msg.Action {
	case amqp.MirrorActionRecord:
		return w.mirrorExpense(ctx, msg.ExpenseID)
	case amqp.MirrorActionDelete:
		return w.removeExpense(ctx, msg.ExpenseID)
	default:
		slog.WarnContext(ctx, "Unknown mirror action, dropping message",
			"action", msg.Action,
			"expense_id", msg.ExpenseID)
		return nil
	}
}

func (w *MirrorWorker) mirrorExpense(ctx context.Context, id string) error {
	expense, err := w.store.GetExpense(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted before the mirror ran; the delete event cleans up.
		slog.WarnContext(ctx, "Expense vanished before mirroring", "expense_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	return w.writeRows(ctx, *expense)
}

func (w *MirrorWorker) removeExpense(ctx context.Context, id string) error {
	if w.deleter == nil {
		slog.WarnContext(ctx, "No mirror deleter configured, skipping sheet deletion",
			"expense_id", id)
		return nil
	}

	removed, err := w.deleter.DeleteExpenseRows(ctx, id)
	if err != nil {
		return fmt.Errorf("delete mirrored rows: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored rows removed",
		"expense_id", id,
		"rows", removed)
	return nil
}

// ProcessPending mirrors expenses whose mirror event never arrived.
// This is a backup mechanism in case AMQP messages are lost.
func (w *MirrorWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.GetPendingMirrorExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending mirror expenses", "count", len(pending))

	for _, p := range pending {
		expense, err := w.store.GetExpense(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get expense", "expense_id", p.ID, "error", err)
			if err := w.store.MarkMirrorError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark mirror error", "expense_id", p.ID, "error", err)
			}
			continue
		}
		if err := w.writeRows(ctx, *expense); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror expense", "expense_id", p.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupCheck mirrors whatever accumulated while the worker was down.
func (w *MirrorWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingMirrorExpenses(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending mirror expenses found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending mirror expenses on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, p := range pending {
		expense, err := w.store.GetExpense(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get expense for startup mirror",
				"expense_id", p.ID, "error", err)
			if err := w.store.MarkMirrorError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark mirror error", "expense_id", p.ID, "error", err)
			}
			errorCount++
			continue
		}
		if err := w.writeRows(ctx, *expense); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror expense during startup",
				"expense_id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup mirror completed",
		"total", len(pending),
		"mirrored", successCount,
		"errors", errorCount)
	return nil
}

func (w *MirrorWorker) writeRows(ctx context.Context, e core.Expense) error {
	names := w.currentNames(ctx)

	ref, err := w.writer.AppendExpense(ctx, e, names)
	if err != nil {
		if markErr := w.store.MarkMirrorError(ctx, e.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark mirror error", "expense_id", e.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.store.MarkMirrored(ctx, e.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as mirrored", "expense_id", e.ID, "error", err)
		// Don't return error here - the mirror actually worked
	}

	slog.InfoContext(ctx, "Expense mirrored",
		"expense_id", e.ID,
		"sheets_ref", ref,
		"rows", len(e.Splits))
	return nil
}

// currentNames returns the member and category index, refreshing it
// when empty or older than namesMaxAge. A failed refresh keeps serving
// the stale index; raw ids still identify the rows.
func (w *MirrorWorker) currentNames(ctx context.Context) sheets.Names {
	w.mu.Lock()
	names := w.names
	age := time.Since(w.namesLoaded)
	w.mu.Unlock()

	if names.Members != nil && age < namesMaxAge {
		return names
	}

	fresh, err := w.loadNames(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to refresh name index", "error", err)
		return names
	}

	w.mu.Lock()
	w.names = fresh
	w.namesLoaded = time.Now()
	w.mu.Unlock()

	slog.InfoContext(ctx, "Name index refreshed",
		"members", len(fresh.Members),
		"categories", len(fresh.Categories))
	return fresh
}

func (w *MirrorWorker) loadNames(ctx context.Context) (sheets.Names, error) {
	members, err := w.store.ListMembers(ctx)
	if err != nil {
		return sheets.Names{}, fmt.Errorf("list members: %w", err)
	}
	categories, err := w.store.ListCategories(ctx)
	if err != nil {
		return sheets.Names{}, fmt.Errorf("list categories: %w", err)
	}

	names := sheets.Names{
		Members:    make(map[string]string, len(members)),
		Categories: make(map[string]string, len(categories)),
	}
	for _, m := range members {
		names.Members[m.ID] = m.Name
	}
	for _, c := range categories {
		names.Categories[c.ID] = c.Name
	}
	return names, nil
}
