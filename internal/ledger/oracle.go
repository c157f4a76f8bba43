package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/gemini"
)

// ReadReceipt extracts a draft-ready description, amount, and category
// from a receipt image. The oracle answers with a category name; an
// unrecognized one drops to the fallback category.
func (e *Engine) ReadReceipt(ctx context.Context, image []byte, mimeType string, asOf core.Date) (*core.ExpenseDraft, error) {
	if e.oracle == nil {
		return nil, fmt.Errorf("receipt scan needs the oracle: %w", gemini.ErrUnavailable)
	}

	h, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load household: %w", err)
	}

	extraction, err := e.oracle.ExtractReceipt(ctx, image, mimeType, h.Categories)
	if err != nil {
		return nil, err
	}

	categoryID := ""
	for _, c := range h.Categories {
		if strings.EqualFold(c.Name, strings.TrimSpace(extraction.CategoryName)) {
			categoryID = c.ID
			break
		}
	}
	if categoryID == "" {
		fallback, _ := h.FallbackCategory()
		categoryID = fallback.ID
	}

	return &core.ExpenseDraft{
		Description: extraction.Description,
		Amount:      extraction.Amount,
		Date:        asOf,
		CategoryID:  categoryID,
	}, nil
}

// MonthlyReport asks the oracle for a narrative markdown summary of one
// month's aggregates.
func (e *Engine) MonthlyReport(ctx context.Context, month, year int) (string, error) {
	if e.oracle == nil {
		return "", fmt.Errorf("report generation needs the oracle: %w", gemini.ErrUnavailable)
	}

	h, err := e.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load household: %w", err)
	}

	agg := core.AggregateMonth(h.Expenses, month, year)
	return e.oracle.GenerateReport(ctx, agg, h)
}

// Chat streams an answer about the household's finances. Each chunk is
// handed to onChunk as it arrives; the full reply is returned at the
// end.
func (e *Engine) Chat(ctx context.Context, history []gemini.ChatMessage, question string, onChunk func(text string)) (string, error) {
	if e.oracle == nil {
		return "", fmt.Errorf("chat needs the oracle: %w", gemini.ErrUnavailable)
	}

	h, err := e.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load household: %w", err)
	}

	return e.oracle.Chat(ctx, h, history, question, onChunk)
}

// SuggestBudgets asks the oracle for budget proposals based on spending
// history. Suggestions pointing at unknown categories are dropped.
func (e *Engine) SuggestBudgets(ctx context.Context) ([]gemini.BudgetSuggestion, error) {
	if e.oracle == nil {
		return nil, fmt.Errorf("budget suggestions need the oracle: %w", gemini.ErrUnavailable)
	}

	h, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load household: %w", err)
	}

	suggestions, err := e.oracle.SuggestBudget(ctx, h.Expenses, h.Budgets, h.Categories)
	if err != nil {
		return nil, err
	}

	kept := suggestions[:0]
	for _, s := range suggestions {
		if _, ok := h.CategoryByID(s.CategoryID); ok {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

// SuggestGoalTransfer asks the oracle how much to move into one goal
// this month, given income and the asOf month's spend.
func (e *Engine) SuggestGoalTransfer(ctx context.Context, goalID string, asOf core.Date) (*gemini.TransferSuggestion, error) {
	if e.oracle == nil {
		return nil, fmt.Errorf("transfer suggestions need the oracle: %w", gemini.ErrUnavailable)
	}

	h, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load household: %w", err)
	}
	goal, ok := h.GoalByID(goalID)
	if !ok {
		return nil, core.ErrUnknownGoal
	}

	monthSpend := core.AggregateMonth(h.Expenses, asOf.Month(), asOf.Year()).Total
	return e.oracle.SuggestTransfer(ctx, goal, h.Settings.MonthlyIncome, monthSpend)
}
