// Package memory is an in-memory stand-in for the spreadsheet mirror,
// used in tests and when Google credentials are absent.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/sheets"
)

// Row is one mirrored split row, mirroring the spreadsheet columns.
type Row struct {
	Date        string
	Description string
	Category    string
	Payer       string
	Member      string
	Share       core.Money
	Total       core.Money
	ExpenseID   string
}

type Store struct {
	mu     sync.Mutex
	rows   []Row
	alerts []core.Notification
}

var (
	_ sheets.MirrorWriter  = (*Store)(nil)
	_ sheets.MirrorDeleter = (*Store)(nil)
	_ sheets.AlertWriter   = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// AppendExpense stores one row per split and returns a synthetic row reference.
func (s *Store) AppendExpense(_ context.Context, e core.Expense, names sheets.Names) (string, error) {
	if strings.TrimSpace(e.ID) == "" {
		return "", errors.New("expense has no id")
	}
	if len(e.Splits) == 0 {
		return "", errors.New("expense has no splits")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.rows) + 1
	for _, sp := range e.Splits {
		s.rows = append(s.rows, Row{
			Date:        e.Date.String(),
			Description: e.Description,
			Category:    names.Category(e.CategoryID),
			Payer:       names.Member(e.PayerID),
			Member:      names.Member(sp.MemberID),
			Share:       sp.Amount,
			Total:       e.Amount,
			ExpenseID:   e.ID,
		})
	}
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

// DeleteExpenseRows removes every row carrying the expense id.
func (s *Store) DeleteExpenseRows(_ context.Context, expenseID string) (int, error) {
	if strings.TrimSpace(expenseID) == "" {
		return 0, errors.New("empty expense id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	removed := 0
	for _, r := range s.rows {
		if r.ExpenseID == expenseID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return removed, nil
}

// AppendAlert stores the notification and returns a synthetic row reference.
func (s *Store) AppendAlert(_ context.Context, n core.Notification) (string, error) {
	if strings.TrimSpace(n.ID) == "" {
		return "", errors.New("notification has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, n)
	return fmt.Sprintf("mem:alert:%d", len(s.alerts)), nil
}

// Rows returns a copy of the mirrored rows.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}

// Alerts returns a copy of the stored alerts.
func (s *Store) Alerts() []core.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Notification(nil), s.alerts...)
}
