package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/amqp"
	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/sheets"
	"github.com/sakshipatil0812/FinancialyAI/internal/sheets/memory"
	"github.com/sakshipatil0812/FinancialyAI/internal/storage"
)

type fakeStore struct {
	expenses     map[string]core.Expense
	pending      []storage.PendingMirrorExpense
	members      []core.Member
	categories   []core.Category
	mirrored     []string
	mirrorErrors []string
	getErr       error
	listErr      error
	pendingErr   error
}

func (f *fakeStore) GetExpense(_ context.Context, id string) (*core.Expense, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	e, ok := f.expenses[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &e, nil
}

func (f *fakeStore) GetPendingMirrorExpenses(_ context.Context, limit int) ([]storage.PendingMirrorExpense, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeStore) MarkMirrored(_ context.Context, id string) error {
	f.mirrored = append(f.mirrored, id)
	return nil
}

func (f *fakeStore) MarkMirrorError(_ context.Context, id string) error {
	f.mirrorErrors = append(f.mirrorErrors, id)
	return nil
}

func (f *fakeStore) ListMembers(_ context.Context) ([]core.Member, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.members, nil
}

func (f *fakeStore) ListCategories(_ context.Context) ([]core.Category, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.categories, nil
}

type failingWriter struct{}

func (failingWriter) AppendExpense(context.Context, core.Expense, sheets.Names) (string, error) {
	return "", errors.New("sheet unavailable")
}

func testExpense(id string) core.Expense {
	return core.Expense{
		ID:          id,
		Description: "Groceries",
		Amount:      core.Money{Cents: 4500},
		Date:        core.NewDate(2025, 3, 15),
		PayerID:     "m-1",
		CategoryID:  "c-1",
		Splits: []core.Split{
			{MemberID: "m-1", Amount: core.Money{Cents: 2250}},
			{MemberID: "m-2", Amount: core.Money{Cents: 2250}},
		},
	}
}

func newTestStore(expenses ...core.Expense) *fakeStore {
	byID := map[string]core.Expense{}
	for _, e := range expenses {
		byID[e.ID] = e
	}
	return &fakeStore{
		expenses:   byID,
		members:    []core.Member{{ID: "m-1", Name: "Alice"}, {ID: "m-2", Name: "Bob"}},
		categories: []core.Category{{ID: "c-1", Name: "Groceries"}},
	}
}

func TestHandleMirrorMessage_Record(t *testing.T) {
	store := newTestStore(testExpense("e-1"))
	sheet := memory.New()
	w := NewMirrorWorker(store, sheet, sheet, 10)

	msg := amqp.NewMirrorMessage("e-1", amqp.MirrorActionRecord)
	if err := w.HandleMirrorMessage(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := sheet.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected one row per split, got %d", len(rows))
	}
	if rows[0].Member != "Alice" || rows[1].Member != "Bob" {
		t.Errorf("name index not applied: %q, %q", rows[0].Member, rows[1].Member)
	}
	if rows[0].Category != "Groceries" {
		t.Errorf("unexpected category: %q", rows[0].Category)
	}
	if len(store.mirrored) != 1 || store.mirrored[0] != "e-1" {
		t.Errorf("expected e-1 marked mirrored, got %v", store.mirrored)
	}
}

func TestHandleMirrorMessage_RecordMissingExpense(t *testing.T) {
	store := newTestStore()
	sheet := memory.New()
	w := NewMirrorWorker(store, sheet, sheet, 10)

	// The expense was deleted before the mirror ran; the message must
	// not requeue.
	msg := amqp.NewMirrorMessage("gone", amqp.MirrorActionRecord)
	if err := w.HandleMirrorMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected nil for a vanished expense, got %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Errorf("expected no rows, got %d", len(sheet.Rows()))
	}
}

func TestHandleMirrorMessage_RecordStoreFailure(t *testing.T) {
	store := newTestStore()
	store.getErr = errors.New("db locked")
	sheet := memory.New()
	w := NewMirrorWorker(store, sheet, sheet, 10)

	msg := amqp.NewMirrorMessage("e-1", amqp.MirrorActionRecord)
	if err := w.HandleMirrorMessage(context.Background(), msg); err == nil {
		t.Fatal("expected a retryable error for a store failure")
	}
}

func TestHandleMirrorMessage_Delete(t *testing.T) {
	store := newTestStore(testExpense("e-1"))
	sheet := memory.New()
	w := NewMirrorWorker(store, sheet, sheet, 10)

	record := amqp.NewMirrorMessage("e-1", amqp.MirrorActionRecord)
	if err := w.HandleMirrorMessage(context.Background(), record); err != nil {
		t.Fatalf("record: %v", err)
	}

	del := amqp.NewMirrorMessage("e-1", amqp.MirrorActionDelete)
	if err := w.HandleMirrorMessage(context.Background(), del); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Errorf("expected all rows removed, got %d", len(sheet.Rows()))
	}
}

func TestHandleMirrorMessage_DeleteWithoutDeleter(t *testing.T) {
	store := newTestStore()
	sheet := memory.New()
	w := NewMirrorWorker(store, sheet, nil, 10)

	msg := amqp.NewMirrorMessage("e-1", amqp.MirrorActionDelete)
	if err := w.HandleMirrorMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected nil without a deleter, got %v", err)
	}
}

func TestHandleMirrorMessage_UnknownAction(t *testing.T) {
	store := newTestStore(testExpense("e-1"))
	sheet := memory.New()
	w := NewMirrorWorker(store, sheet, sheet, 10)

	msg := amqp.NewMirrorMessage("e-1", "compact")
	if err := w.HandleMirrorMessage(context.Background(), msg); err != nil {
		t.Fatalf("unknown actions must drop, got %v", err)
	}
	if len(sheet.Rows()) != 0 {
		t.Errorf("expected no rows, got %d", len(sheet.Rows()))
	}
}

func TestHandleMirrorMessage_WriterFailureMarksError(t *testing.T) {
	store := newTestStore(testExpense("e-1"))
	w := NewMirrorWorker(store, failingWriter{}, nil, 10)

	msg := amqp.NewMirrorMessage("e-1", amqp.MirrorActionRecord)
	if err := w.HandleMirrorMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error from failing writer")
	}
	if len(store.mirrorErrors) != 1 || store.mirrorErrors[0] != "e-1" {
		t.Errorf("expected e-1 marked with mirror error, got %v", store.mirrorErrors)
	}
	if len(store.mirrored) != 0 {
		t.Errorf("expected nothing marked mirrored, got %v", store.mirrored)
	}
}

func TestProcessPending(t *testing.T) {
	store := newTestStore(testExpense("e-1"), testExpense("e-2"))
	store.pending = []storage.PendingMirrorExpense{
		{ID: "e-1", CreatedAt: time.Now()},
		{ID: "e-2", CreatedAt: time.Now()},
		{ID: "e-missing", CreatedAt: time.Now()},
	}
	sheet := memory.New()
	w := NewMirrorWorker(store, sheet, sheet, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.mirrored) != 2 {
		t.Errorf("expected 2 mirrored, got %v", store.mirrored)
	}
	if len(store.mirrorErrors) != 1 || store.mirrorErrors[0] != "e-missing" {
		t.Errorf("expected e-missing marked with mirror error, got %v", store.mirrorErrors)
	}
	if len(sheet.Rows()) != 4 {
		t.Errorf("expected 4 mirrored rows, got %d", len(sheet.Rows()))
	}
}

func TestProcessPendingRespectsBatchSize(t *testing.T) {
	store := newTestStore(testExpense("e-1"), testExpense("e-2"))
	store.pending = []storage.PendingMirrorExpense{
		{ID: "e-1", CreatedAt: time.Now()},
		{ID: "e-2", CreatedAt: time.Now()},
	}
	sheet := memory.New()
	w := NewMirrorWorker(store, sheet, sheet, 1)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.mirrored) != 1 {
		t.Errorf("expected a single expense per batch, got %v", store.mirrored)
	}
}

func TestStartupCheck(t *testing.T) {
	store := newTestStore(testExpense("e-1"))
	store.pending = []storage.PendingMirrorExpense{{ID: "e-1", CreatedAt: time.Now()}}
	sheet := memory.New()
	w := NewMirrorWorker(store, sheet, sheet, 10)

	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.mirrored) != 1 {
		t.Errorf("expected e-1 mirrored on startup, got %v", store.mirrored)
	}
}

func TestCurrentNamesServesStaleIndexOnFailure(t *testing.T) {
	store := newTestStore(testExpense("e-1"))
	sheet := memory.New()
	w := NewMirrorWorker(store, sheet, sheet, 10)

	names := w.currentNames(context.Background())
	if names.Member("m-1") != "Alice" {
		t.Fatalf("expected fresh index, got %q", names.Member("m-1"))
	}

	// Force an expired index and a failing store; the stale names keep
	// serving.
	store.listErr = errors.New("db gone")
	w.mu.Lock()
	w.namesLoaded = time.Now().Add(-2 * namesMaxAge)
	w.mu.Unlock()

	stale := w.currentNames(context.Background())
	if stale.Member("m-1") != "Alice" {
		t.Errorf("expected stale index to survive a failed refresh, got %q", stale.Member("m-1"))
	}
}
