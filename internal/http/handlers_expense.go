package http

import (
	"net/http"
	"sync/atomic"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/log"
)

type expenseResponse struct {
	Expense       core.Expense        `json:"expense"`
	Notifications []core.Notification `json:"notifications"`
}

type goalResponse struct {
	Goal core.BucketGoal `json:"goal"`
}

type transferRequest struct {
	Amount core.Money `json:"amountCents"`
}

// handleCreateExpense validates a draft against the household and
// records it. The response carries the finalized expense plus whatever
// budget or anomaly notifications the write produced; a crossed budget
// shows up as an error-severity notification, never as a failed
// request.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var draft core.ExpenseDraft
	if err := decodeJSON(w, r, &draft, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	draft.Description = sanitizeInput(draft.Description)

	expense, notifications, err := s.engine.RecordExpense(r.Context(), draft, today())
	if err != nil {
		s.respondError(w, r, err, "record expense")
		return
	}

	atomic.AddInt64(&s.metrics.totalExpenses, 1)
	s.invalidateAnalytics()
	s.logger.InfoContext(r.Context(), "Expense recorded",
		log.FieldExpenseID, expense.ID,
		log.FieldAmountCents, expense.Amount.Cents,
		log.FieldCategoryID, expense.CategoryID)

	writeJSON(w, http.StatusCreated, expenseResponse{
		Expense:       *expense,
		Notifications: orEmpty(notifications),
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.engine.DeleteExpense(r.Context(), id); err != nil {
		s.respondError(w, r, err, "delete expense", log.FieldExpenseID, id)
		return
	}

	s.invalidateAnalytics()
	s.logger.InfoContext(r.Context(), "Expense deleted", log.FieldExpenseID, id)
	w.WriteHeader(http.StatusNoContent)
}

// handleGoalTransfer moves money into a bucket goal. Saved only ever
// grows; the engine rejects non-positive amounts.
func (s *Server) handleGoalTransfer(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")
	var req transferRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	goal, err := s.engine.TransferToGoal(r.Context(), goalID, req.Amount)
	if err != nil {
		s.respondError(w, r, err, "goal transfer", log.FieldGoalID, goalID)
		return
	}

	s.logger.InfoContext(r.Context(), "Goal transfer applied",
		log.FieldGoalID, goalID,
		log.FieldAmountCents, req.Amount.Cents)
	writeJSON(w, http.StatusOK, goalResponse{Goal: *goal})
}

// handleAddTripExpense records an expense inside one trip's ledger.
// Trip expenses never touch the household list, so the analytics caches
// stay as they are.
func (s *Server) handleAddTripExpense(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")
	var draft core.ExpenseDraft
	if err := decodeJSON(w, r, &draft, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	draft.Description = sanitizeInput(draft.Description)

	expense, notifications, err := s.engine.AddTripExpense(r.Context(), tripID, draft)
	if err != nil {
		s.respondError(w, r, err, "add trip expense", log.FieldTripID, tripID)
		return
	}

	s.logger.InfoContext(r.Context(), "Trip expense recorded",
		log.FieldTripID, tripID,
		log.FieldExpenseID, expense.ID,
		log.FieldAmountCents, expense.Amount.Cents)

	writeJSON(w, http.StatusCreated, expenseResponse{
		Expense:       *expense,
		Notifications: orEmpty(notifications),
	})
}
