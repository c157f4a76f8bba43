package http

import (
	"context"
	"net/http"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

// handleGetHousehold returns the full household snapshot.
func (s *Server) handleGetHousehold(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	h, err := s.engine.Snapshot(ctx)
	if err != nil {
		s.respondError(w, r, err, "household snapshot")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// The replace handlers swap a whole collection in one call. An empty or
// null body clears the collection; that is the documented contract, not
// an accident.

func (s *Server) handleReplaceRules(w http.ResponseWriter, r *http.Request) {
	var rules []core.Rule
	if err := decodeJSON(w, r, &rules, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.ReplaceRules(r.Context(), rules); err != nil {
		s.respondError(w, r, err, "replace rules")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceBudgets(w http.ResponseWriter, r *http.Request) {
	var budgets []core.Budget
	if err := decodeJSON(w, r, &budgets, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.ReplaceBudgets(r.Context(), budgets); err != nil {
		s.respondError(w, r, err, "replace budgets")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceGoals(w http.ResponseWriter, r *http.Request) {
	var goals []core.BucketGoal
	if err := decodeJSON(w, r, &goals, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.ReplaceGoals(r.Context(), goals); err != nil {
		s.respondError(w, r, err, "replace goals")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceTrips(w http.ResponseWriter, r *http.Request) {
	var trips []core.Trip
	if err := decodeJSON(w, r, &trips, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.ReplaceTrips(r.Context(), trips); err != nil {
		s.respondError(w, r, err, "replace trips")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceSubscriptions(w http.ResponseWriter, r *http.Request) {
	var subs []core.Subscription
	if err := decodeJSON(w, r, &subs, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.ReplaceSubscriptions(r.Context(), subs); err != nil {
		s.respondError(w, r, err, "replace subscriptions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings core.Settings
	if err := decodeJSON(w, r, &settings, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.UpdateSettings(r.Context(), settings); err != nil {
		s.respondError(w, r, err, "update settings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.engine.MarkNotificationRead(r.Context(), id); err != nil {
		s.respondError(w, r, err, "mark notification read", "notification_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.MarkAllNotificationsRead(r.Context()); err != nil {
		s.respondError(w, r, err, "mark all notifications read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
