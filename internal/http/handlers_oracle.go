package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/gemini"
	"github.com/sakshipatil0812/FinancialyAI/internal/log"
)

// The oracle endpoints surface Gemini-backed judgements. They degrade
// instead of guessing: when the oracle is down the response is a 502
// with the reason, and no state has changed (the statement import is
// the one write, and it only persists rows the oracle already parsed).

type receiptRequest struct {
	Image    string `json:"image"` // base64
	MimeType string `json:"mimeType"`
}

type receiptResponse struct {
	Draft core.ExpenseDraft `json:"draft"`
}

type statementRequest struct {
	Content  string `json:"content"` // base64
	MimeType string `json:"mimeType"`
	PayerID  string `json:"payerId"`
}

type statementResponse struct {
	Expenses []core.Expense `json:"expenses"`
	Imported int            `json:"imported"`
}

type subscriptionsResponse struct {
	Subscriptions []core.Subscription `json:"subscriptions"`
}

type budgetSuggestion struct {
	CategoryID string     `json:"categoryId"`
	Amount     core.Money `json:"amountCents"`
	Reasoning  string     `json:"reasoning"`
}

type budgetSuggestResponse struct {
	Suggestions []budgetSuggestion `json:"suggestions"`
}

type goalTransferSuggestRequest struct {
	GoalID string `json:"goalId"`
}

type transferSuggestResponse struct {
	Amount    core.Money `json:"amountCents"`
	Reasoning string     `json:"reasoning"`
}

type reportRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type reportResponse struct {
	Report string `json:"report"`
}

type chatRequest struct {
	History  []gemini.ChatMessage `json:"history"`
	Question string               `json:"question"`
}

type chatChunk struct {
	Text string `json:"text"`
}

// handleOracleReceipt turns a receipt image into a draft the client can
// review before posting it as an expense.
func (s *Server) handleOracleReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := decodeJSON(w, r, &req, maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image is not valid base64")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, "image is empty")
		return
	}

	draft, err := s.engine.ReadReceipt(r.Context(), image, req.MimeType, today())
	if err != nil {
		s.respondError(w, r, err, "read receipt")
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{Draft: *draft})
}

// handleOracleStatement parses a bank statement and records its debit
// rows as imported expenses paid by the given member.
func (s *Server) handleOracleStatement(w http.ResponseWriter, r *http.Request) {
	var req statementRequest
	if err := decodeJSON(w, r, &req, maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "content is not valid base64")
		return
	}
	if len(file) == 0 {
		writeError(w, http.StatusBadRequest, "content is empty")
		return
	}

	expenses, err := s.engine.ImportStatement(r.Context(), file, req.MimeType, req.PayerID)
	if err != nil {
		s.respondError(w, r, err, "import statement", log.FieldPayerID, req.PayerID)
		return
	}

	s.invalidateAnalytics()
	s.logger.InfoContext(r.Context(), "Statement imported",
		log.FieldPayerID, req.PayerID,
		"imported", len(expenses))

	writeJSON(w, http.StatusOK, statementResponse{
		Expenses: orEmpty(expenses),
		Imported: len(expenses),
	})
}

// handleOracleRecurringScan proposes subscriptions for expense patterns
// that repeat. Proposals are returned, not saved; the client confirms
// them through PUT /api/subscriptions.
func (s *Server) handleOracleRecurringScan(w http.ResponseWriter, r *http.Request) {
	subs, err := s.engine.ScanRecurring(r.Context(), today())
	if err != nil {
		s.respondError(w, r, err, "scan recurring")
		return
	}
	writeJSON(w, http.StatusOK, subscriptionsResponse{Subscriptions: orEmpty(subs)})
}

func (s *Server) handleOracleBudgetSuggest(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.engine.SuggestBudgets(r.Context())
	if err != nil {
		s.respondError(w, r, err, "suggest budgets")
		return
	}

	out := make([]budgetSuggestion, 0, len(suggestions))
	for _, sg := range suggestions {
		out = append(out, budgetSuggestion{
			CategoryID: sg.CategoryID,
			Amount:     sg.Amount,
			Reasoning:  sg.Reasoning,
		})
	}
	writeJSON(w, http.StatusOK, budgetSuggestResponse{Suggestions: out})
}

func (s *Server) handleOracleGoalTransferSuggest(w http.ResponseWriter, r *http.Request) {
	var req goalTransferSuggestRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	suggestion, err := s.engine.SuggestGoalTransfer(r.Context(), req.GoalID, today())
	if err != nil {
		s.respondError(w, r, err, "suggest goal transfer", log.FieldGoalID, req.GoalID)
		return
	}
	writeJSON(w, http.StatusOK, transferSuggestResponse{
		Amount:    suggestion.Amount,
		Reasoning: suggestion.Reasoning,
	})
}

// handleOracleReport returns a narrative markdown summary for one
// month. An empty body means the current month.
func (s *Server) handleOracleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now()
	if req.Year == 0 {
		req.Year = now.Year()
	}
	if req.Month == 0 {
		req.Month = int(now.Month())
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("month %d out of range", req.Month))
		return
	}

	report, err := s.engine.MonthlyReport(r.Context(), req.Month, req.Year)
	if err != nil {
		s.respondError(w, r, err, "monthly report",
			log.FieldYear, req.Year, log.FieldMonth, req.Month)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Report: report})
}

// handleOracleChat streams the oracle's answer as server-sent events:
// chunk events carry text deltas, then a single done or error event
// closes the stream. The stream commits to a 200 before the first
// oracle byte, so late failures arrive as error events, not statuses.
func (s *Server) handleOracleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusUnprocessableEntity, "question is empty")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	_, err := s.engine.Chat(r.Context(), req.History, req.Question, func(text string) {
		writeSSE(w, "chunk", chatChunk{Text: text})
		flusher.Flush()
	})
	if err != nil {
		s.logger.WarnContext(r.Context(), "Chat stream failed", log.FieldError, err)
		writeSSE(w, "error", errorResponse{Error: err.Error()})
		flusher.Flush()
		return
	}

	writeSSE(w, "done", struct{}{})
	flusher.Flush()
}

// writeSSE emits one named server-sent event with a JSON payload.
func writeSSE(w io.Writer, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
