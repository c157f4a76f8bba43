package http

import (
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/gemini"
)

func TestOracleReceipt(t *testing.T) {
	oracle := &fakeOracle{
		extractReceipt: func() (*gemini.ReceiptExtraction, error) {
			return &gemini.ReceiptExtraction{
				Description:  "Espresso",
				Amount:       core.Money{Cents: 250},
				CategoryName: "groceries",
			}, nil
		},
	}
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, oracle)

	req := receiptRequest{
		Image:    base64.StdEncoding.EncodeToString([]byte("receipt-bytes")),
		MimeType: "image/jpeg",
	}
	rec := doJSON(t, s, http.MethodPost, "/api/oracle/receipt", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeBody[receiptResponse](t, rec)
	if resp.Draft.Description != "Espresso" || resp.Draft.Amount.Cents != 250 {
		t.Errorf("draft = %+v", resp.Draft)
	}
	// "groceries" matches the Groceries category case-insensitively.
	if resp.Draft.CategoryID != "c-groceries" {
		t.Errorf("categoryId = %q, want c-groceries", resp.Draft.CategoryID)
	}
}

func TestOracleReceiptUnavailable(t *testing.T) {
	req := receiptRequest{
		Image:    base64.StdEncoding.EncodeToString([]byte("receipt-bytes")),
		MimeType: "image/jpeg",
	}

	// No oracle configured at all.
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, nil)
	rec := doJSON(t, s, http.MethodPost, "/api/oracle/receipt", req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("nil oracle status = %d, want 502", rec.Code)
	}
	body := decodeBody[errorResponse](t, rec)
	if !strings.Contains(body.Error, "oracle unavailable") {
		t.Errorf("error = %q", body.Error)
	}

	// Oracle configured but unreachable.
	s = newTestServer(t, &fakeStore{h: seedHousehold()}, &fakeOracle{})
	rec = doJSON(t, s, http.MethodPost, "/api/oracle/receipt", req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("failing oracle status = %d, want 502", rec.Code)
	}
}

func TestOracleReceiptBadImage(t *testing.T) {
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, &fakeOracle{})

	rec := doJSON(t, s, http.MethodPost, "/api/oracle/receipt",
		receiptRequest{Image: "!!!not-base64!!!", MimeType: "image/jpeg"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad base64 status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/oracle/receipt",
		receiptRequest{Image: "", MimeType: "image/jpeg"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty image status = %d, want 400", rec.Code)
	}
}

func TestOracleStatement(t *testing.T) {
	var gotDescriptions []string
	oracle := &fakeOracle{
		parseStatement: func() ([]gemini.StatementRow, error) {
			return []gemini.StatementRow{
				{Date: core.NewDate(2025, 2, 10), Description: "POS CARREFOUR", Amount: core.Money{Cents: 5400}, Type: gemini.RowDebit},
				{Date: core.NewDate(2025, 2, 12), Description: "NETFLIX.COM", Amount: core.Money{Cents: 1299}, Type: gemini.RowDebit},
				{Date: core.NewDate(2025, 2, 27), Description: "SALARY", Amount: core.Money{Cents: 250000}, Type: gemini.RowCredit},
			}, nil
		},
		categorizeBatch: func(descriptions []string) ([]string, error) {
			gotDescriptions = descriptions
			return []string{"c-groceries", "c-other"}, nil
		},
	}
	store := &fakeStore{h: seedHousehold()}
	s := newTestServer(t, store, oracle)

	req := statementRequest{
		Content:  base64.StdEncoding.EncodeToString([]byte("statement-bytes")),
		MimeType: "application/pdf",
		PayerID:  "m-alice",
	}
	rec := doJSON(t, s, http.MethodPost, "/api/oracle/statement", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeBody[statementResponse](t, rec)
	if resp.Imported != 2 {
		t.Errorf("imported = %d, want 2 (credit rows skipped)", resp.Imported)
	}
	if len(gotDescriptions) != 2 {
		t.Errorf("categorize batch saw %v, want the two debit descriptions", gotDescriptions)
	}
	if resp.Expenses[0].CategoryID != "c-groceries" {
		t.Errorf("first category = %q", resp.Expenses[0].CategoryID)
	}
	if got := resp.Expenses[0].Splits; len(got) != 1 || got[0].MemberID != "m-alice" || got[0].Amount.Cents != 5400 {
		t.Errorf("splits = %+v, want one full-amount payer split", got)
	}

	h := store.household()
	if got := len(h.Expenses); got != 4 {
		t.Errorf("stored expenses = %d, want 4", got)
	}
	var summarized bool
	for _, n := range h.Notifications {
		if strings.Contains(n.Message, "Imported 2 expenses from your statement") {
			summarized = true
		}
	}
	if !summarized {
		t.Error("import summary notification not appended")
	}
}

func TestOracleStatementUnknownPayer(t *testing.T) {
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, &fakeOracle{})

	req := statementRequest{
		Content:  base64.StdEncoding.EncodeToString([]byte("statement-bytes")),
		MimeType: "application/pdf",
		PayerID:  "m-nope",
	}
	rec := doJSON(t, s, http.MethodPost, "/api/oracle/statement", req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestOracleRecurringScan(t *testing.T) {
	oracle := &fakeOracle{
		detectRecurring: func() ([]gemini.RecurringCandidate, error) {
			return []gemini.RecurringCandidate{
				{
					Description:     "Netflix",
					Amount:          core.Money{Cents: 1299},
					Frequency:       core.Monthly,
					CategoryID:      "c-other",
					LastPaymentDate: core.NewDate(2025, 1, 15),
				},
				{
					Description:     "Spotify",
					Amount:          core.Money{Cents: 999},
					Frequency:       core.Monthly,
					CategoryID:      "c-other",
					LastPaymentDate: core.NewDate(2025, 1, 3),
				},
			}, nil
		},
	}
	h := seedHousehold()
	h.Subscriptions = []core.Subscription{
		{ID: "s-1", Description: "Spotify", Amount: core.Money{Cents: 999}, Frequency: core.Monthly, NextDue: core.NewDate(2025, 4, 3), CategoryID: "c-other"},
	}
	store := &fakeStore{h: h}
	s := newTestServer(t, store, oracle)

	rec := doJSON(t, s, http.MethodPost, "/api/oracle/recurring/scan", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeBody[subscriptionsResponse](t, rec)
	if len(resp.Subscriptions) != 2 {
		t.Fatalf("subscriptions = %d, want existing Spotify plus new Netflix", len(resp.Subscriptions))
	}
	netflix := resp.Subscriptions[1]
	if netflix.Description != "Netflix" {
		t.Errorf("description = %q", netflix.Description)
	}
	if netflix.NextDue.Time.Before(today().Time) {
		t.Errorf("nextDue = %s, want on or after today", netflix.NextDue)
	}
	if got := len(store.household().Subscriptions); got != 2 {
		t.Errorf("stored subscriptions = %d, want 2", got)
	}
}

func TestOracleBudgetSuggest(t *testing.T) {
	oracle := &fakeOracle{
		suggestBudget: func() ([]gemini.BudgetSuggestion, error) {
			return []gemini.BudgetSuggestion{
				{CategoryID: "c-groceries", Amount: core.Money{Cents: 42000}, Reasoning: "slightly above current spend"},
				{CategoryID: "c-ghost", Amount: core.Money{Cents: 100}, Reasoning: "invented category"},
			}, nil
		},
	}
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, oracle)

	rec := doJSON(t, s, http.MethodPost, "/api/oracle/budget/suggest", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeBody[budgetSuggestResponse](t, rec)
	if len(resp.Suggestions) != 1 {
		t.Fatalf("suggestions = %d, want the unknown category dropped", len(resp.Suggestions))
	}
	if resp.Suggestions[0].CategoryID != "c-groceries" || resp.Suggestions[0].Amount.Cents != 42000 {
		t.Errorf("suggestion = %+v", resp.Suggestions[0])
	}
	if !strings.Contains(rec.Body.String(), `"categoryId"`) {
		t.Errorf("body %q does not use camelCase keys", rec.Body.String())
	}
}

func TestOracleGoalTransferSuggest(t *testing.T) {
	oracle := &fakeOracle{
		suggestTransfer: func() (*gemini.TransferSuggestion, error) {
			return &gemini.TransferSuggestion{Amount: core.Money{Cents: 5000}, Reasoning: "steady progress"}, nil
		},
	}
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, oracle)

	rec := doJSON(t, s, http.MethodPost, "/api/oracle/goal-transfer/suggest",
		goalTransferSuggestRequest{GoalID: "g-vacation"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeBody[transferSuggestResponse](t, rec)
	if resp.Amount.Cents != 5000 || resp.Reasoning != "steady progress" {
		t.Errorf("response = %+v", resp)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/oracle/goal-transfer/suggest",
		goalTransferSuggestRequest{GoalID: "g-nope"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown goal status = %d, want 422", rec.Code)
	}
}

func TestOracleReport(t *testing.T) {
	oracle := &fakeOracle{
		generateReport: func() (string, error) { return "## March report", nil },
	}
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, oracle)

	rec := doJSON(t, s, http.MethodPost, "/api/oracle/report", reportRequest{Year: 2025, Month: 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeBody[reportResponse](t, rec)
	if resp.Report != "## March report" {
		t.Errorf("report = %q", resp.Report)
	}

	// An empty body reports on the current month.
	rec = doJSON(t, s, http.MethodPost, "/api/oracle/report", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("empty body status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/oracle/report", reportRequest{Year: 2025, Month: 13})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("month 13 status = %d, want 422", rec.Code)
	}
}

func TestOracleChat(t *testing.T) {
	oracle := &fakeOracle{
		chat: func(onChunk func(text string)) (string, error) {
			onChunk("Hel")
			onChunk("lo")
			return "Hello", nil
		},
	}
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, oracle)

	rec := doJSON(t, s, http.MethodPost, "/api/oracle/chat",
		chatRequest{Question: "how much did we spend?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	body := rec.Body.String()
	for _, part := range []string{
		"event: chunk\ndata: {\"text\":\"Hel\"}",
		"event: chunk\ndata: {\"text\":\"lo\"}",
		"event: done",
	} {
		if !strings.Contains(body, part) {
			t.Errorf("stream missing %q:\n%s", part, body)
		}
	}
}

func TestOracleChatUnavailable(t *testing.T) {
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, &fakeOracle{})

	rec := doJSON(t, s, http.MethodPost, "/api/oracle/chat",
		chatRequest{Question: "anyone there?"})
	// The stream commits to 200 up front; failures become error events.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: error") || !strings.Contains(body, "oracle unavailable") {
		t.Errorf("stream = %q, want an error event naming the oracle", body)
	}
}

func TestOracleChatEmptyQuestion(t *testing.T) {
	s := newTestServer(t, &fakeStore{h: seedHousehold()}, &fakeOracle{})

	rec := doJSON(t, s, http.MethodPost, "/api/oracle/chat", chatRequest{Question: "   "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}
