package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

// recentWindow bounds how many expenses a prompt carries.
const recentWindow = 50

var anomalySchema = &schema{
	Type: typeObject,
	Properties: map[string]*schema{
		"isAnomalous": {Type: typeBoolean},
		"reasoning":   {Type: typeString, Description: "One short sentence"},
	},
	Required: []string{"isAnomalous", "reasoning"},
}

var recurringSchema = &schema{
	Type: typeArray,
	Items: &schema{
		Type: typeObject,
		Properties: map[string]*schema{
			"description":     {Type: typeString},
			"amount":          {Type: typeNumber, Description: "Typical amount as a decimal"},
			"frequency":       {Type: typeString, Enum: []string{"weekly", "monthly", "yearly"}},
			"categoryId":      {Type: typeString},
			"lastPaymentDate": {Type: typeString, Description: "YYYY-MM-DD"},
		},
		Required: []string{"description", "amount", "frequency", "categoryId", "lastPaymentDate"},
	},
}

var budgetSchema = &schema{
	Type: typeArray,
	Items: &schema{
		Type: typeObject,
		Properties: map[string]*schema{
			"categoryId": {Type: typeString},
			"amount":     {Type: typeNumber, Description: "Suggested monthly ceiling as a decimal"},
			"reasoning":  {Type: typeString},
		},
		Required: []string{"categoryId", "amount", "reasoning"},
	},
}

var transferSchema = &schema{
	Type: typeObject,
	Properties: map[string]*schema{
		"amount":    {Type: typeNumber, Description: "Suggested transfer as a decimal"},
		"reasoning": {Type: typeString},
	},
	Required: []string{"amount", "reasoning"},
}

// DetectAnomaly judges whether a draft expense looks out of pattern
// against the household's recent spending.
func (c *Client) DetectAnomaly(ctx context.Context, draft core.ExpenseDraft, recent []core.Expense, categories []core.Category) (*AnomalyVerdict, error) {
	const op = "detectAnomaly"

	var sb strings.Builder
	sb.WriteString("Decide whether this new expense is anomalous for the household, ")
	sb.WriteString("considering typical amounts per category and merchant.\n")
	fmt.Fprintf(&sb, "New expense: %s, %s, category %s, date %s\n",
		draft.Description, draft.Amount.DecimalString(), draft.CategoryID, draft.Date.String())
	sb.WriteString("Categories:\n")
	sb.WriteString(categoryLines(categories))
	sb.WriteString("Recent expenses:\n")
	sb.WriteString(expenseLines(recent, recentWindow))

	req := &generateRequest{
		Contents:         []content{{Role: roleUser, Parts: []part{{Text: sb.String()}}}},
		GenerationConfig: jsonConfig(anomalySchema),
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return nil, err
	}

	var wire struct {
		IsAnomalous bool   `json:"isAnomalous"`
		Reasoning   string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, mismatch(op, "parse verdict", errors.Wrap(err, "unmarshal verdict"))
	}
	if wire.IsAnomalous && strings.TrimSpace(wire.Reasoning) == "" {
		return nil, mismatch(op, "anomalous verdict without reasoning", nil)
	}
	return &AnomalyVerdict{IsAnomalous: wire.IsAnomalous, Reasoning: strings.TrimSpace(wire.Reasoning)}, nil
}

// DetectRecurring scans the expense history for payments that repeat on
// a weekly, monthly, or yearly cadence and are not yet subscriptions.
func (c *Client) DetectRecurring(ctx context.Context, expenses []core.Expense, subscriptions []core.Subscription, categories []core.Category) ([]RecurringCandidate, error) {
	const op = "detectRecurring"

	var sb strings.Builder
	sb.WriteString("Find payments in this expense history that repeat at a regular cadence ")
	sb.WriteString("(weekly, monthly, or yearly) and are not already tracked as subscriptions.\n")
	sb.WriteString("Known subscriptions:\n")
	for _, s := range subscriptions {
		fmt.Fprintf(&sb, "- %s (%s, %s)\n", s.Description, s.Amount.DecimalString(), s.Frequency)
	}
	sb.WriteString("Categories:\n")
	sb.WriteString(categoryLines(categories))
	sb.WriteString("Expenses:\n")
	sb.WriteString(expenseLines(expenses, 0))

	req := &generateRequest{
		Contents:         []content{{Role: roleUser, Parts: []part{{Text: sb.String()}}}},
		GenerationConfig: jsonConfig(recurringSchema),
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return nil, err
	}

	var wire []struct {
		Description     string  `json:"description"`
		Amount          float64 `json:"amount"`
		Frequency       string  `json:"frequency"`
		CategoryID      string  `json:"categoryId"`
		LastPaymentDate string  `json:"lastPaymentDate"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, mismatch(op, "parse candidates", errors.Wrap(err, "unmarshal candidates"))
	}

	out := make([]RecurringCandidate, 0, len(wire))
	for i, w := range wire {
		freq := core.Frequency(w.Frequency)
		if freq != core.Weekly && freq != core.Monthly && freq != core.Yearly {
			return nil, mismatch(op, fmt.Sprintf("candidate %d: bad frequency %q", i, w.Frequency), nil)
		}
		last, err := core.ParseDate(w.LastPaymentDate)
		if err != nil {
			return nil, mismatch(op, fmt.Sprintf("candidate %d: bad date %q", i, w.LastPaymentDate), nil)
		}
		cents := core.CentsFromDecimal(decimal.NewFromFloat(w.Amount))
		if cents <= 0 || strings.TrimSpace(w.Description) == "" {
			return nil, mismatch(op, fmt.Sprintf("candidate %d: missing description or positive amount", i), nil)
		}
		out = append(out, RecurringCandidate{
			Description:     strings.TrimSpace(w.Description),
			Amount:          core.Money{Cents: cents},
			Frequency:       freq,
			CategoryID:      w.CategoryID,
			LastPaymentDate: last,
		})
	}
	return out, nil
}

// SuggestBudget proposes monthly ceilings based on spending history.
// Categories that already have a budget are offered for revision too.
func (c *Client) SuggestBudget(ctx context.Context, expenses []core.Expense, budgets []core.Budget, categories []core.Category) ([]BudgetSuggestion, error) {
	const op = "suggestBudget"

	var sb strings.Builder
	sb.WriteString("Suggest realistic monthly budgets per category based on this spending history. ")
	sb.WriteString("Only use category ids from the list.\nCategories:\n")
	sb.WriteString(categoryLines(categories))
	sb.WriteString("Current budgets:\n")
	for _, b := range budgets {
		fmt.Fprintf(&sb, "- %s: %s\n", b.CategoryID, b.Amount.DecimalString())
	}
	sb.WriteString("Expenses:\n")
	sb.WriteString(expenseLines(expenses, 0))

	req := &generateRequest{
		Contents:         []content{{Role: roleUser, Parts: []part{{Text: sb.String()}}}},
		GenerationConfig: jsonConfig(budgetSchema),
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return nil, err
	}

	var wire []struct {
		CategoryID string  `json:"categoryId"`
		Amount     float64 `json:"amount"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, mismatch(op, "parse suggestions", errors.Wrap(err, "unmarshal suggestions"))
	}

	out := make([]BudgetSuggestion, 0, len(wire))
	for i, w := range wire {
		cents := core.CentsFromDecimal(decimal.NewFromFloat(w.Amount))
		if cents <= 0 || strings.TrimSpace(w.CategoryID) == "" {
			return nil, mismatch(op, fmt.Sprintf("suggestion %d: missing category or positive amount", i), nil)
		}
		out = append(out, BudgetSuggestion{
			CategoryID: strings.TrimSpace(w.CategoryID),
			Amount:     core.Money{Cents: cents},
			Reasoning:  strings.TrimSpace(w.Reasoning),
		})
	}
	return out, nil
}

// SuggestTransfer proposes how much to move into a goal this month given
// income and spending so far.
func (c *Client) SuggestTransfer(ctx context.Context, goal core.BucketGoal, income, monthSpend core.Money) (*TransferSuggestion, error) {
	const op = "suggestTransfer"

	prompt := fmt.Sprintf(
		"Suggest a sensible amount to transfer into the savings goal %q this month.\n"+
			"Goal target: %s, saved so far: %s.\n"+
			"Monthly income: %s, spent this month: %s.\n"+
			"The amount must be positive and must not overshoot the target.",
		goal.Name, goal.Target.DecimalString(), goal.Saved.DecimalString(),
		income.DecimalString(), monthSpend.DecimalString())

	req := &generateRequest{
		Contents:         []content{{Role: roleUser, Parts: []part{{Text: prompt}}}},
		GenerationConfig: jsonConfig(transferSchema),
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Amount    float64 `json:"amount"`
		Reasoning string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, mismatch(op, "parse suggestion", errors.Wrap(err, "unmarshal suggestion"))
	}
	cents := core.CentsFromDecimal(decimal.NewFromFloat(wire.Amount))
	if cents <= 0 {
		return nil, mismatch(op, "non-positive transfer amount", nil)
	}
	return &TransferSuggestion{Amount: core.Money{Cents: cents}, Reasoning: strings.TrimSpace(wire.Reasoning)}, nil
}

// GenerateReport writes a short narrative spending report for one month.
// The response is markdown, not structured output.
func (c *Client) GenerateReport(ctx context.Context, agg core.MonthAggregate, h *core.Household) (string, error) {
	const op = "generateReport"

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a short monthly spending report for %d-%02d in markdown. ", agg.Year, agg.Month)
	sb.WriteString("Mention the total, the biggest categories, and one actionable observation. Keep it under 200 words.\n")
	fmt.Fprintf(&sb, "Total: %s\n", agg.Total.DecimalString())
	sb.WriteString("Per category:\n")
	for id, amount := range agg.PerCategory {
		name := id
		if cat, ok := h.CategoryByID(id); ok {
			name = cat.Name
		}
		fmt.Fprintf(&sb, "- %s: %s\n", name, amount.DecimalString())
	}
	sb.WriteString("Per member:\n")
	for id, amount := range agg.PerMember {
		name := id
		if m, ok := h.MemberByID(id); ok {
			name = m.Name
		}
		fmt.Fprintf(&sb, "- %s: %s\n", name, amount.DecimalString())
	}

	req := &generateRequest{
		Contents: []content{{Role: roleUser, Parts: []part{{Text: sb.String()}}}},
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", mismatch(op, "empty report", nil)
	}
	return text, nil
}

// ChatMessage is one prior turn of an oracle conversation.
type ChatMessage struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// Chat answers a question about the household's finances, streaming text
// deltas through onChunk as they arrive. It returns the full reply.
func (c *Client) Chat(ctx context.Context, h *core.Household, history []ChatMessage, question string, onChunk func(text string)) (string, error) {
	const op = "chat"

	contents := make([]content, 0, len(history)+1)
	for _, m := range history {
		role := roleUser
		if m.Role == roleModel {
			role = roleModel
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Text}}})
	}
	contents = append(contents, content{Role: roleUser, Parts: []part{{Text: question}}})

	req := &generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: householdContext(h)}}},
		Contents:          contents,
	}

	return c.stream(ctx, op, req, onChunk)
}

// householdContext renders the household snapshot as a compact system
// prompt. Expense history is capped to keep the prompt bounded.
func householdContext(h *core.Household) string {
	var sb strings.Builder
	sb.WriteString("You are a household finance assistant. Answer questions using this data. ")
	sb.WriteString("All amounts are in the household currency.\n")

	sb.WriteString("Members:\n")
	for _, m := range h.Members {
		fmt.Fprintf(&sb, "- %s (%s)\n", m.Name, m.ID)
	}
	sb.WriteString("Categories:\n")
	sb.WriteString(categoryLines(h.Categories))
	if len(h.Budgets) > 0 {
		sb.WriteString("Budgets:\n")
		for _, b := range h.Budgets {
			fmt.Fprintf(&sb, "- %s: %s per month\n", b.CategoryID, b.Amount.DecimalString())
		}
	}
	if len(h.Goals) > 0 {
		sb.WriteString("Goals:\n")
		for _, g := range h.Goals {
			fmt.Fprintf(&sb, "- %s: %s of %s saved\n", g.Name, g.Saved.DecimalString(), g.Target.DecimalString())
		}
	}
	if len(h.Subscriptions) > 0 {
		sb.WriteString("Subscriptions:\n")
		for _, s := range h.Subscriptions {
			fmt.Fprintf(&sb, "- %s: %s %s, next due %s\n", s.Description, s.Amount.DecimalString(), s.Frequency, s.NextDue.String())
		}
	}
	if h.Settings.MonthlyIncome.Cents > 0 {
		fmt.Fprintf(&sb, "Monthly income: %s\n", h.Settings.MonthlyIncome.DecimalString())
	}
	sb.WriteString("Recent expenses:\n")
	sb.WriteString(expenseLines(h.Expenses, recentWindow))
	return sb.String()
}

// expenseLines renders expenses as prompt lines, newest last. A limit of
// 0 means all.
func expenseLines(expenses []core.Expense, limit int) string {
	start := 0
	if limit > 0 && len(expenses) > limit {
		start = len(expenses) - limit
	}
	var sb strings.Builder
	for _, e := range expenses[start:] {
		fmt.Fprintf(&sb, "- %s | %s | %s | category %s\n",
			e.Date.String(), e.Description, e.Amount.DecimalString(), e.CategoryID)
	}
	return sb.String()
}
