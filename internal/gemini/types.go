package gemini

import (
	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

// Wire types for the generateContent REST API. Only the fields this
// client touches are modeled.

const (
	roleUser  = "user"
	roleModel = "model"
)

// Structured-output schema type names. The API wants them upper case.
const (
	typeString  = "STRING"
	typeNumber  = "NUMBER"
	typeBoolean = "BOOLEAN"
	typeArray   = "ARRAY"
	typeObject  = "OBJECT"
)

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema `json:"responseSchema,omitempty"`
}

// schema is the OpenAPI subset the API accepts for structured output.
// Type values are upper case: STRING, NUMBER, INTEGER, BOOLEAN, ARRAY, OBJECT.
type schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Items       *schema            `json:"items,omitempty"`
	Properties  map[string]*schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// firstText returns the first text part of the first candidate.
func (r *generateResponse) firstText() (string, bool) {
	if len(r.Candidates) == 0 {
		return "", false
	}
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Text != "" {
			return p.Text, true
		}
	}
	return "", false
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Typed oracle results. Amounts arrive as floating decimals on the wire
// and are converted to cents here, at the boundary.

// ReceiptExtraction is the structured reading of a receipt image or PDF.
type ReceiptExtraction struct {
	Description  string
	Amount       core.Money
	CategoryName string
}

// Statement row directions.
const (
	RowCredit = "credit"
	RowDebit  = "debit"
)

// StatementRow is one parsed bank statement transaction.
type StatementRow struct {
	Date        core.Date
	Description string
	Amount      core.Money
	Type        string // RowCredit or RowDebit
}

// AnomalyVerdict is the oracle's judgement of a candidate expense.
type AnomalyVerdict struct {
	IsAnomalous bool
	Reasoning   string
}

// RecurringCandidate is a payment the oracle believes repeats.
type RecurringCandidate struct {
	Description     string
	Amount          core.Money
	Frequency       core.Frequency
	CategoryID      string
	LastPaymentDate core.Date
}

// BudgetSuggestion is a proposed monthly ceiling for one category.
type BudgetSuggestion struct {
	CategoryID string
	Amount     core.Money
	Reasoning  string
}

// TransferSuggestion is a proposed amount to move into a bucket goal.
type TransferSuggestion struct {
	Amount    core.Money
	Reasoning string
}
