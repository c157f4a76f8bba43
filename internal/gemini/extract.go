package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

var receiptSchema = &schema{
	Type: typeObject,
	Properties: map[string]*schema{
		"description":  {Type: typeString, Description: "Merchant or purchase description"},
		"amount":       {Type: typeNumber, Description: "Total amount as a decimal"},
		"categoryName": {Type: typeString, Description: "One category name from the provided list"},
	},
	Required: []string{"description", "amount", "categoryName"},
}

var statementSchema = &schema{
	Type: typeArray,
	Items: &schema{
		Type: typeObject,
		Properties: map[string]*schema{
			"date":        {Type: typeString, Description: "Transaction date as YYYY-MM-DD"},
			"description": {Type: typeString},
			"amount":      {Type: typeNumber, Description: "Absolute amount as a decimal"},
			"type":        {Type: typeString, Enum: []string{"credit", "debit"}},
		},
		Required: []string{"date", "description", "amount", "type"},
	},
}

var categorizeSchema = &schema{
	Type:  typeArray,
	Items: &schema{Type: typeString, Description: "Category id for the description at the same position"},
}

// ExtractReceipt reads a receipt image and returns the merchant
// description, total amount, and a suggested category name. The category
// name is the model's best effort; mapping it onto a real category id is
// the caller's job.
func (c *Client) ExtractReceipt(ctx context.Context, image []byte, mimeType string, categories []core.Category) (*ReceiptExtraction, error) {
	const op = "extractReceipt"

	if len(image) == 0 {
		return nil, unavailable(op, "empty image", 0, nil)
	}

	prompt := fmt.Sprintf(
		"Extract the merchant name, total amount, and best matching category from this receipt.\nAvailable categories:\n%s",
		categoryLines(categories))

	req := &generateRequest{
		Contents: []content{{
			Role: roleUser,
			Parts: []part{
				{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
				{Text: prompt},
			},
		}},
		GenerationConfig: jsonConfig(receiptSchema),
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Description  string  `json:"description"`
		Amount       float64 `json:"amount"`
		CategoryName string  `json:"categoryName"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, mismatch(op, "parse extraction", errors.Wrap(err, "unmarshal receipt"))
	}

	cents := core.CentsFromDecimal(decimal.NewFromFloat(wire.Amount))
	if strings.TrimSpace(wire.Description) == "" || cents <= 0 {
		return nil, mismatch(op, "extraction missing description or positive amount", nil)
	}

	return &ReceiptExtraction{
		Description:  strings.TrimSpace(wire.Description),
		Amount:       core.Money{Cents: cents},
		CategoryName: strings.TrimSpace(wire.CategoryName),
	}, nil
}

// ParseStatement reads a bank statement file (CSV, PDF, or an image) and
// returns its transactions in file order.
func (c *Client) ParseStatement(ctx context.Context, file []byte, mimeType string) ([]StatementRow, error) {
	const op = "parseStatement"

	if len(file) == 0 {
		return nil, unavailable(op, "empty file", 0, nil)
	}

	const prompt = "Extract every transaction from this bank statement. " +
		"Use YYYY-MM-DD dates, absolute amounts, and mark money leaving the account as debit and money arriving as credit. " +
		"Keep the original row order."

	var dataPart part
	if strings.HasPrefix(mimeType, "text/") {
		dataPart = part{Text: string(file)}
	} else {
		dataPart = part{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(file)}}
	}

	req := &generateRequest{
		Contents: []content{{
			Role:  roleUser,
			Parts: []part{dataPart, {Text: prompt}},
		}},
		GenerationConfig: jsonConfig(statementSchema),
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return nil, err
	}

	var wire []struct {
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Type        string  `json:"type"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, mismatch(op, "parse statement rows", errors.Wrap(err, "unmarshal statement"))
	}

	rows := make([]StatementRow, 0, len(wire))
	for i, w := range wire {
		date, err := core.ParseDate(w.Date)
		if err != nil {
			return nil, mismatch(op, fmt.Sprintf("row %d: bad date %q", i, w.Date), nil)
		}
		cents := core.CentsFromDecimal(decimal.NewFromFloat(w.Amount))
		if cents <= 0 {
			return nil, mismatch(op, fmt.Sprintf("row %d: non-positive amount", i), nil)
		}
		if strings.TrimSpace(w.Description) == "" {
			return nil, mismatch(op, fmt.Sprintf("row %d: empty description", i), nil)
		}
		if w.Type != RowCredit && w.Type != RowDebit {
			return nil, mismatch(op, fmt.Sprintf("row %d: unknown type %q", i, w.Type), nil)
		}
		rows = append(rows, StatementRow{
			Date:        date,
			Description: strings.TrimSpace(w.Description),
			Amount:      core.Money{Cents: cents},
			Type:        w.Type,
		})
	}
	return rows, nil
}

// CategorizeBatch assigns one category id to each description, in input
// order. The result always has exactly one entry per description; ids
// the model invents are passed through for the caller to resolve.
func (c *Client) CategorizeBatch(ctx context.Context, descriptions []string, categories []core.Category) ([]string, error) {
	const op = "categorizeBatch"

	if len(descriptions) == 0 {
		return []string{}, nil
	}

	var sb strings.Builder
	sb.WriteString("Assign the best matching category id to each expense description below.\n")
	sb.WriteString("Return exactly one category id per description, in the same order.\nCategories:\n")
	sb.WriteString(categoryLines(categories))
	sb.WriteString("\nDescriptions:\n")
	for i, d := range descriptions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, d)
	}

	req := &generateRequest{
		Contents:         []content{{Role: roleUser, Parts: []part{{Text: sb.String()}}}},
		GenerationConfig: jsonConfig(categorizeSchema),
	}

	text, err := c.generate(ctx, op, req)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal([]byte(text), &ids); err != nil {
		return nil, mismatch(op, "parse category ids", errors.Wrap(err, "unmarshal batch"))
	}
	if len(ids) != len(descriptions) {
		return nil, mismatch(op, fmt.Sprintf("got %d ids for %d descriptions", len(ids), len(descriptions)), nil)
	}
	return ids, nil
}

// categoryLines renders categories as "- id: name" prompt lines.
func categoryLines(categories []core.Category) string {
	var sb strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&sb, "- %s: %s\n", cat.ID, cat.Name)
	}
	return sb.String()
}

// jsonConfig forces a structured JSON response matching s.
func jsonConfig(s *schema) *generationConfig {
	return &generationConfig{
		ResponseMIMEType: contentType,
		ResponseSchema:   s,
	}
}
