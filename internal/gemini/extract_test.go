package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

var testCategories = []core.Category{
	{ID: "cat-1", Name: "Groceries"},
	{ID: "cat-5", Name: "Entertainment"},
	{ID: "cat-other", Name: "Other"},
}

func TestExtractReceipt(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respondText(t, w, `{"description":"EDEKA Berlin","amount":42.97,"categoryName":"Groceries"}`)
	})

	image := []byte{0x89, 0x50, 0x4e, 0x47}
	extraction, err := c.ExtractReceipt(context.Background(), image, "image/png", testCategories)

	require.NoError(t, err)
	assert.Equal(t, "EDEKA Berlin", extraction.Description)
	assert.Equal(t, int64(4297), extraction.Amount.Cents)
	assert.Equal(t, "Groceries", extraction.CategoryName)

	require.Len(t, got.Contents, 1)
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), parts[0].InlineData.Data)
	assert.Contains(t, parts[1].Text, "cat-1: Groceries")
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, typeObject, got.GenerationConfig.ResponseSchema.Type)
}

func TestExtractReceiptEmptyImage(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(server.Close)
	c := NewClient(&ClientOptions{APIKey: "test-key", BaseURL: server.URL})

	_, err := c.ExtractReceipt(context.Background(), nil, "image/png", testCategories)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, called)
}

func TestExtractReceiptBadPayload(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "not json", text: "here is your receipt!"},
		{name: "zero amount", text: `{"description":"EDEKA","amount":0,"categoryName":"Groceries"}`},
		{name: "empty description", text: `{"description":"  ","amount":12.34,"categoryName":"Groceries"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				respondText(t, w, tt.text)
			})

			_, err := c.ExtractReceipt(context.Background(), []byte{0x01}, "image/png", testCategories)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestParseStatementCSV(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respondText(t, w, `[
			{"date":"2025-03-01","description":"REWE Markt","amount":23.50,"type":"debit"},
			{"date":"2025-03-03","description":"Salary","amount":2100.00,"type":"credit"},
			{"date":"2025-03-05","description":"Netflix","amount":12.99,"type":"debit"}
		]`)
	})

	csvFile := []byte("date,description,amount\n2025-03-01,REWE Markt,-23.50\n")
	rows, err := c.ParseStatement(context.Background(), csvFile, "text/csv")

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "REWE Markt", rows[0].Description)
	assert.Equal(t, int64(2350), rows[0].Amount.Cents)
	assert.Equal(t, "debit", rows[0].Type)
	assert.Equal(t, "2025-03-01", rows[0].Date.String())
	assert.Equal(t, "credit", rows[1].Type)
	assert.Equal(t, "Netflix", rows[2].Description, "row order should be preserved")

	// Text files ride along as a text part, not base64 inline data.
	parts := got.Contents[0].Parts
	require.Len(t, parts, 2)
	assert.Nil(t, parts[0].InlineData)
	assert.Contains(t, parts[0].Text, "REWE Markt")
}

func TestParseStatementPDF(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respondText(t, w, `[{"date":"2025-03-01","description":"REWE","amount":10.00,"type":"debit"}]`)
	})

	pdf := []byte("%PDF-1.7")
	_, err := c.ParseStatement(context.Background(), pdf, "application/pdf")

	require.NoError(t, err)
	parts := got.Contents[0].Parts
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "application/pdf", parts[0].InlineData.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pdf), parts[0].InlineData.Data)
}

func TestParseStatementBadRows(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "bad date", text: `[{"date":"01.03.2025","description":"REWE","amount":10,"type":"debit"}]`},
		{name: "bad type", text: `[{"date":"2025-03-01","description":"REWE","amount":10,"type":"outgoing"}]`},
		{name: "zero amount", text: `[{"date":"2025-03-01","description":"REWE","amount":0,"type":"debit"}]`},
		{name: "empty description", text: `[{"date":"2025-03-01","description":"","amount":10,"type":"debit"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				respondText(t, w, tt.text)
			})

			_, err := c.ParseStatement(context.Background(), []byte("x"), "text/csv")

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestCategorizeBatch(t *testing.T) {
	var got generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respondText(t, w, `["cat-1","cat-5","made-up"]`)
	})

	ids, err := c.CategorizeBatch(context.Background(),
		[]string{"REWE Markt", "Netflix", "mystery charge"}, testCategories)

	require.NoError(t, err)
	assert.Equal(t, []string{"cat-1", "cat-5", "made-up"}, ids,
		"invented ids pass through for the caller to resolve")

	prompt := got.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "1. REWE Markt")
	assert.Contains(t, prompt, "3. mystery charge")
	assert.Contains(t, prompt, "cat-other: Other")
}

func TestCategorizeBatchLengthMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respondText(t, w, `["cat-1"]`)
	})

	_, err := c.CategorizeBatch(context.Background(), []string{"a", "b"}, testCategories)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestCategorizeBatchEmptyInput(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(server.Close)
	c := NewClient(&ClientOptions{APIKey: "test-key", BaseURL: server.URL})

	ids, err := c.CategorizeBatch(context.Background(), nil, testCategories)

	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.False(t, called)
}
