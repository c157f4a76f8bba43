package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	ports "github.com/sakshipatil0812/FinancialyAI/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Row-cursor cache TTL. Appends advance the cursor locally; a fresh
// read happens only after expiry or after a failed write.
const defaultCursorTTL = 5 * time.Minute

type rowCursor struct {
	nextRow   int
	expiresAt time.Time
}

// Client mirrors ledger expenses and alerts into a Google spreadsheet.
// The expenses sheet carries one row per split; the alerts sheet one
// row per notification. Both sheet names are year-prefixed.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	alertsSheet   string

	mu        sync.Mutex
	cursors   map[string]rowCursor
	cursorTTL time.Duration
}

// Ensure interface conformance
var (
	_ ports.MirrorWriter  = (*Client)(nil)
	_ ports.MirrorDeleter = (*Client)(nil)
	_ ports.AlertWriter   = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: GOOGLE_EXPENSES_SHEET_NAME (default "Expenses"),
// GOOGLE_ALERTS_SHEET_NAME (default "Alerts"); the current year is
// prefixed automatically.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	expensesBase := strings.TrimSpace(os.Getenv("GOOGLE_EXPENSES_SHEET_NAME"))
	if expensesBase == "" {
		expensesBase = "Expenses"
	}
	alertsBase := strings.TrimSpace(os.Getenv("GOOGLE_ALERTS_SHEET_NAME"))
	if alertsBase == "" {
		alertsBase = "Alerts"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	currentYear := time.Now().Year()
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		expensesSheet: yearPrefixedName(expensesBase, currentYear),
		alertsSheet:   yearPrefixedName(alertsBase, currentYear),
		cursors:       map[string]rowCursor{},
		cursorTTL:     defaultCursorTTL,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// AppendExpense writes one row per split and returns the written range.
func (c *Client) AppendExpense(ctx context.Context, e core.Expense, names ports.Names) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(e.ID) == "" {
		return "", errors.New("expense has no id")
	}
	if len(e.Splits) == 0 {
		return "", errors.New("expense has no splits")
	}

	rows := expenseRows(e, names)
	nextRow, err := c.nextFreeRow(ctx, c.expensesSheet)
	if err != nil {
		return "", err
	}

	lastRow := nextRow + len(rows) - 1
	dataRange := fmt.Sprintf("%s!A%d:H%d", c.expensesSheet, nextRow, lastRow)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		c.invalidateCursor(c.expensesSheet)
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	c.advanceCursor(c.expensesSheet, len(rows))
	return dataRange, nil
}

// expenseRows builds the sheet rows for an expense, one per split:
// date, description, category, payer, member, share, total, expense id.
func expenseRows(e core.Expense, names ports.Names) [][]any {
	total := float64(e.Amount.Cents) / 100.0
	rows := make([][]any, 0, len(e.Splits))
	for _, s := range e.Splits {
		rows = append(rows, []any{
			e.Date.String(),
			e.Description,
			names.Category(e.CategoryID),
			names.Member(e.PayerID),
			names.Member(s.MemberID),
			float64(s.Amount.Cents) / 100.0,
			total,
			e.ID,
		})
	}
	return rows
}

// AppendAlert writes one alert row and returns the written range.
func (c *Client) AppendAlert(ctx context.Context, n core.Notification) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(n.ID) == "" {
		return "", errors.New("notification has no id")
	}

	nextRow, err := c.nextFreeRow(ctx, c.alertsSheet)
	if err != nil {
		return "", err
	}

	dataRange := fmt.Sprintf("%s!A%d:D%d", c.alertsSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{alertRow(n)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		c.invalidateCursor(c.alertsSheet)
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	c.advanceCursor(c.alertsSheet, 1)
	return dataRange, nil
}

// alertRow builds the alert sheet row: timestamp, severity, message, id.
func alertRow(n core.Notification) []any {
	return []any{
		n.Timestamp.UTC().Format(time.RFC3339),
		string(n.Severity),
		n.Message,
		n.ID,
	}
}

// DeleteExpenseRows removes every mirrored row carrying the expense id
// in column H and returns how many were removed.
func (c *Client) DeleteExpenseRows(ctx context.Context, expenseID string) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(expenseID) == "" {
		return 0, errors.New("empty expense id")
	}

	sheetID, err := c.numericSheetID(ctx, c.expensesSheet)
	if err != nil {
		return 0, err
	}

	rng := fmt.Sprintf("%s!H:H", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}

	var matches []int64 // zero-based row indexes
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == expenseID {
			matches = append(matches, int64(i))
		}
	}
	if len(matches) == 0 {
		return 0, nil
	}

	// Delete bottom-up so earlier indexes stay valid.
	requests := make([]*gsheet.Request, 0, len(matches))
	for i := len(matches) - 1; i >= 0; i-- {
		requests = append(requests, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: matches[i],
					EndIndex:   matches[i] + 1,
				},
			},
		})
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID,
		&gsheet.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("delete rows for expense %s: %w", expenseID, err)
	}

	c.invalidateCursor(c.expensesSheet)
	return len(matches), nil
}

// numericSheetID resolves a sheet title to its numeric id, needed by
// DeleteDimension requests.
func (c *Client) numericSheetID(ctx context.Context, title string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", title)
}

// nextFreeRow returns the first empty row of the sheet, reading column A
// only when the cached cursor expired.
func (c *Client) nextFreeRow(ctx context.Context, sheet string) (int, error) {
	c.mu.Lock()
	if cur, ok := c.cursors[sheet]; ok && time.Now().Before(cur.expiresAt) {
		c.mu.Unlock()
		return cur.nextRow, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get sheet dimensions for %s: %w", sheet, err)
	}
	next := len(resp.Values) + 1

	c.mu.Lock()
	c.cursors[sheet] = rowCursor{nextRow: next, expiresAt: time.Now().Add(c.cursorTTL)}
	c.mu.Unlock()
	return next, nil
}

func (c *Client) advanceCursor(sheet string, rows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.cursors[sheet]
	if !ok {
		return
	}
	cur.nextRow += rows
	cur.expiresAt = time.Now().Add(c.cursorTTL)
	c.cursors[sheet] = cur
}

func (c *Client) invalidateCursor(sheet string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cursors, sheet)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
