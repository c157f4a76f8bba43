package google

import (
	"testing"
	"time"
)

func TestRowCursorExpiration(t *testing.T) {
	c := &Client{
		cursors:   map[string]rowCursor{},
		cursorTTL: 100 * time.Millisecond, // Short TTL for testing
	}

	// Initial state: no cursor cached
	c.mu.Lock()
	_, ok := c.cursors["Expenses"]
	c.mu.Unlock()
	if ok {
		t.Error("cursor cache should start empty")
	}

	// Manually seed a valid cursor
	c.mu.Lock()
	c.cursors["Expenses"] = rowCursor{nextRow: 10, expiresAt: time.Now().Add(c.cursorTTL)}
	c.mu.Unlock()

	c.mu.Lock()
	cur, ok := c.cursors["Expenses"]
	c.mu.Unlock()
	if !ok || !time.Now().Before(cur.expiresAt) {
		t.Error("cursor should be valid immediately after seeding")
	}
	if cur.nextRow != 10 {
		t.Errorf("cached next row should be 10, got %d", cur.nextRow)
	}

	// Wait for the cursor to expire
	time.Sleep(150 * time.Millisecond)
	c.mu.Lock()
	cur = c.cursors["Expenses"]
	c.mu.Unlock()
	if time.Now().Before(cur.expiresAt) {
		t.Error("cursor should be expired after the TTL")
	}
}

func TestAdvanceCursor(t *testing.T) {
	c := &Client{
		cursors:   map[string]rowCursor{},
		cursorTTL: time.Minute,
	}

	// Advancing a missing cursor is a no-op
	c.advanceCursor("Expenses", 3)
	c.mu.Lock()
	_, ok := c.cursors["Expenses"]
	c.mu.Unlock()
	if ok {
		t.Error("advance must not create a cursor")
	}

	c.mu.Lock()
	c.cursors["Expenses"] = rowCursor{nextRow: 5, expiresAt: time.Now().Add(time.Minute)}
	c.mu.Unlock()

	c.advanceCursor("Expenses", 3)
	c.mu.Lock()
	cur := c.cursors["Expenses"]
	c.mu.Unlock()
	if cur.nextRow != 8 {
		t.Errorf("expected next row 8 after advancing by 3, got %d", cur.nextRow)
	}
}

func TestInvalidateCursor(t *testing.T) {
	c := &Client{
		cursors:   map[string]rowCursor{},
		cursorTTL: time.Minute,
	}
	c.mu.Lock()
	c.cursors["Alerts"] = rowCursor{nextRow: 2, expiresAt: time.Now().Add(time.Minute)}
	c.mu.Unlock()

	c.invalidateCursor("Alerts")
	c.mu.Lock()
	_, ok := c.cursors["Alerts"]
	c.mu.Unlock()
	if ok {
		t.Error("cursor should be gone after invalidation")
	}
}

func TestCursorsAreIndependentPerSheet(t *testing.T) {
	c := &Client{
		cursors:   map[string]rowCursor{},
		cursorTTL: time.Minute,
	}
	c.mu.Lock()
	c.cursors["Expenses"] = rowCursor{nextRow: 10, expiresAt: time.Now().Add(time.Minute)}
	c.cursors["Alerts"] = rowCursor{nextRow: 3, expiresAt: time.Now().Add(time.Minute)}
	c.mu.Unlock()

	c.advanceCursor("Expenses", 2)
	c.invalidateCursor("Alerts")

	c.mu.Lock()
	exp := c.cursors["Expenses"]
	_, alertOK := c.cursors["Alerts"]
	c.mu.Unlock()
	if exp.nextRow != 12 {
		t.Errorf("expenses cursor: expected 12, got %d", exp.nextRow)
	}
	if alertOK {
		t.Error("alerts cursor should be invalidated independently")
	}
}
