package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/amqp"
	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/sheets/memory"
)

type failingAlertWriter struct{}

func (failingAlertWriter) AppendAlert(context.Context, core.Notification) (string, error) {
	return "", errors.New("sheet unavailable")
}

func TestHandleAlertMessage(t *testing.T) {
	sheet := memory.New()
	w := NewAlertWorker(sheet)

	raised := core.Notification{
		ID:        "n-1",
		Message:   "Budget exceeded for Groceries",
		Timestamp: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
		Severity:  core.SeverityError,
	}
	msg := amqp.NewAlertMessage(raised)
	if err := w.HandleAlertMessage(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alerts := sheet.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	got := alerts[0]
	if got.ID != "n-1" || got.Message != raised.Message {
		t.Errorf("unexpected alert: %+v", got)
	}
	if got.Severity != core.SeverityError {
		t.Errorf("severity lost in transit: %q", got.Severity)
	}
	if !got.Timestamp.Equal(raised.Timestamp) {
		t.Errorf("timestamp lost in transit: %v", got.Timestamp)
	}
}

func TestHandleAlertMessage_WriterFailure(t *testing.T) {
	w := NewAlertWorker(failingAlertWriter{})

	msg := amqp.NewAlertMessage(core.Notification{ID: "n-1", Message: "x", Severity: core.SeverityWarning})
	if err := w.HandleAlertMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error from failing writer")
	}
}
