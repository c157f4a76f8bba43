package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakshipatil0812/FinancialyAI/internal/amqp"
	"github.com/sakshipatil0812/FinancialyAI/internal/core"
	"github.com/sakshipatil0812/FinancialyAI/internal/sheets"
)

// AlertWorker appends raised alerts to the alerts sheet.
type AlertWorker struct {
	writer sheets.AlertWriter
}

func NewAlertWorker(writer sheets.AlertWriter) *AlertWorker {
	return &AlertWorker{writer: writer}
}

// HandleAlertMessage processes a single alert event from AMQP.
func (w *AlertWorker) HandleAlertMessage(ctx context.Context, msg *amqp.AlertMessage) error {
	slog.InfoContext(ctx, "Processing alert message",
		"notification_id", msg.NotificationID,
		"severity", msg.Severity)

	n := core.Notification{
		ID:        msg.NotificationID,
		Message:   msg.Message,
		Timestamp: msg.Timestamp,
		Severity:  core.Severity(msg.Severity),
	}
	ref, err := w.writer.AppendAlert(ctx, n)
	if err != nil {
		return fmt.Errorf("append alert to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Alert mirrored",
		"notification_id", msg.NotificationID,
		"sheets_ref", ref)
	return nil
}
