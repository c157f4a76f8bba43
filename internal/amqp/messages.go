package amqp

import (
	"encoding/json"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

const (
	MirrorActionRecord = "record"
	MirrorActionDelete = "delete"
)

// MirrorMessage represents a lightweight message for mirroring an expense to Google Sheets
// Contains only the ID and action, the worker will fetch the full expense from the database
type MirrorMessage struct {
	ExpenseID string    `json:"expense_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMirrorMessage creates a new mirror message with just the expense ID and action
func NewMirrorMessage(expenseID, action string) *MirrorMessage {
	return &MirrorMessage{
		ExpenseID: expenseID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MirrorMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MirrorMessageFromJSON creates a message from JSON bytes
func MirrorMessageFromJSON(data []byte) (*MirrorMessage, error) {
	var msg MirrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AlertMessage carries one warning or error notification to the alert worker.
// The full text travels in the message so the worker never re-reads the store.
type AlertMessage struct {
	NotificationID string    `json:"notification_id"`
	Message        string    `json:"message"`
	Severity       string    `json:"severity"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewAlertMessage creates an alert message from a notification
func NewAlertMessage(n core.Notification) *AlertMessage {
	return &AlertMessage{
		NotificationID: n.ID,
		Message:        n.Message,
		Severity:       string(n.Severity),
		Timestamp:      n.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertMessageFromJSON creates a message from JSON bytes
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
