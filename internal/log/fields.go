package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldExpenseID   = "expense_id"
	FieldExpenseDesc = "expense_description"
	FieldAmountCents = "amount_cents"
	FieldCategoryID  = "category_id"
	FieldMemberID    = "member_id"
	FieldPayerID     = "payer_id"
	FieldGoalID      = "goal_id"
	FieldTripID      = "trip_id"
	FieldSubID       = "subscription_id"
	FieldSeverity    = "severity"
	FieldSheetsRef   = "sheets_ref"
	FieldModel       = "model"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentLedger       = "ledger"
	ComponentStorage      = "storage"
	ComponentOracle       = "oracle"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentSheets       = "sheets"
	ComponentCache        = "cache"
	ComponentSubscription = "subscription"
)

// Operations defines standard operation names
const (
	OpRecord    = "record"
	OpImport    = "import"
	OpDelete    = "delete"
	OpReplace   = "replace"
	OpTransfer  = "transfer"
	OpMirror    = "mirror"
	OpAlert     = "alert"
	OpScan      = "scan"
	OpMaterial  = "materialize"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
