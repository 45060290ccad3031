package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldSuccess   = "success"
	FieldRoomID    = "room_id"
	FieldInvoiceID = "invoice_id"
	FieldMemberID  = "member_id"
	FieldPhone     = "phone"
	FieldAmount    = "amount"
	FieldStatus    = "status"
	FieldKey       = "key"
	FieldExportRef = "export_ref"
	FieldEventType = "event_type"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentDirectory = "directory"
	ComponentRooms     = "rooms"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentEvents    = "events"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentExport    = "export"
	ComponentBilling   = "billing"
	ComponentBackend   = "backend"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpSync     = "sync"
	OpExport   = "export"
	OpResolve  = "resolve"
	OpMigrate  = "migrate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
