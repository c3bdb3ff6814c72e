package logger

// Fields is a shorthand for structured log fields.
type Fields map[string]interface{}

// ============================================
// Tracing fields, injected into the context
// once and carried through the call chain
// ============================================

const (
	// FieldRequestID identifies one API request.
	FieldRequestID = "request_id"

	// FieldRunID identifies one sync run.
	FieldRunID = "run_id"

	// FieldJobType is the run's job type, e.g. price_sync.
	FieldJobType = "job_type"

	// FieldProvider is the market data provider that served a call.
	FieldProvider = "provider"

	// FieldSymbol is the instrument being processed.
	FieldSymbol = "symbol"

	// FieldComponent names the emitting component.
	FieldComponent = "component"
)

// ============================================
// Metric fields, attached per log entry
// ============================================

const (
	// FieldDurationMs is elapsed wall time in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic record count.
	FieldCount = "count"

	// FieldSize is a payload size in bytes.
	FieldSize = "size"

	// FieldStatus is an operation or HTTP status.
	FieldStatus = "status"
)
