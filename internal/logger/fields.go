package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID).
	FieldRequestID = "request_id"

	// FieldJobID is the import job ID.
	FieldJobID = "job_id"

	// FieldGapID is the gap registry entry ID.
	FieldGapID = "gap_id"

	// FieldSourceID is the external provider's record identifier.
	FieldSourceID = "source_id"

	// FieldContentType is the catalog content type (movie/tv).
	FieldContentType = "content_type"

	// FieldComponent is the component/module name.
	FieldComponent = "component"
)

// Standard metric fields used for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field.
	FieldCount = "count"

	// FieldStatus is the operation status.
	FieldStatus = "status"
)
