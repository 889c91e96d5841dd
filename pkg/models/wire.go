package models

// Wire payloads for the coordinator -> worker -> aggregator pipeline.
// Field names are the contract; all three services bind these shapes.

// DetectRequest is the body of POST /detect on a worker.
type DetectRequest struct {
	RequestID        string             `json:"request_id"`
	EventFingerprint string             `json:"event_fingerprint"`
	Events           []TransactionEvent `json:"events"`
}

// DetectResponse is a worker's reply. Cached reports whether the result was
// served from the idempotency cache rather than a fresh detection run.
type DetectResponse struct {
	ServiceName string               `json:"service_name"`
	Cached      bool                 `json:"cached"`
	Sequences   []SuspiciousSequence `json:"sequences"`
}

// ServiceResult is one worker's contribution inside an AggregateRequest.
type ServiceResult struct {
	ServiceName string               `json:"service_name"`
	Sequences   []SuspiciousSequence `json:"sequences"`
}

// Aggregation and orchestration statuses.
const (
	AggregateStatusCompleted        = "completed"
	AggregateStatusValidationFailed = "validation_failed"

	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// AggregateRequest is the body of POST /aggregate.
type AggregateRequest struct {
	RequestID        string          `json:"request_id"`
	ExpectedServices []string        `json:"expected_services"`
	Results          []ServiceResult `json:"results"`
}

// AggregateResponse reports the aggregation outcome. Status is "completed"
// or "validation_failed"; validation failures keep HTTP 200 with the failure
// carried in the body.
type AggregateResponse struct {
	RequestID              string `json:"request_id"`
	Status                 string `json:"status"`
	Error                  string `json:"error,omitempty"`
	SequenceCount          int    `json:"sequence_count"`
	SuspiciousAccountsPath string `json:"suspicious_accounts_path,omitempty"`
	DetectionLogsPath      string `json:"detection_logs_path,omitempty"`
}

// OrchestrateRequest is the body of POST /orchestrate on the coordinator.
type OrchestrateRequest struct {
	InputFile string `json:"input_file"`
}

// OrchestrateResult is the coordinator's summary of one pipeline invocation.
type OrchestrateResult struct {
	RequestID         string   `json:"request_id"`
	Status            string   `json:"status"` // completed | failed
	EventFingerprint  string   `json:"event_fingerprint"`
	EventsRead        int      `json:"events_read"`
	RowsSkipped       int      `json:"rows_skipped"`
	ServicesCompleted []string `json:"services_completed"`
	ServicesFailed    []string `json:"services_failed"`
	SequenceCount     int      `json:"sequence_count"`
	Error             string   `json:"error,omitempty"`
}
