package models

import "encoding/json"

// Dispatch log statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

// LogEntry records one dispatch attempt. The endpoint name is
// denormalized so entries stay readable after the endpoint is deleted,
// and the payload is kept verbatim so a failed attempt can be retried.
type LogEntry struct {
	ID              string          `json:"id"`
	EndpointID      string          `json:"endpoint_id"`
	EndpointName    string          `json:"endpoint_name"`
	Timestamp       int64           `json:"timestamp"`
	Status          string          `json:"status"`
	SourceIP        string          `json:"source_ip"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	PayloadSummary  string          `json:"payload_summary"`
	ResponseMessage string          `json:"response_message"`
}
