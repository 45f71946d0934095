package model

import "time"

// Run outcomes recorded for every proxy forward.
const (
	OutcomeOK             = "ok"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeInvalidJSON    = "invalid_json"
	OutcomeTransportError = "transport_error"
)

// Run is a ledger entry describing one proxy forward. It never carries the
// image or the predictions themselves.
type Run struct {
	ID          int64     `json:"id"`
	ModelID     string    `json:"model_id"`
	Status      int       `json:"status"`
	Outcome     string    `json:"outcome"`
	Predictions int       `json:"predictions"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
