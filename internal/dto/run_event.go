package dto

import "time"

// RunEvent is broadcast to live-feed viewers whenever a run finishes.
type RunEvent struct {
	Type        string    `json:"type"`
	UploadID    string    `json:"upload_id,omitempty"`
	ModelID     string    `json:"model_id"`
	Status      int       `json:"status"`
	Outcome     string    `json:"outcome"`
	Predictions int       `json:"predictions"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}
