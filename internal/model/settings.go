package model

import "fmt"

// Settings are the two user-editable inference parameters.
type Settings struct {
	ModelID             string  `json:"model_id"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// Validate checks the threshold range. A blank model id is reported by the
// inference client as a user-facing failure instead.
func (s Settings) Validate() error {
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v outside [0,1]", s.ConfidenceThreshold)
	}
	return nil
}
