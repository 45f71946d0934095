package model

import "encoding/json"

// Prediction is one detected object as returned by the detection API.
// X and Y are the box center in source-image pixels.
type Prediction struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Left returns the x coordinate of the box's top-left corner.
func (p Prediction) Left() float64 { return p.X - p.Width/2 }

// Top returns the y coordinate of the box's top-left corner.
func (p Prediction) Top() float64 { return p.Y - p.Height/2 }

// InferenceResult is a successful detection response. Raw holds the upstream
// body exactly as received so it can be shown unmodified.
type InferenceResult struct {
	Predictions []Prediction    `json:"predictions"`
	Raw         json.RawMessage `json:"raw"`
}

// InferenceResponse is the decoded shape of a proxy response body. Error and
// Details are only set on failures.
type InferenceResponse struct {
	Predictions []Prediction `json:"predictions,omitempty"`
	Error       string       `json:"error,omitempty"`
	Details     string       `json:"details,omitempty"`
}
