package dto

// InferRequest is the JSON body accepted by the proxy. Confidence and Overlap
// are forwarded to the detection API only when present.
type InferRequest struct {
	Image      string   `json:"image"`
	ModelID    string   `json:"model_id"`
	Confidence *float64 `json:"confidence,omitempty"`
	Overlap    *float64 `json:"overlap,omitempty"`
}
