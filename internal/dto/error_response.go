package dto

// ErrorResponse is the error envelope written by the proxy and the workbench.
// Raw carries an upstream body that could not be parsed as JSON.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Raw     string `json:"raw,omitempty"`
}
