// Package inference is the client side of the detection proxy: it validates
// input, encodes the image and turns proxy replies into results or failures.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ripeness/internal/dto"
	"ripeness/internal/model"
)

// Failure kinds.
const (
	KindValidation = "validation"
	KindAPI        = "api"
	KindConnection = "connection"
)

// Failure is a user-facing, dismissible error for one inference attempt.
// Raw holds the proxy body for API failures.
type Failure struct {
	Kind    string          `json:"kind"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Details string          `json:"details,omitempty"`
	Status  int             `json:"status,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
	cause   error
}

func (f *Failure) Error() string {
	return f.Title + ": " + f.Message
}

func (f *Failure) Unwrap() error {
	return f.cause
}

var (
	errNoImage = &Failure{
		Kind:    KindValidation,
		Title:   "No Image Selected",
		Message: "Please upload an image first.",
	}
	errNoModel = &Failure{
		Kind:    KindValidation,
		Title:   "Model ID Required",
		Message: "Please enter a valid Roboflow model ID.",
	}
)

// Client posts images to the proxy endpoint.
type Client struct {
	proxyURL   string
	httpClient *http.Client
}

// NewClient creates a Client for proxyURL. A nil httpClient uses a client
// without a timeout.
func NewClient(proxyURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{proxyURL: proxyURL, httpClient: httpClient}
}

// Infer encodes image and runs it through the proxy. Every error it returns
// is a *Failure; validation failures never touch the network.
func (c *Client) Infer(ctx context.Context, image []byte, modelID string) (*model.InferenceResult, error) {
	if len(image) == 0 {
		return nil, errNoImage
	}
	return c.InferEncoded(ctx, EncodeImage(image), modelID)
}

// InferEncoded is Infer for an already base64-encoded image or a data URL.
func (c *Client) InferEncoded(ctx context.Context, encoded, modelID string) (*model.InferenceResult, error) {
	encoded = StripDataURL(encoded)
	if encoded == "" {
		return nil, errNoImage
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errNoModel
	}

	payload, err := json.Marshal(dto.InferRequest{Image: encoded, ModelID: modelID})
	if err != nil {
		return nil, connectionFailure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL, bytes.NewReader(payload))
	if err != nil {
		return nil, connectionFailure(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, connectionFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectionFailure(err)
	}

	var data model.InferenceResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, connectionFailure(fmt.Errorf("decode proxy response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := data.Error
		if message == "" {
			message = "Failed to process the image."
		}
		return nil, &Failure{
			Kind:    KindAPI,
			Title:   fmt.Sprintf("API Error (%d)", resp.StatusCode),
			Message: message,
			Details: data.Details,
			Status:  resp.StatusCode,
			Raw:     json.RawMessage(body),
		}
	}

	predictions := data.Predictions
	if predictions == nil {
		predictions = []model.Prediction{}
	}
	return &model.InferenceResult{Predictions: predictions, Raw: json.RawMessage(body)}, nil
}

// EncodeImage base64-encodes raw image bytes.
func EncodeImage(image []byte) string {
	return base64.StdEncoding.EncodeToString(image)
}

// StripDataURL drops a "data:<mime>;base64," prefix if present.
func StripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return ""
}

func connectionFailure(err error) *Failure {
	message := "Failed to connect to the server."
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return &Failure{
		Kind:    KindConnection,
		Title:   "Connection Error",
		Message: message,
		cause:   err,
	}
}
