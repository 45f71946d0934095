// Package roboflow forwards base64 images to the Roboflow serverless
// detection API.
package roboflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Params are optional query parameters passed through to the model.
type Params struct {
	Confidence *float64
	Overlap    *float64
}

// Response is the upstream reply, body unparsed.
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the upstream answered with a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client holds the server-side API key. It keeps no per-request state.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client. A zero timeout waits for the upstream indefinitely.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// URL builds the detection endpoint for modelID, e.g.
// https://serverless.roboflow.com/ripeness-detection_1/1?api_key=KEY&confidence=40
func (c *Client) URL(modelID string, params Params) string {
	query := url.Values{}
	query.Set("api_key", c.apiKey)
	if params.Confidence != nil {
		query.Set("confidence", formatNumber(*params.Confidence))
	}
	if params.Overlap != nil {
		query.Set("overlap", formatNumber(*params.Overlap))
	}

	return c.baseURL + "/" + modelID + "?" + query.Encode()
}

// Detect posts the base64 image as a form-encoded body and returns whatever
// the upstream answered. Only transport failures are returned as errors.
func (c *Client) Detect(ctx context.Context, modelID, image string, params Params) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(modelID, params), strings.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{Status: resp.StatusCode, Body: body}, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// redact strips the API key from transport errors, which embed the request URL.
func redact(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
