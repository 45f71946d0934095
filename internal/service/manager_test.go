package service

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripeness/internal/dto"
	"ripeness/internal/logger"
	"ripeness/internal/model"
	"ripeness/internal/service/inference"
	"ripeness/internal/service/storage"
)

type fakeInferer struct {
	result *model.InferenceResult
	err    error
	block  chan struct{}
	calls  int
	mu     sync.Mutex
}

func (f *fakeInferer) Infer(ctx context.Context, image []byte, modelID string) (*model.InferenceResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

type fakeRenderer struct {
	threshold float64
	count     int
}

func (f *fakeRenderer) Render(img []byte, predictions []model.Prediction, threshold float64, format string) ([]byte, error) {
	f.threshold = threshold
	f.count = len(predictions)
	return []byte("rendered-" + format), nil
}

type fakePublisher struct {
	events []dto.RunEvent
	mu     sync.Mutex
}

func (f *fakePublisher) Publish(event dto.RunEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 6))))
	return buf.Bytes()
}

var defaultSettings = model.Settings{ModelID: "ripeness-detection_1/1", ConfidenceThreshold: 0.25}

func newTestManager(inferer Inferer) (*Manager, *fakeRenderer, *fakePublisher) {
	renderer := &fakeRenderer{}
	publisher := &fakePublisher{}
	uploads := storage.NewUploadService(4, time.Hour, logger.Discard())
	return NewManager(uploads, inferer, renderer, publisher, defaultSettings, logger.Discard()), renderer, publisher
}

func sampleResult() *model.InferenceResult {
	raw := `{"predictions":[{"x":1,"y":1,"width":1,"height":1,"class":"ripe","confidence":0.9},{"x":2,"y":2,"width":1,"height":1,"class":"unripe","confidence":0.3},{"x":3,"y":3,"width":1,"height":1,"class":"overripe","confidence":0.1}]}`
	var resp model.InferenceResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		panic(err)
	}
	return &model.InferenceResult{Predictions: resp.Predictions, Raw: json.RawMessage(raw)}
}

func TestManager_UploadRejectsNonImage(t *testing.T) {
	m, _, _ := newTestManager(&fakeInferer{})

	_, err := m.Upload([]byte("text"), "notes.txt")
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestManager_RunThenPresent(t *testing.T) {
	m, renderer, publisher := newTestManager(&fakeInferer{result: sampleResult()})

	info, err := m.Upload(pngBytes(t), "banana.png")
	require.NoError(t, err)
	assert.Equal(t, "/api/uploads/"+info.ID+"/image", info.PreviewURL)
	assert.Equal(t, 8, info.Width)

	result, err := m.Run(context.Background(), info.ID, defaultSettings)
	require.NoError(t, err)
	assert.Len(t, result.Predictions, 3)

	table, err := m.Table(info.ID, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "ripe", table.Rows[0].Class)
	assert.Equal(t, "unripe", table.Rows[1].Class)

	higher := 0.5
	table, err = m.Table(info.ID, &higher)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)

	out, err := m.Overlay(info.ID, nil, "png")
	require.NoError(t, err)
	assert.Equal(t, "rendered-png", string(out))
	assert.InDelta(t, 0.25, renderer.threshold, 1e-9)
	assert.Equal(t, 3, renderer.count)

	raw, err := m.Raw(info.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(result.Raw), raw)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, model.OutcomeOK, publisher.events[0].Outcome)
	assert.Equal(t, 3, publisher.events[0].Predictions)
}

func TestManager_RunValidatesThreshold(t *testing.T) {
	inferer := &fakeInferer{result: sampleResult()}
	m, _, _ := newTestManager(inferer)
	info, err := m.Upload(pngBytes(t), "a.png")
	require.NoError(t, err)

	_, err = m.Run(context.Background(), info.ID, model.Settings{ModelID: "m/1", ConfidenceThreshold: 1.5})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Zero(t, inferer.calls)

	bad := -0.1
	_, err = m.Run(context.Background(), info.ID, defaultSettings)
	require.NoError(t, err)
	_, err = m.Table(info.ID, &bad)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestManager_SingleRunInFlight(t *testing.T) {
	inferer := &fakeInferer{result: sampleResult(), block: make(chan struct{})}
	m, _, _ := newTestManager(inferer)
	info, err := m.Upload(pngBytes(t), "a.png")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := m.Run(context.Background(), info.ID, defaultSettings)
		done <- err
	}()

	require.Eventually(t, func() bool {
		up, err := m.Get(info.ID)
		return err == nil && up.Running()
	}, time.Second, 5*time.Millisecond)

	_, err = m.Run(context.Background(), info.ID, defaultSettings)
	assert.ErrorIs(t, err, storage.ErrRunInProgress)

	close(inferer.block)
	assert.NoError(t, <-done)
}

func TestManager_FailureKeepsRawAndHasNoTable(t *testing.T) {
	failure := &inference.Failure{
		Kind:    inference.KindAPI,
		Title:   "API Error (503)",
		Message: "Roboflow API error: 503",
		Details: "oops",
		Status:  503,
		Raw:     json.RawMessage(`{"error":"Roboflow API error: 503","details":"oops"}`),
	}
	m, _, publisher := newTestManager(&fakeInferer{err: failure})
	info, err := m.Upload(pngBytes(t), "a.png")
	require.NoError(t, err)

	_, err = m.Run(context.Background(), info.ID, defaultSettings)
	assert.ErrorIs(t, err, failure)

	_, err = m.Table(info.ID, nil)
	assert.ErrorIs(t, err, ErrNoResult)

	raw, err := m.Raw(info.ID)
	require.NoError(t, err)
	assert.Contains(t, raw, `"details": "oops"`)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, 503, publisher.events[0].Status)
}

func TestManager_UnknownUpload(t *testing.T) {
	m, _, _ := newTestManager(&fakeInferer{})

	_, err := m.Run(context.Background(), "nope", defaultSettings)
	assert.ErrorIs(t, err, storage.ErrUploadNotFound)

	_, err = m.Raw("nope")
	assert.ErrorIs(t, err, storage.ErrUploadNotFound)
}
