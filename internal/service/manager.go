package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ripeness/internal/dto"
	"ripeness/internal/logger"
	"ripeness/internal/model"
	"ripeness/internal/service/inference"
	"ripeness/internal/service/results"
	"ripeness/internal/service/storage"
)

var (
	// ErrInvalidImage wraps uploads that do not decode as an image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrInvalidSettings wraps out-of-range settings or thresholds.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrNoResult is returned when an upload has no inference output yet.
	ErrNoResult = errors.New("no inference result for this upload")
)

// Inferer runs one detection request for an image.
type Inferer interface {
	Infer(ctx context.Context, image []byte, modelID string) (*model.InferenceResult, error)
}

// Renderer draws predictions over an image.
type Renderer interface {
	Render(img []byte, predictions []model.Prediction, threshold float64, format string) ([]byte, error)
}

// RunPublisher announces finished runs to live viewers.
type RunPublisher interface {
	Publish(event dto.RunEvent)
}

// Manager ties uploads, inference and presentation together for the workbench.
type Manager struct {
	uploads   *storage.UploadService
	inferer   Inferer
	renderer  Renderer
	publisher RunPublisher
	defaults  model.Settings
	logger    *logger.Logger
}

// NewManager wires the workbench. publisher may be nil.
func NewManager(uploads *storage.UploadService, inferer Inferer, renderer Renderer, publisher RunPublisher, defaults model.Settings, logger *logger.Logger) *Manager {
	return &Manager{
		uploads:   uploads,
		inferer:   inferer,
		renderer:  renderer,
		publisher: publisher,
		defaults:  defaults,
		logger:    logger,
	}
}

// Defaults returns the settings used when a run request omits fields.
func (m *Manager) Defaults() model.Settings {
	return m.defaults
}

// Upload validates and stores an image.
func (m *Manager) Upload(data []byte, filename string) (dto.UploadInfo, error) {
	info, err := storage.InspectImage(data)
	if err != nil {
		return dto.UploadInfo{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	upload, err := m.uploads.Add(data, filename, info)
	if err != nil {
		return dto.UploadInfo{}, err
	}

	return UploadInfo(upload), nil
}

// UploadInfo describes a stored upload.
func UploadInfo(upload storage.Upload) dto.UploadInfo {
	return dto.UploadInfo{
		ID:         upload.ID,
		Filename:   upload.Filename,
		Format:     upload.Format,
		Width:      upload.Width,
		Height:     upload.Height,
		Size:       len(upload.Data),
		PreviewURL: "/api/uploads/" + upload.ID + "/image",
		CreatedAt:  upload.CreatedAt,
	}
}

// Get returns the stored upload.
func (m *Manager) Get(id string) (storage.Upload, error) {
	return m.uploads.Get(id)
}

// Delete discards an upload and its results.
func (m *Manager) Delete(id string) error {
	return m.uploads.Delete(id)
}

// Run sends the upload through the inference client. Only one run per upload
// may be in flight; a second call fails with storage.ErrRunInProgress.
func (m *Manager) Run(ctx context.Context, id string, settings model.Settings) (*model.InferenceResult, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	upload, err := m.uploads.BeginRun(id, settings)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := m.inferer.Infer(ctx, upload.Data, settings.ModelID)
	m.uploads.FinishRun(id, result, err)

	event := dto.RunEvent{
		Type:     "run",
		UploadID: id,
		ModelID:  settings.ModelID,
		Time:     time.Now().UTC(),
	}

	if err != nil {
		m.logger.Warning("Run for upload %s failed after %s: %v", id, time.Since(start), err)
		event.Outcome = "failed"
		event.Error = err.Error()
		var failure *inference.Failure
		if errors.As(err, &failure) {
			event.Status = failure.Status
		}
		m.publish(event)
		return nil, err
	}

	visible := len(results.Filter(result.Predictions, settings.ConfidenceThreshold))
	m.logger.Info("Run for upload %s: %d predictions, %d at or above %.2f (%s)", id, len(result.Predictions), visible, settings.ConfidenceThreshold, time.Since(start))

	event.Outcome = model.OutcomeOK
	event.Status = 200
	event.Predictions = len(result.Predictions)
	m.publish(event)

	return result, nil
}

// Overlay renders the latest predictions of an upload. A nil threshold uses
// the threshold the run was made with.
func (m *Manager) Overlay(id string, threshold *float64, format string) ([]byte, error) {
	upload, t, err := m.resultFor(id, threshold)
	if err != nil {
		return nil, err
	}
	return m.renderer.Render(upload.Data, upload.Result.Predictions, t, format)
}

// Table returns the filtered, ranked results table of an upload.
func (m *Manager) Table(id string, threshold *float64) (dto.TableData, error) {
	upload, t, err := m.resultFor(id, threshold)
	if err != nil {
		return dto.TableData{}, err
	}
	return results.Table(upload.Result.Predictions, t), nil
}

// Raw returns the unmodified proxy response of the latest run, pretty-printed.
// API failures carry a body too and are shown the same way.
func (m *Manager) Raw(id string) (string, error) {
	upload, err := m.uploads.Get(id)
	if err != nil {
		return "", err
	}

	var raw []byte
	switch {
	case upload.Result != nil:
		raw = upload.Result.Raw
	case upload.Failure != nil:
		var failure *inference.Failure
		if errors.As(upload.Failure, &failure) {
			raw = failure.Raw
		}
	}
	if len(raw) == 0 {
		return "", ErrNoResult
	}

	return results.FormatRaw(raw)
}

func (m *Manager) resultFor(id string, threshold *float64) (storage.Upload, float64, error) {
	upload, err := m.uploads.Get(id)
	if err != nil {
		return storage.Upload{}, 0, err
	}
	if upload.Result == nil {
		return storage.Upload{}, 0, ErrNoResult
	}

	t := upload.Settings.ConfidenceThreshold
	if threshold != nil {
		t = *threshold
	}
	if t < 0 || t > 1 {
		return storage.Upload{}, 0, fmt.Errorf("%w: threshold %v outside [0,1]", ErrInvalidSettings, t)
	}

	return upload, t, nil
}

func (m *Manager) publish(event dto.RunEvent) {
	if m.publisher != nil {
		m.publisher.Publish(event)
	}
}
