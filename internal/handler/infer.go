package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ripeness/internal/dto"
	"ripeness/internal/logger"
	"ripeness/internal/model"
	"ripeness/internal/repository"
	"ripeness/internal/service/roboflow"
)

const maxRunError = 512

// Forwarder relays an image to the detection API.
type Forwarder interface {
	Configured() bool
	Detect(ctx context.Context, modelID, image string, params roboflow.Params) (*roboflow.Response, error)
}

// RunPublisher announces proxy forwards on the live feed.
type RunPublisher interface {
	Publish(event dto.RunEvent)
}

// InferHandler handles POST /api/infer: it attaches the server-side API key
// and relays the request to the detection API. It keeps no state between
// requests; runs and publisher only observe what happened and may be nil.
func InferHandler(forwarder Forwarder, runs repository.RunRepository, publisher RunPublisher, logger *logger.Logger, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if !forwarder.Configured() {
			logger.Error("ROBOFLOW_API_KEY is not configured")
			respondError(w, "ROBOFLOW_API_KEY is not configured on the server", http.StatusInternalServerError)
			return
		}

		var req dto.InferRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
			logger.Error("Error in infer handler: %v", err)
			respondError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if req.Image == "" {
			respondError(w, "No image provided", http.StatusBadRequest)
			return
		}
		if req.ModelID == "" {
			respondError(w, "No model_id provided", http.StatusBadRequest)
			return
		}

		logger.Info("Calling Roboflow API for model: %s", req.ModelID)

		run := &model.Run{ModelID: req.ModelID}
		start := time.Now()
		defer func() {
			run.DurationMS = time.Since(start).Milliseconds()
			recordRun(runs, publisher, logger, run)
		}()

		resp, err := forwarder.Detect(r.Context(), req.ModelID, req.Image, roboflow.Params{
			Confidence: req.Confidence,
			Overlap:    req.Overlap,
		})
		if err != nil {
			logger.Error("Error in infer handler: %v", err)
			run.Status, run.Outcome, run.Error = http.StatusInternalServerError, model.OutcomeTransportError, err.Error()
			respondError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		logger.Info("Roboflow response status: %d", resp.Status)

		if !resp.OK() {
			logger.Error("Roboflow API error: %d - %s", resp.Status, resp.Body)
			run.Status, run.Outcome, run.Error = resp.Status, model.OutcomeUpstreamError, string(resp.Body)
			respondJSON(w, dto.ErrorResponse{
				Error:   fmt.Sprintf("Roboflow API error: %d", resp.Status),
				Details: string(resp.Body),
			}, resp.Status)
			return
		}

		// Only reachable for 2xx upstream replies; error statuses are relayed above.
		if !json.Valid(resp.Body) {
			logger.Error("Failed to parse Roboflow response as JSON")
			run.Status, run.Outcome, run.Error = http.StatusInternalServerError, model.OutcomeInvalidJSON, "invalid JSON"
			respondJSON(w, dto.ErrorResponse{
				Error: "Invalid JSON response from Roboflow",
				Raw:   string(resp.Body),
			}, http.StatusInternalServerError)
			return
		}

		run.Status, run.Outcome = http.StatusOK, model.OutcomeOK
		run.Predictions = countPredictions(resp.Body)
		logger.Info("Roboflow returned %d predictions", run.Predictions)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(resp.Body)
	}
}

func countPredictions(body []byte) int {
	var payload struct {
		Predictions []json.RawMessage `json:"predictions"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0
	}
	return len(payload.Predictions)
}

func recordRun(runs repository.RunRepository, publisher RunPublisher, logger *logger.Logger, run *model.Run) {
	run.CreatedAt = time.Now().UTC()
	if len(run.Error) > maxRunError {
		run.Error = run.Error[:maxRunError]
	}

	if runs != nil {
		if _, err := runs.Insert(run); err != nil {
			logger.Error("Failed to record run: %v", err)
		}
	}

	if publisher != nil {
		publisher.Publish(dto.RunEvent{
			Type:        "proxy",
			ModelID:     run.ModelID,
			Status:      run.Status,
			Outcome:     run.Outcome,
			Predictions: run.Predictions,
			Error:       run.Error,
			Time:        run.CreatedAt,
		})
	}
}
