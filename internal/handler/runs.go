package handler

import (
	"net/http"

	"ripeness/internal/logger"
	"ripeness/internal/model"
	"ripeness/internal/repository"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// ListRunsHandler returns the most recent proxy forwards with totals per outcome.
func ListRunsHandler(runs repository.RunRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runs == nil {
			respondError(w, "Run ledger is disabled", http.StatusServiceUnavailable)
			return
		}

		limit := atoiDefault(r.URL.Query().Get("limit"), defaultRunLimit)
		if limit <= 0 {
			limit = defaultRunLimit
		}
		if limit > maxRunLimit {
			limit = maxRunLimit
		}

		recent, err := runs.GetRecent(limit)
		if err != nil {
			logger.Error("Error getting runs: %v", err)
			respondError(w, "Failed to load runs", http.StatusInternalServerError)
			return
		}
		if recent == nil {
			recent = []model.Run{}
		}

		total, err := runs.GetTotalCount()
		if err != nil {
			logger.Error("Error counting runs: %v", err)
			respondError(w, "Failed to load runs", http.StatusInternalServerError)
			return
		}

		outcomes, err := runs.CountByOutcome()
		if err != nil {
			logger.Error("Error counting run outcomes: %v", err)
			respondError(w, "Failed to load runs", http.StatusInternalServerError)
			return
		}

		respondJSON(w, map[string]interface{}{
			"runs":     recent,
			"total":    total,
			"outcomes": outcomes,
		}, http.StatusOK)
	}
}

// ClearRunsHandler deletes every ledger row.
func ClearRunsHandler(runs repository.RunRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if runs == nil {
			respondError(w, "Run ledger is disabled", http.StatusServiceUnavailable)
			return
		}

		if err := runs.DeleteAll(); err != nil {
			logger.Error("Error clearing runs: %v", err)
			respondError(w, "Failed to clear runs", http.StatusInternalServerError)
			return
		}

		logger.Info("Run ledger cleared")
		respondJSON(w, map[string]string{"status": "cleared"}, http.StatusOK)
	}
}
