package handler

import (
	"net/http"
	"os"

	"ripeness/internal/logger"
)

// ShowLogsHandler serves the log file for the {level} path value as text/plain.
func ShowLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level := r.PathValue("level")
		if !logger.HasLevel(level) {
			http.NotFound(w, r)
			return
		}

		filePath := logger.FilePath(level)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Log file not found: " + level + ".log"))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")

		http.ServeFile(w, r, filePath)
	}
}

// ClearLogsHandler truncates the log file for the {level} path value.
func ClearLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := logger.CleanLogs(r.PathValue("level")); err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}

		respondJSON(w, map[string]string{"status": "cleared"}, http.StatusOK)
	}
}
