package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"ripeness/internal/logger"
	"ripeness/internal/service"
	"ripeness/internal/service/inference"
	"ripeness/internal/service/render"
	"ripeness/internal/service/storage"
)

// UploadHandler handles POST /api/uploads with a multipart "file" field.
func UploadHandler(manager *service.Manager, logger *logger.Logger, maxSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+(1<<20))
		if err := r.ParseMultipartForm(maxSize); err != nil {
			respondError(w, "Failed to parse form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, "No file uploaded", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
		if err != nil {
			logger.Error("Error reading upload: %v", err)
			respondError(w, "Failed to read file", http.StatusInternalServerError)
			return
		}
		if int64(len(data)) > maxSize {
			respondError(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}

		info, err := manager.Upload(data, header.Filename)
		if err != nil {
			writeManagerError(w, logger, err)
			return
		}

		respondJSON(w, info, http.StatusCreated)
	}
}

// UploadInfoHandler handles GET /api/uploads/{id}.
func UploadInfoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upload, err := manager.Get(r.PathValue("id"))
		if err != nil {
			writeManagerError(w, logger, err)
			return
		}
		respondJSON(w, service.UploadInfo(upload), http.StatusOK)
	}
}

// UploadImageHandler serves the original bytes of an upload as its preview.
func UploadImageHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upload, err := manager.Get(r.PathValue("id"))
		if err != nil {
			writeManagerError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", http.DetectContentType(upload.Data))
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(upload.Data)
	}
}

// DeleteUploadHandler discards an upload.
func DeleteUploadHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.Delete(r.PathValue("id")); err != nil {
			writeManagerError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RunHandler handles POST /api/uploads/{id}/run. Settings fields missing from
// the body fall back to the configured defaults.
func RunHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings := manager.Defaults()
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
				respondError(w, "Invalid settings: "+err.Error(), http.StatusBadRequest)
				return
			}
		}

		result, err := manager.Run(r.Context(), r.PathValue("id"), settings)
		if err != nil {
			writeManagerError(w, logger, err)
			return
		}

		respondJSON(w, result, http.StatusOK)
	}
}

// OverlayHandler renders the latest predictions over the upload.
func OverlayHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold, err := parseThreshold(r.URL.Query().Get("threshold"))
		if err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}

		format := r.URL.Query().Get("format")
		if format == "" {
			format = render.FormatPNG
		}

		img, err := manager.Overlay(r.PathValue("id"), threshold, format)
		if err != nil {
			writeManagerError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", render.ContentType(format))
		w.Write(img)
	}
}

// TableHandler returns the filtered, ranked results table.
func TableHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold, err := parseThreshold(r.URL.Query().Get("threshold"))
		if err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}

		table, err := manager.Table(r.PathValue("id"), threshold)
		if err != nil {
			writeManagerError(w, logger, err)
			return
		}

		respondJSON(w, table, http.StatusOK)
	}
}

// RawHandler returns the unmodified proxy response, pretty-printed.
func RawHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := manager.Raw(r.PathValue("id"))
		if err != nil {
			writeManagerError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, raw)
	}
}

func parseThreshold(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, errors.New("threshold must be a number")
	}
	return &t, nil
}

// writeManagerError maps workbench errors onto HTTP statuses.
func writeManagerError(w http.ResponseWriter, logger *logger.Logger, err error) {
	var failure *inference.Failure
	switch {
	case errors.As(err, &failure):
		status := failure.Status
		switch failure.Kind {
		case inference.KindValidation:
			status = http.StatusBadRequest
		case inference.KindConnection:
			status = http.StatusBadGateway
		}
		if status == 0 {
			status = http.StatusBadGateway
		}
		respondJSON(w, failure, status)
	case errors.Is(err, storage.ErrUploadNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrRunInProgress):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrNoResult):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidImage), errors.Is(err, service.ErrInvalidSettings):
		respondError(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Error("Workbench error: %v", err)
		respondError(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
