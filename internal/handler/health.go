package handler

import (
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"ripeness/internal/logger"
)

// Counter reports a current size, such as connected viewers or held uploads.
type Counter func() int

// HealthHandler reports liveness plus process and host memory figures.
func HealthHandler(started time.Time, viewers, uploads Counter, proxyConfigured bool, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":           "ok",
			"uptime_seconds":   int64(time.Since(started).Seconds()),
			"proxy_configured": proxyConfigured,
		}
		if viewers != nil {
			body["viewers"] = viewers()
		}
		if uploads != nil {
			body["uploads"] = uploads()
		}

		ctx := r.Context()
		if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
			if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
				body["rss_bytes"] = info.RSS
			}
		} else {
			logger.Warning("Health: process stats unavailable: %v", err)
		}
		if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
			body["host_memory_used_percent"] = vm.UsedPercent
		}

		respondJSON(w, body, http.StatusOK)
	}
}
