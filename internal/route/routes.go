package route

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ripeness/internal/config"
	"ripeness/internal/handler"
	"ripeness/internal/logger"
	"ripeness/internal/middleware"
	"ripeness/internal/repository"
	"ripeness/internal/service"
	"ripeness/internal/service/roboflow"
	"ripeness/internal/service/storage"
	"ripeness/internal/service/websocket"
)

// Deps groups everything the routes need.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Manager   *service.Manager
	Uploads   *storage.UploadService
	Roboflow  *roboflow.Client
	Hub       *websocket.HubService
	Runs      repository.RunRepository // nil when the ledger is disabled
	StartedAt time.Time
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the proxy, the workbench API, the live feed and the
// admin endpoints.
func SetupRoutes(d Deps) http.Handler {
	cfg, log := d.Config, d.Logger
	mux := http.NewServeMux()
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.AdminOnly(cfg.AdminPassword, h)
	}

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Detection proxy
	var publisher handler.RunPublisher
	if d.Hub != nil {
		publisher = d.Hub
	}
	mux.Handle("/api/infer", middleware.CORS(
		handler.InferHandler(d.Roboflow, d.Runs, publisher, log, cfg.MaxUploadSize*2)))

	// Workbench
	mux.HandleFunc("POST /api/uploads", handler.UploadHandler(d.Manager, log, cfg.MaxUploadSize))
	mux.HandleFunc("GET /api/uploads/{id}", handler.UploadInfoHandler(d.Manager, log))
	mux.HandleFunc("DELETE /api/uploads/{id}", handler.DeleteUploadHandler(d.Manager, log))
	mux.HandleFunc("GET /api/uploads/{id}/image", handler.UploadImageHandler(d.Manager, log))
	mux.HandleFunc("POST /api/uploads/{id}/run", handler.RunHandler(d.Manager, log))
	mux.HandleFunc("GET /api/uploads/{id}/overlay", handler.OverlayHandler(d.Manager, log))
	mux.HandleFunc("GET /api/uploads/{id}/table", handler.TableHandler(d.Manager, log))
	mux.HandleFunc("GET /api/uploads/{id}/raw", handler.RawHandler(d.Manager, log))

	// Run ledger
	mux.HandleFunc("GET /api/runs", handler.ListRunsHandler(d.Runs, log))
	mux.Handle("/api/runs/clear", admin(handler.ClearRunsHandler(d.Runs, log)))

	// Live feed and health
	var viewers handler.Counter
	if d.Hub != nil {
		mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(d.Hub, log))
		viewers = d.Hub.GetClientCount
	}
	mux.HandleFunc("GET /health", handler.HealthHandler(d.StartedAt, viewers, d.Uploads.Len, d.Roboflow.Configured(), log))

	// Log endpoints
	mux.Handle("GET /logs/{level}", admin(handler.ShowLogsHandler(log)))
	mux.Handle("/logs/{level}/clear", admin(handler.ClearLogsHandler(log)))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg.AdminPassword, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /runs -> /static/runs.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return mux
}
