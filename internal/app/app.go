package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ripeness/internal/config"
	"ripeness/internal/logger"
	"ripeness/internal/model"
	"ripeness/internal/repository"
	"ripeness/internal/repository/sqlite"
	"ripeness/internal/route"
	"ripeness/internal/service"
	"ripeness/internal/service/inference"
	"ripeness/internal/service/overlay"
	"ripeness/internal/service/render"
	"ripeness/internal/service/roboflow"
	"ripeness/internal/service/storage"
	"ripeness/internal/service/websocket"
)

const (
	evictInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	uploads    *storage.UploadService
	hubService *websocket.HubService
	server     *http.Server
}

func NewApp() (*App, error) {
	cfg := config.Load()

	palette, err := config.LoadPalette(cfg.PaletteFile)
	if err != nil {
		return nil, err
	}
	cfg.Palette = palette

	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, err
	}

	var (
		db   *sqlite.DB
		runs repository.RunRepository
	)
	if cfg.DBPath != "" {
		db, err = sqlite.New(cfg.DBPath)
		if err != nil {
			log.Close()
			return nil, err
		}
		runs = sqlite.NewRunRepository(db)
	} else {
		log.Warning("DB_PATH is empty, run ledger disabled")
	}

	colors, err := overlay.NewPalette(cfg.Palette)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("palette: %w", err)
	}

	hub := websocket.NewHubService(log)
	uploads := storage.NewUploadService(cfg.UploadLimit, cfg.UploadTTL, log)
	forwarder := roboflow.NewClient(cfg.RoboflowAPIURL, cfg.RoboflowAPIKey, cfg.UpstreamTimeout)
	inferer := inference.NewClient(cfg.ProxyURL, nil)
	renderer := render.NewRendererService(overlay.Options{
		ContainerWidth: cfg.ContainerWidth,
		MaxHeight:      cfg.MaxHeight,
	}, colors, log)

	mng := service.NewManager(uploads, inferer, renderer, hub, model.Settings{
		ModelID:             cfg.DefaultModelID,
		ConfidenceThreshold: cfg.DefaultConfidence,
	}, log)

	router := route.SetupRoutes(route.Deps{
		Config:    cfg,
		Logger:    log,
		Manager:   mng,
		Uploads:   uploads,
		Roboflow:  forwarder,
		Hub:       hub,
		Runs:      runs,
		StartedAt: time.Now(),
	})

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		uploads:    uploads,
		hubService: hub,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.close()

	if a.config.RoboflowAPIKey == "" {
		a.logger.Warning("ROBOFLOW_API_KEY is not set, /api/infer will answer 500")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.hubService.Run(ctx) })
	g.Go(func() error { return a.uploads.Run(ctx, evictInterval) })
	g.Go(func() error {
		a.logger.Info("Ripeness server listening on http://localhost:%d", a.config.Port)
		a.logger.Info("Default model: %s, confidence %.2f", a.config.DefaultModelID, a.config.DefaultConfidence)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Closing database: %v", err)
		}
	}
	a.logger.Close()
}
