package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	"weedcam/internal/config"
	"weedcam/internal/logger"
	"weedcam/internal/repository"
	"weedcam/internal/repository/sqlite"
	"weedcam/internal/route"
	"weedcam/internal/service"
	"weedcam/internal/service/ai"
	"weedcam/internal/service/camera"
	"weedcam/internal/service/storage"
	"weedcam/internal/service/websocket"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	model         *ai.Model
	annotator     *ai.Annotator
	streamer      *camera.Streamer
	db            *sqlite.DB
	detectionRepo repository.DetectionRepository
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	started       time.Time
}

// NewApp loads configuration, the detection model and the history database.
// A model that cannot be loaded is fatal.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	model, err := ai.LoadModel(cfg, log)
	if err != nil {
		log.Error("Failed to load detection model: %v", err)
		log.Close()
		return nil, err
	}

	a := &App{
		config:     cfg,
		logger:     log,
		model:      model,
		annotator:  ai.NewAnnotator(model),
		hubService: websocket.NewHubService(log),
		started:    time.Now(),
	}
	a.streamer = camera.NewStreamer(a.annotator, camera.OpenDevice, camera.IndexesFromConfig(cfg), log)

	if cfg.DatabasePath != "" {
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		a.detectionRepo = sqlite.NewDetectionRepository(db)
		log.Info("Detection history stored in %s", cfg.DatabasePath)
	} else {
		log.Warning("DB_PATH is empty, detection history is disabled")
	}
	a.bufferService = storage.NewBufferService(a.detectionRepo, log)

	return a, nil
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	manager := service.NewManager(ctx, a.streamer, a.hubService, a.bufferService, a.logger)
	router := route.SetupRoutes(a.config, a.logger, a.annotator, a.streamer, manager, a.model, a.detectionRepo, a.started)

	server := &http.Server{
		Addr:     fmt.Sprintf(":%d", a.config.Port),
		Handler:  router,
		ErrorLog: a.logger.ErrorLog(),
		// Open video feeds end with the server context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		return a.hubService.Run(ctx)
	})
	g.Go(func() error {
		return a.bufferService.Run(ctx, storage.FlushInterval)
	})
	g.Go(func() error {
		a.logger.Info("Weed detection server listening on http://localhost:%d", a.config.Port)
		a.logger.Info("Model: %s", a.config.ModelPath)
		if a.config.AuthEnabled() {
			a.logger.Info("Password protection enabled")
		}
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		manager.Stop()
		return err
	})

	return g.Wait()
}

// Close releases the model, the database and the log files.
func (a *App) Close() {
	if a.model != nil {
		a.model.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database: %v", err)
		}
	}
	a.logger.Close()
}
