package route

import (
	"net/http"
	"os"
	"path/filepath"
	"time"
	"weedcam/internal/config"
	"weedcam/internal/handler"
	"weedcam/internal/logger"
	"weedcam/internal/middleware"
	"weedcam/internal/repository"
	"weedcam/internal/service"
	"weedcam/internal/service/camera"
)

// dynamicHTMLHandler serves /path as <staticDir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, annotator handler.ImageAnnotator,
	streamer *camera.Streamer, manager *service.Manager, model handler.ModelInfo,
	detectionRepo repository.DetectionRepository, started time.Time) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Detection endpoints
	mux.HandleFunc("POST /upload", handler.UploadHandler(annotator, detectionRepo, cfg, logger))
	mux.HandleFunc("GET /video_feed/{camera_type}", handler.VideoFeedHandler(streamer, logger))

	// API endpoints
	mux.HandleFunc("GET /api/view", handler.ViewWebsocketHandler(manager, logger))
	mux.HandleFunc("GET /api/detections", handler.GetDetectionsHandler(detectionRepo, logger))
	mux.HandleFunc("GET /api/detections/stats", handler.DetectionStatsHandler(detectionRepo, logger))
	mux.HandleFunc("POST /api/detections/clear", handler.ClearDetectionsHandler(detectionRepo, logger))
	mux.HandleFunc("GET /api/status", handler.StatusHandler(model, streamer, manager, started, logger))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	// Auth endpoints
	mux.HandleFunc("POST /auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /login -> static/login.html
	mux.HandleFunc("GET /", dynamicHTMLHandler(cfg.StaticDirectory))

	// Apply middleware
	return middleware.AuthMiddleware(cfg, mux)
}
