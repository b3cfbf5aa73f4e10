package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"weedcam/internal/config"
	"weedcam/internal/dto"
	"weedcam/internal/logger"
	"weedcam/internal/model"
	"weedcam/internal/repository"
	"weedcam/internal/service/storage"
)

const defaultMaxUploadSize = 32 << 20

// allowedExtensions lists the upload extensions accepted, without the dot.
var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

// ImageAnnotator annotates an encoded image and returns it as JPEG.
type ImageAnnotator interface {
	AnnotateJPEG(raw []byte) ([]byte, []dto.Detection, error)
}

// AllowedFile reports whether filename has an accepted image extension (case-insensitive).
func AllowedFile(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return ext != "" && allowedExtensions[strings.ToLower(ext)]
}

// UploadHandler handles POST /upload: it annotates the image in the "file"
// field and returns it as image/jpeg. A missing or disallowed file redirects
// back to the referring page. Nothing is written to disk.
func UploadHandler(annotator ImageAnnotator, detectionRepo repository.DetectionRepository,
	cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	maxSize := cfg.MaxUploadSize
	if maxSize <= 0 {
		maxSize = defaultMaxUploadSize
	}

	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		if err := r.ParseMultipartForm(maxSize); err != nil {
			redirectBack(w, r)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			redirectBack(w, r)
			return
		}
		defer file.Close()

		if !AllowedFile(header.Filename) {
			redirectBack(w, r)
			return
		}

		raw, err := io.ReadAll(file)
		if err != nil {
			logger.Error("Failed to read upload %s: %v", header.Filename, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		annotated, detections, err := annotator.AnnotateJPEG(raw)
		if err != nil {
			logger.Error("Failed to annotate upload %s: %v", header.Filename, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Upload %s: %d detections", header.Filename, len(detections))
		recordUpload(detectionRepo, logger, header.Filename, detections)

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(annotated)))
		w.Write(annotated)
	}
}

func recordUpload(detectionRepo repository.DetectionRepository, logger *logger.Logger, filename string, detections []dto.Detection) {
	if detectionRepo == nil || len(detections) == 0 {
		return
	}

	now := time.Now()
	records := make([]model.Detection, 0, len(detections))
	for _, det := range detections {
		records = append(records, storage.ToRecord(det, "upload", filepath.Base(filename), now))
	}
	if err := detectionRepo.InsertBatch(records); err != nil {
		logger.Error("Failed to record detections for %s: %v", filename, err)
	}
}

// redirectBack sends the client to the referring page, or to / without one.
func redirectBack(w http.ResponseWriter, r *http.Request) {
	target := r.Referer()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}
