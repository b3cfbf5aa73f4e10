package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
	"weedcam/internal/dto"
	"weedcam/internal/logger"
	"weedcam/internal/repository"
)

const defaultPageSize = 50

// GetDetectionsHandler returns a filtered, paginated page of the detection history.
func GetDetectionsHandler(detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if detectionRepo == nil {
			historyDisabled(w)
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageSize)

		filter := &dto.DetectionFilters{
			Source: q.Get("source"),
			Label:  q.Get("label"),
			After:  parseDate(q.Get("after")),
			Before: parseDate(q.Get("before")),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		records, err := detectionRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying detections: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := detectionRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting detections: %v", err)
			totalCount = len(records)
		}

		detections := make([]dto.DetectionInfo, 0, len(records))
		for _, rec := range records {
			detections = append(detections, dto.DetectionInfo{
				ID:         rec.ID,
				Source:     rec.Source,
				Filename:   rec.Filename,
				Label:      rec.Label,
				Confidence: rec.Confidence,
				X:          rec.X,
				Y:          rec.Y,
				Width:      rec.Width,
				Height:     rec.Height,
				CreatedAt:  rec.CreatedAt,
			})
		}

		writeJSON(w, logger, dto.DetectionsData{
			Detections:  detections,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// DetectionStatsHandler returns per-label and per-source totals.
func DetectionStatsHandler(detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if detectionRepo == nil {
			historyDisabled(w)
			return
		}

		stats, err := detectionRepo.GetStats()
		if err != nil {
			logger.Error("Error computing detection stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, stats)
	}
}

// ClearDetectionsHandler deletes the whole detection history.
func ClearDetectionsHandler(detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if detectionRepo == nil {
			historyDisabled(w)
			return
		}

		if err := detectionRepo.DeleteAll(); err != nil {
			logger.Error("Failed to clear detections: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Detection history cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

func historyDisabled(w http.ResponseWriter) {
	http.Error(w, "Detection history is disabled", http.StatusServiceUnavailable)
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// atoiDefault parses a positive integer or returns def.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
