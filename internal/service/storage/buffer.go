package storage

import (
	"context"
	"sync"
	"time"
	"weedcam/internal/dto"
	"weedcam/internal/logger"
	"weedcam/internal/model"
	"weedcam/internal/repository"
)

const (
	// FrameBufferLimit limits how many frames per source are recorded between flushes.
	FrameBufferLimit = 10
	// FlushInterval defines how often buffered detections are written to the database.
	FlushInterval = 30 * time.Second
)

// BufferService collects detections from live streams in memory and
// periodically writes them to the detection history in one batch.
type BufferService struct {
	records       []model.Detection
	frameCount    map[string]int
	mu            sync.Mutex
	logger        *logger.Logger
	detectionRepo repository.DetectionRepository
}

// NewBufferService creates a BufferService. A nil repository turns it into a no-op.
func NewBufferService(detectionRepo repository.DetectionRepository, logger *logger.Logger) *BufferService {
	return &BufferService{
		records:       make([]model.Detection, 0),
		frameCount:    make(map[string]int),
		logger:        logger,
		detectionRepo: detectionRepo,
	}
}

// Run flushes on every tick until ctx is done, then flushes one last time.
func (s *BufferService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return nil
		case <-ticker.C:
			s.Flush()
		}
	}
}

// AddFrame buffers the detections of one frame from source. Frames without
// detections are ignored, and at most FrameBufferLimit frames per source
// are kept per flush interval.
func (s *BufferService) AddFrame(source string, detections []dto.Detection) bool {
	if s.detectionRepo == nil || len(detections) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frameCount[source] >= FrameBufferLimit {
		return false
	}
	s.frameCount[source]++

	now := time.Now()
	for _, det := range detections {
		s.records = append(s.records, ToRecord(det, source, "", now))
	}
	return true
}

// Flush writes buffered detections to the database and resets the per-source counters.
func (s *BufferService) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return
	}

	if err := s.detectionRepo.InsertBatch(s.records); err != nil {
		s.logger.Error("Error saving buffered detections: %v", err)
	} else {
		s.logger.Info("Flushed %d detections to database", len(s.records))
	}

	s.records = s.records[:0]
	s.frameCount = make(map[string]int)
}

// Pending returns the number of buffered detection records.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ToRecord converts a detection into a history row.
func ToRecord(det dto.Detection, source, filename string, at time.Time) model.Detection {
	return model.Detection{
		Source:     source,
		Filename:   filename,
		Label:      det.Label,
		Confidence: float64(det.Confidence),
		X:          det.Box.Min.X,
		Y:          det.Box.Min.Y,
		Width:      det.Box.Dx(),
		Height:     det.Box.Dy(),
		CreatedAt:  at,
	}
}
