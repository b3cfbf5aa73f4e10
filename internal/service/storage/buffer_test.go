package storage

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"
	"weedcam/internal/config"
	"weedcam/internal/dto"
	"weedcam/internal/logger"
	"weedcam/internal/model"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	l, err := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

// memoryRepo records batches in memory.
type memoryRepo struct {
	mu      sync.Mutex
	batches [][]model.Detection
	err     error
}

func (r *memoryRepo) Insert(det *model.Detection) (int64, error) {
	return 0, r.InsertBatch([]model.Detection{*det})
}

func (r *memoryRepo) InsertBatch(detections []model.Detection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, append([]model.Detection(nil), detections...))
	return nil
}

func (r *memoryRepo) GetAll(*dto.DetectionFilters) ([]model.Detection, error) { return nil, nil }
func (r *memoryRepo) GetTotalCount(*dto.DetectionFilters) (int, error)        { return 0, nil }
func (r *memoryRepo) GetStats() (*dto.DetectionStats, error)                  { return &dto.DetectionStats{}, nil }
func (r *memoryRepo) DeleteAll() error                                        { return nil }

func (r *memoryRepo) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

var weed = dto.Detection{Box: image.Rect(10, 20, 40, 60), Label: "weed", Confidence: 0.8}

func TestToRecord(t *testing.T) {
	at := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	got := ToRecord(weed, "upload", "field.jpg", at)

	if got.X != 10 || got.Y != 20 || got.Width != 30 || got.Height != 40 {
		t.Errorf("Unexpected box: %+v", got)
	}
	if got.Source != "upload" || got.Filename != "field.jpg" || got.Label != "weed" || !got.CreatedAt.Equal(at) {
		t.Errorf("Unexpected record: %+v", got)
	}
	if got.Confidence < 0.79 || got.Confidence > 0.81 {
		t.Errorf("Expected confidence ~0.8, got %v", got.Confidence)
	}
}

func TestBufferService_LimitsFramesPerSource(t *testing.T) {
	repo := &memoryRepo{}
	s := NewBufferService(repo, newTestLogger(t))

	for i := 0; i < FrameBufferLimit+5; i++ {
		s.AddFrame("camera:back", []dto.Detection{weed})
	}
	s.AddFrame("camera:front", []dto.Detection{weed, weed})

	if got := s.Pending(); got != FrameBufferLimit+2 {
		t.Errorf("Expected %d pending records, got %d", FrameBufferLimit+2, got)
	}
}

func TestBufferService_IgnoresEmptyFrames(t *testing.T) {
	s := NewBufferService(&memoryRepo{}, newTestLogger(t))

	if s.AddFrame("camera:back", nil) {
		t.Error("Empty frame should not be buffered")
	}
	if s.Pending() != 0 {
		t.Errorf("Expected no pending records, got %d", s.Pending())
	}
}

func TestBufferService_NilRepositoryIsNoop(t *testing.T) {
	s := NewBufferService(nil, newTestLogger(t))

	if s.AddFrame("camera:back", []dto.Detection{weed}) {
		t.Error("Buffer without repository should not accept frames")
	}
	s.Flush()
}

func TestBufferService_FlushResetsCounters(t *testing.T) {
	repo := &memoryRepo{}
	s := NewBufferService(repo, newTestLogger(t))

	for i := 0; i < FrameBufferLimit; i++ {
		s.AddFrame("camera:back", []dto.Detection{weed})
	}
	s.Flush()

	if repo.batchCount() != 1 || len(repo.batches[0]) != FrameBufferLimit {
		t.Fatalf("Expected one batch of %d, got %v", FrameBufferLimit, repo.batches)
	}
	if !s.AddFrame("camera:back", []dto.Detection{weed}) {
		t.Error("Counter should reset after flush")
	}
}

func TestBufferService_FlushErrorDropsBatch(t *testing.T) {
	repo := &memoryRepo{err: errors.New("disk full")}
	s := NewBufferService(repo, newTestLogger(t))

	s.AddFrame("camera:back", []dto.Detection{weed})
	s.Flush()

	if s.Pending() != 0 {
		t.Errorf("Expected buffer to be cleared after failed flush, got %d", s.Pending())
	}
}

func TestBufferService_RunFlushesOnStop(t *testing.T) {
	repo := &memoryRepo{}
	s := NewBufferService(repo, newTestLogger(t))
	s.AddFrame("camera:back", []dto.Detection{weed})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx, time.Hour) }()
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if repo.batchCount() != 1 {
		t.Errorf("Expected final flush on stop, got %d batches", repo.batchCount())
	}
}
