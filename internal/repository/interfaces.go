package repository

import (
	"weedcam/internal/dto"
	"weedcam/internal/model"
)

// DetectionRepository defines the interface for detection history operations.
type DetectionRepository interface {
	// Create operations
	Insert(det *model.Detection) (int64, error)
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetAll(filter *dto.DetectionFilters) ([]model.Detection, error)
	GetTotalCount(filter *dto.DetectionFilters) (int, error)
	GetStats() (*dto.DetectionStats, error)

	// Delete operations
	DeleteAll() error
}
