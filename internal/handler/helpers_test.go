package handler

import (
	"path/filepath"
	"testing"
	"weedcam/internal/config"
	"weedcam/internal/logger"
	"weedcam/internal/repository/sqlite"
)

// ========================================
// Test Setup Helpers
// ========================================

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	l, err := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

func setupTestRepo(t *testing.T) *sqlite.DetectionRepository {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return sqlite.NewDetectionRepository(db)
}
