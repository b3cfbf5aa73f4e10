package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "PASSWORD", "MODEL_PATH", "BACK_CAMERA_INDEX", "FRONT_CAMERA_INDEX", "MAX_UPLOAD_MB", "DB_PATH"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	cfg := Load()

	if cfg.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", cfg.Port)
	}
	if cfg.BackCameraIndex != 0 || cfg.FrontCameraIndex != 1 {
		t.Errorf("Expected camera indexes 0/1, got %d/%d", cfg.BackCameraIndex, cfg.FrontCameraIndex)
	}
	if cfg.MaxUploadSize != 32<<20 {
		t.Errorf("Expected 32MB upload limit, got %d", cfg.MaxUploadSize)
	}
	if cfg.ModelPath != "weed_detect.onnx" {
		t.Errorf("Expected default model path, got %s", cfg.ModelPath)
	}
	if cfg.AuthEnabled() {
		t.Error("Auth should be disabled without a password")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8081")
	t.Setenv("PASSWORD", "secret")
	t.Setenv("FRONT_CAMERA_INDEX", "2")
	t.Setenv("MAX_UPLOAD_MB", "4")

	cfg := Load()

	if cfg.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", cfg.Port)
	}
	if cfg.FrontCameraIndex != 2 {
		t.Errorf("Expected front camera 2, got %d", cfg.FrontCameraIndex)
	}
	if cfg.MaxUploadSize != 4<<20 {
		t.Errorf("Expected 4MB upload limit, got %d", cfg.MaxUploadSize)
	}
	if !cfg.AuthEnabled() {
		t.Error("Auth should be enabled with a password")
	}
}

func TestLoad_InvalidNumberFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "not-a-number")

	if cfg := Load(); cfg.Port != 5000 {
		t.Errorf("Expected fallback port 5000, got %d", cfg.Port)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("BACK_CAMERA_INDEX", "")
	os.Unsetenv("BACK_CAMERA_INDEX")
	t.Cleanup(func() { os.Unsetenv("BACK_CAMERA_INDEX") })

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BACK_CAMERA_INDEX=3\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	if cfg := Load(); cfg.BackCameraIndex != 3 {
		t.Errorf("Expected back camera 3 from .env, got %d", cfg.BackCameraIndex)
	}
}

func TestLoad_DatabasePath(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("DB_PATH", "")
	if cfg := Load(); cfg.DatabasePath != "" {
		t.Errorf("Explicitly empty DB_PATH should disable the history, got %q", cfg.DatabasePath)
	}

	os.Unsetenv("DB_PATH")
	if cfg := Load(); cfg.DatabasePath != filepath.Join("data", "detections.db") {
		t.Errorf("Expected default database path, got %q", cfg.DatabasePath)
	}
}
