package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	Password          string
	ModelPath         string
	ModelConfigPath   string // Optional, only for ReadNet formats that need a separate graph file
	ModelMetadataPath string
	BackCameraIndex   int
	FrontCameraIndex  int
	MaxUploadSize     int64 // Upload limit in bytes
	DatabasePath      string
	LogDirectory      string
	StaticDirectory   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; variables already set win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:              getEnvAsInt("PORT", 5000),
		Password:          getEnv("PASSWORD", ""),
		ModelPath:         getEnv("MODEL_PATH", "weed_detect.onnx"),
		ModelConfigPath:   getEnv("MODEL_CONFIG_PATH", ""),
		ModelMetadataPath: getEnv("MODEL_METADATA_PATH", "weed_detect.yaml"),
		BackCameraIndex:   getEnvAsInt("BACK_CAMERA_INDEX", 0),
		FrontCameraIndex:  getEnvAsInt("FRONT_CAMERA_INDEX", 1),
		MaxUploadSize:     getEnvAsInt64("MAX_UPLOAD_MB", 32) << 20,
		DatabasePath:      lookupEnv("DB_PATH", filepath.Join(".", "data", "detections.db")),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(".", "logs")),
		StaticDirectory:   getEnv("STATIC_DIR", filepath.Join(".", "static")),
	}
}

// AuthEnabled reports whether the login wall is active.
func (c *Config) AuthEnabled() bool {
	return c.Password != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv is getEnv that keeps an explicitly empty value.
func lookupEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
