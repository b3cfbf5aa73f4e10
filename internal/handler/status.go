package handler

import (
	"net/http"
	"runtime"
	"time"
	"weedcam/internal/dto"
	"weedcam/internal/logger"
	"weedcam/internal/service/ai"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ModelInfo describes the loaded detection model.
type ModelInfo interface {
	Path() string
	Metadata() *ai.Metadata
}

// ActivityCounter reports how many MJPEG streams are running.
type ActivityCounter interface {
	Active() int
}

// LiveViewStats reports live-view activity.
type LiveViewStats interface {
	ActiveLoops() []string
	Viewers() int
}

// StatusHandler reports model, stream and host information as JSON.
func StatusHandler(model ModelInfo, streams ActivityCounter, live LiveViewStats, started time.Time, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := dto.Status{
			Uptime:        time.Since(started).Round(time.Second).String(),
			Goroutines:    runtime.NumGoroutine(),
			ActiveStreams: streams.Active(),
			LiveCameras:   live.ActiveLoops(),
			Viewers:       live.Viewers(),
		}

		meta := model.Metadata()
		width, height := meta.InputSize()
		status.Model = dto.ModelStatus{
			Path:       model.Path(),
			Classes:    meta.Names.Sorted(),
			InputSize:  []int{width, height},
			Confidence: meta.Confidence,
			IoU:        meta.IoU,
		}

		if cpus, err := cpu.Counts(true); err == nil {
			status.Host.CPUs = cpus
		} else {
			logger.Warning("Failed to read CPU count: %v", err)
		}
		if vm, err := mem.VirtualMemory(); err == nil {
			status.Host.MemoryTotal = vm.Total
			status.Host.MemoryUsed = vm.Used
			status.Host.MemoryUsedPercent = vm.UsedPercent
		} else {
			logger.Warning("Failed to read memory usage: %v", err)
		}

		writeJSON(w, logger, status)
	}
}
