package service

import (
	"context"
	"errors"
	"sync"
	"weedcam/internal/dto"
	"weedcam/internal/logger"
	"weedcam/internal/service/camera"
	"weedcam/internal/service/storage"
	"weedcam/internal/service/websocket"

	gorilla "github.com/gorilla/websocket"
)

var errNoViewers = errors.New("no viewers left")

// FrameStreamer produces annotated frames for a camera tag.
type FrameStreamer interface {
	Stream(ctx context.Context, tag string, emit camera.EmitFunc) (int, error)
}

// Manager runs one capture loop per camera while it has live-view viewers
// and fans the annotated frames out through the hub.
type Manager struct {
	ctx           context.Context
	streamer      FrameStreamer
	hubService    *websocket.HubService
	bufferService *storage.BufferService
	logger        *logger.Logger

	loops map[string]*liveLoop
	mu    sync.Mutex
	wg    sync.WaitGroup
}

type liveLoop struct {
	cancel context.CancelFunc
}

// NewManager creates a Manager. Loops it starts stop when ctx is done.
func NewManager(ctx context.Context, streamer FrameStreamer, hub *websocket.HubService, buffer *storage.BufferService, logger *logger.Logger) *Manager {
	return &Manager{
		ctx:           ctx,
		streamer:      streamer,
		hubService:    hub,
		bufferService: buffer,
		logger:        logger,
		loops:         make(map[string]*liveLoop),
	}
}

// AddViewer registers a live-view client for tag and makes sure the camera is being captured.
func (m *Manager) AddViewer(conn *gorilla.Conn, tag string) {
	tag = camera.Normalize(tag)
	m.hubService.Register(conn, tag)
	m.ensureLoop(tag)
}

// RemoveViewer unregisters a client; the capture loop stops on its next frame if nobody is left.
func (m *Manager) RemoveViewer(conn *gorilla.Conn) {
	m.hubService.Unregister(conn)
}

func (m *Manager) ensureLoop(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, running := m.loops[tag]; running {
		return
	}
	if m.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	loop := &liveLoop{cancel: cancel}
	m.loops[tag] = loop

	m.wg.Add(1)
	go m.run(ctx, tag, loop)
}

func (m *Manager) run(ctx context.Context, tag string, loop *liveLoop) {
	defer m.wg.Done()
	defer loop.cancel()

	m.logger.Info("Live view for camera %s started", tag)

	frames, err := m.streamer.Stream(ctx, tag, func(frame []byte, detections []dto.Detection) error {
		if !m.keepRunning(tag, loop) {
			return errNoViewers
		}
		m.RecordDetections(tag, detections)
		if !m.hubService.Broadcast(tag, frame) {
			return context.Canceled
		}
		return nil
	})

	m.mu.Lock()
	if m.loops[tag] == loop {
		delete(m.loops, tag)
		// Viewers of a camera that stopped on its own are disconnected.
		if m.ctx.Err() == nil {
			if n := m.hubService.CloseCamera(tag, "camera unavailable"); n > 0 {
				m.logger.Warning("Camera %s stopped, disconnected %d viewers", tag, n)
			}
		}
	}
	m.mu.Unlock()

	switch {
	case err == nil, errors.Is(err, errNoViewers), errors.Is(err, context.Canceled):
		m.logger.Info("Live view for camera %s stopped after %d frames", tag, frames)
	default:
		m.logger.Error("Live view for camera %s failed after %d frames: %v", tag, frames, err)
	}
}

// keepRunning decides under the manager lock whether the loop still has an
// audience. When it does not, the loop is deregistered in the same critical
// section so a viewer arriving right after starts a fresh loop.
func (m *Manager) keepRunning(tag string, loop *liveLoop) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hubService.GetClientCount(tag) > 0 {
		return true
	}
	if m.loops[tag] == loop {
		delete(m.loops, tag)
	}
	return false
}

// RecordDetections hands the detections of a live frame to the history buffer.
func (m *Manager) RecordDetections(tag string, detections []dto.Detection) {
	if m.bufferService != nil {
		m.bufferService.AddFrame("camera:"+camera.Normalize(tag), detections)
	}
}

// ActiveLoops returns the tags currently being captured for live view.
func (m *Manager) ActiveLoops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	tags := make([]string, 0, len(m.loops))
	for tag := range m.loops {
		tags = append(tags, tag)
	}
	return tags
}

// Viewers returns the number of connected live-view clients.
func (m *Manager) Viewers() int {
	return m.hubService.GetTotalClients()
}

// Stop cancels every capture loop, waits for them to release their cameras
// and flushes the detections they recorded to the history.
func (m *Manager) Stop() {
	m.mu.Lock()
	for _, loop := range m.loops {
		loop.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
	if m.bufferService != nil {
		m.bufferService.Flush()
	}
	m.logger.Info("All live view loops stopped")
}
