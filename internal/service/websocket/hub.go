package websocket

import (
	"context"
	"sync"
	"time"
	"weedcam/internal/logger"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Frame is one encoded image addressed to the viewers of a camera.
type Frame struct {
	Camera string
	Data   []byte
}

// HubService keeps track of live-view clients per camera and fans frames out to them.
type HubService struct {
	clients   map[*websocket.Conn]string
	broadcast chan Frame
	done      chan struct{}
	mutex     sync.RWMutex
	logger    *logger.Logger
}

// NewHubService creates an empty hub. Run must be started for Broadcast to deliver.
func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:   make(map[*websocket.Conn]string),
		broadcast: make(chan Frame),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Run delivers broadcast frames until ctx is done, then disconnects every client.
func (h *HubService) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case frame := <-h.broadcast:
			h.deliver(frame)
		}
	}
}

func (h *HubService) deliver(frame Frame) {
	h.mutex.RLock()
	var targets []*websocket.Conn
	for client, camera := range h.clients {
		if camera == frame.Camera {
			targets = append(targets, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.BinaryMessage, frame.Data); err != nil {
			h.logger.Error("Error sending frame to viewer of %s: %v", frame.Camera, err)
			h.Unregister(client)
		}
	}
}

func (h *HubService) closeAll() {
	h.closeWhere(func(string) bool { return true }, websocket.CloseGoingAway, "server shutting down")
}

// CloseCamera disconnects every viewer of camera with reason and returns how many were closed.
func (h *HubService) CloseCamera(camera, reason string) int {
	return h.closeWhere(func(c string) bool { return c == camera }, websocket.CloseTryAgainLater, reason)
}

func (h *HubService) closeWhere(match func(camera string) bool, code int, reason string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	closed := 0
	for client, camera := range h.clients {
		if !match(camera) {
			continue
		}
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second))
		client.Close()
		delete(h.clients, client)
		closed++
	}
	return closed
}

// Register adds a client watching camera.
func (h *HubService) Register(client *websocket.Conn, camera string) {
	h.mutex.Lock()
	h.clients[client] = camera
	total := len(h.clients)
	h.mutex.Unlock()

	h.logger.Info("Viewer connected to %s. Total: %d", camera, total)
}

// Unregister removes and closes a client. Unknown clients are ignored.
func (h *HubService) Unregister(client *websocket.Conn) {
	h.mutex.Lock()
	camera, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.Close()
	}
	total := len(h.clients)
	h.mutex.Unlock()

	if ok {
		h.logger.Info("Viewer disconnected from %s. Total: %d", camera, total)
	}
}

// Broadcast queues a frame for the viewers of camera. It returns false once the hub has stopped.
func (h *HubService) Broadcast(camera string, data []byte) bool {
	select {
	case h.broadcast <- Frame{Camera: camera, Data: data}:
		return true
	case <-h.done:
		return false
	}
}

// GetClientCount returns the number of viewers of camera.
func (h *HubService) GetClientCount(camera string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, c := range h.clients {
		if c == camera {
			count++
		}
	}
	return count
}

// GetTotalClients returns the number of connected viewers across all cameras.
func (h *HubService) GetTotalClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
