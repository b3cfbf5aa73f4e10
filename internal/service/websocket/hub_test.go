package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"weedcam/internal/config"
	"weedcam/internal/logger"

	"github.com/gorilla/websocket"
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

// startHub runs a hub and an HTTP server registering every upgraded
// connection under the "camera" query parameter.
func startHub(t *testing.T) (*HubService, *httptest.Server, context.CancelFunc) {
	t.Helper()

	hub := NewHubService(newTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn, r.URL.Query().Get("camera"))
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv, cancel
}

func dial(t *testing.T, srv *httptest.Server, camera string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?camera=" + camera
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for condition")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesOnlyCameraViewers(t *testing.T) {
	hub, srv, _ := startHub(t)

	back := dial(t, srv, "back")
	front := dial(t, srv, "front")
	waitFor(t, func() bool { return hub.GetTotalClients() == 2 })

	if !hub.Broadcast("back", []byte("frame-1")) {
		t.Fatal("Broadcast should succeed while hub runs")
	}

	back.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := back.ReadMessage()
	if err != nil {
		t.Fatalf("Back viewer read failed: %v", err)
	}
	if kind != websocket.BinaryMessage || string(data) != "frame-1" {
		t.Errorf("Unexpected message %d %q", kind, data)
	}

	front.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := front.ReadMessage(); err == nil {
		t.Error("Front viewer should not receive back frames")
	}
}

func TestHub_ClientCounts(t *testing.T) {
	hub, srv, _ := startHub(t)

	first := dial(t, srv, "back")
	dial(t, srv, "back")
	dial(t, srv, "front")
	waitFor(t, func() bool { return hub.GetTotalClients() == 3 })

	if got := hub.GetClientCount("back"); got != 2 {
		t.Errorf("Expected 2 back viewers, got %d", got)
	}

	first.Close()
	waitFor(t, func() bool { return hub.GetClientCount("back") == 1 })

	if got := hub.GetTotalClients(); got != 2 {
		t.Errorf("Expected 2 viewers left, got %d", got)
	}
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, srv, cancel := startHub(t)

	conn := dial(t, srv, "back")
	waitFor(t, func() bool { return hub.GetTotalClients() == 1 })

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected connection to be closed on hub stop")
	}
	waitFor(t, func() bool { return !hub.Broadcast("back", []byte("late")) })
	if hub.GetTotalClients() != 0 {
		t.Errorf("Expected no clients after stop, got %d", hub.GetTotalClients())
	}
}

func TestHub_CloseCameraDisconnectsOnlyItsViewers(t *testing.T) {
	hub, srv, _ := startHub(t)

	back := dial(t, srv, "back")
	dial(t, srv, "front")
	waitFor(t, func() bool { return hub.GetTotalClients() == 2 })

	if n := hub.CloseCamera("back", "camera unavailable"); n != 1 {
		t.Errorf("Expected 1 viewer closed, got %d", n)
	}

	back.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := back.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Errorf("Expected a try-again-later close, got %v", err)
	}
	if hub.GetClientCount("front") != 1 || hub.GetClientCount("back") != 0 {
		t.Errorf("Expected only the front viewer left, got back=%d front=%d",
			hub.GetClientCount("back"), hub.GetClientCount("front"))
	}
}
