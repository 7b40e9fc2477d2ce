package frameserver

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"

	"chosenoffset.com/daynight/internal/frame"
	"chosenoffset.com/daynight/internal/solar"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	static := fstest.MapFS{"index.html": {Data: []byte("<html>viewer</html>")}}
	s := New("127.0.0.1:0", static)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Stop(context.Background())
	})
	return s, ts
}

func testFrame() frame.Frame {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	img.SetRGBA(3, 2, color.RGBA{10, 20, 30, 255})
	return frame.Frame{
		Image:      img,
		Sun:        solar.Position{Longitude: 200, Declination: -5},
		RenderedAt: time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC),
	}
}

// waitForFrame polls until the encoder has stored a frame.
func waitForFrame(t *testing.T, s *Server) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, msg, _ := s.snapshot(); msg != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for an encoded frame")
}

func TestNewDisabled(t *testing.T) {
	s := New("", nil)
	if s != nil {
		t.Fatal("Expected nil server for empty addr")
	}
	// Disabled servers accept every call.
	s.Publish(testFrame())
	if err := s.Start(); err != nil {
		t.Errorf("Expected nil error from disabled Start, got %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Expected nil error from disabled Stop, got %v", err)
	}
}

func TestFrameUnavailableBeforeFirstPublish(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/api/frame.png", "/api/sun"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected 503 for %s, got %d", path, resp.StatusCode)
		}
	}
}

func TestFrameAndSunAfterPublish(t *testing.T) {
	s, ts := newTestServer(t)
	f := testFrame()
	s.Publish(f)
	waitForFrame(t, s)

	resp, err := http.Get(ts.URL + "/api/frame.png")
	if err != nil {
		t.Fatalf("GET frame failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got '%s'", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if img.Bounds() != f.Image.Bounds() {
		t.Errorf("Expected bounds %v, got %v", f.Image.Bounds(), img.Bounds())
	}
	r, g, b, _ := img.At(3, 2).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("Expected pixel (10, 20, 30), got (%d, %d, %d)", r>>8, g>>8, b>>8)
	}

	resp, err = http.Get(ts.URL + "/api/sun")
	if err != nil {
		t.Fatalf("GET sun failed: %v", err)
	}
	defer resp.Body.Close()
	var sun SunResponse
	if err := json.NewDecoder(resp.Body).Decode(&sun); err != nil {
		t.Fatalf("Failed to decode sun response: %v", err)
	}
	if sun.Longitude != 200 || sun.NormalizedLongitude != -160 || sun.Declination != -5 {
		t.Errorf("Unexpected sun response: %+v", sun)
	}
	if sun.Position != "160.0°W 5.0°S" {
		t.Errorf("Expected position '160.0°W 5.0°S', got '%s'", sun.Position)
	}
	if sun.RenderedAt != "2024-12-01T10:00:00Z" {
		t.Errorf("Expected rendered_at '2024-12-01T10:00:00Z', got '%s'", sun.RenderedAt)
	}
}

func TestHealth(t *testing.T) {
	s, ts := newTestServer(t)
	s.Publish(testFrame())
	waitForFrame(t, s)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health failed: %v", err)
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", health.Status)
	}
	if health.Frames != 1 {
		t.Errorf("Expected 1 frame, got %d", health.Frames)
	}
}

func TestStaticAndMetrics(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "viewer") {
		t.Errorf("Expected index page, got %q", body)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "daynight_http_requests_total") {
		t.Error("Expected request metrics in /metrics output")
	}
}

func TestWebSocketReceivesFrames(t *testing.T) {
	s, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket: %v", err)
	}
	defer conn.Close()

	s.Publish(testFrame())

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Errorf("Expected binary message, got %d", kind)
	}
	img, err := png.Decode(bytes.NewReader(msg))
	if err != nil {
		t.Fatalf("Failed to decode pushed frame: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Errorf("Expected 8x4 frame, got %v", img.Bounds())
	}
}

func TestWebSocketGetsLatestOnConnect(t *testing.T) {
	s, ts := newTestServer(t)
	s.Publish(testFrame())
	waitForFrame(t, s)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("Expected the latest frame on connect, got %v", err)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	s, _ := newTestServer(t)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(testFrame())
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestClientSkipsStaleFrames(t *testing.T) {
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		conns <- conn
	}))
	defer ts.Close()

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket: %v", err)
	}
	defer peer.Close()

	serverConn := <-conns
	defer serverConn.Close()
	c := &client{conn: serverConn}

	// Frame 2 is broadcast before the connect-time write of frame 1 runs.
	for _, step := range []struct {
		msg string
		seq uint64
	}{
		{"second", 2},
		{"first", 1},
		{"third", 3},
	} {
		if err := c.write([]byte(step.msg), step.seq); err != nil {
			t.Fatalf("Write of frame %d failed: %v", step.seq, err)
		}
	}

	peer.SetReadDeadline(time.Now().Add(5 * time.Second))
	for _, want := range []string{"second", "third"} {
		_, msg, err := peer.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read frame: %v", err)
		}
		if string(msg) != want {
			t.Errorf("Expected frame '%s', got '%s'", want, msg)
		}
	}
}
