// Package frameserver publishes shaded frames over HTTP. The latest frame is
// available as a PNG, and WebSocket clients receive every new frame as a
// binary PNG message.
package frameserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chosenoffset.com/daynight/internal/frame"
	"chosenoffset.com/daynight/internal/metrics"
)

// SunResponse is the body of /api/sun
type SunResponse struct {
	Longitude           float64 `json:"longitude"`
	NormalizedLongitude float64 `json:"normalized_longitude"`
	Declination         float64 `json:"declination"`
	Position            string  `json:"position"`
	RenderedAt          string  `json:"rendered_at"`
}

// HealthResponse is the body of /api/health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	Frames    uint64 `json:"frames"`
	Clients   int    `json:"clients"`
}

// client serializes writes to one WebSocket connection. sent is the
// sequence number of the newest frame written; older frames are skipped so
// a client never goes back to a stale frame.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	sent uint64
}

func (c *client) write(msg []byte, seq uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq <= c.sent {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		return err
	}
	c.sent = seq
	return nil
}

// Server is the HTTP frame server. A nil *Server is a disabled server on
// which Start, Stop and Publish are no-ops.
type Server struct {
	server    *http.Server
	upgrader  websocket.Upgrader
	startTime time.Time

	frames chan frame.Frame
	done   chan struct{}
	stop   sync.Once

	clientsMu sync.Mutex
	clients   map[*client]struct{}

	mu        sync.RWMutex
	latest    frame.Frame
	latestPNG []byte
	encoded   uint64
}

// New creates a frame server for addr and starts its encoder. It returns
// nil when addr is empty. static, when non-nil, is served at "/".
func New(addr string, static fs.FS) *Server {
	if addr == "" {
		return nil
	}

	s := &Server{
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local viewer; any origin may watch
			},
		},
		frames:  make(chan frame.Frame, 1),
		done:    make(chan struct{}),
		clients: make(map[*client]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.healthHandler)
	mux.HandleFunc("GET /api/sun", s.sunHandler)
	mux.HandleFunc("GET /api/frame.png", s.frameHandler)
	mux.HandleFunc("GET /api/ws", s.wsHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	if static != nil {
		mux.Handle("GET /", http.FileServerFS(static))
	}

	s.server = &http.Server{
		Addr:        addr,
		Handler:     metrics.Middleware(mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go s.encodeLoop()

	return s
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	if s == nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	log.Printf("Frame server listening on %s", ln.Addr())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Frame server error: %v", err)
		}
	}()
	return nil
}

// Stop closes every stream and shuts the HTTP server down
func (s *Server) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.stop.Do(func() {
		close(s.done)
	})

	s.clientsMu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.clientsMu.Unlock()

	return s.server.Shutdown(ctx)
}

// Publish hands a frame to the encoder without blocking. If the encoder is
// still busy with an earlier frame, the pending frame is replaced.
func (s *Server) Publish(f frame.Frame) {
	if s == nil {
		return
	}
	for {
		select {
		case s.frames <- f:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

// encodeLoop encodes published frames to PNG and broadcasts them
func (s *Server) encodeLoop() {
	for {
		select {
		case f := <-s.frames:
			var buf bytes.Buffer
			if err := png.Encode(&buf, f.Image); err != nil {
				log.Printf("Failed to encode frame: %v", err)
				continue
			}
			msg := buf.Bytes()

			s.mu.Lock()
			s.latest = f
			s.latestPNG = msg
			s.encoded++
			seq := s.encoded
			s.mu.Unlock()

			s.broadcast(msg, seq)
		case <-s.done:
			return
		}
	}
}

// broadcast sends frame seq to every client, dropping the ones that fail
func (s *Server) broadcast(msg []byte, seq uint64) {
	s.clientsMu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.clientsMu.Unlock()

	for _, c := range targets {
		if err := c.write(msg, seq); err != nil {
			log.Printf("WebSocket write error: %v", err)
			s.removeClient(c)
		}
	}
}

func (s *Server) addClient(c *client) {
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()
	metrics.SetStreamClients(n)
}

func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	if _, ok := s.clients[c]; !ok {
		s.clientsMu.Unlock()
		return
	}
	delete(s.clients, c)
	n := len(s.clients)
	s.clientsMu.Unlock()
	c.conn.Close()
	metrics.SetStreamClients(n)
}

func (s *Server) clientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// snapshot returns the latest frame metadata and PNG bytes
func (s *Server) snapshot() (frame.Frame, []byte, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latestPNG, s.encoded
}

// healthHandler handles the /api/health endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	_, _, frames := s.snapshot()
	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Frames:    frames,
		Clients:   s.clientCount(),
	}
	writeJSON(w, http.StatusOK, health)
}

// sunHandler handles the /api/sun endpoint
func (s *Server) sunHandler(w http.ResponseWriter, r *http.Request) {
	f, msg, _ := s.snapshot()
	if msg == nil {
		http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, SunResponse{
		Longitude:           f.Sun.Longitude,
		NormalizedLongitude: f.Sun.NormalizedLongitude(),
		Declination:         f.Sun.Declination,
		Position:            f.Sun.String(),
		RenderedAt:          f.RenderedAt.UTC().Format(time.RFC3339),
	})
}

// frameHandler handles the /api/frame.png endpoint
func (s *Server) frameHandler(w http.ResponseWriter, r *http.Request) {
	f, msg, _ := s.snapshot()
	if msg == nil {
		http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Last-Modified", f.RenderedAt.UTC().Format(http.TimeFormat))
	w.Write(msg)
}

// wsHandler handles WebSocket connections
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn}
	s.addClient(c)
	defer s.removeClient(c)

	// Send the current frame immediately unless a newer one was broadcast
	// since the client was added
	if _, msg, seq := s.snapshot(); msg != nil {
		if err := c.write(msg, seq); err != nil {
			return
		}
	}

	// Read until the client goes away; incoming messages are ignored
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
