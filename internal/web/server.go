// Package web serves a small monitoring and control surface for a running
// pipeline: JSON endpoints plus a websocket status feed.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guidoenr/ripplefield/internal/palette"
	"github.com/guidoenr/ripplefield/internal/pipeline"
	"github.com/guidoenr/ripplefield/internal/preset"
	"github.com/sirupsen/logrus"
)

//go:embed index.html
var indexHTML []byte

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Controller is the part of the pipeline the server reads and steers.
type Controller interface {
	Status() pipeline.Status
	PaletteConfig() palette.Config
	SetPaletteConfig(palette.Config)
	SetModulation(bool)
	ModulationEnabled() bool
}

// Config controls the server.
type Config struct {
	// Interval between websocket status broadcasts.
	Interval time.Duration
	// PresetPath is where POST /api/preset writes the current settings.
	PresetPath string
	Log        logrus.FieldLogger
}

// Server exposes a Controller over HTTP.
type Server struct {
	mu        sync.Mutex
	ctl       Controller
	cfg       Config
	log       logrus.FieldLogger
	clients   map[*client]bool
	closed    bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// ModulationRequest toggles hue modulation.
type ModulationRequest struct {
	Enabled bool `json:"enabled"`
}

// NewServer builds a server around ctl.
func NewServer(ctl Controller, cfg Config) *Server {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	s := &Server{
		ctl:       ctl,
		cfg:       cfg,
		log:       cfg.Log.WithField("component", "web"),
		clients:   make(map[*client]bool),
		broadcast: make(chan []byte, 16),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/palette", s.handlePalette)
	s.mux.HandleFunc("/api/modulation", s.handleModulation)
	s.mux.HandleFunc("/api/preset", s.handlePreset)
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	return s
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go s.pump(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.WithField("addr", addr).Info("web server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// pump runs the status ticker and fan-out until ctx is done.
func (s *Server) pump(ctx context.Context) {
	go s.broadcastLoop(ctx)
	s.statusLoop(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.ctl.Status())
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.ctl.PaletteConfig())
	case http.MethodPost:
		// Decoding onto the current config keeps omitted fields.
		cfg := s.ctl.PaletteConfig()
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		settings := preset.Defaults()
		settings.Palette = cfg
		if err := settings.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.ctl.SetPaletteConfig(cfg)
		s.log.WithField("baseHue", cfg.BaseHue).Info("palette updated")
		writeJSON(w, cfg)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleModulation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ModulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.ctl.SetModulation(req.Enabled)
	writeJSON(w, ModulationRequest{Enabled: s.ctl.ModulationEnabled()})
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.PresetPath == "" {
		http.Error(w, "preset saving disabled", http.StatusNotFound)
		return
	}
	settings := preset.Defaults()
	settings.Palette = s.ctl.PaletteConfig()
	settings.Modulation.Enabled = s.ctl.ModulationEnabled()
	if err := preset.SaveJSON(s.cfg.PresetPath, settings); err != nil {
		http.Error(w, fmt.Sprintf("failed to save preset: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "saved", "path": s.cfg.PresetPath})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.isClosed() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		server: s,
	}

	// The fan-out may have stopped while the handshake was in flight.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	s.clients[c] = true
	s.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

// Clients reports the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.closed = true
			for c := range s.clients {
				close(c.send)
				delete(s.clients, c)
			}
			s.mu.Unlock()
			return
		case message := <-s.broadcast:
			s.mu.Lock()
			for c := range s.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(s.clients, c)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := json.Marshal(s.ctl.Status())
			if err != nil {
				s.log.WithError(err).Warn("encode status")
				continue
			}
			select {
			case s.broadcast <- data:
			default:
			}
		}
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		close(c.send)
		delete(s.clients, c)
	}
}

func (c *client) readPump() {
	defer func() {
		c.server.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
