package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"silentwav/pkg/silence"
)

// DefaultMaxDuration caps the duration of files generated over HTTP, in seconds.
const DefaultMaxDuration = 600.0

// Errors.
var (
	ErrTooLong     = errors.New("web: requested duration exceeds the server limit")
	ErrBadQuery    = errors.New("web: malformed query parameter")
	errUnknownType = errors.New("web: unknown message type")
)

//go:embed static/*
var staticFiles embed.FS

// Message represents a WebSocket message.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// inboundMessage defers payload decoding until the type is known.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Params is the JSON form of a silence.Spec.
type Params struct {
	Duration        float64 `json:"duration"`
	SampleRate      int     `json:"sampleRate"`
	Channels        int     `json:"channels"`
	SampleWidth     int     `json:"sampleWidth"`
	CompressionType string  `json:"compressionType"`
	CompressionName string  `json:"compressionName"`
}

// ParamsFromSpec converts a spec to its JSON form.
func ParamsFromSpec(spec silence.Spec) Params {
	return Params{
		Duration:        spec.Duration,
		SampleRate:      spec.SampleRate,
		Channels:        spec.NumChannels,
		SampleWidth:     spec.SampleWidth,
		CompressionType: spec.CompressionType,
		CompressionName: spec.CompressionName,
	}
}

// Spec converts p back to a silence.Spec.
func (p Params) Spec() silence.Spec {
	return silence.Spec{
		Duration:        p.Duration,
		SampleRate:      p.SampleRate,
		NumChannels:     p.Channels,
		SampleWidth:     p.SampleWidth,
		CompressionType: p.CompressionType,
		CompressionName: p.CompressionName,
	}
}

// GeneratedPayload describes a file served by the download endpoint.
type GeneratedPayload struct {
	ID        string  `json:"id"`
	Container string  `json:"container"`
	Duration  float64 `json:"duration"`
	Frames    int64   `json:"frames"`
	Bytes     int64   `json:"bytes"`
}

// ErrorPayload is sent to a single client whose request failed.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Server serves generated silence over HTTP and keeps WebSocket clients in
// sync with the shared default parameters.
type Server struct {
	port        int
	maxDuration float64
	hub         *Hub
	httpServer  *http.Server

	handlerOnce sync.Once
	handler     http.Handler

	mu     sync.RWMutex
	params Params
}

// NewServer creates a server whose initial defaults are spec.
func NewServer(spec silence.Spec, port int) *Server {
	return &Server{
		port:        port,
		maxDuration: DefaultMaxDuration,
		hub:         NewHub(),
		params:      ParamsFromSpec(spec),
	}
}

// Params returns the current default parameters.
func (s *Server) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.params
}

// Handler returns the HTTP handler and starts the hub on first use.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		go s.hub.Run()

		mux := http.NewServeMux()
		mux.HandleFunc("GET /{$}", s.handleIndex)
		mux.HandleFunc("GET /ws", s.handleWebSocket)
		mux.HandleFunc("GET /api/state", s.handleAPIState)

		for _, c := range []silence.Container{silence.ContainerWAV, silence.ContainerAIFF, silence.ContainerAIFC} {
			mux.HandleFunc("GET /api/silence"+c.Extension(), s.handleAPISilence)
		}

		s.handler = mux
	})

	return s.handler
}

// Start serves HTTP on the configured port until Shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Web server starting", "port", s.port, "url", fmt.Sprintf("http://localhost:%d", s.port))

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Shutdown gracefully shuts down the server and disconnects all clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// handleIndex serves the main HTML page.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data, err := fs.ReadFile(staticFiles, "static/index.html")
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

// handleAPIState returns the current default parameters.
func (s *Server) handleAPIState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	//nolint:errchkjson // Params is a plain struct
	_ = json.NewEncoder(w).Encode(s.Params())
}

// handleAPISilence generates a file for the query parameters and streams it.
func (s *Server) handleAPISilence(w http.ResponseWriter, r *http.Request) {
	container := silence.ContainerForPath(r.URL.Path)

	spec, err := s.specFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := silence.Validate(spec, container); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Encode needs a seekable writer, so the file is staged on disk
	tmp, err := os.CreateTemp("", "silentwav-*"+container.Extension())
	if err != nil {
		slog.Error("Failed to create temp file", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	result, err := silence.Encode(tmp, spec, container)
	if err != nil {
		slog.Error("Failed to encode silence", "container", container, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	id := xid.New().String()
	name := "silence" + container.Extension()

	w.Header().Set("Content-Type", contentType(container))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, time.Time{}, tmp)

	slog.Info("Served silence",
		"id", id,
		"container", container,
		"duration", spec.Duration,
		"frames", result.Frames,
		"bytes", result.TotalBytes())

	s.hub.Publish("generated", GeneratedPayload{
		ID:        id,
		Container: container.String(),
		Duration:  spec.Duration,
		Frames:    result.Frames,
		Bytes:     result.TotalBytes(),
	})
}

// specFromQuery overlays the query parameters on the current defaults.
func (s *Server) specFromQuery(r *http.Request) (silence.Spec, error) {
	spec := s.Params().Spec()
	query := r.URL.Query()

	if v := query.Get("duration"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return spec, fmt.Errorf("%w: duration=%q", ErrBadQuery, v)
		}

		spec.Duration = d
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"rate", &spec.SampleRate},
		{"channels", &spec.NumChannels},
		{"width", &spec.SampleWidth},
	}

	for _, field := range ints {
		v := query.Get(field.key)
		if v == "" {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return spec, fmt.Errorf("%w: %s=%q", ErrBadQuery, field.key, v)
		}

		*field.dst = n
	}

	if v := query.Get("comptype"); v != "" {
		spec.CompressionType = v
	}

	if v := query.Get("compname"); v != "" {
		spec.CompressionName = v
	}

	if spec.Duration > s.maxDuration {
		return spec, fmt.Errorf("%w: %g s > %g s", ErrTooLong, spec.Duration, s.maxDuration)
	}

	return spec, nil
}

func contentType(c silence.Container) string {
	if c == silence.ContainerWAV {
		return "audio/wav"
	}

	return "audio/aiff"
}

//nolint:gochecknoglobals // WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// handleWebSocket handles WebSocket connections.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		id:   xid.New().String(),
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	// Queue the initial state before the client becomes visible to broadcasts
	if data, err := json.Marshal(Message{Type: "state", Payload: s.Params()}); err == nil {
		client.send <- data
	}

	if !s.hub.add(client) {
		conn.Close()
		return
	}

	slog.Info("WebSocket client connected", "client", client.id, "remote", r.RemoteAddr)

	go client.writePump()
	client.readPump(s.handleClientMessage)
}

// handleClientMessage handles incoming WebSocket messages.
func (s *Server) handleClientMessage(client *Client, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Error("Failed to parse WebSocket message", "error", err)
		s.hub.sendTo(client, "error", ErrorPayload{Message: err.Error()})

		return
	}

	var err error

	switch msg.Type {
	case "set_params":
		err = s.setParams(msg.Payload)
	case "get_state":
		s.hub.sendTo(client, "state", s.Params())
	default:
		err = fmt.Errorf("%w: %q", errUnknownType, msg.Type)
	}

	if err != nil {
		slog.Warn("Rejected client message", "client", client.id, "type", msg.Type, "error", err)
		s.hub.sendTo(client, "error", ErrorPayload{Message: err.Error()})
	}
}

// setParams merges a partial Params object into the defaults, validates the
// result and broadcasts it.
func (s *Server) setParams(raw json.RawMessage) error {
	s.mu.Lock()

	next := s.params
	if err := json.Unmarshal(raw, &next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrBadQuery, err)
	}

	spec := next.Spec()
	if err := silence.Validate(spec, silence.ContainerWAV); err != nil {
		s.mu.Unlock()
		return err
	}

	if spec.Duration > s.maxDuration {
		s.mu.Unlock()
		return fmt.Errorf("%w: %g s > %g s", ErrTooLong, spec.Duration, s.maxDuration)
	}

	s.params = next
	s.mu.Unlock()

	slog.Info("Parameters changed",
		"duration", next.Duration,
		"rate", next.SampleRate,
		"channels", next.Channels,
		"width", next.SampleWidth)

	s.hub.Publish("params_changed", next)

	return nil
}
