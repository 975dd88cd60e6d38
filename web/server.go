package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"markestedt/keybridge/keyboard"
	"markestedt/keybridge/storage"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // The UI may be framed by any origin
	},
}

// Tracker is the capture lifecycle exposed to the UI
type Tracker interface {
	Start() error
	Stop()
	Active() bool
	Session() (keyboard.SessionInfo, bool)
}

// Server represents the web server
type Server struct {
	tracker Tracker
	db      *storage.DB
	assets  Resolver
	port    int
	hub     *Hub
	http    *http.Server
}

// NewServer creates a new web server. db may be nil when storage is disabled.
func NewServer(tracker Tracker, db *storage.DB, port int) (*Server, error) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load static files: %w", err)
	}

	return newServer(tracker, db, NewFSResolver(staticFS), port), nil
}

func newServer(tracker Tracker, db *storage.DB, assets Resolver, port int) *Server {
	hub := NewHub()
	go hub.Run()

	s := &Server{
		tracker: tracker,
		db:      db,
		assets:  assets,
		port:    port,
		hub:     hub,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Host commands
	mux.HandleFunc("/api/tracking/start", s.handleStartTracking)
	mux.HandleFunc("/api/tracking/stop", s.handleStopTracking)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/features", s.handleFeatures)
	mux.HandleFunc("/api/config", s.handleConfig)

	// Session statistics
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessions)
	mux.HandleFunc("/api/stats", s.handleStats)

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.Handle("/", AssetHandler(s.assets))

	return mux
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	slog.Info("Starting web server", "port", s.port, "url", s.URL())

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and disconnects websocket clients
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	return s.http.Shutdown(ctx)
}

// URL returns the address the UI is served on
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// Publish sends a named event to all connected clients
func (s *Server) Publish(event, payload string) bool {
	return s.hub.BroadcastMessage(Message{Event: event, Payload: payload})
}

// BroadcastStatus broadcasts the capture state to all connected clients
func (s *Server) BroadcastStatus() {
	s.hub.BroadcastMessage(Message{
		Event:   "status",
		Payload: s.status(),
	})
}

func (s *Server) status() StatusMessage {
	status := StatusMessage{Active: s.tracker.Active()}
	if info, ok := s.tracker.Session(); ok {
		status.Session = info.ID
	}
	return status
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
