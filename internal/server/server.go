// Package server provides the HTTP server for the gesturesynth service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	log "github.com/echocat/slf4g"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ayusman/gesturesynth/internal/app"
	"github.com/ayusman/gesturesynth/internal/capture"
	"github.com/ayusman/gesturesynth/internal/detector"
	"github.com/ayusman/gesturesynth/internal/engine"
	"github.com/ayusman/gesturesynth/internal/gesture"
	"github.com/ayusman/gesturesynth/internal/route"
	"github.com/ayusman/gesturesynth/internal/server/api"
)

const shutdownTimeout = 5 * time.Second

// Pipeline is the part of the app the server exposes.
type Pipeline interface {
	Status() app.Status
	Parameters() (engine.Table, bool)
	Routes() route.Table
	Tracking() bool
	SetTracking(enabled bool)
	Push(frame detector.DetectionFrame)
	Observe(fn func(gesture.Snapshot))
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Pipeline  Pipeline
	// Preview enables /api/stream.
	Preview *capture.Preview
	// Ingest enables /api/detections.
	Ingest bool
}

// Server represents the HTTP server for the gesturesynth application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	hub    *Hub
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		hub:    NewHub(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if p := s.config.Pipeline; p != nil {
		p.Observe(s.hub.Broadcast)
		s.mux.Handle("/api/snapshots", s.hub)
		s.mux.Handle("/api/routes", api.NewRoutesHandler(p.Routes()))

		params := api.NewParametersHandler(p)
		s.mux.Handle("/api/parameters", params)
		s.mux.Handle("/api/parameters/", params)
		s.mux.Handle("/api/tracking", api.NewTrackingHandler(p))

		if s.config.Ingest {
			s.mux.Handle("/api/detections", NewIngestHandler(p.Push))
		}
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the snapshot broadcaster.
func (s *Server) Hub() *Hub {
	return s.hub
}

type healthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Engine   string `json:"engine,omitempty"`
	Tracking *bool  `json:"tracking,omitempty"`
	Clients  int    `json:"clients"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := healthResponse{
		Status:  "ok",
		Uptime:  time.Since(s.start).Round(time.Second).String(),
		Clients: s.hub.Len(),
	}
	if p := s.config.Pipeline; p != nil {
		status := p.Status()
		response.Engine = status.Engine
		response.Tracking = &status.Tracking
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	handler := otelhttp.NewHandler(s, "gesturesynth",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.With("addr", addr).Info("HTTP server listening.")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
