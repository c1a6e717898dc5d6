package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ayusman/gesturesynth/internal/app"
	"github.com/ayusman/gesturesynth/internal/detector"
	"github.com/ayusman/gesturesynth/internal/engine"
	"github.com/ayusman/gesturesynth/internal/gesture"
	"github.com/ayusman/gesturesynth/internal/route"
)

// fakePipeline records pushed frames and lets tests emit snapshots.
type fakePipeline struct {
	mu        sync.Mutex
	status    app.Status
	params    engine.Table
	pushed    []detector.DetectionFrame
	observers []func(gesture.Snapshot)
}

func (p *fakePipeline) Status() app.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *fakePipeline) Parameters() (engine.Table, bool) { return p.params, p.params != nil }
func (p *fakePipeline) Routes() route.Table              { return route.DefaultTable() }

func (p *fakePipeline) Tracking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.Tracking
}

func (p *fakePipeline) SetTracking(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Tracking = on
}

func (p *fakePipeline) Push(f detector.DetectionFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, f)
}

func (p *fakePipeline) Pushed() []detector.DetectionFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]detector.DetectionFrame(nil), p.pushed...)
}

func (p *fakePipeline) Observe(fn func(gesture.Snapshot)) {
	p.observers = append(p.observers, fn)
}

func (p *fakePipeline) emit(s gesture.Snapshot) {
	for _, fn := range p.observers {
		fn(s)
	}
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("reports engine and tracking state", func(t *testing.T) {
		p := &fakePipeline{status: app.Status{Engine: app.EngineWaiting, Tracking: true}}
		s := New(Config{Pipeline: p})

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		var response healthResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Engine != app.EngineWaiting {
			t.Errorf("expected engine %q, got %q", app.EngineWaiting, response.Engine)
		}
		if response.Tracking == nil || !*response.Tracking {
			t.Errorf("expected tracking true, got %v", response.Tracking)
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	// Create a temporary directory with a static file
	tmpDir := t.TempDir()

	// Create a test HTML file
	testContent := "<html><body>Hello, World!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	// Create a CSS file for testing direct file access
	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("serves static files from configured directory", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/style.css", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != cssContent {
			t.Errorf("expected body %q, got %q", cssContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	t.Run("root path returns 404 when no static dir configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_PipelineRoutes(t *testing.T) {
	t.Run("registered with a pipeline", func(t *testing.T) {
		s := New(Config{Pipeline: &fakePipeline{params: engine.DefaultParameters()}})
		for _, path := range []string{"/api/routes", "/api/parameters", "/api/parameters/ipPitch", "/api/tracking"} {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("GET %s: expected status %d, got %d", path, http.StatusOK, rec.Code)
			}
		}
	})

	t.Run("absent without one", func(t *testing.T) {
		s := New(Config{})
		for _, path := range []string{"/api/routes", "/api/parameters", "/api/snapshots", "/api/detections", "/api/stream"} {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusNotFound {
				t.Errorf("GET %s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
			}
		}
	})

	t.Run("detections only when ingest is enabled", func(t *testing.T) {
		s := New(Config{Pipeline: &fakePipeline{}})
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/detections", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		cfg := Config{StaticDir: "/some/path"}
		s := New(cfg)

		if s == nil {
			t.Fatal("expected non-nil server")
		}

		if s.config.StaticDir != cfg.StaticDir {
			t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})
}
