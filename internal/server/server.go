// Package server implements arbor-serve, a small HTTP server that publishes
// node documents from a directory so the navigator can load them lazily
// over http, alongside health and metrics endpoints.
//
// Routes:
//
//	GET /health          liveness probe
//	GET /metrics         Prometheus text counters
//	GET /api/metrics     the same counters as JSON
//	GET /api/cache       document cache statistics (when a store is set)
//	GET /docs/*          node documents under Config.Dir
//
// Documents are validated before they are served: anything that is not a
// JSON array is answered with 422 so a broken file surfaces as a failed
// load in the navigator instead of a decode error deep in a subtree.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mr-Dark-debug/arbor/internal/database"
	"github.com/Mr-Dark-debug/arbor/internal/logx"
	"github.com/Mr-Dark-debug/arbor/pkg/jsonutil"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxDocumentBytes caps a served document.
const maxDocumentBytes = 32 << 20

// Config holds configuration for the document server.
type Config struct {
	// Addr is the TCP address to listen on.
	Addr string
	// Dir is the directory node documents are served from.
	Dir string
	// Store, when set, backs /api/cache.
	Store database.Store
	// Logger receives request and lifecycle logs.
	Logger *log.Logger
}

// Metrics tracks request counters.
type Metrics struct {
	DocumentsServed int64 `json:"documents_served"`
	NodesServed     int64 `json:"nodes_served"`
	NotFound        int64 `json:"not_found"`
	Invalid         int64 `json:"invalid"`
	Requests        int64 `json:"requests"`
	Uptime          int64 `json:"uptime_seconds"`
}

// ============================================================
// Server
// ============================================================

// Server serves node documents over HTTP.
type Server struct {
	config  Config
	logger  *log.Logger
	metrics Metrics
	router  chi.Router

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
	started  time.Time
	done     chan struct{}
}

// New creates a server. Call Start to begin listening, or use Handler
// directly.
func New(cfg Config) *Server {
	s := &Server{
		config:  cfg,
		logger:  cfg.Logger,
		started: time.Now(),
	}
	if s.logger == nil {
		s.logger = logx.Discard()
	}
	if s.config.Dir == "" {
		s.config.Dir = "."
	}
	s.router = s.routes()
	return s
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

// Start binds the listen address and serves in the background until ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.started = time.Now()
	s.httpSrv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.done = make(chan struct{})
	srv, done := s.httpSrv, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", "err", err)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()

	s.logger.Info("serving node documents", "addr", ln.Addr().String(), "dir", s.config.Dir)
	return nil
}

// Stop gracefully shuts the server down. It is safe to call more than once.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv, done := s.httpSrv, s.done
	s.httpSrv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)
	<-done
	s.logger.Info("server stopped")
	if err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// Metrics returns a snapshot of the request counters.
func (s *Server) Metrics() Metrics {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	return Metrics{
		DocumentsServed: atomic.LoadInt64(&s.metrics.DocumentsServed),
		NodesServed:     atomic.LoadInt64(&s.metrics.NodesServed),
		NotFound:        atomic.LoadInt64(&s.metrics.NotFound),
		Invalid:         atomic.LoadInt64(&s.metrics.Invalid),
		Requests:        atomic.LoadInt64(&s.metrics.Requests),
		Uptime:          int64(time.Since(started).Seconds()),
	}
}

// ============================================================
// Routes
// ============================================================

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", s.handlePromMetrics)
	r.Route("/api", func(r chi.Router) {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, s.Metrics())
		})
		r.Get("/cache", s.handleCacheStats)
	})
	r.Get("/docs/*", s.handleDocument)
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.metrics.Requests, 1)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	file, ok := s.resolve(name)
	if !ok {
		atomic.AddInt64(&s.metrics.NotFound, 1)
		http.NotFound(w, r)
		return
	}

	data, err := readDocument(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		atomic.AddInt64(&s.metrics.NotFound, 1)
		http.NotFound(w, r)
		return
	case err != nil:
		s.logger.Warn("reading document failed", "file", file, "err", err)
		http.Error(w, "reading document failed", http.StatusInternalServerError)
		return
	}

	n, err := jsonutil.ArrayLen(data)
	if err != nil {
		atomic.AddInt64(&s.metrics.Invalid, 1)
		s.logger.Warn("refusing invalid document", "file", file, "err", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": fmt.Sprintf("%s is not a node document: %v", name, err),
		})
		return
	}

	atomic.AddInt64(&s.metrics.DocumentsServed, 1)
	atomic.AddInt64(&s.metrics.NodesServed, int64(n))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no document cache configured"})
		return
	}
	stats, err := s.config.Store.GetCacheStats()
	if err != nil {
		s.logger.Warn("reading cache stats failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePromMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.Metrics()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	counters := []struct {
		name, help, kind string
		value            int64
	}{
		{"arbor_documents_served_total", "Node documents served", "counter", m.DocumentsServed},
		{"arbor_nodes_served_total", "Top-level records served", "counter", m.NodesServed},
		{"arbor_not_found_total", "Document requests with no matching file", "counter", m.NotFound},
		{"arbor_invalid_documents_total", "Documents refused as not a JSON array", "counter", m.Invalid},
		{"arbor_requests_total", "HTTP requests handled", "counter", m.Requests},
		{"arbor_uptime_seconds", "Uptime in seconds", "gauge", m.Uptime},
	}
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", c.name, c.kind)
		fmt.Fprintf(w, "%s %d\n", c.name, c.value)
	}
}

// resolve maps a request path onto a file under the served directory.
// Paths escaping the directory are rejected.
func (s *Server) resolve(name string) (string, bool) {
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Contains(clean, "\x00") {
		return "", false
	}
	file := filepath.Join(s.config.Dir, filepath.FromSlash(clean))
	rel, err := filepath.Rel(s.config.Dir, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return file, true
}

func readDocument(file string) ([]byte, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fs.ErrNotExist
	}
	if info.Size() > maxDocumentBytes {
		return nil, fmt.Errorf("%s: document exceeds %d bytes", file, maxDocumentBytes)
	}
	return os.ReadFile(file)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
