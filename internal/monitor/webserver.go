// Package monitor serves a debug HTTP view of the latest transform snapshot:
// frame listings, point lookups, per-frame charts and Prometheus metrics.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/tfgraph/internal/tf"
)

// SnapshotSource yields the latest published snapshot, or nil.
type SnapshotSource interface {
	Snapshot() *tf.Snapshot
}

// AdminRoutes contributes extra debug routes, such as the database pages.
type AdminRoutes interface {
	AttachAdminRoutes(r chi.Router)
}

// WebServer exposes the debug routes.
type WebServer struct {
	source   SnapshotSource
	gatherer prometheus.Gatherer
	admin    []AdminRoutes
	router   chi.Router
}

// Option configures a WebServer.
type Option func(*WebServer)

// WithAdminRoutes attaches a's routes to the router.
func WithAdminRoutes(a AdminRoutes) Option {
	return func(ws *WebServer) { ws.admin = append(ws.admin, a) }
}

// NewWebServer builds the router. A nil gatherer serves the default
// Prometheus registry.
func NewWebServer(source SnapshotSource, gatherer prometheus.Gatherer, opts ...Option) *WebServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	ws := &WebServer{source: source, gatherer: gatherer}
	for _, opt := range opts {
		opt(ws)
	}
	ws.router = ws.setupRoutes()
	return ws
}

func (ws *WebServer) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", ws.handleHealth)
	r.Get("/api/tf/frames", ws.handleFrames)
	r.Get("/api/tf/lookup", ws.handleLookup)
	r.Get("/debug/tf/chart", ws.handleFrameChart)
	r.Get("/debug/tf/plot.png", ws.handleFramePlot)
	r.Handle("/metrics", promhttp.HandlerFor(ws.gatherer, promhttp.HandlerOpts{}))
	for _, a := range ws.admin {
		a.AttachAdminRoutes(r)
	}
	return r
}

// Handler returns the HTTP handler for all routes.
func (ws *WebServer) Handler() http.Handler { return ws.router }

// Start serves on addr until ctx is cancelled.
func (ws *WebServer) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           ws.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[monitor] HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[monitor] HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("[monitor] HTTP server force close error: %v", err)
		}
	}
	log.Printf("[monitor] HTTP server stopped")
	return nil
}

func (ws *WebServer) snapshot(w http.ResponseWriter) *tf.Snapshot {
	snap := ws.source.Snapshot()
	if snap == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no snapshot published yet")
	}
	return snap
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v before touching the response so an unencodable value,
// such as a NaN pose, becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("[monitor] failed to encode response: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "encode response: " + err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("[monitor] failed to write response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
