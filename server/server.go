// Package server exposes playground sessions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	gsp "github.com/richinsley/goshaderplayground"
	"github.com/richinsley/goshaderplayground/api"
	"github.com/richinsley/goshaderplayground/renderer"
	"github.com/richinsley/goshaderplayground/state"
	"github.com/richinsley/goshaderplayground/translator"
)

const maxBodyBytes = 1 << 20

// ShaderChecker compiles a snippet and reports what it references.
type ShaderChecker func(ctx context.Context, snippet string) (*translator.Report, error)

// Config wires the server to a rendering SDK.
type Config struct {
	Port      int
	StaticDir string // empty disables static files
	Codec     *state.Codec
	Loader    renderer.ImageLoader
	Factory   renderer.WorkspaceFactory
	Source    api.Source
	Debounce  time.Duration
	Validate  ShaderChecker // nil selects translator.Validate

	IdleTimeout time.Duration // zero selects DefaultIdleTimeout
	MaxSessions int           // zero selects DefaultMaxSessions
}

// Server handles web requests for playground sessions.
type Server struct {
	cfg      Config
	sessions *sessionStore
}

// NewServer creates a new web server
func NewServer(cfg Config) *Server {
	if cfg.Codec == nil {
		cfg.Codec = state.NewCodec()
	}
	if cfg.Validate == nil {
		cfg.Validate = translator.Validate
	}
	return &Server{cfg: cfg, sessions: newSessionStore(cfg.IdleTimeout, cfg.MaxSessions)}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/presets", s.handlePresets)
	mux.HandleFunc("POST /api/fragment/decode", s.handleDecode)
	mux.HandleFunc("POST /api/fragment/encode", s.handleEncode)
	mux.HandleFunc("POST /api/shader/validate", s.handleValidate)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("PUT /api/sessions/{id}/{field}", s.handleSetField)
	mux.HandleFunc("GET /api/sessions/{id}/load", s.handleLoad)
	mux.HandleFunc("GET /api/sessions/{id}/colormap.png", s.handleLegend)
	return mux
}

// Start serves until ctx is cancelled, then shuts down and closes every
// session.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go s.sweepEvery(ctx, s.sessions.idle/4)

	errc := make(chan error, 1)
	go func() {
		gsp.Logger().Info("starting web server", "addr", "http://localhost"+srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	gsp.Logger().Info("web server stopped")
	return err
}

// Close releases every open session.
func (s *Server) Close() {
	closeAll(s.sessions.drain())
}

// Sweep closes sessions idle for longer than the idle timeout.
func (s *Server) Sweep() {
	closeAll(s.sessions.expire())
}

func (s *Server) sweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		gsp.Logger().Debug("writing response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// readJSON decodes a single JSON value from the request body.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

// parseIntParam parses an optional integer query parameter within bounds.
func parseIntParam(r *http.Request, key string, defaultValue, min, max int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}
	return v, nil
}
