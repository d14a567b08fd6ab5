package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"seatcap/internal/config"
	"seatcap/internal/failure"
	appLog "seatcap/internal/log"
	"seatcap/internal/model"
	"seatcap/internal/runner"
	"seatcap/internal/workflow"
)

// Runner is what the trigger surface needs from the run owner.
type Runner interface {
	Run(ctx context.Context, t model.Target) (workflow.Result, error)
	Busy() bool
}

// Server exposes the trigger API: status, health, run and the last
// failure screenshot.
type Server struct {
	cfg     *config.Config
	runner  Runner
	version string
	mux     *http.ServeMux
}

// maxBody caps trigger request bodies.
const maxBody = 64 << 10

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, r Runner, version string) *Server {
	s := &Server{
		cfg:     cfg,
		runner:  r,
		version: version,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="seatcap", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is cancelled, then
// shuts down gracefully, letting an in-flight run's response finish.
func StartServer(ctx context.Context, cfg *config.Config, r Runner, version string) error {
	s := NewServer(cfg, r, version)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleStatus)
	s.mux.HandleFunc("POST /run", s.handleRun)
	s.mux.HandleFunc("GET /last-failed.png", s.handleLastFailed)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// statusResponse is the JSON response shape for GET /.
type statusResponse struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	RunActive bool   `json:"run_active"`
	Upstream  string `json:"upstream"`
	Schedules int    `json:"schedules"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Service:   "seatcap",
		Version:   s.version,
		RunActive: s.runner.Busy(),
		Upstream:  s.cfg.Upstream.BaseURL,
		Schedules: len(s.cfg.Schedules),
	})
}

type runResponse struct {
	OK     bool            `json:"ok"`
	Result workflow.Result `json:"result"`
}

// handleRun triggers one capacity change.
//
// POST /run {"date":"2025-10-31","time":"08:00","name":"Yoga","capacity":2}
//   - omitted fields take the configured defaults
//   - 409 while another run is active, 404 when no event matches
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runner.Request
	body := http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object: "+err.Error())
		return
	}

	t, err := req.Merge(s.cfg.Defaults).Target()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// A run is not abandoned when the caller disconnects.
	res, err := s.runner.Run(context.WithoutCancel(r.Context()), t)
	if err != nil {
		status, kind := classify(err)
		writeError(w, status, kind, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runResponse{OK: true, Result: res})
}

// classify maps a run error to an HTTP status and a kind label.
func classify(err error) (int, string) {
	if errors.Is(err, runner.ErrBusy) {
		return http.StatusConflict, "busy"
	}
	kind, ok := failure.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, "internal"
	}
	if kind == failure.KindNoMatchingEvent {
		return http.StatusNotFound, string(kind)
	}
	return http.StatusInternalServerError, string(kind)
}

// handleLastFailed serves the page capture of the last failed run.
func (s *Server) handleLastFailed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, s.cfg.Diagnostics.Screenshot)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	type errResp struct {
		OK    bool   `json:"ok"`
		Kind  string `json:"kind"`
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Kind: kind, Error: msg})
}
