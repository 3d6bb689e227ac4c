// Package server runs the ops listener: health checks, metrics and graceful
// shutdown for the query API and the ingestion worker.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/efebarandurmaz/codefinder/internal/logging"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck represents a single health check.
type HealthCheck struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse is the response from health endpoints.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker performs one health check.
type HealthChecker func(ctx context.Context) HealthCheck

// HealthServer serves liveness, readiness and dependency checks, plus any
// extra handlers mounted on it (typically /metrics).
type HealthServer struct {
	mu      sync.RWMutex
	checks  map[string]HealthChecker
	mounts  map[string]http.Handler
	version string
	ready   bool
	logger  *slog.Logger

	srvMu  sync.Mutex
	srv    *http.Server
	closed bool
}

// HealthConfig configures the health server.
type HealthConfig struct {
	Version string
	Logger  *slog.Logger
}

// NewHealthServer creates a new health server. It starts unready.
func NewHealthServer(config *HealthConfig) *HealthServer {
	s := &HealthServer{
		checks: make(map[string]HealthChecker),
		mounts: make(map[string]http.Handler),
		logger: logging.Discard(),
	}
	if config != nil {
		s.version = config.Version
		s.logger = logging.OrDiscard(config.Logger)
	}
	return s
}

// RegisterCheck adds a health check under name.
func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

// Mount serves h at path next to the health endpoints.
func (s *HealthServer) Mount(path string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts[path] = h
}

func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Handler returns the ops mux.
func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", s.handleLive)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /livez", s.handleLive)

	s.mu.RLock()
	for path, h := range s.mounts {
		mux.Handle(path, h)
	}
	s.mu.RUnlock()
	return mux
}

// ListenAndServe serves the ops mux on addr until Shutdown is called.
func (s *HealthServer) ListenAndServe(addr string) error {
	if addr == "" {
		addr = ":8081"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srvMu.Lock()
	if s.closed {
		s.srvMu.Unlock()
		return nil
	}
	s.srv = srv
	s.srvMu.Unlock()

	s.logger.Info("ops listener started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the ops listener. A listener started afterwards returns
// immediately.
func (s *HealthServer) Shutdown(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.closed = true
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthChecker, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	version := s.version
	s.mu.RUnlock()
	sort.Strings(names)

	response := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
		Checks:    make([]HealthCheck, 0, len(names)),
	}
	for _, name := range names {
		check := checks[name](ctx)
		check.Name = name
		response.Checks = append(response.Checks, check)

		switch {
		case check.Status == HealthStatusUnhealthy:
			response.Status = HealthStatusUnhealthy
		case check.Status == HealthStatusDegraded && response.Status == HealthStatusHealthy:
			response.Status = HealthStatusDegraded
		}
	}

	status := http.StatusOK
	if response.Status == HealthStatusUnhealthy {
		s.logger.Warn("health check failed", "checks", response.Checks)
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (s *HealthServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	writeStatus(w, ready)
}

// handleLive answers as long as the process can serve HTTP.
func (s *HealthServer) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, true)
}

func writeStatus(w http.ResponseWriter, ok bool) {
	response := HealthResponse{Status: HealthStatusHealthy, Timestamp: time.Now().UTC()}
	if !ok {
		response.Status = HealthStatusUnhealthy
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// DependencyChecker wraps a ping function. A failing critical dependency
// makes the service unhealthy; a failing optional one only degrades it.
func DependencyChecker(label string, critical bool, ping func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if err := ping(ctx); err != nil {
			status := HealthStatusDegraded
			if critical {
				status = HealthStatusUnhealthy
			}
			return HealthCheck{
				Status:  status,
				Message: label + " unreachable: " + err.Error(),
			}
		}
		return HealthCheck{Status: HealthStatusHealthy, Message: label + " OK"}
	}
}

// CollectionChecker reports whether the vector collection exists and how
// many points it holds.
func CollectionChecker(collection string, count func(ctx context.Context, name string) (int, error)) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		n, err := count(ctx, collection)
		if err != nil {
			return HealthCheck{
				Status:  HealthStatusUnhealthy,
				Message: "vector store: " + err.Error(),
				Details: map[string]string{"collection": collection},
			}
		}
		status := HealthStatusHealthy
		if n == 0 {
			status = HealthStatusDegraded
		}
		return HealthCheck{
			Status:  status,
			Message: "vector store OK",
			Details: map[string]string{"collection": collection, "points": strconv.Itoa(n)},
		}
	}
}

// LLMChecker reports the configured provider. It never calls the API.
func LLMChecker(provider, model string) HealthChecker {
	return func(context.Context) HealthCheck {
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: "LLM provider configured",
			Details: map[string]string{"provider": provider, "model": model},
		}
	}
}
