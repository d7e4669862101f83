package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vehicle-sim/internal/logging"
	"vehicle-sim/internal/sim"
)

// StatusSource is what the admin server reports on. *sim.Simulator
// satisfies it.
type StatusSource interface {
	SimID() string
	Snapshot() []sim.DeviceStatus
	Done() bool
}

type Server struct {
	source StatusSource
	router *chi.Mux
}

func NewServer(source StatusSource) *Server {
	s := &Server{source: source}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Route("/devices", func(r chi.Router) {
		r.Get("/", s.handleDevices)
		// topics contain slashes
		r.Get("/*", s.handleDevice)
	})
	s.router = r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logging.FromContext(ctx).Info("admin server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	devices := s.source.Snapshot()
	failed := 0
	complete := 0
	for _, d := range devices {
		if d.Error != "" {
			failed++
		}
		if d.Complete {
			complete++
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sim_id":   s.source.SimID(),
		"devices":  len(devices),
		"complete": complete,
		"failed":   failed,
		"done":     s.source.Done(),
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.source.Snapshot())
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	topic := strings.Trim(chi.URLParam(r, "*"), "/")
	if topic == "" {
		respondError(w, http.StatusBadRequest, "topic is required", nil)
		return
	}
	for _, d := range s.source.Snapshot() {
		if d.Topic == topic {
			respondJSON(w, http.StatusOK, d)
			return
		}
	}
	respondError(w, http.StatusNotFound, "device not found", errors.New(topic))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
