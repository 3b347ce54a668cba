// Package server exposes a Projector over HTTP. Each POST to
// /v1/projections runs one task and streams its events back as
// newline-delimited JSON, ending with the done event.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ursinus-CS476-F2020/LoopDitty/logging"
	"github.com/Ursinus-CS476-F2020/LoopDitty/projection"
	"github.com/Ursinus-CS476-F2020/LoopDitty/projection/config"
)

const ndjsonContentType = "application/x-ndjson"

// Server is the HTTP front end of a Projector
type Server struct {
	router    *mux.Router
	server    *http.Server
	projector *projection.Projector
	gatherer  prometheus.Gatherer
	config    config.ServerConfig
	logger    logging.Logger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer serves /metrics from g. Without it /metrics is not routed.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// New creates a server for p.
func New(p *projection.Projector, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		projector: p,
		config:    cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "server",
		}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/projections", s.project).Methods(http.MethodPost)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithFields(r.Context(), logging.Fields{"request_id": requestID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		s.logger.WithContext(r.Context()).Info("Request served", logging.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapper.statusCode,
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		})
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// project decodes one request, starts a task bound to the request context
// and streams every event as one JSON line. A client that disconnects
// cancels its task.
func (s *Server) project(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithContext(r.Context())

	body := http.MaxBytesReader(w, r.Body, s.config.MaxRequestBytes)
	req, err := projection.DecodeRequest(body)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		logger.Warn("Rejected projection request", logging.Fields{"error": err.Error()})
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	task := s.projector.Project(r.Context(), req)
	defer task.Cancel()

	w.Header().Set("Content-Type", ndjsonContentType)
	w.Header().Set("X-Projection-ID", task.ID)
	w.Header().Set("X-Projection-Generation", fmt.Sprint(task.Generation))
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	for e := range task.Events() {
		if err := enc.Encode(e); err != nil {
			logger.Warn("Client went away during projection", logging.Fields{
				"invocation_id": task.ID,
				"error":         err.Error(),
			})
			task.Cancel()
			continue
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			task.Cancel()
		}
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("server: failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Starting HTTP server", logging.Fields{"addr": ln.Addr().String()})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// responseWrapper records the status code for the request log
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the Flusher underneath.
func (rw *responseWrapper) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
