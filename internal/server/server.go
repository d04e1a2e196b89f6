// Package server exposes the validation service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/pipeline"
	"github.com/ppiankov/credence/internal/store"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// maxRequestBytes caps request bodies; pasted articles are the largest input
const maxRequestBytes = 5 << 20

// ValidationService is what the handlers need from the pipeline
type ValidationService interface {
	Validate(ctx context.Context, req pipeline.ValidationRequest) (*pipeline.ValidationResponse, error)
	Result(ctx context.Context, id string) (*pipeline.ValidationResponse, error)
	Latest(ctx context.Context, fp string) (*pipeline.ValidationResponse, error)
	Retry(ctx context.Context, id string) (*pipeline.ValidationResponse, error)
	History(ctx context.Context, fp string) (*pipeline.HistoryResponse, error)
	Stored(ctx context.Context) (int, error)
}

// Server is the HTTP entry point
type Server struct {
	service ValidationService
	config  model.ServerConfig
	version string
	log     logrus.FieldLogger
	router  chi.Router
}

// New creates a server and registers its routes
func New(service ValidationService, config model.ServerConfig, version string, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		service: service,
		config:  config,
		version: version,
		log:     log,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	r.Use(middleware.Recoverer)
	r.Use(requestLogging(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1/validation", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Get("/article/{fingerprint}", s.handleLatest)
		r.Get("/article/{fingerprint}/results", s.handleHistory)
		r.Get("/{id}", s.handleResult)
		r.Post("/{id}/retry", s.handleRetry)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Server is starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.log.Info("Shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":    "healthy",
		"version":   s.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	n, err := s.service.Stored(r.Context())
	switch {
	case err == nil:
		body["stored_validations"] = n
	case !errors.Is(err, pipeline.ErrNoStore):
		s.log.WithError(err).Warn("Health check could not count stored validations")
		body["status"] = "degraded"
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ValidationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &pipeline.ValidationResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	resp, err := s.service.Validate(r.Context(), req)
	s.respond(w, resp, err)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.Result(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, resp, err)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.Latest(r.Context(), chi.URLParam(r, "fingerprint"))
	s.respond(w, resp, err)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.History(r.Context(), chi.URLParam(r, "fingerprint"))
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Warn("History request failed")
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.Retry(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, resp, err)
}

func (s *Server) respond(w http.ResponseWriter, resp *pipeline.ValidationResponse, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Warn("Validation request failed")
	}
	writeJSON(w, status, resp)
}

// statusFor maps service errors to HTTP statuses
func statusFor(err error) int {
	var extraction *model.ExtractionError
	switch {
	case err == nil:
		return http.StatusOK
	case model.IsInput(err):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNotRetryable):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrNoStore):
		return http.StatusNotImplemented
	case model.IsTimeout(err):
		// checked first: a deadline during extraction wraps the extraction error
		return http.StatusGatewayTimeout
	case errors.As(err, &extraction):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
