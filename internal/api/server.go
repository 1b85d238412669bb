// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/engine"
	"crm-decision-engine/pkg/registry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	router *chi.Mux
	http   *http.Server
	engine *engine.Engine
	logger logger.Logger
	checks map[string]ReadinessCheck
}

type errorBody struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Details string           `json:"details,omitempty"`
}

func NewServer(cfg config.ServerConfig, eng *engine.Engine, log logger.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		engine: eng,
		logger: log.WithFields(map[string]interface{}{"component": "api"}),
		checks: make(map[string]ReadinessCheck),
	}
	router.Use(s.requestLogger)

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
	}

	router.Get("/health", s.health)
	router.Get("/ready", s.ready)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/evaluators", s.listEvaluators)
		r.Post("/evaluate/{evaluator}", s.evaluate)
	})

	return s
}

// AddReadinessCheck registers a dependency consulted by /ready.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.checks[name] = check
}

func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", map[string]interface{}{"addr": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": results})
}

func (s *Server) listEvaluators(w http.ResponseWriter, r *http.Request) {
	activities := make([]registry.Activity, 0)
	for _, name := range s.engine.Evaluators() {
		if a, ok := s.engine.Registry().Find(name); ok {
			activities = append(activities, a)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluators": activities,
		"count":      len(activities),
	})
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "evaluator")

	var input map[string]interface{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&input); err != nil {
		s.writeError(w, errors.NewInvalidInputError(fmt.Sprintf("request body must be a JSON object: %v", err)))
		return
	}

	id := uuid.NewString()
	w.Header().Set("X-Evaluation-ID", id)

	result, err := s.engine.Evaluate(engine.ContextWithEvaluationID(r.Context(), id), name, input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := errors.AsStandardError(err)
	writeJSON(w, statusFor(stdErr.Code), map[string]errorBody{
		"error": {Code: stdErr.Code, Message: stdErr.Message, Details: stdErr.Details},
	})
}

func statusFor(code errors.ErrorCode) int {
	switch {
	case code == errors.ErrCodeUnknownEvaluator:
		return http.StatusNotFound
	case code == errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case code == errors.ErrCodeEvaluationTimeout:
		return http.StatusGatewayTimeout
	case errors.GetErrorCategory(code) == "VALIDATION", errors.GetErrorCategory(code) == "TEMPLATE":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("request served", map[string]interface{}{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start).String(),
			"requestId": middleware.GetReqID(r.Context()),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
