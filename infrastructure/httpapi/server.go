package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/andratr/bmtool1/application"
	"github.com/andratr/bmtool1/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Ingester runs the two ingestion flows.
type Ingester interface {
	IngestDirectory(ctx context.Context, rootDir string, opts ...application.IngestOption) ([]domain.BlockMapping, error)
	IngestFrameworkDirectory(ctx context.Context, rootDir string, basePackages []string) (int, error)
}

// ExperimentReader lists and fetches recorded experiments.
type ExperimentReader interface {
	List(ctx context.Context, q application.ExperimentQuery) ([]domain.Experiment, error)
	Get(ctx context.Context, id int64) (domain.Experiment, error)
}

// JobSubmitter starts background jobs.
type JobSubmitter interface {
	Submit(key, jobType string, fn application.JobFunc) (string, error)
}

// JobLookup reads job statuses.
type JobLookup interface {
	Get(id string) (application.Job, error)
	List() []application.Job
}

// Deps are the collaborators of the API. Defaults fills in the parts of an
// ask request the caller leaves out. ModelFor resolves the configured model
// of a provider picked by the caller without an explicit llmModel.
type Deps struct {
	Asker       application.Asker
	Ingester    Ingester
	Jobs        JobSubmitter
	JobStatus   JobLookup
	Experiments ExperimentReader
	Providers   []string
	Defaults    domain.AskRequest
	ModelFor    func(provider string) string
}

// Server is the HTTP front end.
type Server struct {
	deps   Deps
	router chi.Router
}

// NewServer creates a Server with all routes registered.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, router: chi.NewRouter()}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/rag/ingest", s.handleIngest)
		r.Post("/framework/ingest", s.handleFrameworkIngest)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/orchestrator/ask", s.handleAsk)
		r.Get("/experiments", s.handleListExperiments)
		r.Get("/experiments/{id}", s.handleGetExperiment)
		r.Get("/providers", s.handleProviders)
		r.Get("/prompting/options", s.handlePromptingOptions)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info().Msg("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
