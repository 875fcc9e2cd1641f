package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andratr/bmtool1/application"
	"github.com/andratr/bmtool1/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	defaultK   = 6
	dateLayout = "2006-01-02"

	jobTypeRAG       = "rag-ingest"
	jobTypeFramework = "framework-ingest"
)

type ingestRequest struct {
	RootDir      string   `json:"rootDir"`
	BasePackages []string `json:"basePackages,omitempty"`
}

type jobAccepted struct {
	JobID string `json:"jobId"`
}

type errorBody struct {
	Error string `json:"error"`
}

var errExperimentsDisabled = errors.New("experiment persistence is not configured")

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	_, root, ok := s.decodeIngest(w, r)
	if !ok {
		return
	}

	id, err := s.deps.Jobs.Submit("rag:"+root, jobTypeRAG, func(ctx context.Context, progress application.ProgressFunc) (string, error) {
		mappings, err := s.deps.Ingester.IngestDirectory(ctx, root, application.WithProgress(progress))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d mappings ingested", len(mappings)), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, jobAccepted{JobID: id})
}

func (s *Server) handleFrameworkIngest(w http.ResponseWriter, r *http.Request) {
	req, root, ok := s.decodeIngest(w, r)
	if !ok {
		return
	}
	if len(req.BasePackages) == 0 {
		writeError(w, fmt.Errorf("%w: basePackages is required", domain.ErrInvalidRequest))
		return
	}
	packages := append([]string(nil), req.BasePackages...)

	id, err := s.deps.Jobs.Submit("framework:"+root, jobTypeFramework, func(ctx context.Context, _ application.ProgressFunc) (string, error) {
		n, err := s.deps.Ingester.IngestFrameworkDirectory(ctx, root, packages)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d framework symbols ingested", n), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, jobAccepted{JobID: id})
}

// decodeIngest reads the request body and resolves rootDir to an absolute
// directory. It writes the error response itself and reports ok=false on
// failure.
func (s *Server) decodeIngest(w http.ResponseWriter, r *http.Request) (ingestRequest, string, bool) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed JSON body: %v", domain.ErrInvalidRequest, err))
		return req, "", false
	}
	if strings.TrimSpace(req.RootDir) == "" {
		writeError(w, fmt.Errorf("%w: rootDir is required", domain.ErrInvalidRequest))
		return req, "", false
	}
	root, err := filepath.Abs(req.RootDir)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return req, "", false
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		writeError(w, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidRequest, req.RootDir))
		return req, "", false
	}
	return req, root, true
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.JobStatus.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.JobStatus.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := s.deps.Defaults
	req.Question = q.Get("q")

	var err error
	if req.KDocs, err = intParam(q.Get("kDocs"), defaultK); err != nil {
		writeError(w, err)
		return
	}
	if req.KFramework, err = intParam(q.Get("kFramework"), defaultK); err != nil {
		writeError(w, err)
		return
	}
	if req.Technique, err = domain.ParseTechnique(q.Get("prompting")); err != nil {
		writeError(w, err)
		return
	}
	if v := q.Get("provider"); v != "" && v != req.Provider {
		req.Provider = v
		req.LLMModel = ""
		if s.deps.ModelFor != nil {
			req.LLMModel = s.deps.ModelFor(v)
		}
	}
	if v := q.Get("llmModel"); v != "" {
		req.LLMModel = v
	}
	if v := q.Get("embeddingModel"); v != "" {
		req.EmbeddingModel = v
	}
	req.Tags = splitTags(q["tags"])

	ans, err := s.deps.Asker.Ask(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Experiments == nil {
		writeError(w, errExperimentsDisabled)
		return
	}
	q := r.URL.Query()
	query := application.ExperimentQuery{
		EmbeddingModel: q.Get("embedding"),
		LLMModel:       q.Get("llm"),
	}
	var err error
	if query.From, err = dateParam("from", q.Get("from")); err != nil {
		writeError(w, err)
		return
	}
	if query.To, err = dateParam("to", q.Get("to")); err != nil {
		writeError(w, err)
		return
	}

	list, err := s.deps.Experiments.List(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	if s.deps.Experiments == nil {
		writeError(w, errExperimentsDisabled)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: experiment id must be an integer", domain.ErrInvalidRequest))
		return
	}
	e, err := s.deps.Experiments.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	ids := s.deps.Providers
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handlePromptingOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.Techniques())
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidRequest, v)
	}
	return n, nil
}

func dateParam(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a date like 2006-01-02", domain.ErrInvalidRequest, name)
	}
	return &t, nil
}

// splitTags accepts both repeated parameters and comma lists.
func splitTags(values []string) []string {
	var out []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoPairs), errors.Is(err, domain.ErrNoMappings):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrJobActive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrRunnerClosed), errors.Is(err, errExperimentsDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("could not write response")
	}
}
