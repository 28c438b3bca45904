// Package issueapi is the inbound HTTP surface: analyze requests and reads
// of stored results.
package issueapi

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/Aditi7Singh/github-issue-assistant/internal/analysis"
)

// AnalysisService defines the business operations issueapi needs.
type AnalysisService interface {
	AnalyzeIssue(ctx context.Context, owner, repo string, number int) (*analysis.Result, error)
	Get(ctx context.Context, id string) (*analysis.Result, bool, error)
	GetByIssue(ctx context.Context, owner, repo string, number int) (*analysis.Result, bool, error)
	ListRecent(ctx context.Context, limit int) ([]*analysis.Result, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    AnalysisService
}

// New creates a new API handler.
func New(logger log.Logger, svc AnalysisService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("analysis service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", a.handleAnalyze)
		r.Get("/analyses", a.handleListAnalyses)
		r.Get("/analyses/{id}", a.handleGetAnalysis)
	})
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (a *API) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("issue_assistant.analysis.id", id))

	result, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get analysis", "id", id)
		writeError(w, http.StatusInternalServerError, errTypeInternal, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errTypeNotFound, "analysis not found")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// owner+repo+issue narrows the list to the latest verdict for one issue
	if q.Get("owner") != "" || q.Get("repo") != "" || q.Get("issue") != "" {
		a.handleGetByIssue(w, r)
		return
	}

	limit := defaultListLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errTypeValidation, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	results, err := a.svc.ListRecent(r.Context(), limit)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list analyses")
		writeError(w, http.StatusInternalServerError, errTypeInternal, "internal error")
		return
	}
	if results == nil {
		results = []*analysis.Result{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"analyses": results})
}

func (a *API) handleGetByIssue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, repo := q.Get("owner"), q.Get("repo")
	number, convErr := strconv.Atoi(q.Get("issue"))
	if owner == "" || repo == "" || convErr != nil || number <= 0 {
		writeError(w, http.StatusBadRequest, errTypeValidation,
			"owner, repo and a positive issue are required together")
		return
	}

	result, ok, err := a.svc.GetByIssue(r.Context(), owner, repo, number)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get analysis by issue",
			"owner", owner, "repo", repo, "issue_number", number)
		writeError(w, http.StatusInternalServerError, errTypeInternal, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errTypeNotFound, "no analysis for this issue")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
