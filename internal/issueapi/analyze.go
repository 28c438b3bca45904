package issueapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxAnalyzeBody guards the decode even when the API runs without the shared
// body-limit middleware.
const maxAnalyzeBody = 1 << 20

type analyzeRequest struct {
	RepoURL     string `json:"repo_url"`
	IssueNumber int    `json:"issue_number"`
}

func (a *API) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	body := http.MaxBytesReader(w, r.Body, maxAnalyzeBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errTypeValidation, "invalid JSON payload")
		return
	}

	owner, repo, err := ParseRepoURL(req.RepoURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, errTypeValidation, err.Error())
		return
	}
	if req.IssueNumber <= 0 {
		writeError(w, http.StatusBadRequest, errTypeValidation, "issue_number must be a positive integer")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("github.owner", owner),
		attribute.String("github.repo", repo),
		attribute.Int("github.issue_number", req.IssueNumber),
	)

	result, err := a.svc.AnalyzeIssue(r.Context(), owner, repo, req.IssueNumber)
	if err != nil {
		a.writeAnalyzeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
