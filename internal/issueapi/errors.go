package issueapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Aditi7Singh/github-issue-assistant/internal/analysis"
	"github.com/Aditi7Singh/github-issue-assistant/internal/github"
)

const (
	errTypeValidation = "validation_error"
	errTypeNotFound   = "not_found"
	errTypeRateLimit  = "rate_limited"
	errTypeUpstream   = "upstream_error"
	errTypeInternal   = "internal_error"
)

type errorBody struct {
	Error          string `json:"error"`
	ErrorType      string `json:"error_type"`
	RateLimitReset int64  `json:"rate_limit_reset,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, msg string) {
	writeJSON(w, status, errorBody{Error: msg, ErrorType: errType})
}

// writeAnalyzeError maps pipeline errors onto the wire taxonomy. Typed fetch
// and provider failures keep their status semantics; anything untyped is a
// 500.
func (a *API) writeAnalyzeError(w http.ResponseWriter, r *http.Request, err error) {
	var rle *github.RateLimitError
	var ue *github.UpstreamError
	var pe *analysis.ProviderError

	switch {
	case errors.Is(err, github.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, errTypeValidation, err.Error())

	case errors.Is(err, github.ErrNotFound):
		writeError(w, http.StatusNotFound, errTypeNotFound, "issue not found")

	case errors.As(err, &rle):
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(rle), 10))
		body := errorBody{
			Error:     "github rate limit exceeded",
			ErrorType: errTypeRateLimit,
		}
		if !rle.ResetAt.IsZero() {
			body.RateLimitReset = rle.ResetAt.Unix()
		}
		writeJSON(w, http.StatusTooManyRequests, body)

	case errors.Is(err, analysis.ErrProviderBusy):
		writeError(w, http.StatusTooManyRequests, errTypeRateLimit, "llm provider rate limited")

	case errors.As(err, &ue):
		a.logger.Error(r.Context(), err, "github request failed")
		msg := "github request failed"
		if ue.StatusCode != 0 {
			msg = fmt.Sprintf("github request failed with status %d", ue.StatusCode)
		}
		writeError(w, http.StatusBadGateway, errTypeUpstream, msg)

	case errors.As(err, &pe):
		a.logger.Error(r.Context(), err, "llm provider request failed", "provider", pe.Provider)
		writeError(w, http.StatusBadGateway, errTypeUpstream, "llm provider request failed")

	case errors.Is(err, analysis.ErrBadReply):
		a.logger.Error(r.Context(), err, "llm reply was not parseable")
		writeError(w, http.StatusBadGateway, errTypeUpstream, "llm reply was not parseable")

	default:
		a.logger.Error(r.Context(), err, "analyze request failed")
		writeError(w, http.StatusInternalServerError, errTypeInternal, "internal error")
	}
}

// retryAfterSeconds rounds the remaining wait up so clients never retry
// before the reset.
func retryAfterSeconds(rle *github.RateLimitError) int64 {
	d := rle.RetryAfter(time.Now())
	return int64((d + time.Second - 1) / time.Second)
}
