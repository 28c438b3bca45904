package github

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the requested issue or repository does not exist
// (or is private and the token cannot see it).
var ErrNotFound = errors.New("github: not found")

// ErrInvalidInput indicates arguments that can never identify an issue,
// such as an empty owner or a non-positive issue number.
var ErrInvalidInput = errors.New("github: invalid input")

// RateLimitError indicates the GitHub API quota is exhausted.
type RateLimitError struct {
	// ResetAt is when the quota resets. Zero when the API did not say.
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "github: rate limited"
	}
	return fmt.Sprintf("github: rate limited until %s", e.ResetAt.UTC().Format(time.RFC3339))
}

// RetryAfter returns how long to wait from now until the quota resets.
// Returns 0 when the reset time is unknown or already past.
func (e *RateLimitError) RetryAfter(now time.Time) time.Duration {
	if e.ResetAt.IsZero() || !e.ResetAt.After(now) {
		return 0
	}
	return e.ResetAt.Sub(now)
}

// UpstreamError indicates a GitHub response or transport failure outside the
// not-found and rate-limit cases: non-2xx statuses, network errors, and
// undecodable bodies.
type UpstreamError struct {
	// StatusCode is the upstream HTTP status, or 0 for transport and
	// decode failures.
	StatusCode int
	// Body holds a snippet of the upstream response body, if any.
	Body string
	// Err is the underlying transport or decode error, if any.
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("github: upstream failure: %v", e.Err)
	}
	return fmt.Sprintf("github: upstream status %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
