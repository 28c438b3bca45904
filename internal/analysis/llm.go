package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider is one configured LLM backend. Implementations live under
// internal/llm and exactly one is selected at startup.
type Provider interface {
	// Complete runs a single-shot prompt. No conversation state is kept
	// between calls.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name identifies the backend, e.g. "openai".
	Name() string

	// Model is the configured model identifier.
	Model() string
}

// CompletionRequest is one prompt sent to a provider.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse carries the raw model reply and its token accounting.
// Model is the identifier the provider reported, which may be more specific
// than the one requested.
type CompletionResponse struct {
	Text  string
	Model string
	Usage Usage
}

// Usage is the token accounting for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ErrProviderBusy marks a provider-side rate limit. A *ProviderError with
// status 429 matches it via errors.Is.
var ErrProviderBusy = errors.New("llm provider rate limited")

// ErrBadReply marks a model reply that does not contain the required JSON.
var ErrBadReply = errors.New("malformed analysis reply")

// ProviderError is a failed call to an LLM provider API: a non-2xx reply
// (StatusCode and Body set) or a transport or decode failure (Err set).
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s api error: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s api error: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderBusy && e.StatusCode == http.StatusTooManyRequests
}
