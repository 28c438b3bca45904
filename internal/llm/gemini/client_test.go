package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Aditi7Singh/github-issue-assistant/internal/analysis"
)

const verdict = `{"summary":"Crash on nested fragments.","type":"bug","priority_score":4}`

func generateHandler(t *testing.T, gotReq *generateRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "AIza-test" {
			t.Errorf("x-goog-api-key = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"candidates": [{
				"content": {"parts": [{"text": %q}], "role": "model"},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 512, "candidatesTokenCount": 77},
			"modelVersion": "gemini-2.0-flash-001"
		}`, verdict)
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()

	var gotReq generateRequest
	srv := httptest.NewServer(generateHandler(t, &gotReq))
	defer srv.Close()

	c := New("AIza-test", "gemini-2.0-flash", srv.URL)
	resp, err := c.Complete(context.Background(), &analysis.CompletionRequest{
		System:      "you are a triager",
		Prompt:      "analyze this issue",
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if gotReq.SystemInstruction == nil ||
		len(gotReq.SystemInstruction.Parts) != 1 ||
		gotReq.SystemInstruction.Parts[0].Text != "you are a triager" {
		t.Errorf("system_instruction = %+v", gotReq.SystemInstruction)
	}
	if len(gotReq.Contents) != 1 || gotReq.Contents[0].Role != "user" {
		t.Fatalf("contents = %+v", gotReq.Contents)
	}
	if gotReq.Contents[0].Parts[0].Text != "analyze this issue" {
		t.Errorf("prompt = %q", gotReq.Contents[0].Parts[0].Text)
	}
	if gotReq.GenerationConfig.Temperature != 0.2 {
		t.Errorf("temperature = %f", gotReq.GenerationConfig.Temperature)
	}
	if gotReq.GenerationConfig.MaxOutputTokens != 1024 {
		t.Errorf("maxOutputTokens = %d", gotReq.GenerationConfig.MaxOutputTokens)
	}
	if gotReq.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("responseMimeType = %q", gotReq.GenerationConfig.ResponseMIMEType)
	}

	if resp.Text != verdict {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.Model != "gemini-2.0-flash-001" {
		t.Errorf("model = %q", resp.Model)
	}
	if resp.Usage.InputTokens != 512 || resp.Usage.OutputTokens != 77 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestComplete_JoinsTextParts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"candidates": [{"content": {"parts": [{"text": "{\"summary\""}, {"text": ": \"split\"}"}]}}],
			"usageMetadata": {"promptTokenCount": 1, "candidatesTokenCount": 1}
		}`)
	}))
	defer srv.Close()

	c := New("AIza-test", "gemini-2.0-flash", srv.URL)
	resp, err := c.Complete(context.Background(), &analysis.CompletionRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != `{"summary": "split"}` {
		t.Errorf("text = %q, want the joined parts", resp.Text)
	}
	if resp.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q, want the configured fallback", resp.Model)
	}
}

func TestComplete_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"status": "RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("AIza-test", "gemini-2.0-flash", srv.URL)
	_, err := c.Complete(context.Background(), &analysis.CompletionRequest{Prompt: "p"})
	if !errors.Is(err, analysis.ErrProviderBusy) {
		t.Errorf("error = %v, want ErrProviderBusy", err)
	}
}

func TestComplete_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "internal"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New("AIza-test", "gemini-2.0-flash", srv.URL)
	_, err := c.Complete(context.Background(), &analysis.CompletionRequest{Prompt: "p"})

	var perr *analysis.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *analysis.ProviderError", err)
	}
	if perr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", perr.StatusCode)
	}
}

func TestComplete_BadResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{"candidates": []}`},
		{"no text parts", `{"candidates": [{"content": {"parts": []}}]}`},
		{"not json", `upstream proxy error`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := New("AIza-test", "gemini-2.0-flash", srv.URL)
			if _, err := c.Complete(context.Background(), &analysis.CompletionRequest{Prompt: "p"}); err == nil {
				t.Error("Complete returned nil error")
			}
		})
	}
}

func TestProviderIdentity(t *testing.T) {
	t.Parallel()

	c := New("AIza-test", "gemini-2.0-flash", "")
	if c.Name() != "gemini" {
		t.Errorf("Name = %q", c.Name())
	}
	if c.Model() != "gemini-2.0-flash" {
		t.Errorf("Model = %q", c.Model())
	}
}
