package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/Aditi7Singh/github-issue-assistant/internal/analysis"
)

func sampleResult() *analysis.Result {
	return &analysis.Result{
		ID:          "01JN123",
		Owner:       "facebook",
		Repo:        "react",
		IssueNumber: 123,
		IssueTitle:  "App crashes on nested fragments",
		IssueState:  "open",
		IssueAnalysis: analysis.IssueAnalysis{
			Summary:         "Crash when rendering nested fragments.",
			Type:            analysis.TypeBug,
			PriorityScore:   4,
			SuggestedLabels: []string{"bug", "rendering"},
			PotentialImpact: "Runtime crash for apps using fragments.",
		},
		Provider:     "openai",
		Model:        "gpt-4o-mini-20240718",
		InputTokens:  800,
		OutputTokens: 450,
		Duration:     3.4,
		CreatedAt:    time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC),
	}
}

func TestSend_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	if err := n.Send(context.Background(), sampleResult()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, summary, impact, divider, context = 8 blocks
	if len(blocks) != 8 {
		t.Errorf("blocks count = %d, want 8", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "facebook/react#123") {
		t.Errorf("header text = %q, want to contain facebook/react#123", headerText)
	}
	if !strings.Contains(headerText, "\U0001f41b") {
		t.Errorf("header should contain the bug emoji for a bug verdict")
	}
}

func TestSend_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("", log.Nop())
	if err := n.Send(context.Background(), &analysis.Result{}); err != nil {
		t.Fatalf("Send with empty URL should be no-op, got: %v", err)
	}
}

func TestSend_SkipsImpactBlockWhenEmpty(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := sampleResult()
	result.PotentialImpact = ""

	n := New(srv.URL, log.Nop())
	if err := n.Send(context.Background(), result); err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks := got["blocks"].([]any)
	if len(blocks) != 7 {
		t.Errorf("blocks count = %d, want 7 without an impact section", len(blocks))
	}
}

func TestSend_TruncatesLongSummary(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := sampleResult()
	result.Summary = strings.Repeat("x", 4000)

	n := New(srv.URL, log.Nop())
	if err := n.Send(context.Background(), result); err != nil {
		t.Fatalf("Send: %v", err)
	}

	blocks := got["blocks"].([]any)
	summarySection := blocks[4].(map[string]any)
	text := summarySection["text"].(map[string]any)["text"].(string)

	// Text includes the "*Summary*\n\n" prefix, so the summary portion is what follows.
	if len(text) > maxTextLen+len("*Summary*\n\n") {
		t.Errorf("summary text length = %d, expected <= %d", len(text), maxTextLen+len("*Summary*\n\n"))
	}
	if !strings.HasSuffix(text, "...") {
		t.Error("expected truncated summary to end with ...")
	}
}

func TestTypeEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  analysis.IssueType
		want string
	}{
		{"bug", analysis.TypeBug, "\U0001f41b"},
		{"feature request", analysis.TypeFeatureRequest, "✨"},
		{"documentation", analysis.TypeDocumentation, "\U0001f4da"},
		{"question", analysis.TypeQuestion, "❓"},
		{"other", analysis.TypeOther, "\U0001f4cc"},
		{"empty", analysis.IssueType(""), "\U0001f4cc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := typeEmoji(tt.typ)
			if got != tt.want {
				t.Errorf("typeEmoji(%q) = %q, want %q", tt.typ, got, tt.want)
			}
		})
	}
}

func TestShortModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"gpt-4o-mini-20240718", "gpt-4o-mini"},
		{"claude-sonnet-4-20250514", "claude-sonnet-4"},
		{"gpt-4o", "gpt-4o"},
		{"gemini-2.0-flash", "gemini-2.0-flash"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := shortModel(tt.input); got != tt.want {
				t.Errorf("shortModel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("facebook", "react", "Crash in renderer.", "Apps crash at runtime.", "gpt-4o-mini-20240718")
	f.Add("", "", "", "", "")
	f.Add("<@U123>", "repo|pipe", "*bold* _italic_ ~strike~", "impact", "model")
	f.Add("own\x00er", "re\npo", "summary\ttab", "imp\x00act", "m\x00del")
	f.Add(strings.Repeat("A", 5000), "r", strings.Repeat("x", 10000), strings.Repeat("y", 10000), "model-name-20260101")
	f.Add("golang", "go", "```code block``` and <http://example.com|link>", "", "gpt-4o")

	f.Fuzz(func(t *testing.T, owner, repo, summary, impact, model string) {
		result := &analysis.Result{
			ID:          "fuzz-id",
			Owner:       owner,
			Repo:        repo,
			IssueNumber: 7,
			IssueAnalysis: analysis.IssueAnalysis{
				Summary:         summary,
				Type:            analysis.TypeBug,
				PriorityScore:   3,
				SuggestedLabels: []string{"bug"},
				PotentialImpact: impact,
			},
			Provider:     "openai",
			Model:        model,
			InputTokens:  100,
			OutputTokens: 50,
			Duration:     1.0,
			CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		// Must not panic
		msg := buildMessage(result)

		// Must produce valid JSON
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}

		// Must round-trip
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}

		blocks, ok := decoded["blocks"].([]any)
		if !ok {
			t.Fatal("expected blocks array")
		}
		want := 7
		if impact != "" {
			want = 8
		}
		if len(blocks) != want {
			t.Fatalf("blocks count = %d, want %d", len(blocks), want)
		}
	})
}

func TestSend_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	err := n.Send(context.Background(), sampleResult())
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}
