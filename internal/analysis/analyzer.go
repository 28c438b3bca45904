package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/Aditi7Singh/github-issue-assistant/internal/github"
)

var tracer = otel.Tracer("github.com/Aditi7Singh/github-issue-assistant/internal/analysis")

const (
	// ResponseTokens caps the completion size. The verdict JSON is small;
	// anything past this is the model rambling.
	ResponseTokens = 1024

	temperature = 0.2

	maxBodyRunes    = 8000
	maxComments     = 10
	maxCommentRunes = 1000
	maxLabels       = 3

	minPriority = 1
	maxPriority = 5
)

const systemPrompt = `You are a software triage assistant. You classify GitHub issues and reply with a single JSON object, nothing else: no markdown fences, no commentary.`

// Analyzer turns a fetched issue into a structured triage verdict with a
// single LLM completion.
type Analyzer struct {
	provider Provider
	logger   log.Logger
}

// NewAnalyzer wires an Analyzer. A nil logger is replaced with a no-op.
func NewAnalyzer(provider Provider, logger log.Logger) *Analyzer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Analyzer{provider: provider, logger: logger}
}

// RunResult carries one completed analysis run before persistence.
type RunResult struct {
	Analysis *IssueAnalysis
	Provider string
	Model    string
	Usage    Usage
	Duration float64
}

// Analyze prompts the configured provider with the issue and parses the
// reply. Provider failures and unparseable replies are returned as errors;
// nothing is retried.
func (a *Analyzer) Analyze(ctx context.Context, issue *github.Issue) (*RunResult, error) {
	ctx, span := tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("gen_ai.provider.name", a.provider.Name()),
		attribute.String("gen_ai.request.model", a.provider.Model()),
	))
	defer span.End()

	start := time.Now()
	resp, err := a.provider.Complete(ctx, &CompletionRequest{
		System:      systemPrompt,
		Prompt:      buildPrompt(issue),
		MaxTokens:   ResponseTokens,
		Temperature: temperature,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("llm completion: %w", err)
	}
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.Int("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	)

	verdict, err := parseAnalysis([]byte(resp.Text))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrBadReply, err)
	}

	a.logger.Info(ctx, "llm completion done",
		"provider", a.provider.Name(),
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration_seconds", elapsed.Seconds(),
	)

	return &RunResult{
		Analysis: verdict,
		Provider: a.provider.Name(),
		Model:    resp.Model,
		Usage:    resp.Usage,
		Duration: elapsed.Seconds(),
	}, nil
}

// ProviderName reports the backend the analyzer was wired with.
func (a *Analyzer) ProviderName() string { return a.provider.Name() }

func buildPrompt(issue *github.Issue) string {
	var b strings.Builder

	b.WriteString("Analyze the GitHub issue below and reply with a JSON object with exactly these fields:\n\n")
	b.WriteString(`{
  "summary": "one or two sentences describing the issue",
  "type": "bug" | "feature_request" | "documentation" | "question" | "other",
  "priority_score": integer from 1 (trivial) to 5 (critical),
  "priority_rationale": "brief justification for the score",
  "suggested_labels": ["two to three short label names"],
  "potential_impact": "who is affected and how badly"
}`)
	b.WriteString("\n\n---\n\n")

	fmt.Fprintf(&b, "Issue #%d: %s\n", issue.Number, issue.Title)
	fmt.Fprintf(&b, "State: %s\n", issue.State)
	if issue.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", issue.Author)
	}
	if !issue.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Opened: %s\n", issue.CreatedAt.Format("2006-01-02"))
	}
	if len(issue.Labels) > 0 {
		fmt.Fprintf(&b, "Existing labels: %s\n", strings.Join(issue.Labels, ", "))
	}

	body := issue.Body
	if body == "" {
		body = "(no description)"
	}
	fmt.Fprintf(&b, "\nDescription:\n%s\n", truncateRunes(body, maxBodyRunes))

	if len(issue.Comments) > 0 {
		comments := issue.Comments
		if len(comments) > maxComments {
			comments = comments[:maxComments]
		}
		fmt.Fprintf(&b, "\nComments (%d of %d):\n", len(comments), len(issue.Comments))
		for _, c := range comments {
			fmt.Fprintf(&b, "- %s: %s\n", c.Author, truncateRunes(c.Body, maxCommentRunes))
		}
	}

	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "\n[truncated]"
}

func parseAnalysis(raw []byte) (*IssueAnalysis, error) {
	cleaned := cleanJSON(raw)
	if len(cleaned) == 0 {
		return nil, errors.New("empty reply")
	}

	var doc struct {
		Summary           string          `json:"summary"`
		Type              string          `json:"type"`
		PriorityScore     json.RawMessage `json:"priority_score"`
		PriorityRationale string          `json:"priority_rationale"`
		SuggestedLabels   []string        `json:"suggested_labels"`
		PotentialImpact   string          `json:"potential_impact"`
	}
	if err := json.Unmarshal(cleaned, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal verdict: %w", err)
	}
	if doc.Summary == "" {
		return nil, errors.New("verdict has no summary")
	}

	labels := doc.SuggestedLabels
	if len(labels) > maxLabels {
		labels = labels[:maxLabels]
	}

	return &IssueAnalysis{
		Summary:           doc.Summary,
		Type:              NormalizeType(doc.Type),
		PriorityScore:     parsePriority(doc.PriorityScore),
		PriorityRationale: doc.PriorityRationale,
		SuggestedLabels:   labels,
		PotentialImpact:   doc.PotentialImpact,
	}, nil
}

// parsePriority accepts the integer the prompt asks for plus the string and
// float variants models actually emit, clamped to the 1..5 scale.
func parsePriority(raw json.RawMessage) int {
	if len(raw) == 0 {
		return minPriority
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return clampPriority(int(math.Round(f)))
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		digits := strings.TrimSpace(s)
		for i, r := range digits {
			if r < '0' || r > '9' {
				digits = digits[:i]
				break
			}
		}
		if n, err := json.Number(digits).Int64(); err == nil && digits != "" {
			return clampPriority(int(n))
		}
	}

	return minPriority
}

func clampPriority(n int) int {
	if n < minPriority {
		return minPriority
	}
	if n > maxPriority {
		return maxPriority
	}
	return n
}

// cleanJSON strips the markdown code fences some models wrap JSON in even
// when told not to.
func cleanJSON(data []byte) []byte {
	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte("```")) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		}
		data = bytes.TrimSuffix(bytes.TrimSpace(data), []byte("```"))
		data = bytes.TrimSpace(data)
	}
	return data
}
