package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"

	"github.com/Aditi7Singh/github-issue-assistant/internal/github"
)

// Notifier posts completed analyses somewhere humans look.
type Notifier interface {
	Send(ctx context.Context, r *Result) error
}

// IssueFetcher is the slice of the GitHub client the service depends on.
type IssueFetcher interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, error)
}

// Service fetches issues, runs the analyzer, persists results and fans out
// notifications. It is the only layer the HTTP API talks to.
type Service struct {
	gh       IssueFetcher
	analyzer *Analyzer
	store    Store
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier
}

// NewService wires the triage pipeline. metrics and notifier may be nil.
func NewService(gh IssueFetcher, analyzer *Analyzer, store Store, logger log.Logger, metrics *Metrics, notifier Notifier) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		gh:       gh,
		analyzer: analyzer,
		store:    store,
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
	}
}

// AnalyzeIssue runs the full pipeline for one issue: fetch, analyze,
// persist, notify. Fetch and provider errors are returned to the caller
// with their types intact so the API can map them to statuses.
func (s *Service) AnalyzeIssue(ctx context.Context, owner, repo string, number int) (*Result, error) {
	start := time.Now()

	issue, err := s.gh.GetIssue(ctx, owner, repo, number)
	if err != nil {
		s.metrics.observeOutcome("fetch_error")
		return nil, fmt.Errorf("fetch issue: %w", err)
	}

	rr, err := s.analyzer.Analyze(ctx, issue)
	if err != nil {
		s.metrics.observeOutcome("llm_error")
		return nil, fmt.Errorf("analyze issue: %w", err)
	}

	result := &Result{
		ID:            ulid.Make().String(),
		Owner:         owner,
		Repo:          repo,
		IssueNumber:   number,
		IssueTitle:    issue.Title,
		IssueState:    issue.State,
		IssueAnalysis: *rr.Analysis,
		Provider:      rr.Provider,
		Model:         rr.Model,
		InputTokens:   rr.Usage.InputTokens,
		OutputTokens:  rr.Usage.OutputTokens,
		CreatedAt:     time.Now().UTC(),
		Duration:      time.Since(start).Seconds(),
	}

	if err := s.store.Put(ctx, result); err != nil {
		s.metrics.observeOutcome("store_error")
		return nil, fmt.Errorf("persist analysis: %w", err)
	}

	s.metrics.observeSuccess(rr, result.Duration)

	if s.notifier != nil {
		// The HTTP response does not wait on Slack. WithoutCancel keeps the
		// send alive after the request context is done.
		go s.notify(context.WithoutCancel(ctx), result)
	}

	s.logger.Info(ctx, "issue analyzed",
		"id", result.ID,
		"owner", owner,
		"repo", repo,
		"issue_number", number,
		"type", result.Type,
		"priority_score", result.PriorityScore,
		"model", result.Model,
		"duration_seconds", result.Duration,
	)

	return result, nil
}

func (s *Service) notify(ctx context.Context, r *Result) {
	if err := s.notifier.Send(ctx, r); err != nil {
		s.logger.Error(ctx, err, "notify failed", "id", r.ID)
	}
}

// Get returns a stored result by ID.
func (s *Service) Get(ctx context.Context, id string) (*Result, bool, error) {
	return s.store.Get(ctx, id)
}

// GetByIssue returns the most recent stored result for an issue.
func (s *Service) GetByIssue(ctx context.Context, owner, repo string, number int) (*Result, bool, error) {
	return s.store.GetByIssue(ctx, owner, repo, number)
}

// ListRecent returns up to limit stored results, newest first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*Result, error) {
	return s.store.ListRecent(ctx, limit)
}
