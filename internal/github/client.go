package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/go-core/log"
)

var tracer = otel.Tracer("github.com/Aditi7Singh/github-issue-assistant/internal/github")

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"

	// upstreamBodyLimit caps how much of an error body we carry around.
	upstreamBodyLimit = 512
)

// Config holds the settings for the GitHub client.
type Config struct {
	// BaseURL overrides the public API endpoint (GHES, tests).
	BaseURL string
	// Token optionally authenticates requests to raise the rate limit
	// ceiling. Behavior is otherwise identical.
	Token string
	// CacheTTL is how long a fetched issue stays fresh. Zero disables
	// caching so every call hits the network.
	CacheTTL time.Duration
}

// Client fetches issues from the GitHub REST API. Each client owns one
// issue cache; construct one per process and share it.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      *issueCache
	logger     log.Logger
	metrics    *Metrics
}

// New creates a GitHub client. Metrics may be nil.
func New(cfg Config, logger log.Logger, metrics *Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:   newIssueCache(cfg.CacheTTL),
		logger:  logger,
		metrics: metrics,
	}
}

// GetIssue returns the issue and its comment thread. A fresh cache entry is
// served with no network call; otherwise the issue and comments are fetched,
// cached, and returned. Errors never populate the cache, so a failed lookup
// is retried from scratch on the next call.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("%w: owner and repo are required", ErrInvalidInput)
	}
	if number <= 0 {
		return nil, fmt.Errorf("%w: issue number must be positive, got %d", ErrInvalidInput, number)
	}

	ctx, span := tracer.Start(ctx, "github.get_issue", trace.WithAttributes(
		attribute.String("github.owner", owner),
		attribute.String("github.repo", repo),
		attribute.Int("github.issue_number", number),
	))
	defer span.End()

	key := cacheKey{owner: owner, repo: repo, number: number}
	if issue, ok := c.cache.get(key); ok {
		span.SetAttributes(attribute.Bool("github.cache_hit", true))
		c.metrics.observeLookup("hit")
		return issue, nil
	}
	span.SetAttributes(attribute.Bool("github.cache_hit", false))

	start := time.Now()
	issue, err := c.fetch(ctx, owner, repo, number)
	c.metrics.observeFetch(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.observeLookup(lookupOutcome(err))
		return nil, err
	}

	c.cache.set(key, issue)
	c.metrics.observeLookup("miss")
	c.metrics.setCacheEntries(c.cache.size())

	c.logger.Info(ctx, "fetched issue",
		"owner", owner,
		"repo", repo,
		"number", number,
		"state", issue.State,
		"comments", len(issue.Comments),
	)

	return issue, nil
}

// fetch retrieves the issue and its comments in parallel. A 404 on the
// comments endpoint (issues disabled, no comments yet) degrades to an empty
// thread; any other comment failure fails the whole fetch.
func (c *Client) fetch(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	var (
		doc      issueDoc
		comments []commentDoc
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number), &doc)
	})
	g.Go(func() error {
		err := c.getJSON(gctx, fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number), &comments)
		if errors.Is(err, ErrNotFound) {
			comments = nil
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issue := &Issue{
		Number:    doc.Number,
		Title:     doc.Title,
		Body:      doc.Body,
		State:     doc.State,
		Labels:    make([]string, 0, len(doc.Labels)),
		Author:    doc.User.Login,
		HTMLURL:   doc.HTMLURL,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		Comments:  make([]Comment, 0, len(comments)),
	}
	for _, l := range doc.Labels {
		issue.Labels = append(issue.Labels, l.Name)
	}
	for _, cm := range comments {
		issue.Comments = append(issue.Comments, Comment{
			Author:    cm.User.Login,
			Body:      cm.Body,
			CreatedAt: cm.CreatedAt,
		})
	}

	return issue, nil
}

// getJSON performs one GET against the API and decodes the body into out,
// mapping failure statuses onto the package error taxonomy.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Err: fmt.Errorf("github request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case isRateLimited(resp):
		return &RateLimitError{ResetAt: rateLimitReset(resp, time.Now())}
	case resp.StatusCode != http.StatusOK:
		return &UpstreamError{StatusCode: resp.StatusCode, Body: truncate(string(body), upstreamBodyLimit)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// isRateLimited recognizes both primary rate limiting (403 with an exhausted
// quota header) and secondary limits (429).
func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// rateLimitReset extracts the quota reset time from Retry-After (relative
// seconds) or X-RateLimit-Reset (unix epoch). Zero when neither parses.
func rateLimitReset(resp *http.Response, now time.Time) time.Time {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return now.Add(time.Duration(secs) * time.Second)
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil && epoch > 0 {
			return time.Unix(epoch, 0)
		}
	}
	return time.Time{}
}

func lookupOutcome(err error) string {
	var rle *RateLimitError
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &rle):
		return "rate_limited"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// issueDoc and commentDoc mirror the wire shape of the REST API; only the
// fields the triage prompt needs are decoded.
type issueDoc struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type commentDoc struct {
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
