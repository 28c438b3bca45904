// Package pgstore is the PostgreSQL analysis.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aditi7Singh/github-issue-assistant/internal/analysis"
)

var tracer = otel.Tracer("github.com/Aditi7Singh/github-issue-assistant/internal/analysis/pgstore")

//go:embed schema.sql
var schemaSQL string

// defaultListLimit bounds ListRecent when the caller passes no usable limit.
const defaultListLimit = 50

const resultColumns = `id, owner, repo, issue_number, issue_title, issue_state,
	analysis, provider, model, input_tokens, output_tokens, duration_seconds, created_at`

// Store persists analysis results in PostgreSQL. The verdict itself is kept
// as a JSONB document; the columns around it exist for lookups and indexes.
type Store struct {
	pool *pgxpool.Pool
}

var _ analysis.Store = (*Store)(nil)

// New applies the schema and returns a Store backed by pool. The caller owns
// the pool and closes it on shutdown.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Put(ctx context.Context, r *analysis.Result) error {
	ctx, span := startSpan(ctx, "pgstore.put")
	defer span.End()

	verdict, err := json.Marshal(r.IssueAnalysis)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO issue_analyses (
			id, owner, repo, issue_number, issue_title, issue_state,
			analysis, provider, model, input_tokens, output_tokens,
			duration_seconds, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			issue_title      = EXCLUDED.issue_title,
			issue_state      = EXCLUDED.issue_state,
			analysis         = EXCLUDED.analysis,
			provider         = EXCLUDED.provider,
			model            = EXCLUDED.model,
			input_tokens     = EXCLUDED.input_tokens,
			output_tokens    = EXCLUDED.output_tokens,
			duration_seconds = EXCLUDED.duration_seconds`,
		r.ID, r.Owner, r.Repo, r.IssueNumber, r.IssueTitle, r.IssueState,
		verdict, r.Provider, r.Model, r.InputTokens, r.OutputTokens,
		r.Duration, r.CreatedAt)
	if err != nil {
		return spanErr(span, fmt.Errorf("upsert analysis: %w", err))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*analysis.Result, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.get")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM issue_analyses WHERE id = $1`, id)
	r, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, spanErr(span, fmt.Errorf("select analysis: %w", err))
	}
	return r, true, nil
}

func (s *Store) GetByIssue(ctx context.Context, owner, repo string, number int) (*analysis.Result, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.get_by_issue")
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM issue_analyses
		 WHERE owner = $1 AND repo = $2 AND issue_number = $3
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, owner, repo, number)
	r, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, spanErr(span, fmt.Errorf("select analysis by issue: %w", err))
	}
	return r, true, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]*analysis.Result, error) {
	ctx, span := startSpan(ctx, "pgstore.list_recent")
	defer span.End()

	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM issue_analyses
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("list analyses: %w", err))
	}
	defer rows.Close()

	var out []*analysis.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, spanErr(span, fmt.Errorf("scan analysis: %w", err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, spanErr(span, fmt.Errorf("list analyses: %w", err))
	}
	return out, nil
}

func scanResult(row pgx.Row) (*analysis.Result, error) {
	var r analysis.Result
	var verdict []byte
	if err := row.Scan(
		&r.ID, &r.Owner, &r.Repo, &r.IssueNumber, &r.IssueTitle, &r.IssueState,
		&verdict, &r.Provider, &r.Model, &r.InputTokens, &r.OutputTokens,
		&r.Duration, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(verdict, &r.IssueAnalysis); err != nil {
		return nil, fmt.Errorf("decode verdict json: %w", err)
	}
	return &r, nil
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
	))
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
