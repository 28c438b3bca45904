package analysis

import "context"

// Store is the persistence boundary for analysis results. Implementations
// live under internal/analysis (memstore, pgstore).
type Store interface {
	// Put saves a result, overwriting any previous result with the same ID.
	Put(ctx context.Context, r *Result) error

	// Get returns the result with the given ID. The bool reports whether it
	// was found; an error means the lookup itself failed.
	Get(ctx context.Context, id string) (*Result, bool, error)

	// GetByIssue returns the most recent result for an issue, if any.
	GetByIssue(ctx context.Context, owner, repo string, number int) (*Result, bool, error)

	// ListRecent returns up to limit results, newest first. A non-positive
	// limit falls back to a store-chosen default.
	ListRecent(ctx context.Context, limit int) ([]*Result, error)
}
