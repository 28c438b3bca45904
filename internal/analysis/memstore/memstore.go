// Package memstore is an in-memory analysis.Store used when no database is
// configured, and in tests.
package memstore

import (
	"context"
	"sync"

	"github.com/Aditi7Singh/github-issue-assistant/internal/analysis"
)

// Store keeps results in process memory. It is safe for concurrent use and
// loses everything on restart.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*analysis.Result
	order []string // insertion order, oldest first
}

var _ analysis.Store = (*Store)(nil)

func New() *Store {
	return &Store{byID: make(map[string]*analysis.Result)}
}

func (s *Store) Put(_ context.Context, r *analysis.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	cp := *r
	s.byID[r.ID] = &cp
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*analysis.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

func (s *Store) GetByIssue(_ context.Context, owner, repo string, number int) (*analysis.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.byID[s.order[i]]
		if r.Owner == owner && r.Repo == repo && r.IssueNumber == number {
			cp := *r
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]*analysis.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]*analysis.Result, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.byID[s.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}
