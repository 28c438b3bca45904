package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Aditi7Singh/github-issue-assistant/internal/analysis"
)

func sampleResult(id string, number int) *analysis.Result {
	return &analysis.Result{
		ID:          id,
		Owner:       "facebook",
		Repo:        "react",
		IssueNumber: number,
		IssueTitle:  "App crashes on nested fragments",
		IssueState:  "open",
		IssueAnalysis: analysis.IssueAnalysis{
			Summary:         "Crash when rendering nested fragments.",
			Type:            analysis.TypeBug,
			PriorityScore:   4,
			SuggestedLabels: []string{"bug"},
		},
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		CreatedAt: time.Now().UTC(),
	}
}

func TestPutAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	want := sampleResult("01J0000000000000000000AAAA", 1)

	if err := s.Put(context.Background(), want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(context.Background(), want.ID)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.ID != want.ID || got.Summary != want.Summary || got.Type != want.Type {
		t.Errorf("Get = %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	s := New()
	if _, ok, err := s.Get(context.Background(), "nope"); ok || err != nil {
		t.Errorf("Get missing = ok=%v err=%v, want ok=false err=nil", ok, err)
	}
	if _, ok, err := s.GetByIssue(context.Background(), "facebook", "react", 1); ok || err != nil {
		t.Errorf("GetByIssue missing = ok=%v err=%v, want ok=false err=nil", ok, err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	orig := sampleResult("01J0000000000000000000AAAB", 1)
	if err := s.Put(context.Background(), orig); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, _, _ := s.Get(context.Background(), orig.ID)
	got.Summary = "mutated"

	again, _, _ := s.Get(context.Background(), orig.ID)
	if again.Summary != orig.Summary {
		t.Errorf("stored result was mutated through a returned pointer")
	}
}

func TestPutOverwrites(t *testing.T) {
	t.Parallel()

	s := New()
	r := sampleResult("01J0000000000000000000AAAC", 1)
	if err := s.Put(context.Background(), r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	updated := *r
	updated.Summary = "second pass"
	if err := s.Put(context.Background(), &updated); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, _, _ := s.Get(context.Background(), r.ID)
	if got.Summary != "second pass" {
		t.Errorf("summary = %q, want overwrite", got.Summary)
	}

	recent, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("ListRecent = %d results, want 1 after overwrite", len(recent))
	}
}

func TestGetByIssueReturnsNewest(t *testing.T) {
	t.Parallel()

	s := New()
	for i := 1; i <= 3; i++ {
		r := sampleResult(fmt.Sprintf("01J000000000000000000000%02d", i), 7)
		r.Summary = fmt.Sprintf("pass %d", i)
		if err := s.Put(context.Background(), r); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, ok, err := s.GetByIssue(context.Background(), "facebook", "react", 7)
	if err != nil || !ok {
		t.Fatalf("GetByIssue: ok=%v err=%v", ok, err)
	}
	if got.Summary != "pass 3" {
		t.Errorf("summary = %q, want the newest result", got.Summary)
	}
}

func TestListRecent(t *testing.T) {
	t.Parallel()

	s := New()
	for i := 1; i <= 5; i++ {
		if err := s.Put(context.Background(), sampleResult(fmt.Sprintf("01J0000000000000000000%04d", i), i)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	recent, err := s.ListRecent(context.Background(), 3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("ListRecent = %d results, want 3", len(recent))
	}
	if recent[0].IssueNumber != 5 || recent[2].IssueNumber != 3 {
		t.Errorf("ordering = %d..%d, want newest first", recent[0].IssueNumber, recent[2].IssueNumber)
	}

	all, err := s.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("ListRecent(0) = %d results, want all", len(all))
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := sampleResult(fmt.Sprintf("01J0000000000000000000C%03d", i), i)
			if err := s.Put(context.Background(), r); err != nil {
				t.Errorf("Put: %v", err)
			}
			if _, _, err := s.Get(context.Background(), r.ID); err != nil {
				t.Errorf("Get: %v", err)
			}
			if _, err := s.ListRecent(context.Background(), 10); err != nil {
				t.Errorf("ListRecent: %v", err)
			}
		}()
	}
	wg.Wait()
}
