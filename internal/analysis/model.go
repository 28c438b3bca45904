package analysis

import (
	"strings"
	"time"
)

// IssueType classifies an issue for triage routing.
type IssueType string

const (
	TypeBug            IssueType = "bug"
	TypeFeatureRequest IssueType = "feature_request"
	TypeDocumentation  IssueType = "documentation"
	TypeQuestion       IssueType = "question"
	TypeOther          IssueType = "other"
)

// NormalizeType maps a model-emitted type string onto the known set.
// Anything it does not recognize becomes TypeOther.
func NormalizeType(s string) IssueType {
	t := IssueType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TypeBug, TypeFeatureRequest, TypeDocumentation, TypeQuestion, TypeOther:
		return t
	}
	return TypeOther
}

// IssueAnalysis is the structured triage verdict produced by the model.
type IssueAnalysis struct {
	Summary           string    `json:"summary"`
	Type              IssueType `json:"type"`
	PriorityScore     int       `json:"priority_score"`
	PriorityRationale string    `json:"priority_rationale"`
	SuggestedLabels   []string  `json:"suggested_labels"`
	PotentialImpact   string    `json:"potential_impact"`
}

// Result is one completed analysis as persisted and served by the API.
type Result struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	IssueNumber int    `json:"issue_number"`
	IssueTitle  string `json:"issue_title"`
	IssueState  string `json:"issue_state"`

	IssueAnalysis

	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens,omitempty"`
	OutputTokens int       `json:"output_tokens,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Duration     float64   `json:"duration_seconds,omitempty"`
}
