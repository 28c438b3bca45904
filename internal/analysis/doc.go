// Package analysis provides the business boundary for GitHub issue triage.
// It defines the Service (fetch, analyze, persist, notify), the Analyzer
// (single-shot LLM completion and reply parsing), the Store and Provider
// interfaces, and the domain models.
package analysis
