package analyst

import (
	"context"
	"strings"
)

// NoOp is an analyst that returns canned results without calling any
// provider. This is useful for development and tests when model access
// is not available.
type NoOp struct{}

// NewNoOp creates a new NoOp analyst.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Summarize returns the first sentences of the article, truncated.
func (n *NoOp) Summarize(_ context.Context, articleText string) (string, error) {
	const maxLength = 500
	text := strings.TrimSpace(articleText)
	if len(text) <= maxLength {
		return text, nil
	}
	return text[:maxLength] + "...", nil
}

// ExplainTerminology returns an empty terminology map.
func (n *NoOp) ExplainTerminology(context.Context, string) (string, error) {
	return "{}", nil
}

// AssessQuality returns an inconclusive assessment.
func (n *NoOp) AssessQuality(context.Context, string) (string, error) {
	return `{"study_type": "unknown", "sample_size": null, "has_control_group": null, "peer_reviewed": null, "limitations": ["analysis disabled"], "score": 1}`, nil
}
