package analyze

import "context"

// ContentFetcher retrieves the readable text of an article page.
// Implementations handle transport, extraction, and URL policy.
type ContentFetcher interface {
	// FetchArticle returns the extracted article text for the URL.
	FetchArticle(ctx context.Context, url string) (string, error)
}

// Analyst runs the three model-backed analysis operations over article
// text. Implementations return the raw model output: plain prose for
// Summarize, JSON documents for the other two.
type Analyst interface {
	// Summarize produces a plain-language summary of the article.
	Summarize(ctx context.Context, articleText string) (string, error)

	// ExplainTerminology returns a JSON object mapping each medical
	// term found in the article to a lay explanation.
	ExplainTerminology(ctx context.Context, articleText string) (string, error)

	// AssessQuality returns a JSON document scoring the study's
	// methodological quality.
	AssessQuality(ctx context.Context, articleText string) (string, error)
}

// Stage executes one pipeline step for a caller identity. It is the
// shape of the resilient call wrapper, letting the orchestrator stay
// unaware of admission, caching, and retry concerns.
type Stage interface {
	Do(ctx context.Context, identity string, inputs map[string]string) (string, error)
}

// Result is the assembled output of a completed pipeline run.
type Result struct {
	ConversationID    string            `json:"conversation_id"`
	URL               string            `json:"url"`
	Summary           string            `json:"summary"`
	Terminology       map[string]string `json:"terminology"`
	QualityAssessment map[string]any    `json:"quality_assessment"`
}
