// Package analyze provides the article analysis pipeline use case.
// It orchestrates fetching an article and fanning out the three
// analysis stages, assembling their outputs into a single result.
package analyze

import "errors"

// Sentinel errors for analysis pipeline operations.
var (
	// ErrEmptyArticle indicates the fetch stage produced no usable text.
	ErrEmptyArticle = errors.New("fetched article contains no readable text")
)

// State names the pipeline phases, attached to logs so a failed request
// shows how far it got.
type State string

// Pipeline states in execution order.
const (
	StateReceived  State = "received"
	StateFetching  State = "fetching"
	StateFetched   State = "fetched"
	StateAnalyzing State = "analyzing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)
