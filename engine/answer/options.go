package answer

import (
	"time"

	"github.com/RoadsageAI/roadsage-mvp/engine/eval"
	"github.com/RoadsageAI/roadsage-mvp/engine/score"
)

// Options configures the query orchestrator.
type Options struct {
	// QueryTimeout bounds the I/O stages (retrieval, synthesis) of one query.
	QueryTimeout time.Duration
	// Weights combine similarity and entity overlap into confidence.
	Weights score.Weights
	// Bands classify the relevance score for reporting.
	Bands eval.Bands
	// SynthesisCandidates caps how many top candidates feed the LLM prompt.
	SynthesisCandidates int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		QueryTimeout:        10 * time.Second,
		Weights:             score.DefaultWeights(),
		Bands:               eval.DefaultBands(),
		SynthesisCandidates: 3,
	}
}
