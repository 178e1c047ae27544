// Package eval computes the two aggregate quality metrics for a ranked
// result set: relevance (did we match what was asked) and comprehensiveness
// (how rich is what we returned). The two are intentionally independent: a
// wrong-but-detailed answer scores well on comprehensiveness and poorly on
// relevance. Everything here is pure computation over already-fetched data.
package eval

import "github.com/RoadsageAI/roadsage-mvp/engine/domain"

// Relevance combination weights. Monotonicity in each term is a contract:
// raising any input while holding the others never lowers the score.
const (
	TopConfidenceWeight      = 0.5
	AvgConfidenceWeight      = 0.3
	EntitySatisfactionWeight = 0.2
)

// Relevance scores how well the ranked set matches the query's extracted
// entities. Candidates must already be confidence-sorted best first.
// An empty set scores 0.
func Relevance(cands []domain.ScoredCandidate, ents domain.QueryEntities) float64 {
	if len(cands) == 0 {
		return 0
	}

	top := cands[0]
	sum := 0.0
	for _, c := range cands {
		sum += c.Confidence
	}
	avg := sum / float64(len(cands))

	score := TopConfidenceWeight*top.Confidence +
		AvgConfidenceWeight*avg +
		EntitySatisfactionWeight*ents.MatchFraction(top.Record)

	return clamp01(score)
}

// Bands holds the relevance band boundaries. They classify scores for
// reporting only and never feed back into scoring.
type Bands struct {
	Medium float64 // scores below this are "low"
	High   float64 // scores at or above this are "high"
}

// DefaultBands returns the default band boundaries.
func DefaultBands() Bands {
	return Bands{Medium: 0.6, High: 0.8}
}

// Band classifies a relevance score.
func Band(score float64, b Bands) domain.RelevanceBand {
	switch {
	case score >= b.High:
		return domain.BandHigh
	case score >= b.Medium:
		return domain.BandMedium
	default:
		return domain.BandLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
