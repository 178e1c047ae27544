// Package score annotates retrieved candidates with entity overlap and a
// combined confidence value, then orders them for ranking. All functions are
// pure: no I/O, deterministic for a given input.
package score

import "github.com/RoadsageAI/roadsage-mvp/engine/domain"

// Default weights for the confidence combination. These are calibration
// defaults, not laws: the evaluation band thresholds are tuned against them,
// so overriding Weights means re-checking the bands too.
const (
	DefaultSimilarityWeight = 0.70
	DefaultOverlapWeight    = 0.30
)

// Weights configures the confidence combination.
type Weights struct {
	Similarity float64
	Overlap    float64
}

// DefaultWeights returns the documented default combination.
func DefaultWeights() Weights {
	return Weights{Similarity: DefaultSimilarityWeight, Overlap: DefaultOverlapWeight}
}

// Apply computes entity overlap and confidence for every candidate and
// returns a new slice sorted by confidence descending. The sort is stable:
// equal-confidence candidates keep their incoming (corpus insertion) order.
// Candidates must arrive with SimilarityScore set; everything else is
// overwritten.
func Apply(cands []domain.ScoredCandidate, ents domain.QueryEntities, w Weights) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, len(cands))
	copy(out, cands)

	for i := range out {
		out[i].EntityOverlapScore = ents.MatchFraction(out[i].Record)
		out[i].Confidence = clamp01(
			w.Similarity*clamp01(out[i].SimilarityScore) +
				w.Overlap*out[i].EntityOverlapScore)
	}

	stableSortByConfidence(out)
	return out
}

// stableSortByConfidence orders candidates best-first without reordering
// equal-confidence neighbors. Insertion sort keeps the stability guarantee
// explicit for the small slices this pipeline handles.
func stableSortByConfidence(cands []domain.ScoredCandidate) {
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].Confidence > cands[j-1].Confidence; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
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
