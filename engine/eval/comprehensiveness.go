package eval

import "github.com/RoadsageAI/roadsage-mvp/engine/domain"

// Comprehensiveness combination weights and the category count at which the
// diversity sub-score saturates.
const (
	DiversityWeight    = 0.4
	CompletenessWeight = 0.4
	CitationWeight     = 0.2

	diversityCeiling = 3
	specFieldCount   = 3
)

// Comprehensiveness scores the descriptive richness of a result set:
// category diversity, structured-specification completeness, and IRC
// citation coverage. It is independent of whether the set answers the query.
// An empty set scores 0; there is no division by zero on any path.
func Comprehensiveness(cands []domain.ScoredCandidate) float64 {
	if len(cands) == 0 {
		return 0
	}

	categories := make(map[string]bool, len(cands))
	specSum := 0.0
	cited := 0
	for _, c := range cands {
		categories[c.Record.Category] = true
		specSum += float64(c.Record.Specs.FieldCount()) / specFieldCount
		if len(c.Record.IRCRefs) > 0 {
			cited++
		}
	}

	n := float64(len(cands))
	diversity := float64(len(categories)) / diversityCeiling
	if diversity > 1 {
		diversity = 1
	}
	completeness := specSum / n
	citationCoverage := float64(cited) / n

	return clamp01(DiversityWeight*diversity +
		CompletenessWeight*completeness +
		CitationWeight*citationCoverage)
}

// UniqueCategories counts distinct categories in a result set, for the
// evaluation report.
func UniqueCategories(cands []domain.ScoredCandidate) int {
	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		seen[c.Record.Category] = true
	}
	return len(seen)
}

// IRCReferenceCount counts distinct IRC codes cited across a result set.
func IRCReferenceCount(cands []domain.ScoredCandidate) int {
	seen := make(map[string]bool)
	for _, c := range cands {
		for _, ref := range c.Record.IRCRefs {
			if ref.Code != "" {
				seen[ref.Code] = true
			}
		}
	}
	return len(seen)
}
