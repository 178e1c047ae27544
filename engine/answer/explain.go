package answer

import (
	"fmt"
	"strings"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
)

// explain builds the deterministic per-candidate explanation. It never
// fails, so a response always carries explanations even when the LLM is
// unavailable.
func explain(c domain.ScoredCandidate, ents domain.QueryEntities) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s addresses a %s %s",
		c.Record.Title, strings.ToLower(c.Record.DefectType), strings.ToLower(c.Record.AssetType))
	if c.Record.RoadType != "" {
		fmt.Fprintf(&b, " on %s roads", strings.ToLower(c.Record.RoadType))
	}
	if c.Record.SpeedMax > 0 {
		fmt.Fprintf(&b, " (%d-%d km/h)", c.Record.SpeedMin, c.Record.SpeedMax)
	}
	b.WriteString(".")

	if matched := ents.Matches(c.Record); matched > 0 && ents.Set() > 0 {
		fmt.Fprintf(&b, " Matches %d of %d extracted query attributes.", matched, ents.Set())
	}

	if specs := specSummary(c.Record.Specs); specs != "" {
		b.WriteString(" Specifications: " + specs + ".")
	}

	if cites := citations(c.Record.IRCRefs); cites != "" {
		b.WriteString(" Per " + cites + ".")
	}

	return b.String()
}

func specSummary(s domain.Specifications) string {
	var parts []string
	if s.Dimensions != "" {
		parts = append(parts, "dimensions "+s.Dimensions)
	}
	if s.Colors != "" {
		parts = append(parts, "colors "+s.Colors)
	}
	if s.Placement != "" {
		parts = append(parts, "placement "+s.Placement)
	}
	return strings.Join(parts, ", ")
}

func citations(refs []domain.IRCReference) string {
	var parts []string
	for _, ref := range refs {
		if ref.Code == "" {
			continue
		}
		if ref.Clause != "" {
			parts = append(parts, fmt.Sprintf("%s clause %s", ref.Code, ref.Clause))
		} else {
			parts = append(parts, ref.Code)
		}
	}
	return strings.Join(parts, ", ")
}

const noResultsSynthesis = "No interventions found matching your query. " +
	"Please try rephrasing or broadening your search."

// templateSynthesis is the citation-only overview used when no generator is
// configured or the provider failed.
func templateSynthesis(cands []domain.ScoredCandidate) string {
	if len(cands) == 0 {
		return noResultsSynthesis
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant intervention(s). ", len(cands))
	fmt.Fprintf(&b, "Top recommendation: %s (confidence %.2f)", cands[0].Record.Title, cands[0].Confidence)
	if cites := citations(cands[0].Record.IRCRefs); cites != "" {
		b.WriteString(", see " + cites)
	}
	b.WriteString(".")
	return b.String()
}

// synthesisPrompt builds the LLM prompt from the query and top candidates.
func synthesisPrompt(query string, cands []domain.ScoredCandidate, max int) string {
	if max > len(cands) {
		max = len(cands)
	}

	var b strings.Builder
	b.WriteString("You are a road safety engineering assistant. Using ONLY the ")
	b.WriteString("interventions below, write a short recommendation for the query. ")
	b.WriteString("Cite IRC codes where present. If the interventions do not answer ")
	b.WriteString("the query, say so.\n\n")
	fmt.Fprintf(&b, "Query: %s\n\n", query)
	for i, c := range cands[:max] {
		fmt.Fprintf(&b, "Intervention %d: %s\nCategory: %s\nDetail: %s\n",
			i+1, c.Record.Title, c.Record.Category, c.Record.Description)
		if cites := citations(c.Record.IRCRefs); cites != "" {
			fmt.Fprintf(&b, "Citations: %s\n", cites)
		}
		b.WriteString("\n")
	}
	return b.String()
}
