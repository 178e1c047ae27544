// Package domain defines core domain types, vocabularies, and validation for
// the Roadsage query pipeline. It acts as the validation gate at pipeline
// entry points and owns the scoring-facing data model.
package domain

import "strings"

// Category classifies intervention records.
type Category string

const (
	CategoryRoadSign       Category = "Road Sign"
	CategoryRoadMarking    Category = "Road Marking"
	CategoryTrafficCalming Category = "Traffic Calming Measures"
)

// ValidCategories is the set of recognised intervention categories.
var ValidCategories = map[Category]bool{
	CategoryRoadSign: true, CategoryRoadMarking: true, CategoryTrafficCalming: true,
}

// DefectType classifies the reported problem with a road asset.
type DefectType string

const (
	DefectFaded     DefectType = "Faded"
	DefectDamaged   DefectType = "Damaged"
	DefectMissing   DefectType = "Missing"
	DefectObscured  DefectType = "Obscured"
	DefectSpacing   DefectType = "Spacing Issue"
	DefectHeight    DefectType = "Height Issue"
	DefectIncorrect DefectType = "Incorrect Placement"
)

// ValidDefectTypes is the set of recognised defect types.
var ValidDefectTypes = map[DefectType]bool{
	DefectFaded: true, DefectDamaged: true, DefectMissing: true,
	DefectObscured: true, DefectSpacing: true, DefectHeight: true,
	DefectIncorrect: true,
}

// QueryEntities holds the typed attributes extracted from a free-text query.
// Every attribute is optional; the zero value means "not mentioned", never
// "zero of the domain". Instances are built once by the extractor and are
// immutable afterwards.
type QueryEntities struct {
	RoadType        string `json:"road_type,omitempty"`
	SpeedKmph       *int   `json:"speed_kmph,omitempty"`
	AssetType       string `json:"asset_type,omitempty"`
	DefectType      string `json:"defect_type,omitempty"`
	LocationContext string `json:"location_context,omitempty"`
}

// AttributeCount is the number of attributes QueryEntities can carry.
const AttributeCount = 5

// Set returns how many attributes were extracted.
func (e QueryEntities) Set() int {
	n := 0
	if e.RoadType != "" {
		n++
	}
	if e.SpeedKmph != nil {
		n++
	}
	if e.AssetType != "" {
		n++
	}
	if e.DefectType != "" {
		n++
	}
	if e.LocationContext != "" {
		n++
	}
	return n
}

// Empty reports whether no attributes were extracted.
func (e QueryEntities) Empty() bool { return e.Set() == 0 }

// Matches counts how many set attributes are satisfied by the record's
// structured fields. Speed matches when the record declares a band that
// contains the query speed. Location context matches against the record's
// title or description since records carry no dedicated location field.
func (e QueryEntities) Matches(rec InterventionRecord) int {
	n := 0
	if e.RoadType != "" && strings.EqualFold(e.RoadType, rec.RoadType) {
		n++
	}
	if e.SpeedKmph != nil && rec.SpeedMax > 0 &&
		*e.SpeedKmph >= rec.SpeedMin && *e.SpeedKmph <= rec.SpeedMax {
		n++
	}
	if e.AssetType != "" && strings.EqualFold(e.AssetType, rec.AssetType) {
		n++
	}
	if e.DefectType != "" && strings.EqualFold(e.DefectType, rec.DefectType) {
		n++
	}
	if e.LocationContext != "" {
		loc := strings.ToLower(e.LocationContext)
		if strings.Contains(strings.ToLower(rec.Title), loc) ||
			strings.Contains(strings.ToLower(rec.Description), loc) {
			n++
		}
	}
	return n
}

// MatchFraction is Matches divided by the number of set attributes,
// or 0 when nothing was extracted.
func (e QueryEntities) MatchFraction(rec InterventionRecord) float64 {
	set := e.Set()
	if set == 0 {
		return 0
	}
	return float64(e.Matches(rec)) / float64(set)
}

// Specifications holds the structured detail fields of an intervention.
type Specifications struct {
	Dimensions string `json:"dimensions,omitempty"`
	Colors     string `json:"colors,omitempty"`
	Placement  string `json:"placement,omitempty"`
}

// FieldCount returns how many specification fields are populated (0-3).
func (s Specifications) FieldCount() int {
	n := 0
	if s.Dimensions != "" {
		n++
	}
	if s.Colors != "" {
		n++
	}
	if s.Placement != "" {
		n++
	}
	return n
}

// IRCReference cites an Indian Roads Congress design code clause that
// justifies an intervention.
type IRCReference struct {
	Code   string `json:"code"`
	Clause string `json:"clause,omitempty"`
}

// InterventionRecord is one corpus entry. Records are owned by the corpus
// store and never mutated by the query pipeline. InsertionSeq is the corpus
// insertion order and breaks confidence ties during ranking.
type InterventionRecord struct {
	ID           string         `json:"id" db:"id"`
	Category     string         `json:"category" db:"category"`
	Title        string         `json:"title" db:"title"`
	AssetType    string         `json:"asset_type" db:"asset_type"`
	DefectType   string         `json:"defect_type" db:"defect_type"`
	RoadType     string         `json:"road_type,omitempty" db:"road_type"`
	SpeedMin     int            `json:"speed_min,omitempty" db:"speed_min"`
	SpeedMax     int            `json:"speed_max,omitempty" db:"speed_max"`
	Description  string         `json:"description" db:"description"`
	Specs        Specifications `json:"specifications"`
	IRCRefs      []IRCReference `json:"irc_refs"`
	InsertionSeq int            `json:"-" db:"insertion_seq"`
}

// ScoredCandidate pairs a record with its retrieval and scoring outcome.
// All scores are in [0,1]. Instances live for one query only.
type ScoredCandidate struct {
	Record             InterventionRecord `json:"record"`
	SimilarityScore    float64            `json:"similarity_score"`
	EntityOverlapScore float64            `json:"entity_overlap_score"`
	Confidence         float64            `json:"confidence"`
	Explanation        string             `json:"explanation,omitempty"`
}

// FailureKind identifies which class of failure degraded a response.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureValidation FailureKind = "validation_error"
	FailureRetrieval  FailureKind = "retrieval_error"
	FailureProvider   FailureKind = "provider_error"
	FailureEvaluation FailureKind = "evaluation_error"
	FailureTimeout    FailureKind = "timeout"
)

// RankedResponse is the ordered answer to one query: candidates sorted by
// confidence descending (stable on ties), a designated top match, and a
// per-candidate explanation referencing IRC citations.
type RankedResponse struct {
	CorrelationID string            `json:"correlation_id"`
	Query         string            `json:"query"`
	Candidates    []ScoredCandidate `json:"candidates"`
	TopMatch      *ScoredCandidate  `json:"top_match,omitempty"`
	Synthesis     string            `json:"synthesis,omitempty"`
	Metrics       ResponseMetrics   `json:"metrics"`
	Degraded      bool              `json:"degraded,omitempty"`
	FailureKind   FailureKind       `json:"failure_kind,omitempty"`
}

// ResponseMetrics carries the aggregate quality scores alongside the
// ranked candidates, keyed for direct serialization.
type ResponseMetrics struct {
	Relevance         float64       `json:"relevance"`
	RelevanceBand     RelevanceBand `json:"relevance_band"`
	Comprehensiveness float64       `json:"comprehensiveness"`
}

// RelevanceBand classifies a relevance score for reporting.
type RelevanceBand string

const (
	BandLow    RelevanceBand = "low"
	BandMedium RelevanceBand = "medium"
	BandHigh   RelevanceBand = "high"
)

// EvaluationReport is the flat, once-per-query record consumed by the
// structured-log sink. Never mutated after emission.
type EvaluationReport struct {
	CorrelationID           string        `json:"correlation_id"`
	Query                   string        `json:"query"`
	RelevanceScore          float64       `json:"relevance_score"`
	RelevanceBand           RelevanceBand `json:"relevance_band"`
	ComprehensivenessScore  float64       `json:"comprehensiveness_score"`
	ConfidenceScores        []float64     `json:"confidence_scores"`
	MatchedIDs              []string      `json:"matched_intervention_ids"`
	ResultCount             int           `json:"result_count"`
	UniqueCategories        int           `json:"unique_categories"`
	IRCReferenceCount       int           `json:"irc_references_count"`
	EntityExtractionQuality float64       `json:"entity_extraction_quality"`
	ResponseTimeMs          int64         `json:"response_time_ms"`
}
