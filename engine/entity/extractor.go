// Package entity extracts typed road-safety attributes from unstructured
// query text using regex patterns and fixed vocabularies. Extraction is
// best-effort and never fails: attributes that cannot be resolved are left
// unset so downstream retrieval degrades to pure similarity ranking.
package entity

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/RoadsageAI/roadsage-mvp/engine/domain"
)

// roadTypeAliases maps mentions to canonical road classes.
var roadTypeAliases = map[string]string{
	"highway":          "Highway",
	"national highway": "Highway",
	"expressway":       "Highway",
	"motorway":         "Highway",
	"urban road":       "Urban",
	"urban":            "Urban",
	"city road":        "Urban",
	"city street":      "Urban",
	"residential":      "Urban",
	"rural road":       "Rural",
	"rural":            "Rural",
	"village road":     "Rural",
	"arterial":         "Arterial",
	"arterial road":    "Arterial",
}

// assetAliases maps mentions to canonical asset types.
var assetAliases = map[string]string{
	"stop sign":        "STOP Sign",
	"give way sign":    "Give Way Sign",
	"yield sign":       "Give Way Sign",
	"speed limit sign": "Speed Limit Sign",
	"warning sign":     "Warning Sign",
	"chevron sign":     "Chevron Sign",
	"chevron":          "Chevron Sign",
	"signboard":        "Road Sign",
	"road sign":        "Road Sign",
	"road signs":       "Road Sign",
	"road marking":     "Road Marking",
	"road markings":    "Road Marking",
	"lane marking":     "Road Marking",
	"lane markings":    "Road Marking",
	"centre line":      "Centre Line Marking",
	"center line":      "Centre Line Marking",
	"zebra crossing":   "Zebra Crossing",
	"speed breaker":    "Speed Breaker",
	"speed bump":       "Speed Breaker",
	"speed hump":       "Speed Breaker",
	"rumble strip":     "Rumble Strip",
	"rumble strips":    "Rumble Strip",
}

// defectAliases maps mentions to canonical defect types.
var defectAliases = map[string]string{
	"faded":          string(domain.DefectFaded),
	"fading":         string(domain.DefectFaded),
	"worn out":       string(domain.DefectFaded),
	"worn":           string(domain.DefectFaded),
	"illegible":      string(domain.DefectFaded),
	"damaged":        string(domain.DefectDamaged),
	"broken":         string(domain.DefectDamaged),
	"bent":           string(domain.DefectDamaged),
	"cracked":        string(domain.DefectDamaged),
	"vandalised":     string(domain.DefectDamaged),
	"vandalized":     string(domain.DefectDamaged),
	"missing":        string(domain.DefectMissing),
	"absent":         string(domain.DefectMissing),
	"obscured":       string(domain.DefectObscured),
	"hidden":         string(domain.DefectObscured),
	"blocked":        string(domain.DefectObscured),
	"overgrown":      string(domain.DefectObscured),
	"spacing issue":  string(domain.DefectSpacing),
	"too far apart":  string(domain.DefectSpacing),
	"height issue":   string(domain.DefectHeight),
	"too low":        string(domain.DefectHeight),
	"too high":       string(domain.DefectHeight),
	"wrongly placed": string(domain.DefectIncorrect),
	"wrong place":    string(domain.DefectIncorrect),
}

// locationAliases maps mentions to canonical location qualifiers.
var locationAliases = map[string]string{
	"pedestrian crossing": "Pedestrian Crossing",
	"intersection":        "Intersection",
	"junction":            "Intersection",
	"school zone":         "School Zone",
	"near school":         "School Zone",
	"roundabout":          "Roundabout",
	"bridge":              "Bridge",
	"curve":               "Curve",
	"bend":                "Curve",
	"bus stop":            "Bus Stop",
}

// speedRe matches a number adjacent to a speed-unit token.
var speedRe = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(km/?h|kmph|kph|mph)\b`)

// Extract parses free text into QueryEntities. Pure function: no I/O, no
// side effects, and unparseable input simply yields fewer attributes.
func Extract(text string) domain.QueryEntities {
	if strings.TrimSpace(text) == "" {
		return domain.QueryEntities{}
	}
	lower := strings.ToLower(text)

	return domain.QueryEntities{
		RoadType:        matchVocab(lower, roadTypeAliases),
		SpeedKmph:       extractSpeed(text),
		AssetType:       matchVocab(lower, assetAliases),
		DefectType:      matchVocab(lower, defectAliases),
		LocationContext: matchVocab(lower, locationAliases),
	}
}

// matchVocab returns the canonical value for the longest alias that occurs
// in the lowercased text at word boundaries, or "" when nothing matches.
func matchVocab(lower string, aliases map[string]string) string {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	// Longest alias first so "road markings" wins over "road marking" and
	// "speed limit sign" is not swallowed by a shorter mention.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for _, alias := range keys {
		if containsWord(lower, alias) {
			return aliases[alias]
		}
	}
	return ""
}

// containsWord reports whether needle occurs in haystack bounded by
// non-alphanumeric runes on both sides.
func containsWord(haystack, needle string) bool {
	for from := 0; ; {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return false
		}
		idx += from

		boundedLeft := idx == 0 || !isWordRune(rune(haystack[idx-1]))
		end := idx + len(needle)
		boundedRight := end >= len(haystack) || !isWordRune(rune(haystack[end]))
		if boundedLeft && boundedRight {
			return true
		}
		from = idx + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// extractSpeed finds a speed mention and normalises it to km/h. Returns nil
// when no positive speed adjacent to a unit token is present.
func extractSpeed(text string) *int {
	m := speedRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v <= 0 {
		return nil
	}
	if strings.EqualFold(m[2], "mph") {
		v = int(math.Round(float64(v) * 1.609))
	}
	return &v
}
