package answer

import "github.com/RoadsageAI/roadsage-mvp/engine/domain"

// Rough planning figures per category and defect. They accompany each
// recommendation in the API response; engineering estimates come later in
// the works pipeline.

// CostEstimate returns an indicative cost range in INR for fixing the
// defect on the given asset category.
func CostEstimate(category, defectType string) string {
	switch category {
	case string(domain.CategoryRoadSign):
		switch defectType {
		case string(domain.DefectFaded), string(domain.DefectObscured):
			return "₹2,000 - ₹8,000"
		case string(domain.DefectMissing), string(domain.DefectDamaged):
			return "₹8,000 - ₹25,000"
		default:
			return "₹5,000 - ₹15,000"
		}
	case string(domain.CategoryRoadMarking):
		return "₹150 - ₹400 per sq.m"
	case string(domain.CategoryTrafficCalming):
		return "₹15,000 - ₹60,000"
	default:
		return "site survey required"
	}
}

// InstallationTime returns an indicative installation window.
func InstallationTime(category, defectType string) string {
	switch category {
	case string(domain.CategoryRoadSign):
		if defectType == string(domain.DefectFaded) || defectType == string(domain.DefectObscured) {
			return "2-4 hours"
		}
		return "1-2 days"
	case string(domain.CategoryRoadMarking):
		return "1 day per km"
	case string(domain.CategoryTrafficCalming):
		return "2-5 days"
	default:
		return "varies"
	}
}
