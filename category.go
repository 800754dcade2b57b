package ecoscan

// MatchSource tells which pass produced a match.
type MatchSource string

const (
	SourcePrimary   MatchSource = "primary"
	SourceSecondary MatchSource = "secondary"
	SourceGeneral   MatchSource = "general"
)

// CategoryMatch is the result of mapping classifier labels onto the
// marketplace taxonomy. Label and Confidence are the working values the
// decision engine uses; a secondary match replaces the primary ones.
type CategoryMatch struct {
	Category       string      `json:"category,omitempty"`
	MatchedKeyword string      `json:"matched_keyword,omitempty"`
	Label          string      `json:"label,omitempty"`
	Confidence     float64     `json:"confidence"`
	Source         MatchSource `json:"source,omitempty"`
}

// Matched reports whether any pass assigned a category.
func (m *CategoryMatch) Matched() bool {
	return m != nil && m.Category != ""
}

// MapCategory runs the primary, secondary and general-recyclable passes.
//
//  1. Primary: top label against MarketplaceCategories in declared order.
//  2. Secondary: ranks 2..3 at SecondaryCategoryFloor or above.
//  3. General: top label against GeneralRecyclableTerms, confidence
//     discounted by GeneralCategoryDiscount.
func MapCategory(cls *Classification) CategoryMatch {
	top := cls.Top()
	if hit, ok := categoryIndex.first(top.Label); ok {
		return CategoryMatch{
			Category:       hit.Name,
			MatchedKeyword: hit.Keyword,
			Label:          top.Label,
			Confidence:     top.Confidence,
			Source:         SourcePrimary,
		}
	}

	for _, p := range cls.Secondary(secondaryRanks) {
		if p.Confidence < SecondaryCategoryFloor {
			continue
		}
		if hit, ok := categoryIndex.first(p.Label); ok {
			return CategoryMatch{
				Category:       hit.Name,
				MatchedKeyword: hit.Keyword,
				Label:          p.Label,
				Confidence:     p.Confidence,
				Source:         SourceSecondary,
			}
		}
	}

	if hit, ok := generalIndex.first(top.Label); ok {
		return CategoryMatch{
			Category:       hit.Name,
			MatchedKeyword: hit.Keyword,
			Label:          top.Label,
			Confidence:     top.Confidence * GeneralCategoryDiscount,
			Source:         SourceGeneral,
		}
	}

	return CategoryMatch{Label: top.Label, Confidence: top.Confidence}
}
