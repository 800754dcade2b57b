package ecoscan

// RejectionMatch is the result of scanning labels against the rejected
// content taxonomy.
type RejectionMatch struct {
	Rejected   bool        `json:"rejected"`
	Item       string      `json:"item,omitempty"`     // matched keyword
	Category   string      `json:"category,omitempty"` // rejection category
	Label      string      `json:"label,omitempty"`    // label that matched
	Confidence float64     `json:"confidence"`         // confidence of that label
	Source     MatchSource `json:"source,omitempty"`
}

// MatchRejection scans the top label and then ranks 2..3 at
// SecondaryRejectionFloor or above. For every label the expanded document
// keywords are checked before the main rejection map. The "pet" keyword is
// ignored when any top-5 label names a plastic container, and the humans
// category is skipped when allowPeople is set.
func MatchRejection(cls *Classification, allowPeople bool) RejectionMatch {
	if cls == nil || len(cls.Predictions) == 0 {
		return RejectionMatch{}
	}

	suppressPet := plasticContext(cls)

	scan := func(p Prediction, src MatchSource) (RejectionMatch, bool) {
		if hit, ok := documentIndex.first(p.Label); ok {
			return RejectionMatch{
				Rejected:   true,
				Item:       hit.Keyword,
				Category:   RejectDocuments,
				Label:      p.Label,
				Confidence: p.Confidence,
				Source:     src,
			}, true
		}
		for _, hit := range rejectionIndex.matches(p.Label) {
			if hit.Keyword == petKeyword && suppressPet {
				continue
			}
			if hit.Name == RejectHumans && allowPeople {
				continue
			}
			return RejectionMatch{
				Rejected:   true,
				Item:       hit.Keyword,
				Category:   hit.Name,
				Label:      p.Label,
				Confidence: p.Confidence,
				Source:     src,
			}, true
		}
		return RejectionMatch{}, false
	}

	if m, ok := scan(cls.Top(), SourcePrimary); ok {
		return m
	}
	for _, p := range cls.Secondary(secondaryRanks) {
		if p.Confidence < SecondaryRejectionFloor {
			continue
		}
		if m, ok := scan(p, SourceSecondary); ok {
			return m
		}
	}
	return RejectionMatch{}
}

// plasticContext reports whether any of the top-5 labels indicates a
// plastic container.
func plasticContext(cls *Classification) bool {
	for i, p := range cls.Predictions {
		if i >= maxPredictions {
			break
		}
		if plasticIndex.contains(p.Label) {
			return true
		}
	}
	return false
}
