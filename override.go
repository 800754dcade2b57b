package ecoscan

// OverrideMatch describes a high-confidence recyclable short-circuit.
type OverrideMatch struct {
	Category   string  `json:"category"`
	Term       string  `json:"term"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// MatchOverride applies the cheap allow-list check that lets obviously
// recyclable images skip the document and suspicion heuristics: the top
// label must contain a HighConfidenceRecyclables term and score at least
// HighConfidenceOverride. Returns (nil, false) when the check does not
// apply.
func MatchOverride(cls *Classification) (*OverrideMatch, bool) {
	top := cls.Top()
	if top.Label == "" || top.Confidence < HighConfidenceOverride {
		return nil, false
	}
	hit, ok := overrideIndex.first(top.Label)
	if !ok {
		return nil, false
	}
	return &OverrideMatch{
		Category:   hit.Name,
		Term:       hit.Keyword,
		Label:      top.Label,
		Confidence: top.Confidence,
	}, true
}
