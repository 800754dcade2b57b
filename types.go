package ecoscan

// Status is the machine-readable outcome of an analysis.
type Status string

const (
	StatusApproved Status = "approved"
	StatusReview   Status = "review"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// RequestContext selects which policy variant applies to a request.
type RequestContext string

const (
	ContextMarketplace RequestContext = "marketplace"
	ContextProfile     RequestContext = "profile"
	ContextPost        RequestContext = "post"
)

// ParseRequestContext maps free-form input to a known context.
// Unknown or empty values fall back to marketplace, the strictest policy.
func ParseRequestContext(s string) RequestContext {
	switch RequestContext(s) {
	case ContextProfile:
		return ContextProfile
	case ContextPost:
		return ContextPost
	default:
		return ContextMarketplace
	}
}

// Prediction is one ranked classifier output. Confidence is a percentage.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classification is the normalized classifier output for one image:
// predictions sorted by non-increasing confidence, at most maxPredictions.
type Classification struct {
	Predictions []Prediction `json:"predictions"`
}

// Top returns the primary prediction, or a zero Prediction when empty.
func (c *Classification) Top() Prediction {
	if c == nil || len(c.Predictions) == 0 {
		return Prediction{}
	}
	return c.Predictions[0]
}

// Secondary returns predictions at ranks 2..n (1-based), bounded by length.
func (c *Classification) Secondary(n int) []Prediction {
	if c == nil || len(c.Predictions) < 2 {
		return nil
	}
	end := min(n, len(c.Predictions))
	return c.Predictions[1:end]
}

// Verdict is the final decision for one image and the only entity exposed
// across the system boundary.
type Verdict struct {
	Status              Status   `json:"status"`
	Category            string   `json:"category,omitempty"`
	Confidence          float64  `json:"confidence"`
	Message             string   `json:"message"`
	DetectedItem        string   `json:"detected_item,omitempty"`
	Reason              string   `json:"reason,omitempty"`
	RejectionCategory   string   `json:"rejection_category,omitempty"`
	ReviewReason        string   `json:"review_reason,omitempty"`
	AdminReviewRequired bool     `json:"admin_review_required"`
	Recommendations     []string `json:"recommendations,omitempty"`

	// Details carries admin diagnostics; nil unless the request asked for them.
	Details *Diagnostics `json:"details,omitempty"`
}

// Diagnostics exposes per-stage evidence for admin-facing views.
type Diagnostics struct {
	Quality        *QualityVerdict  `json:"quality,omitempty"`
	Predictions    []Prediction     `json:"predictions,omitempty"`
	CategoryMatch  *CategoryMatch   `json:"category_match,omitempty"`
	RejectionMatch *RejectionMatch  `json:"rejection_match,omitempty"`
	Document       *DocumentSignal  `json:"document_analysis,omitempty"`
	Suspicion      *SuspicionResult `json:"suspicion,omitempty"`
	Metadata       *ImageMetadata   `json:"metadata,omitempty"`
	Override       string           `json:"override,omitempty"`
	PerceptualHash string           `json:"perceptual_hash,omitempty"`
	DuplicateOf    *int             `json:"duplicate_of,omitempty"`
}
