package ecoscan

// Quality thresholds.
const (
	DefaultMinDimension    = 100 // px, both width and height
	DefaultBlurThreshold   = 30  // Laplacian variance
	DefaultDarkThreshold   = 15  // mean gray level
	DefaultBrightThreshold = 240 // mean gray level
	MinQualityScore        = 50  // below this the image is low_quality

	penaltySize     = 60
	penaltyBlur     = 40
	penaltyExposure = 20
)

// Classification thresholds (percentages).
const (
	HighConfidenceOverride  = 90 // allow-list override floor
	ReliableCategoryBar     = 12 // wood, plastic, metal, glass
	StandardCategoryBar     = 25 // fabric, paper, electronics, rubber, leather
	UnmatchedReviewFloor    = 25 // unmatched label above this goes to review
	SecondaryCategoryFloor  = 10 // min confidence for secondary category matches
	SecondaryRejectionFloor = 3  // min confidence for secondary rejection matches
	GeneralCategoryDiscount = 0.8

	maxPredictions = 5
	secondaryRanks = 3 // ranks 2..3 are scanned in secondary passes
)

// Document and suspicion thresholds.
const (
	DocumentThreshold      = 60 // DocumentSignal.IsDocument when confidence >= this
	DocumentKeywordFloor   = 75 // minimum confidence for a keyword_primary document
	TextPatternThreshold   = 60
	VisualPatternThreshold = 60

	SuspicionThreshold     = 40
	SuspicionRejectLevel   = 70
	LowConfidenceThreshold = 20

	suspicionLowConfidence = 20
	suspicionInappropriate = 50
	suspicionDocument      = 40
	suspicionPortrait      = 30
	suspicionScreen        = 25
)

// Policy is the tunable threshold set for one request context.
type Policy struct {
	MinDimension    int
	BlurThreshold   float64
	DarkThreshold   float64
	BrightThreshold float64

	// RejectBlurry rejects images whose only problem is blur.
	RejectBlurry bool
	// RejectExposure rejects images that are too dark or too bright.
	RejectExposure bool
	// RequireMaterial rejects or reviews images without a material category.
	RequireMaterial bool
	// AllowPeople disables the humans rejection category and portrait penalty.
	AllowPeople bool
}

// DefaultPolicy returns the built-in policy for rc. Posts and profile
// pictures get relaxed quality bars and do not require a material category.
func DefaultPolicy(rc RequestContext) Policy {
	switch rc {
	case ContextPost:
		return Policy{
			MinDimension:    DefaultMinDimension,
			BlurThreshold:   15,
			DarkThreshold:   8,
			BrightThreshold: 247,
		}
	case ContextProfile:
		return Policy{
			MinDimension:    DefaultMinDimension,
			BlurThreshold:   20,
			DarkThreshold:   10,
			BrightThreshold: 245,
			AllowPeople:     true,
		}
	default:
		return Policy{
			MinDimension:    DefaultMinDimension,
			BlurThreshold:   DefaultBlurThreshold,
			DarkThreshold:   DefaultDarkThreshold,
			BrightThreshold: DefaultBrightThreshold,
			RejectBlurry:    true,
			RejectExposure:  true,
			RequireMaterial: true,
		}
	}
}
