package ecoscan

import (
	"fmt"
	"strings"
)

// DecisionInput carries every per-stage result into Decide. Nil fields are
// treated as "no signal".
type DecisionInput struct {
	Quality        *QualityVerdict
	Classification *Classification
	Category       *CategoryMatch
	Rejection      *RejectionMatch
	Document       *DocumentSignal
	Suspicion      *SuspicionResult
}

// Decide turns stage results into a Verdict. Rules are applied in
// priority order and the first one that fires wins:
//
//  1. quality gate
//  2. high-confidence recyclable override
//  3. rejection category
//  4. document signal
//  5. suspicion score
//  6. category confidence bars
//
// Decide is pure and never panics on missing input.
func Decide(in DecisionInput, p Policy) Verdict {
	if in.Quality.Rejects(p) {
		return Verdict{
			Status:            StatusRejected,
			Message:           qualityMessage(in.Quality.Issues),
			Reason:            strings.Join(in.Quality.Issues, "; "),
			RejectionCategory: RejectQuality,
			Recommendations:   recommendationsFor(RejectQuality),
		}
	}

	if ov, ok := MatchOverride(in.Classification); ok {
		return Verdict{
			Status:       StatusApproved,
			Category:     ov.Category,
			Confidence:   ov.Confidence,
			Message:      approvedMessage(ov.Category),
			DetectedItem: ov.Label,
			Reason:       fmt.Sprintf("high-confidence recyclable: %s", ov.Term),
		}
	}

	if r := in.Rejection; r != nil && r.Rejected {
		return Verdict{
			Status:            StatusRejected,
			Confidence:        r.Confidence,
			Message:           rejectionMessage(r.Category, r.Item),
			DetectedItem:      r.Item,
			Reason:            fmt.Sprintf("%s detected", r.Item),
			RejectionCategory: r.Category,
			Recommendations:   recommendationsFor(r.Category),
		}
	}

	if d := in.Document; d != nil && d.IsDocument {
		item := d.DocumentType
		if item == "" {
			item = "document"
		}
		return Verdict{
			Status:            StatusRejected,
			Confidence:        d.Confidence,
			Message:           rejectionMessage(RejectDocuments, item),
			DetectedItem:      item,
			Reason:            fmt.Sprintf("document detected (%s)", d.Method),
			RejectionCategory: RejectDocuments,
			Recommendations:   recommendationsFor(RejectDocuments),
		}
	}

	top := in.Classification.Top()

	if s := in.Suspicion; s != nil && s.IsSuspicious {
		reason := fmt.Sprintf("suspicion score %.0f: %s", s.Score, strings.Join(s.Flags, ", "))
		if s.Rejects() {
			return Verdict{
				Status:            StatusRejected,
				Confidence:        top.Confidence,
				Message:           suspiciousRejectMessage,
				DetectedItem:      top.Label,
				Reason:            reason,
				RejectionCategory: RejectSuspicious,
				Recommendations:   recommendationsFor(RejectSuspicious),
			}
		}
		var category string
		if in.Category != nil && in.Category.Matched() {
			category = in.Category.Category
		}
		return Verdict{
			Status:              StatusReview,
			Category:            category,
			Confidence:          top.Confidence,
			Message:             suspiciousReviewMessage,
			DetectedItem:        top.Label,
			Reason:              reason,
			ReviewReason:        ReviewSuspicious,
			AdminReviewRequired: true,
		}
	}

	return decideCategory(in, top, p)
}

func decideCategory(in DecisionInput, top Prediction, p Policy) Verdict {
	m := in.Category
	if m == nil {
		m = &CategoryMatch{Label: top.Label, Confidence: top.Confidence}
	}

	if m.Matched() {
		bar := float64(StandardCategoryBar)
		if ReliableCategories[m.Category] {
			bar = ReliableCategoryBar
		}
		if m.Confidence > bar {
			return Verdict{
				Status:       StatusApproved,
				Category:     m.Category,
				Confidence:   m.Confidence,
				Message:      approvedMessage(m.Category),
				DetectedItem: m.Label,
			}
		}
		return Verdict{
			Status:              StatusReview,
			Category:            m.Category,
			Confidence:          m.Confidence,
			Message:             categoryReviewMessage(m.Category),
			DetectedItem:        m.Label,
			Reason:              fmt.Sprintf("confidence %.1f%% not above %.0f%% for %s", m.Confidence, bar, m.Category),
			ReviewReason:        ReviewLowCategoryConfidence,
			AdminReviewRequired: true,
		}
	}

	if !p.RequireMaterial {
		return Verdict{
			Status:       StatusApproved,
			Confidence:   m.Confidence,
			Message:      approvedMessage(""),
			DetectedItem: m.Label,
		}
	}

	if m.Confidence > UnmatchedReviewFloor {
		return Verdict{
			Status:              StatusReview,
			Category:            "other",
			Confidence:          m.Confidence,
			Message:             unlistedReviewMessage(m.Label),
			DetectedItem:        m.Label,
			Reason:              ReviewUnlistedItem,
			ReviewReason:        ReviewUnlistedItem,
			AdminReviewRequired: true,
		}
	}

	return Verdict{
		Status:            StatusRejected,
		Confidence:        m.Confidence,
		Message:           unidentifiableMessage,
		DetectedItem:      m.Label,
		Reason:            reasonUnidentifiable,
		RejectionCategory: RejectUnidentifiable,
		Recommendations:   recommendationsFor(RejectUnidentifiable),
	}
}
