package ecoscan

import (
	"fmt"
	"math"
)

// DetectionMethod names the rule that produced a DocumentSignal.
type DetectionMethod string

const (
	MethodKeywordPrimary   DetectionMethod = "keyword_primary"
	MethodMultipleKeywords DetectionMethod = "multiple_keywords"
	MethodTextPattern      DetectionMethod = "text_pattern"
	MethodVisualPattern    DetectionMethod = "visual_pattern"
	MethodNone             DetectionMethod = "none"
)

const (
	multipleKeywordMin   = 2
	multipleKeywordBonus = 20
	printedDocumentType  = "printed_document"
)

// DocumentSignal estimates whether an image is a printed document.
type DocumentSignal struct {
	IsDocument   bool            `json:"is_document"`
	Confidence   float64         `json:"confidence"`
	Evidence     []string        `json:"evidence,omitempty"`
	Method       DetectionMethod `json:"detection_method"`
	DocumentType string          `json:"document_type,omitempty"`

	Text   *TextAnalysis   `json:"text_analysis,omitempty"`
	Visual *VisualPatterns `json:"visual_patterns,omitempty"`
}

// CombineDocumentSignal merges classifier keywords and pixel evidence.
// Rules are tried in order and the first that fires decides the method:
// a document keyword in the top label, document keywords in two or more of
// the top-5 labels, a text-layout score, then a line/box score.
// Either argument may be nil.
func CombineDocumentSignal(cls *Classification, rep *PatternReport) DocumentSignal {
	sig := DocumentSignal{Method: MethodNone}
	if rep != nil {
		text, visual := rep.Text, rep.Visual
		sig.Text, sig.Visual = &text, &visual
	}

	if cls != nil && len(cls.Predictions) > 0 {
		top := cls.Top()
		if hit, ok := documentIndex.first(top.Label); ok {
			sig.Method = MethodKeywordPrimary
			sig.Confidence = math.Max(top.Confidence, DocumentKeywordFloor)
			sig.DocumentType = hit.Name
			sig.Evidence = append(sig.Evidence,
				fmt.Sprintf("top label %q matches document keyword %q", top.Label, hit.Keyword))
			return sig.settle()
		}

		var (
			hits  int
			sum   float64
			kinds []string
		)
		for i, p := range cls.Predictions {
			if i >= maxPredictions {
				break
			}
			if hit, ok := documentIndex.first(p.Label); ok {
				hits++
				sum += p.Confidence
				kinds = append(kinds, hit.Name)
				sig.Evidence = append(sig.Evidence,
					fmt.Sprintf("label %q matches document keyword %q", p.Label, hit.Keyword))
			}
		}
		// Weak keyword agreement falls through to the pixel evidence.
		if conf := math.Min(100, sum+multipleKeywordBonus); hits >= multipleKeywordMin && conf >= DocumentThreshold {
			sig.Method = MethodMultipleKeywords
			sig.Confidence = conf
			sig.DocumentType = kinds[0]
			return sig.settle()
		}
	}

	if rep == nil {
		return sig.settle()
	}

	switch {
	case rep.Text.HasTextPattern:
		sig.Method = MethodTextPattern
		sig.Confidence = rep.Text.Confidence
		sig.DocumentType = printedDocumentType
		sig.Evidence = append(sig.Evidence, fmt.Sprintf(
			"%d text-like contours in %d aligned rows", rep.Text.TextLikeContours, rep.Text.LineClusters))
	case rep.Visual.HasDocumentPatterns:
		sig.Method = MethodVisualPattern
		sig.Confidence = rep.Visual.DocumentPatternScore
		sig.DocumentType = printedDocumentType
		sig.Evidence = append(sig.Evidence, rep.Visual.Evidence...)
	default:
		sig.Confidence = math.Max(rep.Text.Confidence, rep.Visual.DocumentPatternScore)
	}
	return sig.settle()
}

func (s DocumentSignal) settle() DocumentSignal {
	s.IsDocument = s.Method != MethodNone && s.Confidence >= DocumentThreshold
	return s
}
