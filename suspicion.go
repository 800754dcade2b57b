package ecoscan

import (
	"fmt"
	"strings"
)

// Suspicion flags.
const (
	FlagLowConfidence = "low_confidence"
	FlagInappropriate = "inappropriate_content"
	FlagDocument      = "document_detected"
	FlagPortrait      = "personal_image"
	FlagScreen        = "digital_screen"
)

// ScreenshotURLPatterns are URL substrings indicating a screen capture.
var ScreenshotURLPatterns = []string{
	"screenshot", "screen-shot", "screen_shot", "screencap", "scrnshot",
}

// IsScreenshotURL checks if a lowercased URL contains screenshot patterns.
func IsScreenshotURL(lower string) bool {
	for _, p := range ScreenshotURLPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// SuspicionResult is the suspicion screener's output.
type SuspicionResult struct {
	Score        float64  `json:"score"`
	IsSuspicious bool     `json:"is_suspicious"`
	Flags        []string `json:"flags,omitempty"`
	Evidence     []string `json:"evidence,omitempty"`
	Skipped      bool     `json:"skipped,omitempty"`
}

// Rejects reports whether the score is high enough to reject outright.
func (s *SuspicionResult) Rejects() bool {
	return s != nil && s.IsSuspicious && s.Score > SuspicionRejectLevel
}

// SuspicionInput bundles the evidence the screener looks at. Every field
// is optional.
type SuspicionInput struct {
	Classification *Classification
	Document       *DocumentSignal
	Metadata       *ImageMetadata
	ImageURL       string
	AllowPeople    bool
}

// ScreenSuspicion adds fixed penalties for content unrelated to recyclable
// materials: a weak top prediction, inappropriate or portrait labels, a
// document signal and screen captures.
func ScreenSuspicion(in SuspicionInput) SuspicionResult {
	var res SuspicionResult
	add := func(flag string, points float64, evidence string) {
		res.Score += points
		res.Flags = append(res.Flags, flag)
		res.Evidence = append(res.Evidence, evidence)
	}

	top := in.Classification.Top()
	if top.Confidence < LowConfidenceThreshold {
		add(FlagLowConfidence, suspicionLowConfidence,
			fmt.Sprintf("top confidence %.1f%% below %d%%", top.Confidence, LowConfidenceThreshold))
	}
	if hit, ok := inappropriateIndex.first(top.Label); ok {
		add(FlagInappropriate, suspicionInappropriate,
			fmt.Sprintf("label %q contains %q", top.Label, hit.Keyword))
	}
	if in.Document != nil && in.Document.IsDocument {
		add(FlagDocument, suspicionDocument,
			fmt.Sprintf("document detected via %s", in.Document.Method))
	}
	if !in.AllowPeople {
		if hit, ok := portraitIndex.first(top.Label); ok {
			add(FlagPortrait, suspicionPortrait,
				fmt.Sprintf("label %q contains %q", top.Label, hit.Keyword))
		}
	}
	if ev := screenEvidence(top.Label, in.Metadata, in.ImageURL); ev != "" {
		add(FlagScreen, suspicionScreen, ev)
	}

	res.IsSuspicious = res.Score > SuspicionThreshold
	return res
}

func screenEvidence(label string, meta *ImageMetadata, url string) string {
	if hit, ok := screenIndex.first(label); ok {
		return fmt.Sprintf("label %q contains %q", label, hit.Keyword)
	}
	if ev := ScreenshotIndicator(meta); ev != "" {
		return ev
	}
	if url != "" && IsScreenshotURL(strings.ToLower(url)) {
		return "screenshot pattern in url"
	}
	return ""
}

// skippedSuspicion is reported for images approved by the
// high-confidence override.
func skippedSuspicion() SuspicionResult {
	return SuspicionResult{Skipped: true}
}
