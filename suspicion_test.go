package ecoscan

import (
	"slices"
	"testing"
)

func TestScreenSuspicion(t *testing.T) {
	t.Parallel()

	doc := &DocumentSignal{IsDocument: true, Method: MethodTextPattern, Confidence: 80}

	tests := []struct {
		name           string
		in             SuspicionInput
		wantScore      float64
		wantSuspicious bool
		wantFlags      []string
	}{
		{
			name: "clean material photo",
			in:   SuspicionInput{Classification: classification("plank", 70)},
		},
		{
			name:      "low confidence alone",
			in:        SuspicionInput{Classification: classification("plank", 15)},
			wantScore: 20,
			wantFlags: []string{FlagLowConfidence},
		},
		{
			name:           "inappropriate label",
			in:             SuspicionInput{Classification: classification("gun_case", 60)},
			wantScore:      50,
			wantSuspicious: true,
			wantFlags:      []string{FlagInappropriate},
		},
		{
			name:      "document signal",
			in:        SuspicionInput{Classification: classification("plank", 60), Document: doc},
			wantScore: 40,
			wantFlags: []string{FlagDocument},
		},
		{
			name:      "portrait label",
			in:        SuspicionInput{Classification: classification("bride", 60)},
			wantScore: 30,
			wantFlags: []string{FlagPortrait},
		},
		{
			name: "portrait ignored when people allowed",
			in:   SuspicionInput{Classification: classification("bride", 60), AllowPeople: true},
		},
		{
			name:      "screen label",
			in:        SuspicionInput{Classification: classification("web_site", 60)},
			wantScore: 25,
			wantFlags: []string{FlagScreen},
		},
		{
			name:      "screenshot url",
			in:        SuspicionInput{Classification: classification("plank", 60), ImageURL: "https://cdn.example.com/Screenshot_2024.png"},
			wantScore: 25,
			wantFlags: []string{FlagScreen},
		},
		{
			name: "capture tool metadata",
			in: SuspicionInput{
				Classification: classification("plank", 60),
				Metadata:       &ImageMetadata{Format: "jpeg", Software: "Greenshot 1.2"},
			},
			wantScore: 25,
			wantFlags: []string{FlagScreen},
		},
		{
			name: "screen counted once",
			in: SuspicionInput{
				Classification: classification("monitor", 60),
				Metadata:       &ImageMetadata{Format: "png"},
				ImageURL:       "https://example.com/screenshot.png",
			},
			wantScore: 25,
			wantFlags: []string{FlagScreen},
		},
		{
			name: "stacked flags",
			in: SuspicionInput{
				Classification: classification("monitor", 10),
				Document:       doc,
			},
			wantScore:      85,
			wantSuspicious: true,
			wantFlags:      []string{FlagLowConfidence, FlagDocument, FlagScreen},
		},
		{
			name:      "missing classification counts as low confidence",
			in:        SuspicionInput{},
			wantScore: 20,
			wantFlags: []string{FlagLowConfidence},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ScreenSuspicion(tc.in)
			if got.Score != tc.wantScore {
				t.Errorf("Score = %v, want %v", got.Score, tc.wantScore)
			}
			if got.IsSuspicious != tc.wantSuspicious {
				t.Errorf("IsSuspicious = %v, want %v", got.IsSuspicious, tc.wantSuspicious)
			}
			if !slices.Equal(got.Flags, tc.wantFlags) {
				t.Errorf("Flags = %v, want %v", got.Flags, tc.wantFlags)
			}
			if len(got.Evidence) != len(got.Flags) {
				t.Errorf("Evidence has %d entries for %d flags", len(got.Evidence), len(got.Flags))
			}
		})
	}
}

func TestSuspicionResult_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		res  *SuspicionResult
		want bool
	}{
		{nil, false},
		{&SuspicionResult{Score: 85, IsSuspicious: true}, true},
		{&SuspicionResult{Score: 70, IsSuspicious: true}, false},
		{&SuspicionResult{Score: 45, IsSuspicious: true}, false},
		{&SuspicionResult{Skipped: true}, false},
	}
	for _, tc := range tests {
		if got := tc.res.Rejects(); got != tc.want {
			t.Errorf("Rejects(%+v) = %v, want %v", tc.res, got, tc.want)
		}
	}
}

func TestIsScreenshotURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lower string
		want  bool
	}{
		{"https://example.com/screenshot-1.png", true},
		{"https://example.com/img/screen_shot.jpg", true},
		{"https://example.com/screencap/a.jpg", true},
		{"https://example.com/photos/bottle.jpg", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsScreenshotURL(tc.lower); got != tc.want {
			t.Errorf("IsScreenshotURL(%q) = %v, want %v", tc.lower, got, tc.want)
		}
	}
}
