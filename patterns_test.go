package ecoscan

import (
	"errors"
	"testing"
)

func TestDetectPatterns_PrintedPage(t *testing.T) {
	t.Parallel()

	rep, err := DetectPatterns(printedPage())
	if err != nil {
		t.Fatalf("DetectPatterns: %v", err)
	}
	txt := rep.Text
	if txt.TextLikeContours != 55 {
		t.Errorf("TextLikeContours = %d, want 55", txt.TextLikeContours)
	}
	if txt.LineClusters != 5 {
		t.Errorf("LineClusters = %d, want 5", txt.LineClusters)
	}
	if !txt.ConsistentSpacing {
		t.Error("ConsistentSpacing = false, want true for evenly spaced rows")
	}
	if txt.LargeObjectDetected {
		t.Error("LargeObjectDetected = true on a plain page")
	}
	if !txt.HasTextPattern || txt.Confidence < 85 {
		t.Errorf("text confidence = %.1f (has=%v), want a strong text pattern", txt.Confidence, txt.HasTextPattern)
	}
	if rep.Visual.Lines == 0 {
		t.Error("Lines = 0, want the text baselines to register")
	}
}

func TestDetectPatterns_LargeObjectPenalty(t *testing.T) {
	t.Parallel()

	plain, err := DetectPatterns(printedPage())
	if err != nil {
		t.Fatalf("DetectPatterns(page): %v", err)
	}
	withBottle, err := DetectPatterns(pageWithBottle())
	if err != nil {
		t.Fatalf("DetectPatterns(bottle): %v", err)
	}

	if !withBottle.Visual.HasLargeCentralObject {
		t.Fatal("HasLargeCentralObject = false, want bottle detected")
	}
	if r := withBottle.Visual.LargeObjectRatio; r < 0.2 || r > 0.35 {
		t.Errorf("LargeObjectRatio = %.3f, want between 0.2 and 0.35", r)
	}
	if len(withBottle.Text.PhysicalObjectEvidence) == 0 {
		t.Error("PhysicalObjectEvidence is empty")
	}
	if withBottle.Text.TextLikeContours != plain.Text.TextLikeContours {
		t.Errorf("TextLikeContours = %d, want %d (object excluded from counts)",
			withBottle.Text.TextLikeContours, plain.Text.TextLikeContours)
	}
	if withBottle.Text.Confidence >= plain.Text.Confidence {
		t.Errorf("confidence with object %.1f, want below plain page %.1f",
			withBottle.Text.Confidence, plain.Text.Confidence)
	}
	if withBottle.Text.HasTextPattern {
		t.Errorf("HasTextPattern = true at %.1f, want the object penalty to clear it", withBottle.Text.Confidence)
	}
}

func TestDetectPatterns_Checkerboard(t *testing.T) {
	t.Parallel()

	rep, err := DetectPatterns(checkerboard(200, 200, 10))
	if err != nil {
		t.Fatalf("DetectPatterns: %v", err)
	}
	if rep.Text.HasTextPattern {
		t.Errorf("HasTextPattern = true (%.1f), want false", rep.Text.Confidence)
	}
	if rep.Visual.HasDocumentPatterns {
		t.Errorf("HasDocumentPatterns = true (%.1f), want false", rep.Visual.DocumentPatternScore)
	}
	if rep.Text.TextLikeContours != 0 {
		t.Errorf("TextLikeContours = %d, want 0", rep.Text.TextLikeContours)
	}
}

func TestDetectPatterns_BlankImage(t *testing.T) {
	t.Parallel()

	rep, err := DetectPatterns(uniform(300, 300, 200))
	if err != nil {
		t.Fatalf("DetectPatterns: %v", err)
	}
	if rep.Text.Confidence != 0 || rep.Visual.DocumentPatternScore != 0 {
		t.Errorf("scores = %.1f/%.1f, want 0/0", rep.Text.Confidence, rep.Visual.DocumentPatternScore)
	}
}

func TestDetectPatterns_NilImage(t *testing.T) {
	t.Parallel()

	if _, err := DetectPatterns(nil); !errors.Is(err, ErrNoImage) {
		t.Errorf("err = %v, want ErrNoImage", err)
	}
}

func TestClusterRows(t *testing.T) {
	t.Parallel()

	row := func(y, n int) []*component {
		out := make([]*component, n)
		for i := range out {
			out[i] = &component{minX: i * 50, maxX: i*50 + 40, minY: y, maxY: y + 5}
		}
		return out
	}

	tests := []struct {
		name           string
		words          []*component
		wantRows       int
		wantConsistent bool
	}{
		{"too few words", row(10, 3), 0, false},
		{"single row", row(10, 6), 1, false},
		{
			name:           "even rows",
			words:          append(append(row(10, 5), row(30, 5)...), row(50, 5)...),
			wantRows:       3,
			wantConsistent: true,
		},
		{
			name:           "uneven rows",
			words:          append(append(row(10, 5), row(20, 5)...), row(120, 5)...),
			wantRows:       3,
			wantConsistent: false,
		},
		{
			name:     "short rows ignored",
			words:    append(append(row(10, 5), row(30, 2)...), row(50, 5)...),
			wantRows: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rows, consistent := clusterRows(tc.words)
			if rows != tc.wantRows || consistent != tc.wantConsistent {
				t.Errorf("clusterRows = (%d, %v), want (%d, %v)", rows, consistent, tc.wantRows, tc.wantConsistent)
			}
		})
	}
}
