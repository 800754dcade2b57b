package ecoscan

import (
	"fmt"
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Detector tuning. Areas and ratios are relative to the working image,
// which is downscaled to patternMaxDim on its longest side.
const (
	patternMaxDim   = 800
	glyphJoinRadius = 2

	largeObjectMinRatio = 0.2
	largeObjectCenterLo = 0.3
	largeObjectCenterHi = 0.7
	largeObjectMinAR    = 0.2
	largeObjectMaxAR    = 5.0
	largeObjectMinFill  = 0.3
	largeObjectPenalty  = 150 // confidence points per unit of area ratio

	textMaxAreaRatio = 0.01
	textMinPixels    = 12
	textMaxPixels    = 6000
	textWideAspect   = 2.0
	textTallAspect   = 0.5

	rowMinElements   = 4
	rowMinTolerance  = 3.0
	rowToleranceFrac = 0.6
	rowSpacingMaxCV  = 0.35
	rowSpacingMinRow = 3

	lineVoteRatio = 0.4

	rectMinAreaRatio = 0.01
	rectMaxAreaRatio = 0.9
	rectMinSide      = 10
	rectApproxEps    = 0.02
)

// TextAnalysis is the text-layout half of a PatternReport.
type TextAnalysis struct {
	HasTextPattern         bool     `json:"has_text_pattern"`
	Confidence             float64  `json:"confidence"`
	TextContours           int      `json:"text_contours"`
	TextLikeContours       int      `json:"text_like_contours"`
	LineClusters           int      `json:"line_clusters"`
	ConsistentSpacing      bool     `json:"consistent_spacing"`
	LargeObjectDetected    bool     `json:"large_object_detected"`
	PhysicalObjectEvidence []string `json:"physical_object_evidence,omitempty"`
}

// VisualPatterns is the line/box half of a PatternReport.
type VisualPatterns struct {
	DocumentPatternScore  float64  `json:"document_pattern_score"`
	HasDocumentPatterns   bool     `json:"has_document_patterns"`
	Lines                 int      `json:"lines"`
	Rectangles            int      `json:"rectangles"`
	Evidence              []string `json:"evidence,omitempty"`
	HasLargeCentralObject bool     `json:"has_large_central_object"`
	LargeObjectRatio      float64  `json:"large_object_ratio"`
}

// PatternReport is the pixel-level evidence that an image shows flat
// printed content.
type PatternReport struct {
	Text   TextAnalysis   `json:"text_analysis"`
	Visual VisualPatterns `json:"visual_patterns"`
}

// DetectPatterns binarises img, groups ink into word-sized components and
// scores text rows, straight lines and boxed regions. A large object in
// the middle of the frame is excluded from the counts and lowers both
// scores in proportion to its size.
func DetectPatterns(img image.Image) (PatternReport, error) {
	if img == nil {
		return PatternReport{}, stageError(StagePatterns, ErrPipeline, ErrNoImage)
	}
	return detectPatterns(img)
}

func detectPatterns(img image.Image) (rep PatternReport, err error) {
	defer recoverStage(StagePatterns, ErrPipeline, &err)

	if img.Bounds().Empty() {
		return rep, stageError(StagePatterns, ErrPipeline, fmt.Errorf("empty bounds %v", img.Bounds()))
	}

	g := toGray(downscale(img, patternMaxDim))
	w, h := g.w, g.h
	imgArea := float64(w * h)

	mask := dilateHorizontal(binarize(g), w, h, glyphJoinRadius)
	labels, comps := labelComponents(mask, w, h)

	large := largeCentralObject(comps, w, h)
	var ratio float64
	if large != nil {
		ratio = float64(large.boxArea()) / imgArea
	}

	var words []*component
	rects := 0
	for i := range comps {
		c := &comps[i]
		if c == large {
			continue
		}
		if isTextLike(c, imgArea) {
			words = append(words, c)
			continue
		}
		if isRectangle(labels, w, h, c, imgArea) {
			rects++
		}
	}

	rows, consistent := clusterRows(words)
	lines := houghLines(sobelEdges(g), w, h, lineVoteRatio*float64(min(w, h)))

	penalty := ratio * largeObjectPenalty

	text := TextAnalysis{
		TextContours:        len(comps),
		TextLikeContours:    len(words),
		LineClusters:        rows,
		ConsistentSpacing:   consistent,
		LargeObjectDetected: large != nil,
	}
	score := math.Min(40, float64(len(words))*1.5) +
		math.Min(35, float64(rows)*7) +
		math.Min(15, float64(lines)*1.5) +
		math.Min(10, float64(rects)*5)
	if consistent {
		score += 10
	}
	text.Confidence = clampPercent(score - penalty)
	text.HasTextPattern = text.Confidence >= TextPatternThreshold
	if large != nil {
		text.PhysicalObjectEvidence = []string{
			fmt.Sprintf("large central object covering %.0f%% of frame", ratio*100),
		}
	}

	visual := VisualPatterns{
		Lines:                 lines,
		Rectangles:            rects,
		HasLargeCentralObject: large != nil,
		LargeObjectRatio:      ratio,
	}
	visual.DocumentPatternScore = clampPercent(
		math.Min(40, float64(lines)*2) + math.Min(60, float64(rects)*15) - penalty)
	visual.HasDocumentPatterns = visual.DocumentPatternScore >= VisualPatternThreshold
	if lines > 0 {
		visual.Evidence = append(visual.Evidence, fmt.Sprintf("%d straight lines", lines))
	}
	if rects > 0 {
		visual.Evidence = append(visual.Evidence, fmt.Sprintf("%d rectangular regions", rects))
	}

	return PatternReport{Text: text, Visual: visual}, nil
}

// largeCentralObject returns the component with the biggest bounding box
// when it looks like a photographed object: big, centred, container-like
// proportions, reasonably solid and clear of the frame edges.
func largeCentralObject(comps []component, w, h int) *component {
	var best *component
	for i := range comps {
		if best == nil || comps[i].boxArea() > best.boxArea() {
			best = &comps[i]
		}
	}
	if best == nil {
		return nil
	}

	if float64(best.boxArea())/float64(w*h) <= largeObjectMinRatio {
		return nil
	}
	cx := float64(best.minX+best.maxX) / 2 / float64(w)
	cy := float64(best.minY+best.maxY) / 2 / float64(h)
	if cx < largeObjectCenterLo || cx > largeObjectCenterHi || cy < largeObjectCenterLo || cy > largeObjectCenterHi {
		return nil
	}
	if ar := best.aspect(); ar < largeObjectMinAR || ar > largeObjectMaxAR {
		return nil
	}
	if best.fill() < largeObjectMinFill {
		return nil
	}
	if best.minX == 0 || best.minY == 0 || best.maxX == w-1 || best.maxY == h-1 {
		return nil
	}
	return best
}

func isTextLike(c *component, imgArea float64) bool {
	area := c.boxArea()
	if float64(area)/imgArea >= textMaxAreaRatio || area < textMinPixels || area > textMaxPixels {
		return false
	}
	ar := c.aspect()
	return ar >= textWideAspect || ar <= textTallAspect
}

// isRectangle reports whether the outer boundary of c simplifies to a
// convex quadrilateral of plausible size.
func isRectangle(labels []int32, w, h int, c *component, imgArea float64) bool {
	ratio := float64(c.boxArea()) / imgArea
	if ratio < rectMinAreaRatio || ratio > rectMaxAreaRatio {
		return false
	}
	if c.width() < rectMinSide || c.height() < rectMinSide {
		return false
	}
	ring := traceBoundary(labels, w, h, c)
	if len(ring) < 4 {
		return false
	}
	poly := approxPolygon(ring, rectApproxEps*perimeter(ring))
	return isConvexQuad(poly)
}

// clusterRows groups words by vertical centre and returns the number of
// rows with at least rowMinElements members and whether their spacing is
// regular.
func clusterRows(words []*component) (int, bool) {
	if len(words) < rowMinElements {
		return 0, false
	}

	heights := make([]float64, len(words))
	centers := make([]float64, len(words))
	for i, c := range words {
		heights[i] = float64(c.height())
		centers[i] = float64(c.minY+c.maxY) / 2
	}
	sort.Float64s(heights)
	tol := math.Max(rowMinTolerance, rowToleranceFrac*heights[len(heights)/2])
	sort.Float64s(centers)

	var rowMeans []float64
	start := 0
	flush := func(end int) {
		if end-start >= rowMinElements {
			rowMeans = append(rowMeans, stat.Mean(centers[start:end], nil))
		}
		start = end
	}
	sum := centers[0]
	for i := 1; i < len(centers); i++ {
		mean := sum / float64(i-start)
		if centers[i]-mean > tol {
			flush(i)
			sum = 0
		}
		sum += centers[i]
	}
	flush(len(centers))

	if len(rowMeans) < rowSpacingMinRow {
		return len(rowMeans), false
	}
	gaps := make([]float64, len(rowMeans)-1)
	for i := range gaps {
		gaps[i] = rowMeans[i+1] - rowMeans[i]
	}
	mean, std := stat.MeanStdDev(gaps, nil)
	if mean <= 0 {
		return len(rowMeans), false
	}
	cv := std / mean
	if math.IsNaN(cv) {
		// Sample deviation of a single gap is undefined.
		cv = 0
	}
	return len(rowMeans), cv <= rowSpacingMaxCV
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
