package ecoscan

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/stat"
)

// QualityStatus summarises pixel-level image quality.
type QualityStatus string

const (
	QualityGood       QualityStatus = "good"
	QualityBlurry     QualityStatus = "blurry"
	QualityLowQuality QualityStatus = "low_quality"
	QualityUsable     QualityStatus = "usable"
)

// Quality issue messages, in the order they are reported.
const (
	IssueTooSmall  = "Image too small"
	IssueTooBlurry = "Image too blurry"
	IssueTooDark   = "Image too dark"
	IssueTooBright = "Image too bright"
	IssueDegraded  = "Quality check unavailable"
)

// qualityMaxDim bounds the working resolution for sharpness and
// brightness statistics.
const qualityMaxDim = 1024

// QualityMetrics are the raw measurements behind a QualityVerdict.
// Width and Height are of the original image.
type QualityMetrics struct {
	Sharpness  float64 `json:"sharpness"`
	Brightness float64 `json:"brightness"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// QualityVerdict is the quality assessor's output.
type QualityVerdict struct {
	Score   float64        `json:"score"`
	Status  QualityStatus  `json:"status"`
	Issues  []string       `json:"issues,omitempty"`
	Metrics QualityMetrics `json:"metrics"`

	TooSmall  bool `json:"too_small,omitempty"`
	Blurry    bool `json:"blurry,omitempty"`
	TooDark   bool `json:"too_dark,omitempty"`
	TooBright bool `json:"too_bright,omitempty"`

	// Degraded is set when statistics could not be computed.
	Degraded bool `json:"degraded,omitempty"`
}

// Rejects reports whether the verdict fails the quality gate under p.
// Low-quality images always fail; blur and exposure problems fail only
// when the policy says so. A degraded verdict never fails.
func (q *QualityVerdict) Rejects(p Policy) bool {
	if q == nil || q.Degraded {
		return false
	}
	switch {
	case q.Status == QualityLowQuality:
		return true
	case q.Blurry && p.RejectBlurry:
		return true
	case (q.TooDark || q.TooBright) && p.RejectExposure:
		return true
	}
	return false
}

// degradedQuality is the neutral verdict returned when pixel statistics
// are unavailable.
func degradedQuality(width, height int) QualityVerdict {
	return QualityVerdict{
		Score:    MinQualityScore,
		Status:   QualityUsable,
		Issues:   []string{IssueDegraded},
		Metrics:  QualityMetrics{Width: width, Height: height},
		Degraded: true,
	}
}

// AssessQuality measures size, sharpness (variance of the Laplacian) and
// brightness (mean gray level) and scores them against p.
func AssessQuality(img image.Image, p Policy) (QualityVerdict, error) {
	if img == nil {
		return degradedQuality(0, 0), stageError(StageQuality, ErrQualityCheck, ErrNoImage)
	}
	b := img.Bounds()
	qv, err := assessQuality(img, p)
	if err != nil {
		return degradedQuality(b.Dx(), b.Dy()), err
	}
	return qv, nil
}

func assessQuality(img image.Image, p Policy) (qv QualityVerdict, err error) {
	defer recoverStage(StageQuality, ErrQualityCheck, &err)

	b := img.Bounds()
	qv.Metrics.Width, qv.Metrics.Height = b.Dx(), b.Dy()
	if b.Empty() {
		return qv, stageError(StageQuality, ErrQualityCheck, fmt.Errorf("empty bounds %v", b))
	}

	g := toGray(downscale(img, qualityMaxDim))
	pix := make([]float64, len(g.pix))
	for i, v := range g.pix {
		pix[i] = float64(v)
	}
	qv.Metrics.Brightness = stat.Mean(pix, nil)
	_, qv.Metrics.Sharpness = stat.PopMeanVariance(laplacian(g), nil)

	score := 100.0
	if qv.Metrics.Width < p.MinDimension || qv.Metrics.Height < p.MinDimension {
		qv.TooSmall = true
		qv.Issues = append(qv.Issues, IssueTooSmall)
		score -= penaltySize
	}
	if qv.Metrics.Sharpness < p.BlurThreshold {
		qv.Blurry = true
		qv.Issues = append(qv.Issues, IssueTooBlurry)
		score -= penaltyBlur
	}
	switch {
	case qv.Metrics.Brightness < p.DarkThreshold:
		qv.TooDark = true
		qv.Issues = append(qv.Issues, IssueTooDark)
		score -= penaltyExposure
	case qv.Metrics.Brightness > p.BrightThreshold:
		qv.TooBright = true
		qv.Issues = append(qv.Issues, IssueTooBright)
		score -= penaltyExposure
	}
	qv.Score = max(0, score)

	switch {
	case qv.TooSmall || qv.Score < MinQualityScore:
		qv.Status = QualityLowQuality
	case qv.Blurry:
		qv.Status = QualityBlurry
	case len(qv.Issues) > 0:
		qv.Status = QualityUsable
	default:
		qv.Status = QualityGood
	}
	return qv, nil
}
