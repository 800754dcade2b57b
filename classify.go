package ecoscan

import (
	"cmp"
	"context"
	"errors"
	"image"
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"
)

var (
	errNoClassifier     = errors.New("no classifier configured")
	errEmptyPredictions = errors.New("classifier returned no predictions")
)

// NormalizePredictions enforces the Classification invariants: labels
// trimmed and non-empty, confidences clamped to [0,100], sorted by
// non-increasing confidence (stable for ties), at most five entries.
func NormalizePredictions(preds []Prediction) Classification {
	out := make([]Prediction, 0, len(preds))
	for _, p := range preds {
		label := strings.TrimSpace(p.Label)
		if label == "" {
			continue
		}
		c := p.Confidence
		if math.IsNaN(c) {
			c = 0
		}
		out = append(out, Prediction{Label: label, Confidence: clampPercent(c)})
	}
	slices.SortStableFunc(out, func(a, b Prediction) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	if len(out) > maxPredictions {
		out = out[:maxPredictions]
	}
	return Classification{Predictions: out}
}

// classify calls the configured Classifier and normalizes its output.
// Any failure, including a panic or an empty result, is an
// ErrClassification.
func (cfg *Config) classify(ctx context.Context, img image.Image) (cls *Classification, err error) {
	defer recoverStage(StageClassify, ErrClassification, &err)

	if cfg.Classifier == nil {
		return nil, stageError(StageClassify, ErrClassification, errNoClassifier)
	}
	preds, err := cfg.Classifier.Classify(ctx, img)
	if err != nil {
		return nil, stageError(StageClassify, ErrClassification, err)
	}
	c := NormalizePredictions(preds)
	if len(c.Predictions) == 0 {
		return nil, stageError(StageClassify, ErrClassification, errEmptyPredictions)
	}

	top := c.Top()
	cfg.Logger.Debug("ecoscan: classification result",
		zap.String("label", top.Label),
		zap.Float64("confidence", top.Confidence),
		zap.Int("predictions", len(c.Predictions)))
	return &c, nil
}
