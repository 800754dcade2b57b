package ecoscan

import (
	"context"
	"fmt"

	"github.com/corona10/goimagehash"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchResult is the verdict for one entry of a batch, at the entry's
// input position.
type BatchResult struct {
	Index    int     `json:"index"`
	ImageURL string  `json:"image_url,omitempty"`
	Verdict  Verdict `json:"verdict"`
}

// AnalyzeBatch runs Analyze for every request with at most
// BatchConcurrency pipelines in flight. One failing image never affects
// the others: its entry carries a StatusError verdict. Results keep input
// order. Perceptually identical images are linked through
// Details.DuplicateOf for admin requests; verdicts are not changed.
//
// The only error is ErrBatchTooLarge when len(reqs) exceeds MaxBatchSize.
func (cfg *Config) AnalyzeBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	c := cfg.defaults()
	if len(reqs) > c.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d images, limit %d", ErrBatchTooLarge, len(reqs), c.MaxBatchSize)
	}
	if c.OnBatch != nil {
		c.OnBatch(len(reqs))
	}

	runs := make([]analysis, len(reqs))
	var g errgroup.Group
	g.SetLimit(c.BatchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			runs[i] = c.analyze(ctx, req)
			return nil
		})
	}
	_ = g.Wait() // analyze never fails; errors live in the verdicts

	hashes := make([]*goimagehash.ImageHash, len(runs))
	for i, r := range runs {
		hashes[i] = r.hash
	}
	dups := markDuplicates(hashes)

	out := make([]BatchResult, len(reqs))
	failed := 0
	for i, r := range runs {
		v := r.verdict
		if dups[i] >= 0 && v.Details != nil {
			d := dups[i]
			v.Details.DuplicateOf = &d
		}
		if v.Status == StatusError {
			failed++
		}
		out[i] = BatchResult{Index: i, Verdict: finishVerdict(v, reqs[i].Admin)}
		if !IsDataURL(reqs[i].ImageURL) {
			out[i].ImageURL = reqs[i].ImageURL
		}
	}

	c.Logger.Info("ecoscan: batch complete",
		zap.Int("total", len(out)),
		zap.Int("failed", failed))
	return out, nil
}

// CountResults returns how many batch entries produced a decision and how
// many ended in an error verdict.
func CountResults(results []BatchResult) (success, failed int) {
	for _, r := range results {
		if r.Verdict.Status == StatusError {
			failed++
		} else {
			success++
		}
	}
	return success, failed
}
