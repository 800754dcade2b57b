package ecoscan

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync/atomic"
	"testing"
)

// mockClassifier returns fixed predictions and counts calls.
type mockClassifier struct {
	preds []Prediction
	err   error
	panic bool
	calls atomic.Int32
}

func (m *mockClassifier) Classify(_ context.Context, _ image.Image) ([]Prediction, error) {
	m.calls.Add(1)
	if m.panic {
		panic("classifier exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return append([]Prediction(nil), m.preds...), nil
}

var errModelDown = errors.New("model down")

func preds(pairs ...any) []Prediction {
	out := make([]Prediction, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		var conf float64
		switch v := pairs[i+1].(type) {
		case int:
			conf = float64(v)
		case float64:
			conf = v
		}
		out = append(out, Prediction{Label: pairs[i].(string), Confidence: conf})
	}
	return out
}

func classification(pairs ...any) *Classification {
	c := NormalizePredictions(preds(pairs...))
	return &c
}

// checkerboard is sharp, mid-exposure and free of document structure.
func checkerboard(w, h, cell int) *image.Gray {
	return tiles(w, h, cell, 60, 190)
}

func tiles(w, h, cell int, lo, hi uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := lo
			if (x/cell+y/cell)%2 == 0 {
				v = hi
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func uniform(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func fillRect(img *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

// printedPage draws five evenly spaced rows of eleven word blocks on white.
func printedPage() *image.Gray {
	img := uniform(600, 600, 255)
	for row := range 5 {
		y := 20 + row*20
		for word := range 11 {
			x := 20 + word*52
			fillRect(img, image.Rect(x, y, x+40, y+6), 0)
		}
	}
	return img
}

// pageWithBottle adds a solid bottle silhouette below the text rows.
func pageWithBottle() *image.Gray {
	img := printedPage()
	fillRect(img, image.Rect(190, 180, 411, 561), 0)
	fillRect(img, image.Rect(260, 120, 341, 180), 0)
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}
