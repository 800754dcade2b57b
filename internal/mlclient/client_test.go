package mlclient_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ecoscan "github.com/anatolykoptev/go-ecoscan"
	"github.com/anatolykoptev/go-ecoscan/internal/mlclient"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := range 240 {
		for x := range 320 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestClient_Classify(t *testing.T) {
	t.Parallel()

	var got mlclient.ClassifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classify", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(mlclient.ClassifyResponse{
			Predictions: []ecoscan.Prediction{
				{Label: "water_bottle", Confidence: 0.82},
				{Label: "pop_bottle", Confidence: 0.11},
			},
			ModelVersion: "test",
		})
	}))
	defer srv.Close()

	c := mlclient.NewClient(srv.URL, time.Second)
	preds, err := c.Classify(context.Background(), testImage())
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "water_bottle", preds[0].Label)
	assert.InDelta(t, 82.0, preds[0].Confidence, 1e-9)
	assert.InDelta(t, 11.0, preds[1].Confidence, 1e-9)

	assert.Equal(t, 5, got.TopK)
	raw, err := base64.StdEncoding.DecodeString(got.Image)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, mlclient.InputSize, cfg.Width)
	assert.Equal(t, mlclient.InputSize, cfg.Height)
}

func TestClient_ClassifyScale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		respScale    mlclient.Scale
		opts         []mlclient.Option
		wantTop      float64
		wantSecond   float64
		wantScaleErr bool
	}{
		{name: "declared probability", respScale: mlclient.ScaleProbability, wantTop: 95, wantSecond: 70},
		{name: "declared percent keeps small values", respScale: mlclient.ScalePercent, wantTop: 0.95, wantSecond: 0.7},
		{name: "omitted uses probability", wantTop: 95, wantSecond: 70},
		{
			name:       "omitted uses configured percent",
			opts:       []mlclient.Option{mlclient.WithDefaultScale(mlclient.ScalePercent)},
			wantTop:    0.95,
			wantSecond: 0.7,
		},
		{
			name:       "declared scale wins over configured default",
			respScale:  mlclient.ScaleProbability,
			opts:       []mlclient.Option{mlclient.WithDefaultScale(mlclient.ScalePercent)},
			wantTop:    95,
			wantSecond: 70,
		},
		{name: "unknown scale", respScale: "logit", wantScaleErr: true},
	}

	for i := range tests {
		test := &tests[i]
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(mlclient.ClassifyResponse{
					Predictions: []ecoscan.Prediction{
						{Label: "water_bottle", Confidence: 0.95},
						{Label: "pop_bottle", Confidence: 0.7},
					},
					Scale: test.respScale,
				})
			}))
			defer srv.Close()

			preds, err := mlclient.NewClient(srv.URL, time.Second, test.opts...).Classify(context.Background(), testImage())
			if test.wantScaleErr {
				require.ErrorIs(t, err, mlclient.ErrUnknownScale)
				return
			}
			require.NoError(t, err)
			require.Len(t, preds, 2)
			assert.InDelta(t, test.wantTop, preds[0].Confidence, 1e-9)
			assert.InDelta(t, test.wantSecond, preds[1].Confidence, 1e-9)
		})
	}
}

func TestParseScale(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]mlclient.Scale{
		"":            mlclient.ScaleProbability,
		"probability": mlclient.ScaleProbability,
		"percent":     mlclient.ScalePercent,
	} {
		got, err := mlclient.ParseScale(in)
		require.NoError(t, err, "ParseScale(%q)", in)
		assert.Equal(t, want, got)
	}

	_, err := mlclient.ParseScale("fraction")
	require.ErrorIs(t, err, mlclient.ErrUnknownScale)
}

func TestClient_ClassifyErrors(t *testing.T) {
	t.Parallel()

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := mlclient.NewClient(srv.URL, time.Second).Classify(context.Background(), testImage())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		_, err := mlclient.NewClient(srv.URL, time.Second).Classify(context.Background(), testImage())
		require.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := mlclient.NewClient(url, time.Second).Classify(context.Background(), testImage())
		require.ErrorIs(t, err, mlclient.ErrUnavailable)
	})

	t.Run("empty image", func(t *testing.T) {
		t.Parallel()
		_, err := mlclient.NewClient("http://127.0.0.1:1", time.Second).Classify(context.Background(), image.NewRGBA(image.Rectangle{}))
		require.Error(t, err)
	})
}

func TestClient_Health(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(mlclient.HealthResponse{Status: "ok", Model: "mobilenet_v2", ModelVersion: "1"})
	}))
	defer srv.Close()

	hr, err := mlclient.NewClient(srv.URL, time.Second).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", hr.Status)
	assert.Equal(t, "mobilenet_v2", hr.Model)
}

func TestClient_HealthUnhealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := mlclient.NewClient(srv.URL, time.Second).Health(context.Background())
	require.Error(t, err)
}

func TestClient_ImplementsClassifier(t *testing.T) {
	t.Parallel()

	var _ ecoscan.Classifier = mlclient.NewClient("http://localhost", 0)
}
