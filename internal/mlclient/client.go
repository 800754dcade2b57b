// Package mlclient is the HTTP adapter for the image classifier sidecar.
// It implements ecoscan.Classifier.
package mlclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	ecoscan "github.com/anatolykoptev/go-ecoscan"
	xdraw "golang.org/x/image/draw"
)

const (
	defaultTimeout = 20 * time.Second
	// InputSize is the square input resolution the sidecar model expects.
	InputSize   = 224
	jpegQuality = 90
	topK        = 5
)

// ErrUnavailable indicates the classifier service is unreachable.
var ErrUnavailable = errors.New("classifier service unavailable")

// ErrUnknownScale is returned for a confidence scale other than
// ScaleProbability or ScalePercent.
var ErrUnknownScale = errors.New("unknown confidence scale")

// Scale names the unit of the confidences reported by the sidecar.
type Scale string

const (
	ScaleProbability Scale = "probability" // [0,1]
	ScalePercent     Scale = "percent"     // [0,100]
)

// ParseScale validates a configured scale name. An empty name is
// ScaleProbability.
func ParseScale(s string) (Scale, error) {
	switch Scale(s) {
	case "", ScaleProbability:
		return ScaleProbability, nil
	case ScalePercent:
		return ScalePercent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScale, s)
	}
}

// Client is an HTTP client for the classifier service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	scale      Scale
}

// Option configures a Client.
type Option func(*Client)

// WithDefaultScale sets the scale assumed when a response omits "scale".
func WithDefaultScale(s Scale) Option {
	return func(c *Client) { c.scale = s }
}

// ClassifyRequest is the request body for /classify.
type ClassifyRequest struct {
	Image string `json:"image"` // base64 JPEG, InputSize x InputSize
	TopK  int    `json:"top_k"`
}

// ClassifyResponse is the response body from /classify.
type ClassifyResponse struct {
	Predictions      []ecoscan.Prediction `json:"predictions"`
	Scale            Scale                `json:"scale,omitempty"`
	ModelVersion     string               `json:"model_version"`
	ProcessingTimeMs int64                `json:"processing_time_ms"`
}

// HealthResponse is the response body from /health.
type HealthResponse struct {
	Status       string `json:"status"`
	Model        string `json:"model"`
	ModelVersion string `json:"model_version"`
}

// NewClient creates a classifier client. A zero timeout uses the default.
// Responses without a "scale" field are read as ScaleProbability unless
// WithDefaultScale says otherwise.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		scale:      ScaleProbability,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify resizes img to the model input, sends it to /classify and
// returns the ranked predictions as percentages, converted from the scale
// the response declares.
func (c *Client) Classify(ctx context.Context, img image.Image) ([]ecoscan.Prediction, error) {
	payload, err := encodeInput(img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	reqBody, err := json.Marshal(ClassifyRequest{Image: payload, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier service returned %d", resp.StatusCode)
	}

	var result ClassifyResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}

	scale := result.Scale
	if scale == "" {
		scale = c.scale
	}
	return toPercent(result.Predictions, scale)
}

// Health checks if the classifier service is healthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier unhealthy: %d", resp.StatusCode)
	}

	var hr HealthResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&hr); decodeErr != nil {
		// A 200 without a body is still healthy.
		hr = HealthResponse{Status: "ok"}
	}
	return &hr, nil
}

// encodeInput scales img to InputSize x InputSize and returns it as a
// base64 JPEG.
func encodeInput(img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", errors.New("empty image")
	}
	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func toPercent(preds []ecoscan.Prediction, scale Scale) ([]ecoscan.Prediction, error) {
	var factor float64
	switch scale {
	case ScaleProbability:
		factor = 100
	case ScalePercent:
		factor = 1
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScale, scale)
	}
	out := make([]ecoscan.Prediction, len(preds))
	for i, p := range preds {
		out[i] = ecoscan.Prediction{Label: p.Label, Confidence: p.Confidence * factor}
	}
	return out, nil
}
