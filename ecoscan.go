package ecoscan

import (
	"context"
	"image"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultFetchTimeout bounds a single image download.
	DefaultFetchTimeout = 30 * time.Second
	// DefaultMaxImageBytes caps the downloaded body size.
	DefaultMaxImageBytes = 15 << 20
	// DefaultMaxBatchSize is the hard cap on images per batch call.
	DefaultMaxBatchSize = 10
	// DefaultBatchConcurrency bounds parallel pipeline runs inside one batch.
	DefaultBatchConcurrency = 4

	defaultUserAgent = "Mozilla/5.0 (compatible; go-ecoscan/1.0)"
)

// Classifier abstracts the pretrained image classifier. Implementations must be
// safe for concurrent use and return up to five ranked predictions from a
// closed label vocabulary.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) ([]Prediction, error)
}

// Config holds all dependencies injected by the consumer. A zero Config is
// usable except for Classifier, which Analyze requires.
type Config struct {
	Classifier    Classifier   // required
	StealthClient *http.Client // optional: tried first for downloads
	HTTPClient    *http.Client // optional: default http client (nil = http.DefaultClient)
	Logger        *zap.Logger  // optional (nil = no logging)
	UserAgent     string       // default: "Mozilla/5.0 (compatible; go-ecoscan/1.0)"

	FetchTimeout     time.Duration // default: DefaultFetchTimeout
	MaxImageBytes    int64         // default: DefaultMaxImageBytes
	MaxBatchSize     int           // default: DefaultMaxBatchSize
	BatchConcurrency int           // default: DefaultBatchConcurrency

	// Policies overrides the built-in policy table per request context.
	// Contexts missing from the map use DefaultPolicy.
	Policies map[RequestContext]Policy

	// Optional callbacks for metrics/logging.
	OnVerdict      func(VerdictEvent)
	OnStageFailure func(stage string, err error)
	OnBatch        func(size int)
	OnPanic        func(tag string, r any)
}

// VerdictEvent is emitted once per analyzed image.
type VerdictEvent struct {
	Context  RequestContext
	Status   Status
	Category string
	Duration time.Duration
}

// defaults returns a copy of cfg with zero-value fields filled in.
// The receiver is never mutated so a shared Config stays race-free.
func (cfg *Config) defaults() Config {
	c := *cfg
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = DefaultMaxImageBytes
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = DefaultBatchConcurrency
	}
	return c
}

// policyFor resolves the policy for a request context.
func (cfg *Config) policyFor(rc RequestContext) Policy {
	if p, ok := cfg.Policies[rc]; ok {
		return p
	}
	return DefaultPolicy(rc)
}

func (cfg *Config) stageFailed(stage string, err error) {
	cfg.Logger.Warn("ecoscan: stage degraded", zap.String("stage", stage), zap.Error(err))
	if cfg.OnStageFailure != nil {
		cfg.OnStageFailure(stage, err)
	}
}
