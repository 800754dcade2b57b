// Package config loads the ecoscand daemon configuration from a YAML file,
// .env files and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	ecoscan "github.com/anatolykoptev/go-ecoscan"
	"github.com/anatolykoptev/go-ecoscan/internal/mlclient"
)

// Defaults.
const (
	DefaultPort              = 5001
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 120 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultRateLimitRPS      = 10
	DefaultRateLimitBurst    = 20
	DefaultClassifierURL     = "http://localhost:8090"
	DefaultClassifierTimeout = 20 * time.Second
	DefaultLogLevel          = "info"
)

// Config is the root daemon configuration.
type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Classifier ClassifierConfig          `yaml:"classifier"`
	Fetch      FetchConfig               `yaml:"fetch"`
	Batch      BatchConfig               `yaml:"batch"`
	Logging    LoggingConfig             `yaml:"logging"`
	Policy     map[string]PolicyOverride `yaml:"policy"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port"             env:"ECOSCAN_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"ECOSCAN_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"ECOSCAN_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"ECOSCAN_SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"   env:"ECOSCAN_RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"ECOSCAN_RATE_LIMIT_BURST"`

	// AdminToken unlocks admin diagnostics via the X-Admin-Token header.
	// Empty disables them.
	AdminToken string `yaml:"admin_token" env:"ECOSCAN_ADMIN_TOKEN"`
}

// ClassifierConfig points at the image classifier sidecar.
type ClassifierConfig struct {
	URL     string        `yaml:"url"     env:"ECOSCAN_CLASSIFIER_URL"`
	Timeout time.Duration `yaml:"timeout" env:"ECOSCAN_CLASSIFIER_TIMEOUT"`

	// Scale is the confidence unit assumed when a response omits it:
	// "probability" or "percent".
	Scale string `yaml:"scale" env:"ECOSCAN_CLASSIFIER_SCALE"`
}

// FetchConfig bounds image downloads.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"    env:"ECOSCAN_FETCH_TIMEOUT"`
	MaxBytes  int64         `yaml:"max_bytes"  env:"ECOSCAN_FETCH_MAX_BYTES"`
	UserAgent string        `yaml:"user_agent" env:"ECOSCAN_FETCH_USER_AGENT"`
}

// BatchConfig bounds batch requests.
type BatchConfig struct {
	MaxSize     int `yaml:"max_size"    env:"ECOSCAN_BATCH_MAX_SIZE"`
	Concurrency int `yaml:"concurrency" env:"ECOSCAN_BATCH_CONCURRENCY"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string   `yaml:"level"        env:"ECOSCAN_LOG_LEVEL"`
	Development bool     `yaml:"development"  env:"ECOSCAN_LOG_DEVELOPMENT"`
	OutputPaths []string `yaml:"output_paths" env:"ECOSCAN_LOG_OUTPUT_PATHS"`
}

// PolicyOverride adjusts the quality thresholds of one request context.
// Zero values keep the built-in threshold.
type PolicyOverride struct {
	MinDimension    int     `yaml:"min_dimension"`
	BlurThreshold   float64 `yaml:"blur_threshold"`
	DarkThreshold   float64 `yaml:"dark_threshold"`
	BrightThreshold float64 `yaml:"bright_threshold"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = DefaultRateLimitRPS
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = DefaultRateLimitBurst
	}
	if c.Classifier.URL == "" {
		c.Classifier.URL = DefaultClassifierURL
	}
	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = DefaultClassifierTimeout
	}
	if c.Classifier.Scale == "" {
		c.Classifier.Scale = string(mlclient.ScaleProbability)
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = ecoscan.DefaultFetchTimeout
	}
	if c.Fetch.MaxBytes == 0 {
		c.Fetch.MaxBytes = ecoscan.DefaultMaxImageBytes
	}
	if c.Batch.MaxSize == 0 {
		c.Batch.MaxSize = ecoscan.DefaultMaxBatchSize
	}
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = ecoscan.DefaultBatchConcurrency
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the loaded configuration and reports every problem.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ValidationError{Field: "server.port", Message: "must be between 1 and 65535"})
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, &ValidationError{Field: "server.rate_limit", Message: "must not be negative"})
	}
	if u, err := url.Parse(c.Classifier.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, &ValidationError{Field: "classifier.url", Message: "must be an absolute URL"})
	}
	if _, err := mlclient.ParseScale(c.Classifier.Scale); err != nil {
		errs = append(errs, &ValidationError{Field: "classifier.scale", Message: "must be probability or percent"})
	}
	if c.Batch.MaxSize < 1 || c.Batch.MaxSize > ecoscan.DefaultMaxBatchSize {
		errs = append(errs, &ValidationError{
			Field:   "batch.max_size",
			Message: fmt.Sprintf("must be between 1 and %d", ecoscan.DefaultMaxBatchSize),
		})
	}
	if c.Batch.Concurrency < 1 {
		errs = append(errs, &ValidationError{Field: "batch.concurrency", Message: "must be positive"})
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error"})
	}
	for name := range c.Policy {
		if ecoscan.ParseRequestContext(name) != ecoscan.RequestContext(name) {
			errs = append(errs, &ValidationError{Field: "policy." + name, Message: "unknown request context"})
		}
	}
	return errors.Join(errs...)
}

// Policies merges the configured overrides into the built-in policy table.
func (c *Config) Policies() map[ecoscan.RequestContext]ecoscan.Policy {
	out := make(map[ecoscan.RequestContext]ecoscan.Policy, 3)
	for _, rc := range []ecoscan.RequestContext{ecoscan.ContextMarketplace, ecoscan.ContextProfile, ecoscan.ContextPost} {
		p := ecoscan.DefaultPolicy(rc)
		if o, ok := c.Policy[string(rc)]; ok {
			if o.MinDimension > 0 {
				p.MinDimension = o.MinDimension
			}
			if o.BlurThreshold > 0 {
				p.BlurThreshold = o.BlurThreshold
			}
			if o.DarkThreshold > 0 {
				p.DarkThreshold = o.DarkThreshold
			}
			if o.BrightThreshold > 0 {
				p.BrightThreshold = o.BrightThreshold
			}
		}
		out[rc] = p
	}
	return out
}

// LibraryConfig maps daemon settings onto the pipeline Config. The caller
// supplies the classifier, logger and callbacks.
func (c *Config) LibraryConfig() ecoscan.Config {
	return ecoscan.Config{
		UserAgent:        c.Fetch.UserAgent,
		FetchTimeout:     c.Fetch.Timeout,
		MaxImageBytes:    c.Fetch.MaxBytes,
		MaxBatchSize:     c.Batch.MaxSize,
		BatchConcurrency: c.Batch.Concurrency,
		Policies:         c.Policies(),
	}
}
