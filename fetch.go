package ecoscan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Source is a fetched or submitted image before decoding.
type Source struct {
	Data     []byte
	MIMEType string
	URL      string // empty for inline submissions
}

var errTooLarge = errors.New("image exceeds size limit")

// Fetch downloads the image at rawURL. It tries cfg.StealthClient first
// (if set) and falls back to cfg.HTTPClient. The request is bounded by
// a single FetchTimeout shared by both attempts; the body must be an
// image/* type and no larger than MaxImageBytes. Failures wrap ErrFetch
// and are never retried.
func (cfg *Config) Fetch(ctx context.Context, rawURL string) (*Source, error) {
	c := cfg.defaults()
	return c.fetch(ctx, rawURL)
}

func (cfg *Config) fetch(ctx context.Context, rawURL string) (*Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, stageError(StageFetch, ErrFetch, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, stageError(StageFetch, ErrFetch, fmt.Errorf("unsupported url scheme %q", u.Scheme))
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	if cfg.StealthClient != nil {
		src, err := cfg.fetchWith(ctx, cfg.StealthClient, rawURL)
		if err == nil {
			return src, nil
		}
		cfg.Logger.Debug("ecoscan: stealth fetch failed, falling back",
			zap.String("url", rawURL), zap.Error(err))
	}

	src, err := cfg.fetchWith(ctx, cfg.HTTPClient, rawURL)
	if err != nil {
		return nil, stageError(StageFetch, ErrFetch, err)
	}
	return src, nil
}

func (cfg *Config) fetchWith(ctx context.Context, client *http.Client, imageURL string) (*Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := client.Do(req) //nolint:gosec // G704: URL is caller-supplied
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	// Strip MIME parameters: "image/jpeg; charset=utf-8" → "image/jpeg"
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("content type %q is not an image", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, cfg.MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > cfg.MaxImageBytes {
		return nil, errTooLarge
	}
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}

	return &Source{Data: data, MIMEType: ct, URL: imageURL}, nil
}
