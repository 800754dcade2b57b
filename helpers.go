package ecoscan

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var errBadDataURL = errors.New("malformed data url")

// EncodeBase64 encodes bytes to base64 string.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// EncodeDataURL creates a data: URI from bytes and MIME type.
func EncodeDataURL(data []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// IsDataURL reports whether s looks like a data: URI.
func IsDataURL(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// DecodeDataURL parses a base64 data: URI and returns its payload and
// MIME type. Only base64 payloads are accepted.
func DecodeDataURL(s string) ([]byte, string, error) {
	if !IsDataURL(s) {
		return nil, "", errBadDataURL
	}
	meta, payload, ok := strings.Cut(s[5:], ",")
	if !ok {
		return nil, "", errBadDataURL
	}

	params := strings.Split(meta, ";")
	mimeType := strings.TrimSpace(params[0])
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}
	if !isBase64 {
		return nil, "", fmt.Errorf("%w: payload is not base64", errBadDataURL)
	}

	data, err := DecodeBase64(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", errBadDataURL, err)
	}
	return data, mimeType, nil
}

// DecodeBase64 decodes standard or URL-safe base64, with or without
// padding, ignoring surrounding whitespace.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		if data, err := enc.DecodeString(s); err == nil {
			return data, nil
		}
	}
	return nil, errors.New("invalid base64")
}
