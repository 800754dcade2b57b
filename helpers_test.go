package ecoscan

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestEncodeDataURL_RoundTrip(t *testing.T) {
	t.Parallel()

	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	s := EncodeDataURL(payload, "image/png")
	if !IsDataURL(s) {
		t.Fatalf("IsDataURL(%q) = false", s)
	}
	data, mime, err := DecodeDataURL(s)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mime != "image/png" || !bytes.Equal(data, payload) {
		t.Errorf("got (%v, %q), want (%v, image/png)", data, mime, payload)
	}
}

func TestDecodeDataURL_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"not a data url", "https://example.com/a.png"},
		{"missing comma", "data:image/png;base64"},
		{"not base64", "data:text/plain,hello"},
		{"bad payload", "data:image/png;base64,@@@"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := DecodeDataURL(tc.in); !errors.Is(err, errBadDataURL) {
				t.Errorf("err = %v, want errBadDataURL", err)
			}
		})
	}
}

func TestDecodeBase64(t *testing.T) {
	t.Parallel()

	payload := []byte("\xfb\xff\xfe ecoscan")
	tests := []struct {
		name string
		in   string
	}{
		{"standard", base64.StdEncoding.EncodeToString(payload)},
		{"raw standard", base64.RawStdEncoding.EncodeToString(payload)},
		{"url safe", base64.URLEncoding.EncodeToString(payload)},
		{"raw url safe", base64.RawURLEncoding.EncodeToString(payload)},
		{"surrounding whitespace", "\n " + EncodeBase64(payload) + " \n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeBase64(tc.in)
			if err != nil {
				t.Fatalf("DecodeBase64: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("got %q, want %q", got, payload)
			}
		})
	}

	if _, err := DecodeBase64("not base64!"); err == nil {
		t.Error("expected error for invalid input")
	}
}

func TestIsDataURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"data:image/png;base64,AAAA", true},
		{"DATA:image/png;base64,AAAA", true},
		{"data", false},
		{"https://example.com", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsDataURL(tc.in); got != tc.want {
			t.Errorf("IsDataURL(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
