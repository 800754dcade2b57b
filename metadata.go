package ecoscan

import (
	"bytes"
	"strings"

	"github.com/bep/imagemeta"
)

// ImageMetadata holds the EXIF and XMP fields that tell a camera photo
// apart from a screen capture or an exported graphic.
type ImageMetadata struct {
	Format      string `json:"format,omitempty"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	Software    string `json:"software,omitempty"`
	UserComment string `json:"user_comment,omitempty"`
	Description string `json:"description,omitempty"`
	CreatorTool string `json:"creator_tool,omitempty"`
	CapturedAt  string `json:"captured_at,omitempty"`
}

// HasCamera reports whether the image carries a camera make or model.
func (m *ImageMetadata) HasCamera() bool {
	return m != nil && (m.Make != "" || m.Model != "")
}

// screenshotToolKeywords are substrings of Software/CreatorTool/comment
// values written by screen capture tools.
var screenshotToolKeywords = []string{
	"screenshot",
	"screen shot",
	"screencapture",
	"snipping tool",
	"snip & sketch",
	"greenshot",
	"lightshot",
	"sharex",
	"flameshot",
	"spectacle",
}

// ScreenshotIndicator returns a short description of the metadata evidence
// that the image is a screen capture, or "" when there is none. Only a
// capture tool named in the tags counts; a missing camera make does not.
func ScreenshotIndicator(meta *ImageMetadata) string {
	if meta == nil {
		return ""
	}
	for _, f := range []string{meta.Software, meta.CreatorTool, meta.UserComment, meta.Description} {
		if f == "" {
			continue
		}
		lower := strings.ToLower(f)
		for _, kw := range screenshotToolKeywords {
			if strings.Contains(lower, kw) {
				return "capture tool in metadata: " + f
			}
		}
	}
	return ""
}

// wantedTags maps (source, tag-name) → true for every tag we care about.
var wantedTags = map[imagemeta.Source]map[string]bool{
	imagemeta.EXIF: {
		"Make":             true,
		"Model":            true,
		"Software":         true,
		"UserComment":      true,
		"ImageDescription": true,
		"DateTimeOriginal": true,
	},
	imagemeta.XMP: {
		"CreatorTool": true,
	},
}

var metaFormats = map[string]imagemeta.ImageFormat{
	"jpeg": imagemeta.JPEG,
	"png":  imagemeta.PNG,
	"webp": imagemeta.WebP,
}

// ExtractImageMetadata parses EXIF/XMP metadata from raw image bytes.
// format is the name reported by image.Decode. Returns nil when format is
// unknown and nothing could be read. Never returns an error.
func ExtractImageMetadata(data []byte, format string) *ImageMetadata {
	if len(data) == 0 {
		return nil
	}

	meta := &ImageMetadata{Format: format}
	imf, ok := metaFormats[format]
	if !ok {
		if format == "" {
			return nil
		}
		return meta
	}

	// Decode errors are ignored: tags read before the failure are kept and
	// the format alone drives the png heuristic.
	_, _ = imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: imf,
		Sources:     imagemeta.EXIF | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if tags, ok := wantedTags[ti.Source]; ok {
				return tags[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			setMetadataTag(meta, ti)
			return nil
		},
	})
	return meta
}

func setMetadataTag(meta *ImageMetadata, ti imagemeta.TagInfo) {
	s := strings.TrimSpace(tagValueString(ti.Value))
	if s == "" {
		return
	}
	switch ti.Tag {
	case "Make":
		meta.Make = s
	case "Model":
		meta.Model = s
	case "Software":
		meta.Software = s
	case "UserComment":
		meta.UserComment = s
	case "ImageDescription":
		meta.Description = s
	case "DateTimeOriginal":
		meta.CapturedAt = s
	case "CreatorTool":
		meta.CreatorTool = s
	}
}

// tagValueString extracts a string from a tag value.
// XMP values may be string or []string (from altList/seqList).
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return strings.TrimRight(string(val), "\x00")
	case []string:
		if len(val) > 0 {
			return val[0]
		}
		return ""
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}
