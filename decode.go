package ecoscan

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// maxDecodePixels guards against decompression bombs.
const maxDecodePixels = 50_000_000

// DecodeImage decodes gif, jpeg, png or webp bytes and returns the image
// with its format name. Failures wrap ErrDecode.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", stageError(StageDecode, ErrDecode, ErrNoImage)
	}

	ic, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", stageError(StageDecode, ErrDecode, err)
	}
	if ic.Width <= 0 || ic.Height <= 0 || ic.Width*ic.Height > maxDecodePixels {
		return nil, "", stageError(StageDecode, ErrDecode,
			fmt.Errorf("unsupported dimensions %dx%d", ic.Width, ic.Height))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", stageError(StageDecode, ErrDecode, err)
	}
	return img, format, nil
}
