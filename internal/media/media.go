// Package media handles the binary side of canvas images: data URL
// codec, dimension measurement, and bounded downscaling.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Blob is a decoded data URL payload.
type Blob struct {
	MimeType string
	Data     []byte
}

// ParseDataURL decodes a base64 image data URL into its payload.
func ParseDataURL(dataURL string) (*Blob, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, fmt.Errorf("not a data URL")
	}
	comma := strings.IndexByte(dataURL, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URL: missing payload separator")
	}

	meta := dataURL[len("data:"):comma]
	mimeType, _, _ := strings.Cut(meta, ";")
	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data URL encoding: %q", meta)
	}

	data, err := base64.StdEncoding.DecodeString(dataURL[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	return &Blob{MimeType: mimeType, Data: data}, nil
}

// EncodeDataURL renders a payload back to a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// Measure returns the pixel dimensions of an encoded image. It reads
// only the header, never the full pixel data.
func Measure(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("measure image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Downscale re-encodes the image to fit within maxWidth x maxHeight,
// preserving aspect ratio. Images already within bounds are returned
// unchanged. The result is always PNG when scaling occurs.
func Downscale(data []byte, mimeType string, maxWidth, maxHeight int) ([]byte, string, error) {
	if maxWidth <= 0 && maxHeight <= 0 {
		return data, mimeType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	scale := 1.0
	if maxWidth > 0 && width > maxWidth {
		scale = float64(maxWidth) / float64(width)
	}
	if maxHeight > 0 && height > maxHeight {
		if s := float64(maxHeight) / float64(height); s < scale {
			scale = s
		}
	}
	if scale >= 1.0 {
		return data, mimeType, nil
	}

	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, "", fmt.Errorf("encode scaled image: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}

// ExtensionFor maps a mime type to a file extension for asset naming.
func ExtensionFor(mimeType string) string {
	if _, ext, ok := strings.Cut(mimeType, "/"); ok && ext != "" {
		return ext
	}
	return "png"
}
