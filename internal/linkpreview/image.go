package linkpreview

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	// Registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DescribeImage decodes only the container header of an image.
func DescribeImage(body []byte, size int64) (*Media, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Kind: KindMalformed, Err: fmt.Errorf("decoding image header: %w", err)}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &FetchError{Kind: KindMalformed, Err: fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	return &Media{
		Format: strings.ToUpper(format),
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   size,
	}, nil
}
