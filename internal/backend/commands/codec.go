package commands

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"

	// DefaultJPEGQuality matches the quality most raster libraries use when none is given.
	DefaultJPEGQuality = 80
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// NormalizeFormat lower-cases the format name and folds "jpg" into "jpeg".
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatJPEG, "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q (must be 'png' or 'jpeg')", ErrUnsupportedFormat, format)
	}
}

func ContentType(format string) string {
	if format == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// DecodeImage decodes a JPEG or PNG stream and reports the detected format.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// EncodeImage writes img to w in the given format. JPEG output drops alpha by
// compositing onto black.
func EncodeImage(w io.Writer, img image.Image, format string, jpegQuality int) error {
	normalized, err := NormalizeFormat(format)
	if err != nil {
		return err
	}

	switch normalized {
	case FormatPNG:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("failed to encode image to PNG: %w", err)
		}
	default:
		if jpegQuality <= 0 || jpegQuality > 100 {
			jpegQuality = DefaultJPEGQuality
		}
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return fmt.Errorf("failed to encode image to JPEG: %w", err)
		}
	}
	return nil
}
