package commands

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// toNRGBA returns img as a zero-origin NRGBA. The result may alias img and must not be mutated.
func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

func clampChannel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// mapRGB applies fn to the color channels of every pixel, leaving alpha untouched.
func mapRGB(src *image.NRGBA, fn func(r, g, b float64) (float64, float64, float64)) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	width := src.Bounds().Dx()
	parallelRows(src.Bounds().Dy(), func(start, end int) {
		for y := start; y < end; y++ {
			in := src.Pix[y*src.Stride : y*src.Stride+width*4]
			out := dst.Pix[y*dst.Stride : y*dst.Stride+width*4]
			for i := 0; i < len(in); i += 4 {
				r, g, b := fn(float64(in[i]), float64(in[i+1]), float64(in[i+2]))
				out[i] = clampChannel(r)
				out[i+1] = clampChannel(g)
				out[i+2] = clampChannel(b)
				out[i+3] = in[i+3]
			}
		}
	})
	return dst
}

// parseHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
