package transform

import (
	"fmt"
	"image"
	"image/color"
)

// ParseHexColor parses "#rrggbb" (or "rrggbb") into an opaque NRGBA color
func ParseHexColor(s string) (color.NRGBA, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color: %q", s)
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}

	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// GradientCanvas returns a width x height canvas filled with a vertical
// two-stop gradient from top to bottom.
func GradientCanvas(width, height int, top, bottom color.NRGBA) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		t := 0.0
		if height > 1 {
			t = float64(y) / float64(height-1)
		}
		c := color.NRGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 255,
		}
		for x := 0; x < width; x++ {
			canvas.SetNRGBA(x, y, c)
		}
	}

	return canvas
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// trimAlphaThreshold is the minimum alpha (0-65535 scale) for a pixel to
// count as content when trimming transparent borders.
const trimAlphaThreshold = 0x1000

// trimTransparent crops img to the bounding box of its non-transparent
// pixels. A fully transparent image is returned unchanged.
func trimTransparent(img image.Image) image.Image {
	bounds := img.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a < trimAlphaThreshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX || maxY < minY {
		return img
	}

	content := image.Rect(minX, minY, maxX+1, maxY+1)
	if content == bounds {
		return img
	}

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(content)
	}
	return img
}
