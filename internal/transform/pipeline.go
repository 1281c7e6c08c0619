// Package transform turns arbitrary source photos into standardized catalog
// images: optional background removal, color normalization, and compositing
// onto a fixed-size gradient canvas.
package transform

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// OutputWriter persists processed images and maps them to public URLs
type OutputWriter interface {
	SaveImage(img image.Image) (string, error)
	URL(name string) string
}

// Options configures the transform pipeline
type Options struct {
	// RemoveBackground enables the segmentation stage
	RemoveBackground bool

	// CanvasWidth/CanvasHeight are the output canvas dimensions
	CanvasWidth  int
	CanvasHeight int

	// Brightness and Saturation are multipliers (1.0 = unchanged)
	Brightness float64
	Saturation float64

	// GradientTop/GradientBottom are the backdrop gradient stops
	GradientTop    color.NRGBA
	GradientBottom color.NRGBA
}

// WithDefaults fills in default values for zero-valued fields
func (o *Options) WithDefaults() {
	if o.CanvasWidth == 0 {
		o.CanvasWidth = 900
	}
	if o.CanvasHeight == 0 {
		o.CanvasHeight = 1200
	}
	if o.Brightness == 0 {
		o.Brightness = 1.03
	}
	if o.Saturation == 0 {
		o.Saturation = 1.05
	}
	var zero color.NRGBA
	if o.GradientTop == zero {
		o.GradientTop = color.NRGBA{R: 0xf5, G: 0xf5, B: 0xf4, A: 255}
	}
	if o.GradientBottom == zero {
		o.GradientBottom = color.NRGBA{R: 0xe4, G: 0xe4, B: 0xe7, A: 255}
	}
}

// Processor runs the image transform pipeline
type Processor struct {
	segmenter Segmenter
	writer    OutputWriter
	opts      Options
}

// NewProcessor creates a processor. segmenter may be nil, in which case the
// background-removal stage is skipped regardless of Options.RemoveBackground.
func NewProcessor(segmenter Segmenter, writer OutputWriter, opts Options) *Processor {
	opts.WithDefaults()
	return &Processor{
		segmenter: segmenter,
		writer:    writer,
		opts:      opts,
	}
}

// Process transforms the source image file into a standardized catalog image
// and returns its public URL.
//
// Background-removal failure is non-fatal: the pipeline logs and continues
// with the original image. Only decode/encode/IO errors are returned, and
// they fail this entry alone.
func (p *Processor) Process(ctx context.Context, sourcePath string) (string, error) {
	name := filepath.Base(sourcePath)

	// Decode honoring EXIF orientation
	src, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Stage 1: background removal (best effort)
	cutout := false
	if p.opts.RemoveBackground && p.segmenter != nil {
		cut, err := p.segmenter.Segment(ctx, src)
		if err != nil {
			log.Printf("Background removal failed for %s, using original: %v", name, err)
		} else {
			src = cut
			cutout = true
		}
	}

	// Stage 2: standardization
	if cutout {
		src = trimTransparent(src)
	}

	src = imaging.AdjustBrightness(src, (p.opts.Brightness-1)*100)
	src = imaging.AdjustSaturation(src, (p.opts.Saturation-1)*100)

	fitted := imaging.Fit(src, p.opts.CanvasWidth, p.opts.CanvasHeight, imaging.Lanczos)

	canvas := GradientCanvas(p.opts.CanvasWidth, p.opts.CanvasHeight, p.opts.GradientTop, p.opts.GradientBottom)
	composed := imaging.OverlayCenter(canvas, fitted, 1.0)

	// Stage 3: persist
	stored, err := p.writer.SaveImage(composed)
	if err != nil {
		return "", fmt.Errorf("failed to save processed image: %w", err)
	}

	return p.writer.URL(stored), nil
}
