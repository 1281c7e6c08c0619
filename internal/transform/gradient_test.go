package transform

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    color.NRGBA
		wantErr bool
	}{
		{name: "with hash", input: "#f5f5f4", want: color.NRGBA{R: 0xf5, G: 0xf5, B: 0xf4, A: 255}},
		{name: "without hash", input: "e4e4e7", want: color.NRGBA{R: 0xe4, G: 0xe4, B: 0xe7, A: 255}},
		{name: "black", input: "#000000", want: color.NRGBA{A: 255}},
		{name: "too short", input: "#fff", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "not hex", input: "#zzzzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHexColor(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGradientCanvas(t *testing.T) {
	top := color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	bottom := color.NRGBA{R: 100, G: 100, B: 100, A: 255}

	canvas := GradientCanvas(10, 100, top, bottom)

	require.Equal(t, image.Rect(0, 0, 10, 100), canvas.Bounds())
	assert.Equal(t, top, canvas.NRGBAAt(0, 0))
	assert.Equal(t, bottom, canvas.NRGBAAt(9, 99))

	// Midpoint sits between the two stops
	mid := canvas.NRGBAAt(5, 50)
	assert.InDelta(t, 150, int(mid.R), 2)

	// Every pixel is fully opaque
	for y := 0; y < 100; y += 9 {
		for x := 0; x < 10; x++ {
			assert.EqualValues(t, 255, canvas.NRGBAAt(x, y).A)
		}
	}
}

func TestTrimTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 5; y < 15; y++ {
		for x := 8; x < 12; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	trimmed := trimTransparent(img)
	assert.Equal(t, image.Rect(8, 5, 12, 15), trimmed.Bounds())
}

func TestTrimTransparent_FullyTransparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))

	trimmed := trimTransparent(img)
	assert.Equal(t, img.Bounds(), trimmed.Bounds())
}

func TestTrimTransparent_NoTransparentBorder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			img.SetNRGBA(x, y, color.NRGBA{G: 128, A: 255})
		}
	}

	trimmed := trimTransparent(img)
	assert.Equal(t, img.Bounds(), trimmed.Bounds())
}
