// Package colormap turns scalar rasters into translucent RGBA overlays and
// renders the matching legend.
package colormap

import (
	"image"
	"image/color"
	"math"
)

// DefaultAlpha is the overlay pixel alpha for valid samples.
const DefaultAlpha = 200

// DegenerateColor fills the overlay when min == max.
var DegenerateColor = color.NRGBA{R: 128, G: 128, B: 128, A: 128}

// Hot maps t in [0,1] through the four-segment blue, cyan, yellow, red
// ramp. Values outside [0,1] are clamped. The result is opaque.
func Hot(t float64) color.NRGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	var r, g, b float64
	switch {
	case t < 0.25:
		b = 255 * (t / 0.25)
	case t < 0.5:
		b = 255
		g = 255 * ((t - 0.25) / 0.25)
	case t < 0.75:
		g = 255
		r = 255 * ((t - 0.5) / 0.25)
		b = 255 * (1 - (t-0.5)/0.25)
	default:
		r = 255
		g = 255 * (1 - (t-0.75)/0.25)
	}

	return color.NRGBA{R: channel(r), G: channel(g), B: channel(b), A: 255}
}

// channel rounds half up, then clamps to a byte.
func channel(v float64) uint8 {
	v = math.Floor(v + 0.5)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Generate colors samples with DefaultAlpha. See GenerateWithAlpha.
func Generate(samples []float32, width, height int, min, max float64) *image.NRGBA {
	return GenerateWithAlpha(samples, width, height, min, max, DefaultAlpha)
}

// GenerateWithAlpha returns a width x height image, row 0 first. Missing
// samples (non-finite, or beyond len(samples)) are fully transparent. When
// min == max every pixel is DegenerateColor.
func GenerateWithAlpha(samples []float32, width, height int, min, max float64, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	if max == min {
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i+0] = DegenerateColor.R
			img.Pix[i+1] = DegenerateColor.G
			img.Pix[i+2] = DegenerateColor.B
			img.Pix[i+3] = DegenerateColor.A
		}
		return img
	}

	span := max - min
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			j := y*width + x
			if j >= len(samples) {
				continue
			}
			v := float64(samples[j])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}

			c := Hot((v - min) / span)
			p := row[x*4 : x*4+4]
			p[0], p[1], p[2], p[3] = c.R, c.G, c.B, alpha
		}
	}

	return img
}
