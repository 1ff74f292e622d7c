package colormap

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Legend layout in pixels.
const (
	barWidth      = 30
	barHeight     = 100
	labelHeight   = 12
	labelSpacing  = 5
	minLegendW    = 70
	colorbarStops = 10
)

// Colorbar renders a vertical legend: the min label on top, the gradient,
// then the max label. The gradient interpolates Hot sampled at 11 stops.
func Colorbar(min, max float64, unit string) *image.NRGBA {
	face := basicfont.Face7x13
	top := fmt.Sprintf("%.1f %s", min, unit)
	bottom := fmt.Sprintf("%.1f %s", max, unit)

	width := minLegendW
	for _, s := range []string{top, bottom} {
		if w := font.MeasureString(face, s).Ceil() + 4; w > width {
			width = w
		}
	}

	topMargin := labelHeight + labelSpacing
	height := topMargin + barHeight + labelSpacing + labelHeight*2
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	barX := (width - barWidth) / 2
	for y := 0; y < barHeight; y++ {
		c := gradientAt(float64(y) / float64(barHeight-1))
		for x := barX; x < barX+barWidth; x++ {
			img.SetNRGBA(x, topMargin+y, c)
		}
	}

	drawCentered(img, face, top, width/2, labelHeight)
	drawCentered(img, face, bottom, width/2, topMargin+barHeight+labelSpacing+labelHeight+labelHeight/2)

	return img
}

// gradientAt linearly interpolates between the ramp stops.
func gradientAt(t float64) color.NRGBA {
	pos := t * colorbarStops
	i := int(pos)
	if i >= colorbarStops {
		return Hot(1)
	}
	f := pos - float64(i)
	a := Hot(float64(i) / colorbarStops)
	b := Hot(float64(i+1) / colorbarStops)
	lerp := func(x, y uint8) uint8 {
		return channel(float64(x) + (float64(y)-float64(x))*f)
	}
	return color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

func drawCentered(dst *image.NRGBA, face font.Face, s string, cx, baseline int) {
	w := font.MeasureString(face, s)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(cx) - w/2, Y: fixed.I(baseline)},
	}
	d.DrawString(s)
}
