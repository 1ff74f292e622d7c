package ui2d

import "image/color"

// Color represents an RGBA color with float components (0.0 to 1.0).
type Color struct {
	R, G, B, A float32
}

// Panel theme.
var (
	ColorPanelBg     = Color{0.08, 0.08, 0.12, 0.85}
	ColorPanelBorder = Color{0.3, 0.3, 0.4, 1}
	ColorBoxBg       = Color{0.05, 0.05, 0.08, 1}
	ColorBoxHover    = Color{0.25, 0.25, 0.35, 1}
	ColorText        = Color{0.9, 0.9, 0.9, 1}
	ColorTextDim     = Color{0.5, 0.5, 0.6, 1}
	ColorHighlight   = Color{0.2, 0.6, 0.9, 1}
)

// RGB creates a color from 8-bit RGB values with full alpha.
func RGB(r, g, b uint8) Color {
	return Color{
		R: float32(r) / 255.0,
		G: float32(g) / 255.0,
		B: float32(b) / 255.0,
		A: 1.0,
	}
}

// WithAlpha returns a copy of the color with a different alpha value.
func (c Color) WithAlpha(a float32) Color {
	return Color{c.R, c.G, c.B, a}
}

// NRGBA converts to 8-bit non-premultiplied color.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

func to8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
