package colormap

import (
	"image/color"
	"math"
	"testing"
)

func TestHotBreakpoints(t *testing.T) {
	tests := []struct {
		t    float64
		want color.NRGBA
	}{
		{0, color.NRGBA{0, 0, 0, 255}},
		{0.125, color.NRGBA{0, 0, 128, 255}},
		{0.25, color.NRGBA{0, 0, 255, 255}},
		{0.5, color.NRGBA{0, 255, 255, 255}},
		{0.625, color.NRGBA{128, 255, 128, 255}},
		{0.75, color.NRGBA{255, 255, 0, 255}},
		{1, color.NRGBA{255, 0, 0, 255}},
		{-3, color.NRGBA{0, 0, 0, 255}},
		{7, color.NRGBA{255, 0, 0, 255}},
	}

	for _, tt := range tests {
		if got := Hot(tt.t); got != tt.want {
			t.Errorf("Hot(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestGenerateDegenerate(t *testing.T) {
	img := Generate([]float32{5, 5, 5, 5, 5, 5}, 3, 2, 5, 5)
	first := img.NRGBAAt(0, 0)
	if first.A == 0 {
		t.Fatal("degenerate texture must not be transparent")
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if c := img.NRGBAAt(x, y); c != first {
				t.Errorf("pixel (%d,%d) = %v, want uniform %v", x, y, c, first)
			}
		}
	}
	if first != DegenerateColor {
		t.Errorf("got %v, want %v", first, DegenerateColor)
	}
}

func TestGenerateEndpoints(t *testing.T) {
	nan := float32(math.NaN())
	samples := []float32{-10, 30, nan, float32(math.Inf(-1))}
	img := Generate(samples, 2, 2, -10, 30)

	minColor := Hot(0)
	minColor.A = DefaultAlpha
	if got := img.NRGBAAt(0, 0); got != minColor {
		t.Errorf("min sample = %v, want %v", got, minColor)
	}

	maxColor := Hot(1)
	maxColor.A = DefaultAlpha
	if got := img.NRGBAAt(1, 0); got != maxColor {
		t.Errorf("max sample = %v, want %v", got, maxColor)
	}

	if got := img.NRGBAAt(0, 1); got.A != 0 {
		t.Errorf("NaN sample should be transparent, got %v", got)
	}
	if got := img.NRGBAAt(1, 1); got.A != 0 {
		t.Errorf("infinite sample should be transparent, got %v", got)
	}
}

func TestGenerateShortSamples(t *testing.T) {
	img := GenerateWithAlpha([]float32{0, 1}, 2, 2, 0, 1, 255)
	if img.NRGBAAt(1, 0).A != 255 {
		t.Error("valid sample should use the given alpha")
	}
	if img.NRGBAAt(0, 1).A != 0 {
		t.Error("missing trailing samples should be transparent")
	}
}

func TestColorbar(t *testing.T) {
	img := Colorbar(-42.25, 17.5, "mm")
	b := img.Bounds()
	if b.Dx() != minLegendW {
		t.Errorf("width = %d, want %d", b.Dx(), minLegendW)
	}
	wantH := labelHeight + labelSpacing + barHeight + labelSpacing + 2*labelHeight
	if b.Dy() != wantH {
		t.Errorf("height = %d, want %d", b.Dy(), wantH)
	}

	top := labelHeight + labelSpacing
	cx := b.Dx() / 2
	if got := img.NRGBAAt(cx, top); got != Hot(0) {
		t.Errorf("bar top = %v, want %v", got, Hot(0))
	}
	if got := img.NRGBAAt(cx, top+barHeight-1); got != Hot(1) {
		t.Errorf("bar bottom = %v, want %v", got, Hot(1))
	}

	inked := 0
	for y := 0; y < labelHeight+2; y++ {
		for x := 0; x < b.Dx(); x++ {
			if img.NRGBAAt(x, y).A > 0 {
				inked++
			}
		}
	}
	if inked == 0 {
		t.Error("expected min label pixels above the bar")
	}
}

func TestColorbarWidensForLongLabels(t *testing.T) {
	img := Colorbar(-123456.7, 123456.7, "millimetres")
	if img.Bounds().Dx() <= minLegendW {
		t.Errorf("expected legend wider than %d, got %d", minLegendW, img.Bounds().Dx())
	}
}
