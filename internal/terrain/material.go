package terrain

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
)

// Layer names used by the builder.
const (
	LayerImagery = "imagery"
	LayerLabels  = "labels"
	LayerOverlay = "overlay"
	LayerBase    = "base"
)

// Blend selects how a layer combines with the layers below it.
type Blend int

const (
	// BlendReplace mixes by visible*opacity, ignoring texture alpha.
	BlendReplace Blend = iota
	// BlendAlpha mixes by texture alpha*visible*opacity.
	BlendAlpha
)

// Layer is one entry of the compositing stack. A nil Texture contributes
// nothing and is never sampled.
type Layer struct {
	Name    string
	Texture *image.NRGBA
	Visible bool
	Opacity float64
	Blend   Blend
}

// factor returns the mix weight for texel alpha a in [0,1].
func (l Layer) factor(a float64) float64 {
	if l.Texture == nil || !l.Visible {
		return 0
	}
	if l.Blend == BlendAlpha {
		return a * l.Opacity
	}
	return l.Opacity
}

// Material is an ordered layer stack, bottom first. Visibility and opacity
// may change at any time; textures are fixed at construction.
type Material struct {
	mu     sync.RWMutex
	layers []Layer
}

// NewMaterial creates a material from the given layers.
func NewMaterial(layers ...Layer) *Material {
	return &Material{layers: append([]Layer(nil), layers...)}
}

// Layers returns a snapshot of the stack.
func (m *Material) Layers() []Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Layer(nil), m.layers...)
}

// Layer returns the named layer.
func (m *Material) Layer(name string) (Layer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.layers {
		if l.Name == name {
			return l, true
		}
	}
	return Layer{}, false
}

// HasTexture reports whether the named layer exists with a texture.
func (m *Material) HasTexture(name string) bool {
	l, ok := m.Layer(name)
	return ok && l.Texture != nil
}

// SetVisible sets the named layer's visibility. It reports whether the
// layer exists.
func (m *Material) SetVisible(name string, visible bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.layers {
		if m.layers[i].Name == name {
			m.layers[i].Visible = visible
			return true
		}
	}
	return false
}

// SetOpacity sets the named layer's opacity, clamped to [0,1].
func (m *Material) SetOpacity(name string, opacity float64) bool {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.layers {
		if m.layers[i].Name == name {
			m.layers[i].Opacity = opacity
			return true
		}
	}
	return false
}

// Visible reports the named layer's visibility.
func (m *Material) Visible(name string) bool {
	l, ok := m.Layer(name)
	return ok && l.Visible
}

// Composite evaluates the stack on the CPU into a width x height opaque
// image in texture space. Layers of other sizes are resampled.
func (m *Material) Composite(width, height int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	acc := make([][3]float64, width*height)

	for _, l := range m.Layers() {
		if l.factor(1) == 0 {
			continue
		}

		tex := l.Texture
		if tex.Bounds().Dx() != width || tex.Bounds().Dy() != height {
			scaled := image.NewNRGBA(out.Bounds())
			draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), tex, tex.Bounds(), draw.Src, nil)
			tex = scaled
		}

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := tex.NRGBAAt(tex.Rect.Min.X+x, tex.Rect.Min.Y+y)
				f := l.factor(float64(c.A) / 255)
				if f == 0 {
					continue
				}
				p := &acc[y*width+x]
				p[0] += (float64(c.R)/255 - p[0]) * f
				p[1] += (float64(c.G)/255 - p[1]) * f
				p[2] += (float64(c.B)/255 - p[2]) * f
			}
		}
	}

	for i, p := range acc {
		out.Pix[i*4+0] = unit8(p[0])
		out.Pix[i*4+1] = unit8(p[1])
		out.Pix[i*4+2] = unit8(p[2])
		out.Pix[i*4+3] = 255
	}
	return out
}

// TexelForUV returns the texel sampled at mesh UV (u, v) in a w x h
// texture. Image row 0 is north. Sampling mirrors both axes, so mesh UV
// (0, 1) at the north-west vertex reads the south-east texel (w-1, h-1).
func TexelForUV(u, v float32, w, h int) (x, y int) {
	s := 1 - u
	t := 1 - v
	x = clampIndex(int(s*float32(w-1)+0.5), w)
	y = clampIndex(int((1-t)*float32(h-1)+0.5), h)
	return x, y
}

// ColorAt evaluates the stack at mesh UV (u, v) with nearest sampling.
func (m *Material) ColorAt(u, v float32) color.NRGBA {
	var r, g, b float64
	for _, l := range m.Layers() {
		if l.factor(1) == 0 {
			continue
		}
		bnd := l.Texture.Bounds()
		x, y := TexelForUV(u, v, bnd.Dx(), bnd.Dy())
		c := l.Texture.NRGBAAt(bnd.Min.X+x, bnd.Min.Y+y)
		f := l.factor(float64(c.A) / 255)
		r += (float64(c.R)/255 - r) * f
		g += (float64(c.G)/255 - g) * f
		b += (float64(c.B)/255 - b) * f
	}
	return color.NRGBA{R: unit8(r), G: unit8(g), B: unit8(b), A: 255}
}

// FallbackMaterial is a single opaque green layer.
func FallbackMaterial() *Material {
	tex := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	tex.SetNRGBA(0, 0, color.NRGBA{R: 0, G: 0xff, B: 0, A: 0xff})
	return NewMaterial(Layer{Name: LayerBase, Texture: tex, Visible: true, Opacity: 1, Blend: BlendReplace})
}

func unit8(v float64) uint8 {
	v = v*255 + 0.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
