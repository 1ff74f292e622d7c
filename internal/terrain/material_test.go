package terrain

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func testMaterial(overlay *image.NRGBA) *Material {
	return NewMaterial(
		Layer{Name: LayerImagery, Texture: solid(2, 2, color.NRGBA{200, 0, 0, 255}), Visible: true, Opacity: 1, Blend: BlendReplace},
		Layer{Name: LayerLabels, Texture: solid(2, 2, color.NRGBA{0, 0, 255, 0}), Visible: true, Opacity: 1, Blend: BlendAlpha},
		Layer{Name: LayerOverlay, Texture: overlay, Visible: overlay != nil, Opacity: 0.5, Blend: BlendAlpha},
	)
}

func TestCompositeOrderAndToggles(t *testing.T) {
	m := testMaterial(solid(2, 2, color.NRGBA{0, 255, 0, 255}))

	// Red base, transparent labels, green overlay at 0.5.
	got := m.Composite(2, 2).NRGBAAt(0, 0)
	assert.Equal(t, color.NRGBA{100, 128, 0, 255}, got)

	require.True(t, m.SetVisible(LayerOverlay, false))
	assert.Equal(t, color.NRGBA{200, 0, 0, 255}, m.Composite(2, 2).NRGBAAt(1, 1))

	require.True(t, m.SetVisible(LayerImagery, false))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, m.Composite(2, 2).NRGBAAt(1, 1), "hidden layers contribute nothing")

	assert.False(t, m.SetVisible("missing", true))
	assert.False(t, m.Visible("missing"))
}

func TestCompositeSkipsUnsetOverlay(t *testing.T) {
	m := testMaterial(nil)
	// Forcing visibility on must still not sample a nil texture.
	m.SetVisible(LayerOverlay, true)
	assert.Equal(t, color.NRGBA{200, 0, 0, 255}, m.Composite(3, 3).NRGBAAt(2, 2))
	assert.Equal(t, color.NRGBA{200, 0, 0, 255}, m.ColorAt(0.5, 0.5))
	assert.False(t, m.HasTexture(LayerOverlay))
	assert.True(t, m.HasTexture(LayerImagery))
}

func TestSetOpacityClamps(t *testing.T) {
	m := testMaterial(nil)
	require.True(t, m.SetOpacity(LayerImagery, 3))
	l, _ := m.Layer(LayerImagery)
	assert.Equal(t, 1.0, l.Opacity)
	m.SetOpacity(LayerImagery, -1)
	l, _ = m.Layer(LayerImagery)
	assert.Equal(t, 0.0, l.Opacity)
}

func TestLayersIsSnapshot(t *testing.T) {
	m := testMaterial(nil)
	layers := m.Layers()
	layers[0].Visible = false
	assert.True(t, m.Visible(LayerImagery))
}

func TestTexelForUVMirrorsBothAxes(t *testing.T) {
	// North-west vertex (u=0, v=1) reads the last texel, south-east the first.
	x, y := TexelForUV(0, 1, 4, 3)
	assert.Equal(t, 3, x)
	assert.Equal(t, 2, y)

	x, y = TexelForUV(1, 0, 4, 3)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)
}

func TestColorAtUsesMirroredTexel(t *testing.T) {
	tex := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	tex.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	tex.SetNRGBA(1, 1, color.NRGBA{0, 0, 255, 255})
	m := NewMaterial(Layer{Name: LayerImagery, Texture: tex, Visible: true, Opacity: 1})

	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, m.ColorAt(0, 1))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, m.ColorAt(1, 0))
}

func TestMaterialConcurrentToggle(t *testing.T) {
	m := testMaterial(solid(1, 1, color.NRGBA{0, 255, 0, 255}))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.SetVisible(LayerOverlay, (i+j)%2 == 0)
				_ = m.Layers()
			}
		}(i)
	}
	wg.Wait()
}

func TestFallbackMaterial(t *testing.T) {
	m := FallbackMaterial()
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, m.Composite(4, 4).NRGBAAt(3, 3))
}
