package terrain

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/terrain3d/internal/raster"
	"github.com/Faultbox/terrain3d/internal/tiles"
	"github.com/Faultbox/terrain3d/pkg/geo"
)

type fakeBasemap struct {
	mu    sync.Mutex
	calls []string
	err   error
	fill  color.NRGBA
}

func (f *fakeBasemap) Composite(ctx context.Context, template string, bbox geo.BBox, width, height, zoom int) (*image.NRGBA, *tiles.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, template)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	return solid(width, height, f.fill), &tiles.Report{Requested: 1}, nil
}

var testBBox = geo.NewBBox(85.0, 27.0, 85.1, 27.1)

func testOptions() Options {
	opts := DefaultOptions()
	opts.ImageryURL = "imagery/{z}/{x}/{y}"
	opts.LabelsURL = "labels/{z}/{x}/{y}"
	return opts
}

func dataset(t *testing.T, samples []float32, w, h int) *raster.Dataset {
	t.Helper()
	ds, err := raster.New(samples, w, h, testBBox)
	require.NoError(t, err)
	return ds
}

func TestBuildWithoutOverlay(t *testing.T) {
	bm := &fakeBasemap{fill: color.NRGBA{10, 20, 30, 255}}
	res, err := NewBuilder(bm, testOptions()).Build(context.Background(), dataset(t, ramp(16), 4, 4), nil)
	require.NoError(t, err)
	require.False(t, res.Fallback)

	// Small relief over a ~10 km box hits the upper clamp.
	assert.Equal(t, MaxExaggeration, res.Exaggeration)

	require.Len(t, res.Mesh.Vertices, 16)
	for i, v := range res.Mesh.Vertices {
		assert.InDelta(t, float64(i)*res.Exaggeration, v.Position[1], 1e-4, "vertex %d", i)
	}
	assert.InDelta(t, res.MetersWidth/2, res.PlaneWidth, 1e-9)
	assert.InDelta(t, res.MetersHeight/2, res.PlaneDepth, 1e-9)

	m := res.Material
	assert.True(t, m.HasTexture(LayerImagery))
	assert.True(t, m.HasTexture(LayerLabels))
	assert.False(t, m.HasTexture(LayerOverlay))
	assert.False(t, m.Visible(LayerOverlay))
	assert.Nil(t, res.Overlay)
	assert.Nil(t, res.Colorbar)
	assert.ElementsMatch(t, []string{"imagery/{z}/{x}/{y}", "labels/{z}/{x}/{y}"}, bm.calls)

	layers := m.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, []string{LayerImagery, LayerLabels, LayerOverlay},
		[]string{layers[0].Name, layers[1].Name, layers[2].Name})
}

func TestBuildSkipsAllNaNOverlay(t *testing.T) {
	nan := make([]float32, 16)
	for i := range nan {
		nan[i] = float32(math.NaN())
	}
	res, err := NewBuilder(nil, DefaultOptions()).Build(context.Background(), dataset(t, ramp(16), 4, 4), dataset(t, nan, 4, 4))
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.False(t, res.Material.HasTexture(LayerOverlay))
	assert.Nil(t, res.Overlay)
}

func TestBuildWithOverlay(t *testing.T) {
	overlay := []float32{0, 5, 10, 20}
	res, err := NewBuilder(nil, DefaultOptions()).Build(context.Background(), dataset(t, ramp(16), 4, 4), dataset(t, overlay, 2, 2))
	require.NoError(t, err)

	assert.True(t, res.Material.HasTexture(LayerOverlay))
	assert.True(t, res.Material.Visible(LayerOverlay))
	assert.NotNil(t, res.Colorbar)

	l, ok := res.Material.Layer(LayerOverlay)
	require.True(t, ok)
	assert.Equal(t, 0.8, l.Opacity)
	assert.Equal(t, BlendAlpha, l.Blend)
}

func TestOverlayUsable(t *testing.T) {
	assert.False(t, OverlayUsable(nil))
	assert.False(t, OverlayUsable(&raster.Dataset{Range: raster.Range{Min: 0, Max: 0}}))
	assert.False(t, OverlayUsable(&raster.Dataset{Range: raster.Range{Min: math.NaN(), Max: 1}}))
	assert.False(t, OverlayUsable(&raster.Dataset{Range: raster.Range{Min: 0, Max: math.Inf(1)}}))
	assert.True(t, OverlayUsable(&raster.Dataset{Range: raster.Range{Min: 3, Max: 3, Count: 1}}))
	assert.True(t, OverlayUsable(&raster.Dataset{Range: raster.Range{Min: -1, Max: 2, Count: 4}}))
}

func TestBuildFallsBackOnBasemapError(t *testing.T) {
	bm := &fakeBasemap{err: errors.New("tile server down")}
	res, err := NewBuilder(bm, testOptions()).Build(context.Background(), dataset(t, ramp(16), 4, 4), nil)
	require.NoError(t, err)
	require.True(t, res.Fallback)
	assert.ErrorContains(t, res.Reason, "tile server down")

	assert.Len(t, res.Mesh.Vertices, 4)
	assert.Equal(t, 2, res.Mesh.TriangleCount())
	assert.Equal(t, testBBox, res.BBox)
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, res.Material.ColorAt(0.5, 0.5))
}

func TestBuildFallsBackOnDegenerateGrid(t *testing.T) {
	ds := &raster.Dataset{Samples: []float32{1, 2, 3}, Width: 1, Height: 3, BBox: testBBox, Range: raster.ComputeRange([]float32{1, 2, 3})}
	res, err := NewBuilder(nil, DefaultOptions()).Build(context.Background(), ds, nil)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Error(t, res.Reason)
}

func TestBuildFallsBackWithoutElevation(t *testing.T) {
	res, err := NewBuilder(nil, DefaultOptions()).Build(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, raster.FallbackBBox, res.BBox)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewBuilder(&fakeBasemap{}, testOptions()).Build(ctx, dataset(t, ramp(16), 4, 4), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestLocalToGeoCorners(t *testing.T) {
	res, err := NewBuilder(nil, DefaultOptions()).Build(context.Background(), dataset(t, ramp(16), 4, 4), nil)
	require.NoError(t, err)

	hw, hd := float32(res.PlaneWidth/2), float32(res.PlaneDepth/2)
	cases := []struct {
		x, z     float32
		lat, lng float64
	}{
		{-hw, -hd, 27.1, 85.0},
		{hw, hd, 27.0, 85.1},
		{0, 0, 27.05, 85.05},
	}
	for _, c := range cases {
		lat, lng := res.LocalToGeo(c.x, c.z)
		assert.InDelta(t, c.lat, lat, 1e-6)
		assert.InDelta(t, c.lng, lng, 1e-6)
	}
}

func TestProbeAt(t *testing.T) {
	overlay := dataset(t, []float32{1, 2, 3, 4}, 2, 2)
	res, err := NewBuilder(nil, DefaultOptions()).Build(context.Background(), dataset(t, ramp(16), 4, 4), overlay)
	require.NoError(t, err)

	// A point just inside the north-west corner reads the first samples.
	hw, hd := float32(res.PlaneWidth/2), float32(res.PlaneDepth/2)
	p, ok := res.ProbeAt(-hw+1, -hd+1)
	require.True(t, ok)
	assert.Equal(t, float32(0), p.Elevation)
	assert.True(t, p.HasOverlay)
	assert.Equal(t, float32(1), p.Overlay)

	p, ok = res.ProbeAt(hw-1, hd-1)
	require.True(t, ok)
	assert.Equal(t, float32(15), p.Elevation)
	assert.Equal(t, float32(4), p.Overlay)

	_, ok = res.ProbeAt(hw*3, 0)
	assert.False(t, ok)
}

func TestProbeFormat(t *testing.T) {
	p := Probe{Lat: 27.5, Lng: 85.25, Elevation: 1234.56}
	assert.Equal(t, "27.50000, 85.25000  elev 1234.6 m", p.Format("mm"))

	p.HasOverlay, p.Overlay = true, -12.34
	assert.Equal(t, "27.50000, 85.25000  elev 1234.6 m  los -12.3 mm", p.Format("mm"))

	p.Overlay = float32(math.NaN())
	assert.Equal(t, "27.50000, 85.25000  elev 1234.6 m", p.Format("mm"))
}
