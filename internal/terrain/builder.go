package terrain

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/terrain3d/internal/colormap"
	"github.com/Faultbox/terrain3d/internal/logger"
	"github.com/Faultbox/terrain3d/internal/raster"
	"github.com/Faultbox/terrain3d/internal/tiles"
	"github.com/Faultbox/terrain3d/pkg/geo"
)

// BasemapSource composites map tiles over a bounding box.
// *tiles.Compositor implements it.
type BasemapSource interface {
	Composite(ctx context.Context, template string, bbox geo.BBox, width, height, zoom int) (*image.NRGBA, *tiles.Report, error)
}

// Options controls Build.
type Options struct {
	ImageryURL string
	LabelsURL  string
	Zoom       int

	ReliefRatio float64

	ImageryOpacity float64
	LabelsOpacity  float64
	OverlayOpacity float64
	OverlayAlpha   uint8
	OverlayUnit    string
}

// DefaultOptions returns the stock build settings without tile services.
func DefaultOptions() Options {
	return Options{
		Zoom:           12,
		ReliefRatio:    DefaultReliefRatio,
		ImageryOpacity: 1,
		LabelsOpacity:  1,
		OverlayOpacity: 0.8,
		OverlayAlpha:   colormap.DefaultAlpha,
		OverlayUnit:    "mm",
	}
}

// Result is a built terrain.
type Result struct {
	Mesh     *Mesh
	Material *Material
	Fit      FitHints

	Exaggeration float64
	// MetersWidth and MetersHeight are the full ground extents of the bbox.
	MetersWidth  float64
	MetersHeight float64
	// PlaneWidth and PlaneDepth are the mesh extents in scene units.
	PlaneWidth float64
	PlaneDepth float64

	BBox      geo.BBox
	Elevation *raster.Dataset
	// Overlay is nil when no overlay texture was built.
	Overlay  *raster.Dataset
	Colorbar *image.NRGBA

	Imagery *tiles.Report
	Labels  *tiles.Report

	// Fallback is set when the build failed and Mesh is the flat plane.
	Fallback bool
	Reason   error
}

// Builder turns rasters into meshes and materials.
type Builder struct {
	basemap BasemapSource
	opts    Options
	log     *zap.Logger
}

// NewBuilder creates a Builder. basemap may be nil, in which case the
// imagery and label layers have no texture.
func NewBuilder(basemap BasemapSource, opts Options) *Builder {
	if opts.ReliefRatio <= 0 {
		opts.ReliefRatio = DefaultReliefRatio
	}
	return &Builder{basemap: basemap, opts: opts, log: logger.Named("terrain")}
}

// Build runs the full pipeline. Any failure other than cancellation yields
// a fallback Result (flat green plane) and a nil error. overlay may be nil.
func (b *Builder) Build(ctx context.Context, elev, overlay *raster.Dataset) (*Result, error) {
	res, err := b.safeBuild(ctx, elev, overlay)
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	b.log.Warn("terrain build failed, using fallback mesh", zap.Error(err))
	return fallbackResult(elev, err), nil
}

func (b *Builder) safeBuild(ctx context.Context, elev, overlay *raster.Dataset) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("terrain: panic during build: %v", r)
		}
	}()
	return b.build(ctx, elev, overlay)
}

func (b *Builder) build(ctx context.Context, elev, overlay *raster.Dataset) (*Result, error) {
	if elev == nil {
		return nil, errors.New("terrain: no elevation raster")
	}

	// Step 1: ground size.
	mw, mh := geo.DegreesToMeters(elev.BBox)
	horizontalAverage := (mw + mh) / 2

	// Step 2: vertical exaggeration.
	ve := Exaggeration(elev.Range.Span(), horizontalAverage, b.opts.ReliefRatio)

	// Step 3: displaced grid at half the ground extents.
	planeW, planeD := mw/2, mh/2
	mesh, err := BuildMesh(elev.Samples, GridSpec{
		Columns:      elev.Width,
		Rows:         elev.Height,
		Width:        planeW,
		Depth:        planeD,
		Exaggeration: ve,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Mesh:         mesh,
		Exaggeration: ve,
		MetersWidth:  mw,
		MetersHeight: mh,
		PlaneWidth:   planeW,
		PlaneDepth:   planeD,
		BBox:         elev.BBox,
		Elevation:    elev,
		Fit:          FitHints{Center: mesh.Bounds.Center(), Size: mesh.Bounds.Size()},
	}

	// Step 4: basemaps and overlay in parallel.
	useOverlay := OverlayUsable(overlay)
	var imagery, labels, overlayTex *image.NRGBA

	g, gctx := errgroup.WithContext(ctx)
	if b.basemap != nil && b.opts.ImageryURL != "" {
		g.Go(func() error {
			img, rep, err := b.basemap.Composite(gctx, b.opts.ImageryURL, elev.BBox, elev.Width, elev.Height, b.opts.Zoom)
			if err != nil {
				return fmt.Errorf("imagery basemap: %w", err)
			}
			imagery, res.Imagery = img, rep
			return nil
		})
	}
	if b.basemap != nil && b.opts.LabelsURL != "" {
		g.Go(func() error {
			img, rep, err := b.basemap.Composite(gctx, b.opts.LabelsURL, elev.BBox, elev.Width, elev.Height, b.opts.Zoom)
			if err != nil {
				return fmt.Errorf("labels basemap: %w", err)
			}
			labels, res.Labels = img, rep
			return nil
		})
	}
	if useOverlay {
		g.Go(func() error {
			overlayTex = colormap.GenerateWithAlpha(overlay.Samples, overlay.Width, overlay.Height,
				overlay.Range.Min, overlay.Range.Max, b.opts.OverlayAlpha)
			res.Colorbar = colormap.Colorbar(overlay.Range.Min, overlay.Range.Max, b.opts.OverlayUnit)
			return nil
		})
	} else if overlay != nil {
		b.log.Warn("overlay skipped: no usable value range",
			zap.Float64("min", overlay.Range.Min),
			zap.Float64("max", overlay.Range.Max),
		)
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for name, rep := range map[string]*tiles.Report{LayerImagery: res.Imagery, LayerLabels: res.Labels} {
		if err := rep.Err(); err != nil {
			b.log.Warn("basemap incomplete",
				zap.String("layer", name),
				zap.Int("failed", rep.Failed),
				zap.Int("requested", rep.Requested),
				zap.Error(rep.Errors),
			)
		}
	}

	// Step 5: layer stack, bottom first.
	res.Material = NewMaterial(
		Layer{Name: LayerImagery, Texture: imagery, Visible: true, Opacity: b.opts.ImageryOpacity, Blend: BlendReplace},
		Layer{Name: LayerLabels, Texture: labels, Visible: true, Opacity: b.opts.LabelsOpacity, Blend: BlendAlpha},
		Layer{Name: LayerOverlay, Texture: overlayTex, Visible: overlayTex != nil, Opacity: b.opts.OverlayOpacity, Blend: BlendAlpha},
	)
	if useOverlay {
		res.Overlay = overlay
	}

	b.log.Info("terrain built",
		zap.Int("columns", mesh.Columns),
		zap.Int("rows", mesh.Rows),
		zap.Float64("exaggeration", ve),
		zap.Float64("meters_w", mw),
		zap.Float64("meters_h", mh),
		zap.Bool("overlay", useOverlay),
	)
	return res, nil
}

// OverlayUsable reports whether an overlay raster gets a texture: its range
// must be finite and not both zero.
func OverlayUsable(overlay *raster.Dataset) bool {
	if overlay == nil {
		return false
	}
	lo, hi := overlay.Range.Min, overlay.Range.Max
	for _, v := range []float64{lo, hi} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !(lo == 0 && hi == 0)
}

func fallbackResult(elev *raster.Dataset, reason error) *Result {
	bbox := raster.FallbackBBox
	if elev != nil && elev.BBox.Valid() {
		bbox = elev.BBox
	}
	mw, mh := geo.DegreesToMeters(bbox)
	mesh := FallbackMesh(mw/2, mh/2)

	return &Result{
		Mesh:         mesh,
		Material:     FallbackMaterial(),
		Fit:          FitHints{Center: mesh.Bounds.Center(), Size: mesh.Bounds.Size()},
		Exaggeration: 1,
		MetersWidth:  mw,
		MetersHeight: mh,
		PlaneWidth:   mw / 2,
		PlaneDepth:   mh / 2,
		BBox:         bbox,
		Elevation:    elev,
		Fallback:     true,
		Reason:       reason,
	}
}

// LocalToGeo converts a scene position on the plane to (lat, lng).
func (r *Result) LocalToGeo(x, z float32) (lat, lng float64) {
	fx := (float64(x) + r.PlaneWidth/2) / r.PlaneWidth
	fz := (float64(z) + r.PlaneDepth/2) / r.PlaneDepth
	lng = r.BBox.West + fx*r.BBox.Width()
	lat = r.BBox.North - fz*r.BBox.Height()
	return lat, lng
}

// Probe is the raster readout at a scene position.
type Probe struct {
	Lat, Lng   float64
	Elevation  float32
	Overlay    float32
	HasOverlay bool
}

// Format renders the probe for a status line. unit labels the overlay value.
func (p Probe) Format(unit string) string {
	s := fmt.Sprintf("%.5f, %.5f  elev %.1f m", p.Lat, p.Lng, p.Elevation)
	if p.HasOverlay && !math.IsNaN(float64(p.Overlay)) {
		s += fmt.Sprintf("  los %.1f %s", p.Overlay, unit)
	}
	return s
}

// ProbeAt returns the nearest elevation and overlay samples under (x, z).
// ok is false outside the raster footprint.
func (r *Result) ProbeAt(x, z float32) (p Probe, ok bool) {
	p.Lat, p.Lng = r.LocalToGeo(x, z)
	if r.Elevation == nil {
		return p, false
	}

	v, ok := sampleGeo(r.Elevation, p.Lat, p.Lng)
	if !ok {
		return p, false
	}
	p.Elevation = v

	if r.Overlay != nil {
		p.Overlay, p.HasOverlay = sampleGeo(r.Overlay, p.Lat, p.Lng)
	}
	return p, true
}

func sampleGeo(ds *raster.Dataset, lat, lng float64) (float32, bool) {
	b := ds.BBox
	if lng < b.West || lng > b.East || lat < b.South || lat > b.North {
		return 0, false
	}
	col := int((lng - b.West) / b.Width() * float64(ds.Width))
	row := int((b.North - lat) / b.Height() * float64(ds.Height))
	col = clampIndex(col, ds.Width)
	row = clampIndex(row, ds.Height)
	return ds.At(col, row), true
}
