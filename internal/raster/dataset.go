// Package raster loads geocoded single-band rasters into immutable in-memory
// datasets and supplies the flat fallback dataset used when loading fails.
package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/terrain3d/pkg/geo"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrSourceUnavailable = errors.New("raster source unavailable")
	ErrDecodeFailure     = errors.New("raster decode failure")
	ErrDegenerateData    = errors.New("raster has no dynamic range")
)

// Range is the min/max over finite samples. Count is the number of finite
// samples; when it is zero Min and Max are both 0.
type Range struct {
	Min, Max float64
	Count    int
}

// Span returns Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Degenerate reports whether the range is empty or has zero width.
func (r Range) Degenerate() bool { return r.Count == 0 || r.Min == r.Max }

// Dataset is a decoded raster. It is not modified after construction.
// Missing samples are NaN.
type Dataset struct {
	Samples []float32
	Width   int
	Height  int
	BBox    geo.BBox
	Range   Range
}

// New validates the grid and computes its value range. samples is retained.
func New(samples []float32, width, height int, bbox geo.BBox) (*Dataset, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecodeFailure, width, height)
	}
	if len(samples) != width*height {
		return nil, fmt.Errorf("%w: %d samples for %dx%d grid", ErrDecodeFailure, len(samples), width, height)
	}
	if !bbox.Valid() {
		return nil, fmt.Errorf("%w: invalid bounding box %v", ErrDecodeFailure, bbox)
	}
	return &Dataset{
		Samples: samples,
		Width:   width,
		Height:  height,
		BBox:    bbox,
		Range:   ComputeRange(samples),
	}, nil
}

// ComputeRange scans finite samples only.
func ComputeRange(samples []float32) Range {
	r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, s := range samples {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		r.Count++
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}
	if r.Count == 0 {
		return Range{}
	}
	return r
}

// At returns the sample at column x, row y (row 0 is north).
func (d *Dataset) At(x, y int) float32 {
	return d.Samples[y*d.Width+x]
}

// Valid reports whether the sample at index i is finite.
func (d *Dataset) Valid(i int) bool {
	v := float64(d.Samples[i])
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Fallback dataset geometry. The grid matches the stock study area.
const (
	FallbackWidth  = 1372
	FallbackHeight = 1134
)

// FallbackBBox is the bounding box of the fallback dataset.
var FallbackBBox = geo.NewBBox(85.1708333, 27.5355556, 85.5519444, 27.8505556)

// Fallback returns a fresh zero-filled dataset over FallbackBBox.
func Fallback() *Dataset {
	return &Dataset{
		Samples: make([]float32, FallbackWidth*FallbackHeight),
		Width:   FallbackWidth,
		Height:  FallbackHeight,
		BBox:    FallbackBBox,
		Range:   Range{Count: FallbackWidth * FallbackHeight},
	}
}
