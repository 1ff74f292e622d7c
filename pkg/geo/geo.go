// Package geo provides the flat-earth and Web-Mercator helpers used to size
// terrain meshes and to address basemap tiles.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

// MaxUploadAreaKm2 is the largest raster footprint the upload service accepts.
const MaxUploadAreaKm2 = 225000.0

// BBox is a geographic bounding box in degrees.
type BBox struct {
	West, South, East, North float64
}

// NewBBox returns a bounding box from (west, south, east, north).
func NewBBox(west, south, east, north float64) BBox {
	return BBox{West: west, South: south, East: east, North: north}
}

// FromBound converts an orb bound (lon/lat points) to a BBox.
func FromBound(b orb.Bound) BBox {
	return BBox{West: b.Left(), South: b.Bottom(), East: b.Right(), North: b.Top()}
}

// Bound returns the box as an orb bound.
func (b BBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// Valid reports whether west < east and south < north with finite corners.
func (b BBox) Valid() bool {
	for _, v := range [4]float64{b.West, b.South, b.East, b.North} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.West < b.East && b.South < b.North
}

// Width returns the longitude span in degrees.
func (b BBox) Width() float64 { return b.East - b.West }

// Height returns the latitude span in degrees.
func (b BBox) Height() float64 { return b.North - b.South }

// Center returns the center as (lat, lng).
func (b BBox) Center() (lat, lng float64) {
	return (b.South + b.North) / 2, (b.West + b.East) / 2
}

func (b BBox) String() string {
	return fmt.Sprintf("[%.7f, %.7f, %.7f, %.7f]", b.West, b.South, b.East, b.North)
}

// DegreesToMeters converts the box spans to meters with a locally flat
// approximation: the longitude span is scaled by cos(mid latitude).
// Not valid across the poles or for spans above ~20 degrees of latitude.
func DegreesToMeters(b BBox) (width, height float64) {
	midLat := (b.North + b.South) / 2 * math.Pi / 180
	dLon := (b.East - b.West) * math.Pi / 180
	dLat := (b.North - b.South) * math.Pi / 180

	width = math.Abs(EarthRadius * dLon * math.Cos(midLat))
	height = math.Abs(EarthRadius * dLat)
	return width, height
}

// ApproximateAreaKm2 returns the footprint of a widthDeg x heightDeg box
// centered at avgLatDeg, using the same formula as DegreesToMeters.
func ApproximateAreaKm2(widthDeg, heightDeg, avgLatDeg float64) float64 {
	kmPerDegLat := EarthRadius / 1000 * math.Pi / 180
	kmPerDegLon := math.Cos(avgLatDeg*math.Pi/180) * kmPerDegLat
	return math.Abs(widthDeg*kmPerDegLon) * math.Abs(heightDeg*kmPerDegLat)
}

// AreaKm2 returns the approximate footprint of the box.
func AreaKm2(b BBox) float64 {
	lat, _ := b.Center()
	return ApproximateAreaKm2(b.Width(), b.Height(), lat)
}

// ExceedsAreaLimit reports whether the box is larger than MaxUploadAreaKm2.
func ExceedsAreaLimit(b BBox) bool {
	return AreaKm2(b) > MaxUploadAreaKm2
}

// LatLngToTile returns the spherical Web-Mercator tile containing the point.
// Indices are clamped to the valid range for the zoom level.
func LatLngToTile(lat, lng float64, zoom int) maptile.Tile {
	n := math.Exp2(float64(zoom))
	latRad := lat * math.Pi / 180

	x := (lng + 180) / 360 * n
	y := (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n

	return maptile.New(clampIndex(x, n), clampIndex(y, n), maptile.Zoom(zoom))
}

// TileToLatLng returns the north-west corner of the tile.
func TileToLatLng(x, y uint32, zoom int) (lat, lng float64) {
	n := math.Exp2(float64(zoom))
	lng = float64(x)/n*360 - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(y)/n)))
	lat = latRad * 180 / math.Pi
	return lat, lng
}

// TileRange is an inclusive rectangle of tile indices at one zoom level.
type TileRange struct {
	MinX, MinY uint32
	MaxX, MaxY uint32
	Zoom       int
}

// CoveringTiles returns the tiles covering the box: the north-west corner
// gives the minimum indices, the south-east corner the maximum.
func CoveringTiles(b BBox, zoom int) TileRange {
	nw := LatLngToTile(b.North, b.West, zoom)
	se := LatLngToTile(b.South, b.East, zoom)
	return TileRange{MinX: nw.X, MinY: nw.Y, MaxX: se.X, MaxY: se.Y, Zoom: zoom}
}

// CountX returns the number of tile columns.
func (r TileRange) CountX() int { return int(r.MaxX-r.MinX) + 1 }

// CountY returns the number of tile rows.
func (r TileRange) CountY() int { return int(r.MaxY-r.MinY) + 1 }

// Tiles lists the tiles row by row.
func (r TileRange) Tiles() []maptile.Tile {
	tiles := make([]maptile.Tile, 0, r.CountX()*r.CountY())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			tiles = append(tiles, maptile.New(x, y, maptile.Zoom(r.Zoom)))
		}
	}
	return tiles
}

func clampIndex(v, n float64) uint32 {
	f := math.Floor(v)
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > n-1 {
		return uint32(n - 1)
	}
	return uint32(f)
}
