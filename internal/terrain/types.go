// Package terrain builds displaced grid meshes from elevation rasters and
// assembles the layered material draped over them.
package terrain

import (
	pkgmath "github.com/Faultbox/terrain3d/pkg/math"
)

// Vertex represents a terrain mesh vertex.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Mesh holds the grid mesh ready for GPU upload. Vertices are in raster
// row-major order; Columns x Rows vertices.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Bounds   Bounds
	Columns  int
	Rows     int
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Bounds holds the axis-aligned bounding box of the mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Center returns the box center.
func (b Bounds) Center() pkgmath.Vec3 {
	return pkgmath.Vec3{
		X: (b.Min[0] + b.Max[0]) / 2,
		Y: (b.Min[1] + b.Max[1]) / 2,
		Z: (b.Min[2] + b.Max[2]) / 2,
	}
}

// Size returns the box extents.
func (b Bounds) Size() pkgmath.Vec3 {
	return pkgmath.Vec3{
		X: b.Max[0] - b.Min[0],
		Y: b.Max[1] - b.Min[1],
		Z: b.Max[2] - b.Min[2],
	}
}

// FitHints carries the mesh box to camera framing.
type FitHints struct {
	Center pkgmath.Vec3
	Size   pkgmath.Vec3
}
