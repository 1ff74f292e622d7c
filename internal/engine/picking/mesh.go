package picking

import (
	gomath "math"

	"github.com/Faultbox/terrain3d/internal/terrain"
)

// Hit is the nearest ray intersection with a mesh.
type Hit struct {
	T        float32
	Point    [3]float32
	Triangle int // its indices start at 3*Triangle
}

// MeshBounds returns the mesh's bounding box.
func MeshBounds(m *terrain.Mesh) AABB {
	return AABB{Min: m.Bounds.Min, Max: m.Bounds.Max}
}

// PickMesh returns the nearest triangle hit along r. Grid meshes built by
// terrain.BuildMesh only test the cells under the ray's span inside the
// bounding box; other meshes test every triangle.
func PickMesh(r Ray, m *terrain.Mesh) (Hit, bool) {
	if m == nil || len(m.Indices) < 3 {
		return Hit{}, false
	}
	tmin, tmax, ok := r.slabs(MeshBounds(m))
	if !ok {
		return Hit{}, false
	}
	if tmin < 0 {
		tmin = 0
	}

	best := Hit{T: float32(gomath.MaxFloat32), Triangle: -1}
	test := func(tri int) {
		i := tri * 3
		a := m.Vertices[m.Indices[i]].Position
		b := m.Vertices[m.Indices[i+1]].Position
		c := m.Vertices[m.Indices[i+2]].Position
		if t, _, _, ok := r.IntersectTriangle(a, b, c); ok && t < best.T {
			best.T = t
			best.Triangle = tri
		}
	}

	if c0, c1, r0, r1, ok := gridSpan(r, m, tmin, tmax); ok {
		cells := m.Columns - 1
		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				q := row*cells + col
				test(2 * q)
				test(2*q + 1)
			}
		}
	} else {
		for tri := 0; tri < len(m.Indices)/3; tri++ {
			test(tri)
		}
	}

	if best.Triangle < 0 {
		return Hit{}, false
	}
	best.Point = r.At(best.T)
	return best, true
}

// gridSpan returns the inclusive cell range covering the ray between tmin
// and tmax, padded by one cell.
func gridSpan(r Ray, m *terrain.Mesh, tmin, tmax float32) (c0, c1, r0, r1 int, ok bool) {
	w, h := m.Columns, m.Rows
	if w < 2 || h < 2 || len(m.Vertices) != w*h || len(m.Indices) != (w-1)*(h-1)*6 {
		return 0, 0, 0, 0, false
	}

	minX, maxX := m.Bounds.Min[0], m.Bounds.Max[0]
	minZ, maxZ := m.Bounds.Min[2], m.Bounds.Max[2]
	cellW := (maxX - minX) / float32(w-1)
	cellD := (maxZ - minZ) / float32(h-1)
	if !(cellW > 0) || !(cellD > 0) {
		return 0, 0, 0, 0, false
	}

	p0, p1 := r.At(tmin), r.At(tmax)
	lo := func(a, b, origin, cell float32, n int) int {
		return clamp(int(gomath.Floor(float64((min(a, b)-origin)/cell)))-1, 0, n-2)
	}
	hi := func(a, b, origin, cell float32, n int) int {
		return clamp(int(gomath.Floor(float64((max(a, b)-origin)/cell)))+1, 0, n-2)
	}

	c0, c1 = lo(p0[0], p1[0], minX, cellW, w), hi(p0[0], p1[0], minX, cellW, w)
	r0, r1 = lo(p0[2], p1[2], minZ, cellD, h), hi(p0[2], p1[2], minZ, cellD, h)
	return c0, c1, r0, r1, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
