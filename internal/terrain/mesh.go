package terrain

import (
	"fmt"
	"math"
)

// GridSpec describes the displaced plane to build.
type GridSpec struct {
	Columns, Rows int
	// Width and Depth are the plane extents in scene units along X and Z.
	Width, Depth float64
	// Exaggeration scales every sample along +Y.
	Exaggeration float64
}

// BuildMesh creates a grid mesh with one vertex per sample. Row 0 lies at
// -Z (north), column 0 at -X (west). Non-finite samples are placed at 0.
func BuildMesh(samples []float32, spec GridSpec) (*Mesh, error) {
	w, h := spec.Columns, spec.Rows
	if w < 2 || h < 2 {
		return nil, fmt.Errorf("terrain: grid %dx%d needs at least 2x2 samples", w, h)
	}
	if len(samples) != w*h {
		return nil, fmt.Errorf("terrain: %d samples for %dx%d grid", len(samples), w, h)
	}
	if !(spec.Width > 0) || !(spec.Depth > 0) || math.IsInf(spec.Width, 0) || math.IsInf(spec.Depth, 0) {
		return nil, fmt.Errorf("terrain: invalid plane size %vx%v", spec.Width, spec.Depth)
	}

	vertices := make([]Vertex, w*h)
	bounds := Bounds{
		Min: [3]float32{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))},
		Max: [3]float32{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))},
	}

	stepX := spec.Width / float64(w-1)
	stepZ := spec.Depth / float64(h-1)
	ve := float32(spec.Exaggeration)

	for row := 0; row < h; row++ {
		z := float32(-spec.Depth/2 + float64(row)*stepZ)
		v := 1 - float32(row)/float32(h-1)
		for col := 0; col < w; col++ {
			i := row*w + col

			s := samples[i]
			if f := float64(s); math.IsNaN(f) || math.IsInf(f, 0) {
				s = 0
			}

			p := [3]float32{float32(-spec.Width/2 + float64(col)*stepX), s * ve, z}
			vertices[i] = Vertex{
				Position: p,
				TexCoord: [2]float32{float32(col) / float32(w-1), v},
			}
			updateBounds(&bounds, p)
		}
	}

	indices := make([]uint32, 0, (w-1)*(h-1)*6)
	for iy := 0; iy < h-1; iy++ {
		for ix := 0; ix < w-1; ix++ {
			a := uint32(iy*w + ix)
			b := uint32((iy+1)*w + ix)
			c := b + 1
			d := a + 1
			indices = append(indices, a, b, d, b, c, d)
		}
	}

	ComputeNormals(vertices, indices)

	return &Mesh{
		Vertices: vertices,
		Indices:  indices,
		Bounds:   bounds,
		Columns:  w,
		Rows:     h,
	}, nil
}

// ComputeNormals sets each vertex normal to the normalized sum of the
// normals of the faces that share it.
func ComputeNormals(vertices []Vertex, indices []uint32) {
	acc := make([][3]float32, len(vertices))

	for t := 0; t+2 < len(indices); t += 3 {
		ia, ib, ic := indices[t], indices[t+1], indices[t+2]
		pa, pb, pc := vertices[ia].Position, vertices[ib].Position, vertices[ic].Position

		edge1 := [3]float32{pc[0] - pb[0], pc[1] - pb[1], pc[2] - pb[2]}
		edge2 := [3]float32{pa[0] - pb[0], pa[1] - pb[1], pa[2] - pb[2]}
		n := cross(edge1, edge2)

		for _, idx := range [3]uint32{ia, ib, ic} {
			acc[idx][0] += n[0]
			acc[idx][1] += n[1]
			acc[idx][2] += n[2]
		}
	}

	for i := range vertices {
		vertices[i].Normal = normalize(acc[i])
	}
}

// FallbackMesh returns a flat two-triangle plane of the given size.
func FallbackMesh(width, depth float64) *Mesh {
	if !(width > 0) {
		width = 1
	}
	if !(depth > 0) {
		depth = 1
	}
	m, _ := BuildMesh(make([]float32, 4), GridSpec{Columns: 2, Rows: 2, Width: width, Depth: depth})
	return m
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float32) [3]float32 {
	l := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l < 1e-12 {
		return [3]float32{0, 1, 0}
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
