// Package picking casts pointer rays into the terrain mesh.
package picking

import (
	gomath "math"

	"github.com/Faultbox/terrain3d/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    [3]float32
	Direction [3]float32 // Normalized direction
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) [3]float32 {
	return [3]float32{
		r.Origin[0] + t*r.Direction[0],
		r.Origin[1] + t*r.Direction[1],
		r.Origin[2] + t*r.Direction[2],
	}
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// ScreenToRay converts pixel coordinates to a world-space ray. viewProj is
// projection * view; ok is false when it is not invertible.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, viewProj math.Mat4) (Ray, bool) {
	inv, ok := viewProj.Inverse()
	if !ok || viewportW <= 0 || viewportH <= 0 {
		return Ray{}, false
	}

	// Normalized device coordinates, Y up.
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH

	near, ok1 := unproject(inv, ndcX, ndcY, -1)
	far, ok2 := unproject(inv, ndcX, ndcY, 1)
	if !ok1 || !ok2 {
		return Ray{}, false
	}

	dir := [3]float32{far[0] - near[0], far[1] - near[1], far[2] - near[2]}
	l := float32(gomath.Sqrt(float64(dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2])))
	if l == 0 {
		return Ray{}, false
	}
	dir[0] /= l
	dir[1] /= l
	dir[2] /= l

	return Ray{Origin: near, Direction: dir}, true
}

func unproject(inv math.Mat4, x, y, z float32) ([3]float32, bool) {
	p := inv.MulVec4(math.Vec4{x, y, z, 1})
	if p[3] == 0 {
		return [3]float32{}, false
	}
	return [3]float32{p[0] / p[3], p[1] / p[3], p[2] / p[3]}, true
}

// IntersectPlaneY intersects the ray with the horizontal plane y = planeY.
func (r Ray) IntersectPlaneY(planeY float32) (x, z float32, ok bool) {
	if gomath.Abs(float64(r.Direction[1])) < 1e-6 {
		return 0, 0, false
	}
	t := (planeY - r.Origin[1]) / r.Direction[1]
	if t < 0 {
		return 0, 0, false
	}
	p := r.At(t)
	return p[0], p[2], true
}

// slabs returns the parametric interval in which the ray is inside box.
func (r Ray) slabs(box AABB) (tmin, tmax float32, hit bool) {
	tmin = float32(-gomath.MaxFloat32)
	tmax = float32(gomath.MaxFloat32)

	for i := 0; i < 3; i++ {
		if r.Direction[i] == 0 {
			if r.Origin[i] < box.Min[i] || r.Origin[i] > box.Max[i] {
				return 0, 0, false
			}
			continue
		}
		t1 := (box.Min[i] - r.Origin[i]) / r.Direction[i]
		t2 := (box.Max[i] - r.Origin[i]) / r.Direction[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, 0, false
	}
	return tmin, tmax, true
}

// IntersectAABB returns the entry distance into box, or the exit distance
// when the ray starts inside.
func (r Ray) IntersectAABB(box AABB) (t float32, hit bool) {
	tmin, tmax, ok := r.slabs(box)
	if !ok {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// triangleEpsilon rejects rays parallel to a triangle.
const triangleEpsilon = 1e-9

// IntersectTriangle is the Möller–Trumbore test. It returns the distance
// and the barycentric coordinates of the hit relative to a.
func (r Ray) IntersectTriangle(a, b, c [3]float32) (t, u, v float32, hit bool) {
	e1 := sub(b, a)
	e2 := sub(c, a)
	p := cross(r.Direction, e2)
	det := dot(e1, p)
	if det > -triangleEpsilon && det < triangleEpsilon {
		return 0, 0, 0, false
	}
	inv := 1 / det

	s := sub(r.Origin, a)
	u = dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := cross(s, e1)
	v = dot(r.Direction, q) * inv
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = dot(e2, q) * inv
	if t < 0 {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
