package camera

import (
	gomath "math"

	"github.com/Faultbox/terrain3d/pkg/math"
)

// autoRotateRate is the yaw rate in radians per second at speed 1.0,
// one turn per minute.
const autoRotateRate = 2 * gomath.Pi / 60

// OrbitCamera orbits around a target point.
type OrbitCamera struct {
	Target math.Vec3

	// Spherical coordinates
	Distance  float32
	Elevation float32 // angle above the horizon, radians
	Yaw       float32 // radians, 0 along +Z

	MinDistance   float32
	MaxDistance   float32
	MaxPolarAngle float32

	AutoRotate      bool
	AutoRotateSpeed float32

	DragSensitivity float32
	ZoomSensitivity float32
}

var _ Controls = (*OrbitCamera)(nil)

// NewOrbitCamera creates an orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        1000,
		Elevation:       0.8,
		MinDistance:     1,
		MaxDistance:     1e6,
		MaxPolarAngle:   gomath.Pi / 2,
		AutoRotateSpeed: 1,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the eye position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cosE := gomath.Cos(float64(c.Elevation))
	return math.Vec3{
		X: c.Target.X + c.Distance*float32(cosE*gomath.Sin(float64(c.Yaw))),
		Y: c.Target.Y + c.Distance*float32(gomath.Sin(float64(c.Elevation))),
		Z: c.Target.Z + c.Distance*float32(cosE*gomath.Cos(float64(c.Yaw))),
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Target, math.Vec3{Y: 1})
}

// SetTarget moves the orbit center, keeping the eye offset.
func (c *OrbitCamera) SetTarget(target math.Vec3) {
	c.Target = target
}

// SetPose places the eye at position, looking at the target.
func (c *OrbitCamera) SetPose(position math.Vec3) {
	d := position.Sub(c.Target)
	dist := d.Length()
	if dist == 0 {
		return
	}
	c.Distance = dist
	c.Elevation = float32(gomath.Asin(float64(d.Y / dist)))
	c.Yaw = float32(gomath.Atan2(float64(d.X), float64(d.Z)))
	c.clamp()
}

// SetDistanceLimits sets the zoom range.
func (c *OrbitCamera) SetDistanceLimits(min, max float32) {
	if max < min {
		min, max = max, min
	}
	c.MinDistance, c.MaxDistance = min, max
	c.clamp()
}

// SetMaxPolarAngle limits how far from straight down the eye may tilt.
func (c *OrbitCamera) SetMaxPolarAngle(rad float32) {
	c.MaxPolarAngle = rad
	c.clamp()
}

// SetAutoRotate enables or disables the turntable.
func (c *OrbitCamera) SetAutoRotate(enabled bool, speed float32) {
	c.AutoRotate = enabled
	if speed > 0 {
		c.AutoRotateSpeed = speed
	}
}

// Update advances auto-rotation by dt seconds.
func (c *OrbitCamera) Update(dt float32) {
	if !c.AutoRotate {
		return
	}
	c.Yaw += float32(autoRotateRate) * c.AutoRotateSpeed * dt
	if c.Yaw > gomath.Pi {
		c.Yaw -= 2 * gomath.Pi
	}
}

// HandleDrag orbits by a mouse drag delta in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Elevation += deltaY * c.DragSensitivity
	c.clamp()
}

// HandleZoom scales the distance by a wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.clamp()
}

// HeadingDegrees returns the compass rotation for the current view
// direction, in [0, 360).
func (c *OrbitCamera) HeadingDegrees() float64 {
	dir := c.Target.Sub(c.Position())
	h := math.Degrees(gomath.Atan2(float64(dir.X), float64(dir.Z))) - 180
	h = gomath.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func (c *OrbitCamera) clamp() {
	minElev := float32(gomath.Pi/2) - c.MaxPolarAngle
	if minElev < 0 {
		minElev = 0
	}
	const maxElev = gomath.Pi/2 - 1e-3
	if c.Elevation < minElev {
		c.Elevation = minElev
	}
	if c.Elevation > maxElev {
		c.Elevation = maxElev
	}
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}
}
