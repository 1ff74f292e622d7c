// Package camera frames terrain meshes and provides the orbit camera that
// owns the pose afterwards.
package camera

import (
	gomath "math"

	"github.com/Faultbox/terrain3d/pkg/math"
)

// Framing defaults.
const (
	DefaultAngle   = 40.0
	DefaultAzimuth = 315.0
	DefaultFOV     = 60.0

	// maxAngle keeps the horizontal offset finite.
	maxAngle = 89.9
)

// Controls is the interactive control that takes over after framing.
type Controls interface {
	SetTarget(target math.Vec3)
	SetPose(position math.Vec3)
	SetDistanceLimits(min, max float32)
	SetMaxPolarAngle(rad float32)
	SetAutoRotate(enabled bool, speed float32)
}

// FitDistance returns the eye distance at which the larger horizontal
// extent of size fits the vertical field of view.
func FitDistance(size math.Vec3, fovDeg float64) float64 {
	maxDim := gomath.Max(float64(size.X), float64(size.Z))
	return maxDim / (1.5 * gomath.Tan(math.Radians(fovDeg)/2))
}

// Frame returns the eye position looking at center. angleDeg is measured
// from the vertical (0 looks straight down); azimuthDeg places the eye
// around the center, 0 being north and increasing clockwise.
func Frame(center, size math.Vec3, fovDeg, angleDeg, azimuthDeg float64) math.Vec3 {
	if gomath.IsNaN(angleDeg) || gomath.IsInf(angleDeg, 0) {
		angleDeg = DefaultAngle
	}
	if gomath.IsNaN(azimuthDeg) || gomath.IsInf(azimuthDeg, 0) {
		azimuthDeg = DefaultAzimuth
	}
	angleDeg = gomath.Max(0, gomath.Min(maxAngle, angleDeg))

	distance := FitDistance(size, fovDeg)
	angle := math.Radians(angleDeg)
	az := math.Radians(azimuthDeg)

	radius := distance / gomath.Cos(angle)
	height := radius * gomath.Cos(angle)
	horizontal := radius * gomath.Sin(angle)

	return math.Vec3{
		X: center.X - float32(horizontal*gomath.Sin(az)),
		Y: center.Y + float32(height),
		Z: center.Z + float32(horizontal*gomath.Cos(az)),
	}
}

// Limits are the orbit constraints derived from the ground extents.
type Limits struct {
	MinDistance   float32
	MaxDistance   float32
	MaxPolarAngle float32
}

// LimitsFor returns the orbit limits for a terrain of the given ground
// extents in meters.
func LimitsFor(metersWidth, metersHeight float64) Limits {
	return Limits{
		MinDistance:   float32(gomath.Min(metersWidth, metersHeight) * 0.05),
		MaxDistance:   float32(gomath.Max(metersWidth, metersHeight) * 2),
		MaxPolarAngle: gomath.Pi / 2,
	}
}

// Fit is one framing of a mesh.
type Fit struct {
	Target   math.Vec3
	Position math.Vec3
	Limits   Limits
}

// NewFit frames a mesh box with the given view parameters.
func NewFit(center, size math.Vec3, metersWidth, metersHeight, fovDeg, angleDeg, azimuthDeg float64) Fit {
	return Fit{
		Target:   center,
		Position: Frame(center, size, fovDeg, angleDeg, azimuthDeg),
		Limits:   LimitsFor(metersWidth, metersHeight),
	}
}

// Apply hands the fit to c. Limits go first so the pose is not clamped by
// the previous terrain's limits.
func (f Fit) Apply(c Controls) {
	c.SetDistanceLimits(f.Limits.MinDistance, f.Limits.MaxDistance)
	c.SetMaxPolarAngle(f.Limits.MaxPolarAngle)
	c.SetTarget(f.Target)
	c.SetPose(f.Position)
}
