package terrain

import "math"

// Vertical exaggeration limits and default relief ratio.
const (
	MinExaggeration    = 0.1
	MaxExaggeration    = 5.0
	DefaultReliefRatio = 0.05

	flatRange = 100.0
	tallRange = 1000.0
	tallFloor = 0.5
)

// Exaggeration returns the vertical scale that makes the elevation range
// about reliefRatio of the horizontal average extent.
//
// Ranges under 100 are boosted up to 3x as they approach zero. Ranges over
// 1000 are floored at min(0.5, base at range 1000) so the result never
// increases with range. A zero or non-finite range yields MaxExaggeration.
// The result is clamped to [MinExaggeration, MaxExaggeration].
func Exaggeration(elevationRange, horizontalAverage, reliefRatio float64) float64 {
	if !(elevationRange > 0) || math.IsInf(elevationRange, 0) {
		return MaxExaggeration
	}

	target := horizontalAverage * reliefRatio
	base := target / elevationRange

	if elevationRange < flatRange {
		flatness := 1 - elevationRange/flatRange
		base *= 1 + flatness*2
	}

	if elevationRange > tallRange {
		floor := math.Min(tallFloor, target/tallRange)
		base = math.Max(base, floor)
	}

	if math.IsNaN(base) {
		return MinExaggeration
	}
	return math.Max(MinExaggeration, math.Min(MaxExaggeration, base))
}
