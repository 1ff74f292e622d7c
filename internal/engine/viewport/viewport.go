// Package viewport holds the per-frame layout math of the renderer that
// does not need a GL context.
package viewport

import (
	gomath "math"

	"github.com/Faultbox/terrain3d/internal/terrain"
	"github.com/Faultbox/terrain3d/pkg/math"
)

// MaxLayers is the number of texture layers the terrain shader evaluates.
const MaxLayers = 4

// LayerState is the per-frame uniform data of the layer loop. Weight is
// visible*opacity and zero for hidden or empty layers.
type LayerState struct {
	Count  int32
	Weight [MaxLayers]float32
	Blend  [MaxLayers]int32
}

// Layers flattens a material's layers. Layers past MaxLayers are ignored.
func Layers(layers []terrain.Layer) LayerState {
	var s LayerState
	for i, l := range layers {
		if i == MaxLayers {
			break
		}
		s.Count++
		if l.Visible && l.Texture != nil {
			s.Weight[i] = float32(gomath.Max(0, gomath.Min(1, l.Opacity)))
		}
		if l.Blend == terrain.BlendAlpha {
			s.Blend[i] = 1
		}
	}
	return s
}

// FarPlane returns a far clip distance that keeps the whole mesh visible
// from the farthest allowed orbit distance.
func FarPlane(base, maxDistance float32, size math.Vec3) float32 {
	extent := size.X
	if size.Y > extent {
		extent = size.Y
	}
	if size.Z > extent {
		extent = size.Z
	}
	far := maxDistance + 2*extent
	if far < base {
		return base
	}
	return far
}

// Rect is a screen rectangle in pixels, origin top-left.
type Rect struct {
	X, Y, W, H float32
}

// LegendRect places an image in the bottom-right corner of the viewport.
func LegendRect(viewW, viewH, imgW, imgH int, margin float32) Rect {
	return Rect{
		X: float32(viewW) - float32(imgW) - margin,
		Y: float32(viewH) - float32(imgH) - margin,
		W: float32(imgW),
		H: float32(imgH),
	}
}
