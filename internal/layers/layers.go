// Package layers binds the viewer's toggle state to the terrain material
// and the orbit control.
package layers

import (
	"sync"

	"github.com/Faultbox/terrain3d/internal/terrain"
)

// Material is the part of terrain.Material the controller drives.
type Material interface {
	SetVisible(name string, visible bool) bool
	HasTexture(name string) bool
}

// Rotator starts and stops the turntable.
type Rotator interface {
	SetAutoRotate(enabled bool, speed float32)
}

// Toggles lists the user-facing layers in panel order.
var Toggles = []string{terrain.LayerImagery, terrain.LayerLabels, terrain.LayerOverlay}

// Rotate is the panel ID of the auto-rotate switch.
const Rotate = "rotate"

var labels = map[string]string{
	terrain.LayerImagery: "Satellite imagery",
	terrain.LayerLabels:  "Place labels",
	terrain.LayerOverlay: "LOS displacement",
	Rotate:               "Auto-rotate",
}

// Label returns the display name of a toggle.
func Label(id string) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return id
}

// Controller holds the toggle state across loads. A toggle changes only
// uniforms; it never rebuilds geometry or refetches textures.
type Controller struct {
	mu       sync.Mutex
	visible  map[string]bool
	material Material

	rotate  bool
	speed   float32
	rotator Rotator
}

// New creates a controller with every layer on and rotation off.
func New(rotator Rotator, rotateSpeed float32) *Controller {
	c := &Controller{
		visible: make(map[string]bool, len(Toggles)),
		speed:   rotateSpeed,
		rotator: rotator,
	}
	for _, name := range Toggles {
		c.visible[name] = true
	}
	return c
}

// Bind attaches a freshly built material and pushes the current state into
// it. Layers without a texture stay hidden.
func (c *Controller) Bind(m Material) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.material = m
	c.applyLocked()
}

// Set changes one layer. It reports whether name is a known toggle.
func (c *Controller) Set(name string, visible bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.visible[name]; !ok {
		return false
	}
	c.visible[name] = visible
	c.applyLocked()
	return true
}

// Toggle flips one layer and returns its new state.
func (c *Controller) Toggle(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.visible[name]
	if !ok {
		return false
	}
	c.visible[name] = !v
	c.applyLocked()
	return !v
}

// Visible reports the requested state of a layer, independent of whether
// the bound material has a texture for it.
func (c *Controller) Visible(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible[name]
}

// Available reports whether the bound material can show name.
func (c *Controller) Available(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.material != nil && c.material.HasTexture(name)
}

// Apply sets a layer or, for Rotate, the turntable. It reports whether id
// is known.
func (c *Controller) Apply(id string, on bool) bool {
	if id == Rotate {
		c.SetRotate(on)
		return true
	}
	return c.Set(id, on)
}

// SetRotate starts or stops auto-rotation.
func (c *Controller) SetRotate(on bool) {
	c.mu.Lock()
	c.rotate = on
	r, speed := c.rotator, c.speed
	c.mu.Unlock()
	if r != nil {
		r.SetAutoRotate(on, speed)
	}
}

// ToggleRotate flips auto-rotation and returns the new state.
func (c *Controller) ToggleRotate() bool {
	on := !c.Rotating()
	c.SetRotate(on)
	return on
}

// Rotating reports whether auto-rotation is on.
func (c *Controller) Rotating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotate
}

func (c *Controller) applyLocked() {
	if c.material == nil {
		return
	}
	for _, name := range Toggles {
		c.material.SetVisible(name, c.visible[name] && c.material.HasTexture(name))
	}
}

// ForKey maps the viewer's number keys to layers.
func ForKey(key rune) (string, bool) {
	i := int(key - '1')
	if i < 0 || i >= len(Toggles) {
		return "", false
	}
	return Toggles[i], true
}
