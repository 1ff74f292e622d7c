// Package render draws the terrain and its legend with OpenGL 4.1.
package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/terrain3d/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	Background [3]float32
}

// Renderer owns the frame state shared by all passes.
type Renderer struct {
	config Config
}

// New initializes OpenGL. It must be called after the context is created.
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	bg := cfg.Background
	gl.ClearColor(bg[0], bg[1], bg[2], 1)
	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))

	return &Renderer{config: cfg}, nil
}

// Size returns the viewport size.
func (r *Renderer) Size() (int, int) {
	return r.config.Width, r.config.Height
}

// Aspect returns the viewport aspect ratio.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Begin clears the frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// ReadPixels returns the back buffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return pixels, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, w, h
}
