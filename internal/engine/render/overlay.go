package render

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/terrain3d/internal/engine/shader"
	"github.com/Faultbox/terrain3d/internal/engine/viewport"
)

// ImageOverlay draws a screen-space image such as the colorbar legend.
type ImageOverlay struct {
	program *shader.Program

	locRect     int32
	locViewport int32
	locImage    int32

	vao, vbo uint32
	tex      uint32
	w, h     int
}

// NewImageOverlay compiles the overlay program and its unit quad.
func NewImageOverlay() (*ImageOverlay, error) {
	p, err := shader.New(overlayVertexShader, overlayFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("overlay shader: %w", err)
	}
	o := &ImageOverlay{
		program:     p,
		locRect:     p.Uniform("uRect"),
		locViewport: p.Uniform("uViewport"),
		locImage:    p.Uniform("uImage"),
	}

	corners := []float32{0, 0, 1, 0, 0, 1, 1, 1}
	gl.GenVertexArrays(1, &o.vao)
	gl.BindVertexArray(o.vao)
	gl.GenBuffers(1, &o.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(corners)*4, gl.Ptr(corners), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 2*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)

	return o, nil
}

// SetImage replaces the image. nil hides the overlay.
func (o *ImageOverlay) SetImage(img *image.NRGBA) {
	deleteTexture(&o.tex)
	o.w, o.h = 0, 0
	if img == nil || img.Rect.Empty() {
		return
	}
	o.tex = uploadTexture(img, false)
	o.w, o.h = img.Rect.Dx(), img.Rect.Dy()
}

// Size returns the image size, zero when hidden.
func (o *ImageOverlay) Size() (int, int) {
	return o.w, o.h
}

// Render draws the image at rect in a viewW x viewH viewport.
func (o *ImageOverlay) Render(rect viewport.Rect, viewW, viewH int) {
	if o.tex == 0 || viewW <= 0 || viewH <= 0 {
		return
	}

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	o.program.Use()
	gl.Uniform4f(o.locRect, rect.X, rect.Y, rect.W, rect.H)
	gl.Uniform2f(o.locViewport, float32(viewW), float32(viewH))
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, o.tex)
	gl.Uniform1i(o.locImage, 0)

	gl.BindVertexArray(o.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)

	gl.Disable(gl.BLEND)
	gl.Enable(gl.DEPTH_TEST)
}

// Destroy releases all resources.
func (o *ImageOverlay) Destroy() {
	deleteTexture(&o.tex)
	if o.vao != 0 {
		gl.DeleteVertexArrays(1, &o.vao)
		o.vao = 0
	}
	if o.vbo != 0 {
		gl.DeleteBuffers(1, &o.vbo)
		o.vbo = 0
	}
	o.program.Delete()
}
