// Package viewer runs the interactive terrain window.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/terrain3d/internal/camera"
	"github.com/Faultbox/terrain3d/internal/config"
	"github.com/Faultbox/terrain3d/internal/engine/capture"
	"github.com/Faultbox/terrain3d/internal/engine/input"
	"github.com/Faultbox/terrain3d/internal/engine/picking"
	"github.com/Faultbox/terrain3d/internal/engine/render"
	"github.com/Faultbox/terrain3d/internal/engine/ui2d"
	"github.com/Faultbox/terrain3d/internal/engine/viewport"
	"github.com/Faultbox/terrain3d/internal/engine/window"
	"github.com/Faultbox/terrain3d/internal/layers"
	"github.com/Faultbox/terrain3d/internal/logger"
	"github.com/Faultbox/terrain3d/internal/scene"
	"github.com/Faultbox/terrain3d/pkg/math"
)

const (
	title        = "Terrain3D"
	legendMargin = 16
	panelMargin  = 16
)

type loadResult struct {
	view *scene.View
	err  error
}

// Viewer is the main viewer instance.
type Viewer struct {
	cfg     *config.Config
	running bool
	log     *zap.Logger

	window   *window.Window
	renderer *render.Renderer
	terrain  *render.TerrainRenderer
	legend   *render.ImageOverlay
	panelImg *render.ImageOverlay
	input    *input.Input
	capture  *capture.Capture

	camera  *camera.OrbitCamera
	layers  *layers.Controller
	session *scene.Session

	panel *ui2d.Panel
	// panelGrab is set while a press that started on the panel is held.
	panelGrab bool

	ctx     context.Context
	cancel  context.CancelFunc
	loads   chan loadResult
	loading bool

	view      *scene.View
	status    string
	probe     string
	lastTitle string
}

// New creates the window, GL state and load session.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:   cfg,
		log:   logger.Named("viewer"),
		loads: make(chan loadResult, 1),
	}

	var err error
	v.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Renderer after window, the GL context must exist.
	w, h := v.window.Size()
	r, g, b := cfg.Graphics.BackgroundRGB()
	v.renderer, err = render.New(render.Config{Width: w, Height: h, Background: [3]float32{r, g, b}})
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.terrain, err = render.NewTerrainRenderer()
	if err != nil {
		v.Close()
		return nil, err
	}
	v.terrain.Shading = cfg.Graphics.Shading

	v.legend, err = render.NewImageOverlay()
	if err != nil {
		v.Close()
		return nil, err
	}

	v.panelImg, err = render.NewImageOverlay()
	if err != nil {
		v.Close()
		return nil, err
	}

	v.session, err = scene.FromConfig(cfg, nil)
	if err != nil {
		v.Close()
		return nil, err
	}

	v.input = input.New()
	v.capture = capture.New("screenshots", "terrain")
	v.camera = camera.NewOrbitCamera()
	v.layers = layers.New(v.camera, float32(cfg.Camera.AutoRotateSpeed))
	v.panel = newPanel()
	v.ctx, v.cancel = context.WithCancel(context.Background())

	v.log.Info("viewer initialized")
	return v, nil
}

// Run starts the main loop and blocks until the window closes.
func (v *Viewer) Run() error {
	v.running = true
	v.reload()

	last := time.Now()
	frames := 0
	fpsTimer := last

	for v.running {
		now := time.Now()
		dt := now.Sub(last).Seconds()
		last = now

		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()
		v.updatePanel()

		v.poll()
		v.camera.Update(float32(dt))
		v.updateProbe()
		if t := v.title(); t != v.lastTitle {
			v.window.SetTitle(t)
			v.lastTitle = t
		}
		v.render()
		v.window.SwapBuffers()

		frames++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frames), zap.String("dt", fmt.Sprintf("%.2fms", dt*1000)))
			frames = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

// Close releases GPU, window and load resources.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.cancel != nil {
		v.cancel()
	}
	if v.session != nil {
		v.session.Close()
	}
	if v.terrain != nil {
		v.terrain.Destroy()
	}
	if v.legend != nil {
		v.legend.Destroy()
	}
	if v.panelImg != nil {
		v.panelImg.Destroy()
	}
	if v.window != nil {
		v.window.Close()
	}
}

func (v *Viewer) handleEvents() {
	for _, e := range v.input.Events() {
		switch e.Type {
		case input.EventWindowResize:
			w, h := v.window.Size()
			v.renderer.Resize(w, h)

		case input.EventMouseDown:
			if e.Button == sdl.BUTTON_LEFT {
				x, y, _ := v.mousePixels()
				v.panelGrab = v.panel.Contains(x-panelMargin, y-panelMargin)
			}

		case input.EventMouseMove:
			if v.input.Dragging() && !v.panelGrab {
				v.camera.HandleDrag(float32(e.DX), float32(e.DY))
			}

		case input.EventWheel:
			v.camera.HandleZoom(e.Wheel)

		case input.EventKeyDown:
			v.handleKey(e.Key)
		}
	}
}

func (v *Viewer) handleKey(key sdl.Keycode) {
	if name, ok := layers.ForKey(rune(key)); ok {
		on := v.layers.Toggle(name)
		v.log.Info("layer toggled", zap.String("layer", name), zap.Bool("visible", on))
		return
	}

	switch key {
	case sdl.K_ESCAPE:
		v.running = false
	case sdl.K_r:
		v.log.Info("auto-rotate", zap.Bool("on", v.layers.ToggleRotate()))
	case sdl.K_f:
		if v.view != nil {
			v.view.Fit.Apply(v.camera)
		}
	case sdl.K_l:
		v.reload()
	case sdl.K_F12:
		v.screenshot()
	}
}

// reload starts a load in the background. A load already running is
// superseded by the session and its result is dropped.
func (v *Viewer) reload() {
	src := scene.SourcesFromConfig(v.cfg)
	v.loading = true

	go func() {
		view, err := v.session.Load(v.ctx, src)
		if errors.Is(err, scene.ErrSuperseded) {
			return
		}
		select {
		case v.loads <- loadResult{view: view, err: err}:
		case <-v.ctx.Done():
		}
	}()
}

// poll applies finished loads and drains notices. GL calls stay on the
// main thread.
func (v *Viewer) poll() {
	select {
	case res := <-v.loads:
		v.loading = false
		if res.err != nil {
			v.status = "load failed"
			v.log.Error("load failed", zap.Error(res.err))
		} else {
			v.apply(res.view)
		}
	default:
	}

	for {
		select {
		case n := <-v.session.Notices():
			v.log.Warn("notice", zap.Stringer("notice", n))
			v.status = n.Kind.String()
		default:
			return
		}
	}
}

func (v *Viewer) apply(view *scene.View) {
	if view == nil || view.Terrain == nil {
		return
	}
	t := view.Terrain
	v.view = view
	v.terrain.Load(t.Mesh, t.Material)
	v.layers.Bind(t.Material)
	v.legend.SetImage(t.Colorbar)
	view.Fit.Apply(v.camera)

	v.status = ""
	v.log.Info("terrain displayed",
		zap.Uint64("generation", view.Generation),
		zap.Float64("exaggeration", t.Exaggeration),
		zap.Bool("fallback", t.Fallback),
	)
}

func (v *Viewer) viewProj() math.Mat4 {
	far := float32(v.cfg.Camera.Far)
	if v.view != nil {
		far = viewport.FarPlane(far, v.camera.MaxDistance, v.view.Terrain.Fit.Size)
	}
	proj := math.Perspective(float32(math.Radians(v.cfg.Camera.FOV)), v.renderer.Aspect(), float32(v.cfg.Camera.Near), far)
	return proj.Mul(v.camera.ViewMatrix())
}

// mousePixels returns the pointer in drawable pixels. Mouse coordinates
// are in points, which differ on high-DPI displays.
func (v *Viewer) mousePixels() (float32, float32, bool) {
	mx, my := v.input.Mouse()
	pw, ph := v.window.PointSize()
	w, h := v.renderer.Size()
	if pw == 0 || ph == 0 {
		return 0, 0, false
	}
	return float32(mx) * float32(w) / float32(pw), float32(my) * float32(h) / float32(ph), true
}

func newPanel() *ui2d.Panel {
	items := make([]ui2d.Item, 0, len(layers.Toggles)+1)
	for _, name := range layers.Toggles {
		items = append(items, ui2d.Item{ID: name, Label: layers.Label(name), Checked: true, Disabled: true})
	}
	items = append(items, ui2d.Item{ID: layers.Rotate, Label: layers.Label(layers.Rotate)})
	return ui2d.NewPanel("Layers", items...)
}

// updatePanel routes the pointer to the layer panel and mirrors the
// controller state back into it, so key toggles show up too.
func (v *Viewer) updatePanel() {
	if x, y, ok := v.mousePixels(); ok {
		if id, toggled := v.panel.Handle(x-panelMargin, y-panelMargin, v.input.Dragging()); toggled {
			on := !v.currentlyOn(id)
			v.layers.Apply(id, on)
			v.log.Info("layer toggled", zap.String("layer", id), zap.Bool("visible", on))
		}
	}
	if !v.input.Dragging() {
		v.panelGrab = false
	}

	for _, name := range layers.Toggles {
		v.panel.Set(name, v.layers.Visible(name), !v.layers.Available(name))
	}
	v.panel.Set(layers.Rotate, v.layers.Rotating(), false)

	if v.panel.Dirty() {
		v.panelImg.SetImage(v.panel.Draw())
	}
}

func (v *Viewer) currentlyOn(id string) bool {
	if id == layers.Rotate {
		return v.layers.Rotating()
	}
	return v.layers.Visible(id)
}

func (v *Viewer) updateProbe() {
	v.probe = ""
	if v.view == nil || v.input.Dragging() {
		return
	}
	sx, sy, ok := v.mousePixels()
	if !ok || v.panel.Contains(sx-panelMargin, sy-panelMargin) {
		return
	}
	w, h := v.renderer.Size()

	ray, ok := picking.ScreenToRay(sx, sy, float32(w), float32(h), v.viewProj())
	if !ok {
		return
	}
	t := v.view.Terrain
	hit, ok := picking.PickMesh(ray, t.Mesh)
	if !ok {
		return
	}
	if p, ok := t.ProbeAt(hit.Point.X, hit.Point.Z); ok {
		v.probe = p.Format(v.cfg.Overlay.Unit)
	}
}

func (v *Viewer) render() {
	v.renderer.Begin()
	v.terrain.Render(v.viewProj())

	w, h := v.renderer.Size()
	if iw, ih := v.legend.Size(); iw > 0 {
		v.legend.Render(viewport.LegendRect(w, h, iw, ih, legendMargin), w, h)
	}
	if pw, ph := v.panelImg.Size(); pw > 0 {
		v.panelImg.Render(viewport.Rect{X: panelMargin, Y: panelMargin, W: float32(pw), H: float32(ph)}, w, h)
	}
}

func (v *Viewer) screenshot() {
	pixels, w, h := v.renderer.ReadPixels()
	path, err := v.capture.SaveFrame(pixels, w, h)
	if err != nil {
		v.log.Error("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("path", path))
}

func (v *Viewer) title() string {
	s := fmt.Sprintf("%s | heading %03.0f", title, v.camera.HeadingDegrees())
	if v.probe != "" {
		s += " | " + v.probe
	}
	switch {
	case v.loading:
		s += " | loading"
	case v.status != "":
		s += " | " + v.status
	}
	return s
}
