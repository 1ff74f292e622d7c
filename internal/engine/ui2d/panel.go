// Package ui2d draws a small checkbox panel into an image. The viewer
// uploads the image as a screen overlay and routes clicks back through
// Panel.Handle.
package ui2d

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Layout in pixels.
const (
	padding  = 8
	rowH     = 22
	boxSize  = 14
	boxInset = 3
	labelGap = 8
	minWidth = 120
)

// Rect is a simple rectangle struct.
type Rect struct {
	X, Y, W, H float32
}

// Contains checks if a point is inside the rectangle.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Item is one checkbox row.
type Item struct {
	ID      string
	Label   string
	Checked bool
	// Disabled rows are drawn dim and ignore clicks.
	Disabled bool
}

// Panel is a titled column of checkboxes. Coordinates passed to Handle are
// relative to the panel's top-left corner.
type Panel struct {
	Title string
	Items []Item

	face   font.Face
	hover  int
	active int
	down   bool
	dirty  bool
}

// NewPanel creates a panel.
func NewPanel(title string, items ...Item) *Panel {
	return &Panel{
		Title:  title,
		Items:  items,
		face:   basicfont.Face7x13,
		hover:  -1,
		active: -1,
		dirty:  true,
	}
}

// Size returns the panel size in pixels.
func (p *Panel) Size() (int, int) {
	w := minWidth
	measure := func(s string, indent int) {
		if n := padding*2 + indent + font.MeasureString(p.face, s).Ceil(); n > w {
			w = n
		}
	}
	measure(p.Title, 0)
	for _, it := range p.Items {
		measure(it.Label, boxSize+labelGap)
	}
	return w, padding*2 + rowH*(len(p.Items)+1)
}

// ItemRect returns the clickable area of row i.
func (p *Panel) ItemRect(i int) Rect {
	w, _ := p.Size()
	return Rect{
		X: padding,
		Y: float32(padding + rowH*(i+1)),
		W: float32(w - padding*2),
		H: rowH,
	}
}

// HitTest returns the row under (x, y), or -1.
func (p *Panel) HitTest(x, y float32) int {
	for i := range p.Items {
		if p.ItemRect(i).Contains(x, y) {
			return i
		}
	}
	return -1
}

// Contains reports whether (x, y) is inside the panel.
func (p *Panel) Contains(x, y float32) bool {
	w, h := p.Size()
	return Rect{W: float32(w), H: float32(h)}.Contains(x, y)
}

// Handle feeds the pointer state for one frame. A row toggles when the
// button is pressed and released over it. It returns the toggled row's ID.
func (p *Panel) Handle(x, y float32, down bool) (string, bool) {
	hit := p.HitTest(x, y)
	if hit != p.hover {
		p.hover = hit
		p.dirty = true
	}

	pressed := down && !p.down
	released := !down && p.down
	p.down = down

	if pressed {
		p.active = hit
	}
	if !released {
		return "", false
	}

	i := p.active
	p.active = -1
	if i < 0 || i != hit || p.Items[i].Disabled {
		return "", false
	}
	p.Items[i].Checked = !p.Items[i].Checked
	p.dirty = true
	return p.Items[i].ID, true
}

// Set updates a row without going through the pointer.
func (p *Panel) Set(id string, checked, disabled bool) {
	for i := range p.Items {
		it := &p.Items[i]
		if it.ID == id && (it.Checked != checked || it.Disabled != disabled) {
			it.Checked, it.Disabled = checked, disabled
			p.dirty = true
		}
	}
}

// Dirty reports whether the panel changed since the last Draw.
func (p *Panel) Dirty() bool {
	return p.dirty
}

// Draw rasterizes the panel.
func (p *Panel) Draw() *image.NRGBA {
	p.dirty = false
	w, h := p.Size()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	fill(img, image.Rect(0, 0, w, h), ColorPanelBorder)
	fill(img, image.Rect(1, 1, w-1, h-1), ColorPanelBg)
	p.text(img, p.Title, padding, padding+rowH/2+4, ColorText)

	for i, it := range p.Items {
		r := p.ItemRect(i)
		x, y := int(r.X), int(r.Y)+(rowH-boxSize)/2

		bg := ColorBoxBg
		if i == p.hover && !it.Disabled {
			bg = ColorBoxHover
		}
		fill(img, image.Rect(x, y, x+boxSize, y+boxSize), ColorPanelBorder)
		fill(img, image.Rect(x+1, y+1, x+boxSize-1, y+boxSize-1), bg)
		if it.Checked {
			mark := ColorHighlight
			if it.Disabled {
				mark = ColorTextDim
			}
			fill(img, image.Rect(x+boxInset, y+boxInset, x+boxSize-boxInset, y+boxSize-boxInset), mark)
		}

		c := ColorText
		if it.Disabled {
			c = ColorTextDim
		}
		p.text(img, it.Label, x+boxSize+labelGap, int(r.Y)+rowH/2+4, c)
	}
	return img
}

func (p *Panel) text(dst *image.NRGBA, s string, x, baseline int, c Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c.NRGBA()),
		Face: p.face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

func fill(dst *image.NRGBA, r image.Rectangle, c Color) {
	draw.Draw(dst, r, image.NewUniform(c.NRGBA()), image.Point{}, draw.Src)
}
