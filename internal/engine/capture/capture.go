// Package capture writes frames and composited textures as PNG files.
package capture

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Capture names and writes screenshots.
type Capture struct {
	dir    string
	prefix string
	now    func() time.Time
}

// New creates a Capture writing into dir with the given file prefix.
func New(dir, prefix string) *Capture {
	return &Capture{dir: dir, prefix: prefix, now: time.Now}
}

// Filename returns the path of a screenshot taken now.
func (c *Capture) Filename() string {
	name := fmt.Sprintf("%s_%s.png", c.prefix, c.now().Format("2006-01-02_15-04-05.000"))
	if c.dir != "" {
		name = filepath.Join(c.dir, name)
	}
	return name
}

// SaveFrame writes bottom-up RGBA framebuffer rows, as returned by
// glReadPixels, and returns the file path.
func (c *Capture) SaveFrame(pixels []byte, width, height int) (string, error) {
	img, err := FrameImage(pixels, width, height)
	if err != nil {
		return "", err
	}
	return c.SaveImage(img)
}

// SaveImage writes img under a timestamped name and returns the path.
func (c *Capture) SaveImage(img image.Image) (string, error) {
	if c.dir != "" {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	path := c.Filename()
	if err := WritePNG(path, img); err != nil {
		return "", err
	}
	return path, nil
}

// FrameImage flips bottom-up RGBA rows into an image.
func FrameImage(pixels []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: %dx%d with %d bytes", width, height, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	row := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * row
		copy(img.Pix[y*img.Stride:y*img.Stride+row], pixels[src:src+row])
	}
	return img, nil
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}
