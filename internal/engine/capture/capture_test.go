package capture

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFrameImageFlipsRows(t *testing.T) {
	// Two rows, bottom row red, top row blue.
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	img, err := FrameImage(pixels, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("top = %v, want blue", got)
	}
	if got := img.RGBAAt(0, 1); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("bottom = %v, want red", got)
	}
}

func TestFrameImageRejectsBadSize(t *testing.T) {
	if _, err := FrameImage(make([]byte, 7), 1, 2); err == nil {
		t.Error("expected size mismatch")
	}
	if _, err := FrameImage(nil, 0, 0); err == nil {
		t.Error("expected error for empty frame")
	}
}

func TestSaveFrame(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	c := New(dir, "terrain")
	c.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC) }

	path, err := c.SaveFrame(make([]byte, 2*2*4), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "terrain_2024-03-01_12-30-45.000.png"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestFilenameWithoutDir(t *testing.T) {
	c := New("", "shot")
	if name := c.Filename(); strings.ContainsRune(name, filepath.Separator) || !strings.HasPrefix(name, "shot_") {
		t.Errorf("filename = %q", name)
	}
}
