package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Sources.DEMURL != "study_area.tif" {
		t.Errorf("expected dem_url study_area.tif, got %s", cfg.Sources.DEMURL)
	}
	if cfg.Sources.LOSURL != "" {
		t.Errorf("expected empty los_url, got %s", cfg.Sources.LOSURL)
	}

	if cfg.Camera.Angle != 40 {
		t.Errorf("expected camera angle 40, got %v", cfg.Camera.Angle)
	}
	if cfg.Camera.Azimuth != 315 {
		t.Errorf("expected azimuth 315, got %v", cfg.Camera.Azimuth)
	}
	if cfg.Camera.FOV != 60 {
		t.Errorf("expected fov 60, got %v", cfg.Camera.FOV)
	}

	if cfg.Basemap.Zoom != 12 {
		t.Errorf("expected zoom 12, got %d", cfg.Basemap.Zoom)
	}
	if cfg.Basemap.RetinaSuffix != "@2x" {
		t.Errorf("expected retina suffix @2x, got %s", cfg.Basemap.RetinaSuffix)
	}

	if cfg.Overlay.Opacity != 0.8 {
		t.Errorf("expected overlay opacity 0.8, got %v", cfg.Overlay.Opacity)
	}
	if cfg.Overlay.Alpha != 200 {
		t.Errorf("expected overlay alpha 200, got %d", cfg.Overlay.Alpha)
	}
	if cfg.Terrain.ReliefRatio != 0.05 {
		t.Errorf("expected relief ratio 0.05, got %v", cfg.Terrain.ReliefRatio)
	}

	if cfg.Graphics.Width != 1280 || cfg.Graphics.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
sources:
  dem_url: "https://example.com/dem.tif"
  los_url: "los.tif"

camera:
  angle: 30
  azimuth: 90

basemap:
  zoom: 10
  labels_api_key: "secret"
  fetch_timeout: 5s

overlay:
  opacity: 0.5

graphics:
  width: 1920
  height: 1080
  fullscreen: true
  shading: true

logging:
  level: "debug"
  log_file: "terrain.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Sources.DEMURL != "https://example.com/dem.tif" || cfg.Sources.LOSURL != "los.tif" {
		t.Errorf("unexpected sources: %+v", cfg.Sources)
	}
	if cfg.Camera.Angle != 30 || cfg.Camera.Azimuth != 90 {
		t.Errorf("unexpected camera: %+v", cfg.Camera)
	}
	// Untouched keys keep their defaults.
	if cfg.Camera.FOV != 60 {
		t.Errorf("expected default fov to survive, got %v", cfg.Camera.FOV)
	}
	if cfg.Basemap.Zoom != 10 {
		t.Errorf("expected zoom 10, got %d", cfg.Basemap.Zoom)
	}
	if cfg.Basemap.FetchTimeout != 5*time.Second {
		t.Errorf("expected fetch timeout 5s, got %v", cfg.Basemap.FetchTimeout)
	}
	if cfg.Overlay.Opacity != 0.5 {
		t.Errorf("expected overlay opacity 0.5, got %v", cfg.Overlay.Opacity)
	}
	if !cfg.Graphics.Fullscreen || !cfg.Graphics.Shading {
		t.Error("expected fullscreen and shading to be true")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "terrain.log" {
		t.Errorf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
graphics:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestLoadFileValidates(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("camera:\n  angle: 95\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadFile(configPath); err == nil {
		t.Error("expected validation error for angle 95")
	}

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("defaults should load: %v", err)
	}
	if cfg.Camera.Angle != 40 {
		t.Errorf("expected default angle, got %v", cfg.Camera.Angle)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"angle at 90", func(c *Config) { c.Camera.Angle = 90 }},
		{"negative angle", func(c *Config) { c.Camera.Angle = -1 }},
		{"fov zero", func(c *Config) { c.Camera.FOV = 0 }},
		{"far before near", func(c *Config) { c.Camera.Far = 5 }},
		{"zoom too deep", func(c *Config) { c.Basemap.Zoom = 23 }},
		{"opacity above one", func(c *Config) { c.Overlay.Opacity = 1.5 }},
		{"empty dem", func(c *Config) { c.Sources.DEMURL = "" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad background", func(c *Config) { c.Graphics.Background = "blue" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyQuery(t *testing.T) {
	cfg := Default()
	err := ApplyQuery(cfg, "?dem_url=uploads%2Fdem.tif&los_url=los.tif&camera_angle=25&azimuth=180")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sources.DEMURL != "uploads/dem.tif" {
		t.Errorf("expected decoded dem_url, got %s", cfg.Sources.DEMURL)
	}
	if cfg.Sources.LOSURL != "los.tif" {
		t.Errorf("expected los_url los.tif, got %s", cfg.Sources.LOSURL)
	}
	if cfg.Camera.Angle != 25 || cfg.Camera.Azimuth != 180 {
		t.Errorf("unexpected camera %+v", cfg.Camera)
	}
}

func TestApplyQueryInvalidNumbers(t *testing.T) {
	cfg := Default()
	err := ApplyQuery(cfg, "camera_angle=steep&azimuth=east&dem_url=x.tif")
	if err == nil {
		t.Fatal("expected error for non-numeric values")
	}
	if !strings.Contains(err.Error(), "camera_angle") || !strings.Contains(err.Error(), "azimuth") {
		t.Errorf("expected both keys in error, got %v", err)
	}
	if cfg.Camera.Angle != 40 || cfg.Camera.Azimuth != 315 {
		t.Errorf("invalid values should keep defaults, got %+v", cfg.Camera)
	}
	if cfg.Sources.DEMURL != "x.tif" {
		t.Errorf("valid parameters should still apply, got %s", cfg.Sources.DEMURL)
	}
}

func TestLabelsTemplate(t *testing.T) {
	b := Default().Basemap
	if got := b.LabelsTemplate(); got != b.LabelsURL {
		t.Errorf("without key expected raw template, got %s", got)
	}
	b.LabelsAPIKey = "k"
	if got := b.LabelsTemplate(); !strings.HasSuffix(got, "{r}.png?api_key=k") {
		t.Errorf("unexpected template %s", got)
	}
	b.LabelsURL = "https://t.example/{z}/{x}/{y}.png?style=x"
	if got := b.LabelsTemplate(); !strings.HasSuffix(got, "?style=x&api_key=k") {
		t.Errorf("unexpected template %s", got)
	}
}

func TestBackgroundRGB(t *testing.T) {
	r, g, b := Default().Graphics.BackgroundRGB()
	if math.Abs(float64(r)-0xbf/255.0) > 1e-6 || math.Abs(float64(g)-0xd1/255.0) > 1e-6 || math.Abs(float64(b)-0xe5/255.0) > 1e-6 {
		t.Errorf("unexpected background %v %v %v", r, g, b)
	}
	r, g, b = GraphicsConfig{Background: "#fff"}.BackgroundRGB()
	if r != 1 || g != 1 || b != 1 {
		t.Errorf("short form: got %v %v %v", r, g, b)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "terrain3d.yaml")
	if err := os.WriteFile(configPath, []byte("graphics:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find terrain3d.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name: "source flags",
			setup: func() {
				*flagDEMURL = "dem.tif"
				*flagLOSURL = "los.tif"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Sources.DEMURL != "dem.tif" || cfg.Sources.LOSURL != "los.tif" {
					t.Errorf("unexpected sources %+v", cfg.Sources)
				}
			},
			teardown: func() {
				*flagDEMURL = ""
				*flagLOSURL = ""
			},
		},
		{
			name: "camera flags",
			setup: func() {
				*flagCameraAngle = 0
				*flagAzimuth = 45
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Camera.Angle != 0 || cfg.Camera.Azimuth != 45 {
					t.Errorf("unexpected camera %+v", cfg.Camera)
				}
			},
			teardown: func() {
				*flagCameraAngle = math.NaN()
				*flagAzimuth = math.NaN()
			},
		},
		{
			name:  "windowed flag",
			setup: func() { *flagWindowed = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Fullscreen {
					t.Error("expected fullscreen to be false with windowed flag")
				}
			},
			teardown: func() { *flagWindowed = false },
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Graphics.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Width != 2560 || cfg.Graphics.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
camera:
  angle: 20
  azimuth: 10
sources:
  dem_url: file.tif
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagCameraAngle = 30
	*flagQuery = "dem_url=query.tif"
	defer func() {
		*flagConfig = ""
		*flagCameraAngle = math.NaN()
		*flagQuery = ""
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Camera.Angle != 30 {
		t.Errorf("expected angle 30 from flag, got %v", cfg.Camera.Angle)
	}
	if cfg.Camera.Azimuth != 10 {
		t.Errorf("expected azimuth 10 from file, got %v", cfg.Camera.Azimuth)
	}
	if cfg.Sources.DEMURL != "query.tif" {
		t.Errorf("expected dem_url from query, got %s", cfg.Sources.DEMURL)
	}
}

func TestSaveToOmitsAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Basemap.LabelsAPIKey = "do-not-write"
	cfg.Camera.Angle = 33

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if cfg.Basemap.LabelsAPIKey != "do-not-write" {
		t.Error("SaveTo must not modify the receiver")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if strings.Contains(string(data), "do-not-write") {
		t.Error("API key written to disk")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	if loaded.Camera.Angle != 33 {
		t.Errorf("expected angle 33, got %v", loaded.Camera.Angle)
	}
}
