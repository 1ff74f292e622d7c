// Package config handles viewer and tool configuration loading and validation.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all settings.
type Config struct {
	Sources  SourcesConfig  `yaml:"sources"`
	Camera   CameraConfig   `yaml:"camera"`
	Basemap  BasemapConfig  `yaml:"basemap"`
	Overlay  OverlayConfig  `yaml:"overlay"`
	Terrain  TerrainConfig  `yaml:"terrain"`
	Graphics GraphicsConfig `yaml:"graphics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SourcesConfig names the rasters to load. Each is a local path or an
// http(s) URL.
type SourcesConfig struct {
	DEMURL string `yaml:"dem_url" validate:"required"`
	LOSURL string `yaml:"los_url"` // optional displacement overlay
}

// CameraConfig holds initial framing and projection settings.
type CameraConfig struct {
	Angle           float64 `yaml:"angle" validate:"gte=0,lt=90"`
	Azimuth         float64 `yaml:"azimuth"`
	FOV             float64 `yaml:"fov" validate:"gt=0,lt=180"`
	Near            float64 `yaml:"near" validate:"gt=0"`
	Far             float64 `yaml:"far" validate:"gtfield=Near"`
	AutoRotateSpeed float64 `yaml:"auto_rotate_speed" validate:"gte=0"`
}

// BasemapConfig holds the tile services used for the imagery and label layers.
type BasemapConfig struct {
	ImageryURL           string        `yaml:"imagery_url" validate:"required"`
	LabelsURL            string        `yaml:"labels_url"`
	LabelsAPIKey         string        `yaml:"labels_api_key"`
	Zoom                 int           `yaml:"zoom" validate:"gte=0,lte=22"`
	RetinaSuffix         string        `yaml:"retina_suffix"`
	MaxConcurrentFetches int           `yaml:"max_concurrent_fetches" validate:"gte=0"`
	CacheSize            int           `yaml:"cache_size" validate:"gte=0"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout" validate:"gte=0"`
	ImageryOpacity       float64       `yaml:"imagery_opacity" validate:"gte=0,lte=1"`
	LabelsOpacity        float64       `yaml:"labels_opacity" validate:"gte=0,lte=1"`
}

// LabelsTemplate returns the label tile template with the API key appended.
func (b BasemapConfig) LabelsTemplate() string {
	if b.LabelsURL == "" || b.LabelsAPIKey == "" {
		return b.LabelsURL
	}
	sep := "?"
	if strings.Contains(b.LabelsURL, "?") {
		sep = "&"
	}
	return b.LabelsURL + sep + "api_key=" + b.LabelsAPIKey
}

// OverlayConfig holds colormap overlay settings.
type OverlayConfig struct {
	Opacity float64 `yaml:"opacity" validate:"gte=0,lte=1"`
	Alpha   uint8   `yaml:"alpha"`
	Unit    string  `yaml:"unit"`
}

// TerrainConfig holds mesh build settings.
type TerrainConfig struct {
	ReliefRatio float64 `yaml:"relief_ratio" validate:"gt=0"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int    `yaml:"width" validate:"gte=0"`
	Height     int    `yaml:"height" validate:"gte=0"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	Shading    bool   `yaml:"shading"`
	Background string `yaml:"background" validate:"hexcolor"`
}

// BackgroundRGB returns the clear color as normalized components.
func (g GraphicsConfig) BackgroundRGB() (r, gr, b float32) {
	s := strings.TrimPrefix(g.Background, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		v = 0xbfd1e5
	}
	return float32(v>>16&0xff) / 255, float32(v>>8&0xff) / 255, float32(v&0xff) / 255
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" validate:"oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"omitempty,oneof=console json"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the viewer's stock values.
func Default() *Config {
	return &Config{
		Sources: SourcesConfig{
			DEMURL: "study_area.tif",
		},
		Camera: CameraConfig{
			Angle:           40,
			Azimuth:         315,
			FOV:             60,
			Near:            10,
			Far:             20000,
			AutoRotateSpeed: 1.0,
		},
		Basemap: BasemapConfig{
			ImageryURL:           "https://services.arcgisonline.com/arcgis/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
			LabelsURL:            "https://tiles.stadiamaps.com/tiles/stamen_toner_labels/{z}/{x}/{y}{r}.png",
			Zoom:                 12,
			RetinaSuffix:         "@2x",
			MaxConcurrentFetches: 16,
			CacheSize:            256,
			FetchTimeout:         0,
			ImageryOpacity:       1,
			LabelsOpacity:        1,
		},
		Overlay: OverlayConfig{
			Opacity: 0.8,
			Alpha:   200,
			Unit:    "mm",
		},
		Terrain: TerrainConfig{
			ReliefRatio: 0.05,
		},
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			Shading:    false,
			Background: "#bfd1e5",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			LogFile: "",
		},
	}
}

var validate = validator.New()

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
