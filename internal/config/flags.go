package config

import (
	"flag"
	"math"
)

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagDEMURL      = flag.String("dem_url", "", "Elevation raster path or URL")
	flagLOSURL      = flag.String("los_url", "", "Displacement overlay raster path or URL")
	flagCameraAngle = flag.Float64("camera_angle", math.NaN(), "Camera elevation angle in degrees")
	flagAzimuth     = flag.Float64("azimuth", math.NaN(), "Camera azimuth in degrees (0 = north, clockwise)")
	flagQuery       = flag.String("query", "", "URL query string, e.g. dem_url=a.tif&camera_angle=30")
	flagWindowed    = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen  = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth       = flag.Int("width", 0, "Window width")
	flagHeight      = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagDEMURL != "" {
		cfg.Sources.DEMURL = *flagDEMURL
	}
	if *flagLOSURL != "" {
		cfg.Sources.LOSURL = *flagLOSURL
	}
	if !math.IsNaN(*flagCameraAngle) {
		cfg.Camera.Angle = *flagCameraAngle
	}
	if !math.IsNaN(*flagAzimuth) {
		cfg.Camera.Azimuth = *flagAzimuth
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
}
