package scene

import (
	"fmt"
	"net/http"

	"github.com/Faultbox/terrain3d/internal/config"
	"github.com/Faultbox/terrain3d/internal/raster"
	"github.com/Faultbox/terrain3d/internal/terrain"
	"github.com/Faultbox/terrain3d/internal/tiles"
)

// BuilderOptions maps configuration onto terrain build options.
func BuilderOptions(cfg *config.Config) terrain.Options {
	return terrain.Options{
		ImageryURL:     cfg.Basemap.ImageryURL,
		LabelsURL:      cfg.Basemap.LabelsTemplate(),
		Zoom:           cfg.Basemap.Zoom,
		ReliefRatio:    cfg.Terrain.ReliefRatio,
		ImageryOpacity: cfg.Basemap.ImageryOpacity,
		LabelsOpacity:  cfg.Basemap.LabelsOpacity,
		OverlayOpacity: cfg.Overlay.Opacity,
		OverlayAlpha:   cfg.Overlay.Alpha,
		OverlayUnit:    cfg.Overlay.Unit,
	}
}

// FromConfig wires a Session with the HTTP raster loader and tile
// compositor described by cfg. client may be nil.
func FromConfig(cfg *config.Config, client *http.Client) (*Session, error) {
	if client == nil {
		client = http.DefaultClient
	}

	compositor, err := tiles.New(
		tiles.WithHTTPClient(client),
		tiles.WithConcurrency(cfg.Basemap.MaxConcurrentFetches),
		tiles.WithCacheSize(cfg.Basemap.CacheSize),
		tiles.WithRetinaSuffix(cfg.Basemap.RetinaSuffix),
		tiles.WithFetchTimeout(cfg.Basemap.FetchTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tile compositor: %w", err)
	}

	loader := raster.NewLoader(raster.WithHTTPClient(client))
	builder := terrain.NewBuilder(compositor, BuilderOptions(cfg))

	return New(loader, builder, ViewParams{
		FOV:     cfg.Camera.FOV,
		Angle:   cfg.Camera.Angle,
		Azimuth: cfg.Camera.Azimuth,
	}), nil
}

// SourcesFromConfig returns the configured raster sources.
func SourcesFromConfig(cfg *config.Config) Sources {
	return Sources{DEM: cfg.Sources.DEMURL, LOS: cfg.Sources.LOSURL}
}
