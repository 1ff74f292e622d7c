// terrainctl inspects rasters and renders terrain textures without a window.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/terrain3d/internal/config"
	"github.com/Faultbox/terrain3d/internal/engine/capture"
	"github.com/Faultbox/terrain3d/internal/logger"
	"github.com/Faultbox/terrain3d/internal/raster"
	"github.com/Faultbox/terrain3d/internal/scene"
	"github.com/Faultbox/terrain3d/pkg/geo"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
	flagSrc    = "src"
	flagBBox   = "bbox"
	flagDEM    = "dem"
	flagLOS    = "los"
	flagOut    = "out"
	flagWidth  = "width"
)

func envVars(name string) []string {
	return []string{"TERRAIN_" + strcase.ToScreamingSnake(name)}
}

func main() {
	app := cli.NewApp()
	app.Name = "terrainctl"
	app.Usage = "Inspect elevation rasters and render terrain textures"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "Path to config file",
			EnvVars: envVars(flagConfig),
		},
		&cli.BoolFlag{
			Name:    flagDebug,
			Usage:   "Enable debug logging",
			EnvVars: envVars(flagDebug),
		},
	}
	app.Before = func(c *cli.Context) error {
		level := "warn"
		if c.Bool(flagDebug) {
			level = "debug"
		}
		return logger.Init(level, "")
	}
	app.After = func(*cli.Context) error {
		logger.Sync()
		return nil
	}

	app.Commands = []*cli.Command{
		{
			Name:  "info",
			Usage: "Decode a raster and print its grid, bounds and value range",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagSrc,
					Aliases:  []string{"s"},
					Usage:    "Raster path or URL",
					Required: true,
					EnvVars:  envVars(flagSrc),
				},
			},
			Action: cmdInfo,
		},
		{
			Name:  "area",
			Usage: "Print the approximate area of a bounding box",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagBBox,
					Aliases:  []string{"b"},
					Usage:    "west,south,east,north in degrees",
					Required: true,
					EnvVars:  envVars(flagBBox),
				},
			},
			Action: cmdArea,
		},
		{
			Name:  "config",
			Usage: "Write the effective configuration as YAML",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagOut,
					Aliases: []string{"o"},
					Usage:   "Output path (defaults to the user config directory)",
					EnvVars: envVars(flagOut),
				},
			},
			Action: cmdConfig,
		},
		{
			Name:  "snapshot",
			Usage: "Build the terrain material and write it and the colorbar as PNG",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagDEM,
					Aliases: []string{"d"},
					Usage:   "Elevation raster path or URL (defaults to the config)",
					EnvVars: envVars(flagDEM),
				},
				&cli.StringFlag{
					Name:    flagLOS,
					Aliases: []string{"l"},
					Usage:   "Displacement overlay raster path or URL",
					EnvVars: envVars(flagLOS),
				},
				&cli.StringFlag{
					Name:     flagOut,
					Aliases:  []string{"o"},
					Usage:    "Output PNG; the colorbar is written next to it",
					Required: true,
					EnvVars:  envVars(flagOut),
				},
				&cli.IntFlag{
					Name:    flagWidth,
					Aliases: []string{"w"},
					Usage:   "Output width in pixels; height follows the terrain aspect",
					Value:   1024,
					EnvVars: envVars(flagWidth),
				},
			},
			Action: cmdSnapshot,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdInfo(c *cli.Context) error {
	loader := raster.NewLoader()
	ds, err := loader.Fetch(c.Context, c.String(flagSrc))
	if err != nil {
		return err
	}

	mw, mh := geo.DegreesToMeters(ds.BBox)
	fmt.Printf("Source:   %s\n", c.String(flagSrc))
	fmt.Printf("Grid:     %d x %d\n", ds.Width, ds.Height)
	fmt.Printf("BBox:     %s\n", ds.BBox)
	fmt.Printf("Extent:   %.0f m x %.0f m\n", mw, mh)
	fmt.Printf("Range:    %.3f .. %.3f (%d valid samples)\n", ds.Range.Min, ds.Range.Max, ds.Range.Count)
	printArea(ds.BBox)
	return nil
}

func cmdArea(c *cli.Context) error {
	bbox, err := parseBBox(c.String(flagBBox))
	if err != nil {
		return err
	}
	printArea(bbox)
	return nil
}

func printArea(bbox geo.BBox) {
	fmt.Printf("Area:     %.1f km²\n", geo.AreaKm2(bbox))
	if geo.ExceedsAreaLimit(bbox) {
		fmt.Printf("Limit:    exceeds %.0f km² upload limit\n", geo.MaxUploadAreaKm2)
	} else {
		fmt.Printf("Limit:    within %.0f km² upload limit\n", geo.MaxUploadAreaKm2)
	}
}

func cmdConfig(c *cli.Context) error {
	cfg, err := config.LoadFile(c.String(flagConfig))
	if err != nil {
		return err
	}
	out := c.String(flagOut)
	if out == "" {
		out = filepath.Join(config.ConfigDir(), "config.yaml")
	}
	if err := cfg.SaveTo(out); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

func cmdSnapshot(c *cli.Context) error {
	cfg, err := config.LoadFile(c.String(flagConfig))
	if err != nil {
		return err
	}
	src := scene.SourcesFromConfig(cfg)
	if v := c.String(flagDEM); v != "" {
		src.DEM = v
	}
	if v := c.String(flagLOS); v != "" {
		src.LOS = v
	}

	session, err := scene.FromConfig(cfg, nil)
	if err != nil {
		return err
	}
	defer session.Close()

	view, err := session.Load(c.Context, src)
	if err != nil {
		return err
	}
	drainNotices(session)

	t := view.Terrain
	width, height := snapshotSize(c.Int(flagWidth), t.PlaneWidth, t.PlaneDepth)
	out := c.String(flagOut)
	if err := capture.WritePNG(out, t.Material.Composite(width, height)); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%dx%d, exaggeration %.2f)\n", out, width, height, t.Exaggeration)

	if t.Colorbar != nil {
		path := colorbarPath(out)
		if err := capture.WritePNG(path, t.Colorbar); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func drainNotices(s *scene.Session) {
	for {
		select {
		case n := <-s.Notices():
			logger.Warn("notice", zap.Stringer("notice", n))
		default:
			return
		}
	}
}

// snapshotSize keeps the plane aspect. Degenerate planes give a square.
func snapshotSize(width int, planeW, planeD float64) (int, int) {
	if width <= 0 {
		width = 1024
	}
	if planeW <= 0 || planeD <= 0 {
		return width, width
	}
	h := int(float64(width)*planeD/planeW + 0.5)
	return width, max(h, 1)
}

func colorbarPath(out string) string {
	if i := strings.LastIndex(out, "."); i > strings.LastIndex(out, "/") {
		return out[:i] + "_colorbar" + out[i:]
	}
	return out + "_colorbar.png"
}

// parseBBox reads "west,south,east,north".
func parseBBox(s string) (geo.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.BBox{}, fmt.Errorf("bbox %q: want west,south,east,north", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BBox{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	b := geo.NewBBox(v[0], v[1], v[2], v[3])
	if !b.Valid() {
		return geo.BBox{}, fmt.Errorf("bbox %q: invalid bounds", s)
	}
	return b, nil
}
