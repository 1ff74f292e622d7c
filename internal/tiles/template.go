// Package tiles stitches Web-Mercator map tiles covering a bounding box into
// a single image sized to a raster grid.
package tiles

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
)

// Expand substitutes {x}, {y} and {z} with the tile indices and {r} with
// the resolution suffix (for example "@2x"; empty for none).
func Expand(template string, t maptile.Tile, retina string) string {
	return strings.NewReplacer(
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
		"{z}", strconv.FormatUint(uint64(t.Z), 10),
		"{r}", retina,
	).Replace(template)
}
