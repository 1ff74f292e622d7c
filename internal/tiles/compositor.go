package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // tile decoders
	_ "image/png"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/nfnt/resize"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/terrain3d/internal/logger"
	"github.com/Faultbox/terrain3d/pkg/geo"
)

var (
	// ErrPartialTileFailure marks a composite where some tiles failed.
	ErrPartialTileFailure = errors.New("some basemap tiles failed")
	// ErrTooManyTiles is returned when the covering set exceeds the limit.
	ErrTooManyTiles = errors.New("too many tiles")
)

const (
	DefaultConcurrency = 16
	DefaultMaxTiles    = 4096
	maxTileBytes       = 16 << 20
)

// Report describes one composite. A failed tile leaves its cell untouched.
type Report struct {
	Requested int
	Failed    int
	// Errors aggregates the per-tile failures.
	Errors error
}

// Err returns nil when every tile loaded, otherwise an error wrapping
// ErrPartialTileFailure and the per-tile errors.
func (r *Report) Err() error {
	if r == nil || r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d: %w", ErrPartialTileFailure, r.Failed, r.Requested, r.Errors)
}

// Compositor fetches tiles over HTTP and draws them into a target image.
// It is safe for concurrent use.
type Compositor struct {
	client      *http.Client
	cacheSize   int
	cache       *otter.Cache[string, image.Image]
	concurrency int
	maxTiles    int
	retina      string
	timeout     time.Duration
	log         *zap.Logger
}

// Option configures a Compositor.
type Option func(*Compositor)

func WithHTTPClient(c *http.Client) Option {
	return func(cp *Compositor) { cp.client = c }
}

// WithCacheSize keeps up to n decoded tiles across composites. Zero disables
// the cache.
func WithCacheSize(n int) Option {
	return func(cp *Compositor) { cp.cacheSize = n }
}

// WithConcurrency bounds in-flight fetches per composite. Zero or less means
// unbounded.
func WithConcurrency(n int) Option {
	return func(cp *Compositor) { cp.concurrency = n }
}

func WithMaxTiles(n int) Option {
	return func(cp *Compositor) { cp.maxTiles = n }
}

// WithRetinaSuffix sets the {r} substitution.
func WithRetinaSuffix(s string) Option {
	return func(cp *Compositor) { cp.retina = s }
}

// WithFetchTimeout bounds each tile request. Zero means no timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(cp *Compositor) { cp.timeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(cp *Compositor) { cp.log = log }
}

// New creates a Compositor.
func New(opts ...Option) (*Compositor, error) {
	c := &Compositor{
		client:      http.DefaultClient,
		concurrency: DefaultConcurrency,
		maxTiles:    DefaultMaxTiles,
		retina:      "@2x",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("tiles")
	}

	if c.cacheSize > 0 {
		cache, err := otter.New(&otter.Options[string, image.Image]{
			MaximumSize: c.cacheSize,
		})
		if err != nil {
			return nil, fmt.Errorf("creating tile cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

// Composite fetches every tile covering bbox at zoom concurrently and
// stretches each into its cell of a width x height image. It returns an
// error only for invalid arguments or when ctx is done; tile failures are
// recorded in the Report.
func (c *Compositor) Composite(ctx context.Context, template string, bbox geo.BBox, width, height, zoom int) (*image.NRGBA, *Report, error) {
	if template == "" {
		return nil, nil, fmt.Errorf("tiles: empty template")
	}
	if width <= 0 || height <= 0 {
		return nil, nil, fmt.Errorf("tiles: invalid target size %dx%d", width, height)
	}
	if zoom < 0 || zoom > 22 {
		return nil, nil, fmt.Errorf("tiles: zoom %d out of range", zoom)
	}
	if !bbox.Valid() {
		return nil, nil, fmt.Errorf("tiles: invalid bounding box %v", bbox)
	}

	tr := geo.CoveringTiles(bbox, zoom)
	nx, ny := tr.CountX(), tr.CountY()
	if c.maxTiles > 0 && nx*ny > c.maxTiles {
		return nil, nil, fmt.Errorf("%w: %d tiles at zoom %d (limit %d)", ErrTooManyTiles, nx*ny, zoom, c.maxTiles)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	report := &Report{Requested: nx * ny}
	tileW := float64(width) / float64(nx)
	tileH := float64(height) / float64(ny)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}

	for _, t := range tr.Tiles() {
		col := int(t.X - tr.MinX)
		row := int(t.Y - tr.MinY)
		cell := image.Rect(
			int(float64(col)*tileW), int(float64(row)*tileH),
			int(float64(col+1)*tileW), int(float64(row+1)*tileH),
		)

		g.Go(func() error {
			url := Expand(template, t, c.retina)
			img, err := c.tile(ctx, url)
			if err != nil {
				mu.Lock()
				report.Failed++
				report.Errors = multierr.Append(report.Errors, fmt.Errorf("tile %d/%d/%d: %w", t.Z, t.X, t.Y, err))
				mu.Unlock()
				c.log.Warn("tile failed", zap.String("url", url), zap.Error(err))
				return nil
			}
			if cell.Empty() {
				return nil
			}

			scaled := resize.Resize(uint(cell.Dx()), uint(cell.Dy()), img, resize.Bilinear)

			mu.Lock()
			draw.Draw(dst, cell, scaled, scaled.Bounds().Min, draw.Over)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	c.log.Debug("basemap composited",
		zap.Int("zoom", zoom),
		zap.Int("tiles_x", nx),
		zap.Int("tiles_y", ny),
		zap.Int("failed", report.Failed),
	)
	return dst, report, nil
}

// tile returns the decoded tile, from the cache when enabled.
func (c *Compositor) tile(ctx context.Context, url string) (image.Image, error) {
	if c.cache == nil {
		return c.fetch(ctx, url)
	}
	return c.cache.Get(ctx, url, otter.LoaderFunc[string, image.Image](c.fetch))
}

func (c *Compositor) fetch(ctx context.Context, url string) (image.Image, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %s", resp.Status)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding tile: %w", err)
	}
	return img, nil
}
