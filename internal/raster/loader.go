package raster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/terrain3d/internal/logger"
	"github.com/Faultbox/terrain3d/pkg/geo"
	"github.com/Faultbox/terrain3d/pkg/geotiff"
)

// DefaultMaxBytes caps a single raster download.
const DefaultMaxBytes = 512 << 20

// Result is the outcome of Loader.Load. Dataset is never nil. When Fallback
// is set, Dataset is the flat fallback and Reason says why.
type Result struct {
	Dataset  *Dataset
	Fallback bool
	Reason   error
}

// Loader fetches and decodes rasters from local paths or http(s) URLs.
type Loader struct {
	client   *http.Client
	maxBytes int64
	log      *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used for remote sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithMaxBytes limits the size of a fetched raster.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) { l.maxBytes = n }
}

// WithLogger sets the logger. Defaults to logger.Named("raster").
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client:   http.DefaultClient,
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Named("raster")
	}
	return l
}

// Load fetches source and never fails: I/O and decode errors yield the
// fallback dataset with the error as Reason.
func (l *Loader) Load(ctx context.Context, source string) Result {
	ds, err := l.Fetch(ctx, source)
	if err != nil {
		l.log.Warn("using fallback raster",
			zap.String("source", source),
			zap.Error(err),
		)
		return Result{Dataset: Fallback(), Fallback: true, Reason: err}
	}
	return Result{Dataset: ds}
}

// Fetch loads and decodes source, returning errors wrapping
// ErrSourceUnavailable or ErrDecodeFailure.
func (l *Loader) Fetch(ctx context.Context, source string) (*Dataset, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}

	ds, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	l.log.Debug("raster loaded",
		zap.String("source", source),
		zap.Int("width", ds.Width),
		zap.Int("height", ds.Height),
		zap.Stringer("bbox", ds.BBox),
		zap.Float64("min", ds.Range.Min),
		zap.Float64("max", ds.Range.Max),
	)
	return ds, nil
}

// Decode parses GeoTIFF bytes and keeps band 0.
func Decode(data []byte) (*Dataset, error) {
	im, err := geotiff.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}

	band, err := im.Band(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}

	w, s, e, n, err := im.BoundingBox()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}

	return New(band, im.Width, im.Height, geo.NewBBox(w, s, e, n))
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: empty source", ErrSourceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.readHTTP(ctx, source)
	}

	path := source
	if strings.HasPrefix(source, "file://") {
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, source, err)
		}
		path = u.Path
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()

	return l.readAll(f, source)
}

func (l *Loader) readHTTP(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, source, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: HTTP %s", ErrSourceUnavailable, source, resp.Status)
	}

	return l.readAll(resp.Body, source)
}

func (l *Loader) readAll(r io.Reader, source string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, source, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrSourceUnavailable, source, l.maxBytes)
	}
	return data, nil
}
