// Package scene orchestrates terrain loads: raster fetch, mesh build and
// camera framing, one load at a time.
package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/terrain3d/internal/camera"
	"github.com/Faultbox/terrain3d/internal/logger"
	"github.com/Faultbox/terrain3d/internal/raster"
	"github.com/Faultbox/terrain3d/internal/terrain"
)

// ErrSuperseded is returned by Load when a newer load started before it
// finished. Its results are discarded.
var ErrSuperseded = errors.New("scene: load superseded")

// noticeBuffer is the capacity of the notice channel. Notices beyond it
// are dropped.
const noticeBuffer = 32

// Sources names the rasters of one load.
type Sources struct {
	DEM string
	LOS string // optional overlay
}

// ViewParams are the framing inputs.
type ViewParams struct {
	FOV     float64
	Angle   float64
	Azimuth float64
}

// RasterSource loads rasters. *raster.Loader implements it.
type RasterSource interface {
	Load(ctx context.Context, source string) raster.Result
	Fetch(ctx context.Context, source string) (*raster.Dataset, error)
}

// TerrainBuilder builds terrain. *terrain.Builder implements it.
type TerrainBuilder interface {
	Build(ctx context.Context, elev, overlay *raster.Dataset) (*terrain.Result, error)
}

// View is a completed load, ready to display.
type View struct {
	Generation uint64
	Sources    Sources
	Terrain    *terrain.Result
	Fit        camera.Fit

	// RasterFallback is set when the elevation source failed.
	RasterFallback bool
}

// Session runs loads and holds the current View.
type Session struct {
	rasters RasterSource
	builder TerrainBuilder
	params  ViewParams
	log     *zap.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	view   *View

	notices chan Notice
}

// New creates a Session.
func New(rasters RasterSource, builder TerrainBuilder, params ViewParams) *Session {
	if params.FOV <= 0 {
		params.FOV = camera.DefaultFOV
	}
	return &Session{
		rasters: rasters,
		builder: builder,
		params:  params,
		log:     logger.Named("scene"),
		notices: make(chan Notice, noticeBuffer),
	}
}

// Notices delivers degraded outcomes. The channel is never closed.
func (s *Session) Notices() <-chan Notice {
	return s.notices
}

// Current returns the last published view, or nil.
func (s *Session) Current() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Close cancels any in-flight load.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Load runs one load. Starting a new load cancels the previous one, which
// then returns ErrSuperseded. Degraded outcomes are not errors; they are
// reported on Notices and in the View.
func (s *Session) Load(ctx context.Context, src Sources) (*View, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	log := s.log.With(zap.Uint64("generation", gen))
	log.Info("loading terrain", zap.String("dem", src.DEM), zap.String("los", src.LOS))

	v, err := s.load(ctx, gen, src, log)
	if err != nil {
		if s.superseded(gen) {
			log.Warn("load superseded, discarding results")
			return nil, fmt.Errorf("%w: generation %d", ErrSuperseded, gen)
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		log.Warn("load superseded, discarding results")
		return nil, fmt.Errorf("%w: generation %d", ErrSuperseded, gen)
	}
	s.view = v
	s.cancel = nil
	return v, nil
}

func (s *Session) load(ctx context.Context, gen uint64, src Sources, log *zap.Logger) (*View, error) {
	var (
		elev    raster.Result
		overlay *raster.Dataset
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		elev = s.rasters.Load(gctx, src.DEM)
		return gctx.Err()
	})
	if src.LOS != "" {
		g.Go(func() error {
			ds, err := s.rasters.Fetch(gctx, src.LOS)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("overlay unavailable", zap.String("source", src.LOS), zap.Error(err))
				s.notify(Notice{Kind: NoticeOverlayUnavailable, Generation: gen, Source: src.LOS, Err: err})
				return nil
			}
			overlay = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if elev.Fallback {
		s.notify(Notice{Kind: NoticeFallbackRaster, Generation: gen, Source: src.DEM, Err: elev.Reason})
	}

	res, err := s.builder.Build(ctx, elev.Dataset, overlay)
	if err != nil {
		return nil, err
	}

	if res.Fallback {
		s.notify(Notice{Kind: NoticeFallbackMesh, Generation: gen, Source: src.DEM, Err: res.Reason})
	}
	if overlay != nil && res.Overlay == nil && !res.Fallback {
		s.notify(Notice{Kind: NoticeOverlaySkipped, Generation: gen, Source: src.LOS})
	}
	for _, rep := range []struct {
		name string
		err  error
	}{{terrain.LayerImagery, res.Imagery.Err()}, {terrain.LayerLabels, res.Labels.Err()}} {
		if rep.err != nil {
			s.notify(Notice{Kind: NoticePartialTiles, Generation: gen, Source: rep.name, Err: rep.err})
		}
	}

	fit := camera.NewFit(res.Fit.Center, res.Fit.Size, res.MetersWidth, res.MetersHeight,
		s.params.FOV, s.params.Angle, s.params.Azimuth)

	log.Info("terrain ready",
		zap.Bool("raster_fallback", elev.Fallback),
		zap.Bool("mesh_fallback", res.Fallback),
		zap.Float64("exaggeration", res.Exaggeration),
	)

	return &View{
		Generation:     gen,
		Sources:        src,
		Terrain:        res,
		Fit:            fit,
		RasterFallback: elev.Fallback,
	}, nil
}

func (s *Session) superseded(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen
}

func (s *Session) notify(n Notice) {
	select {
	case s.notices <- n:
	default:
		s.log.Debug("notice dropped", zap.Stringer("notice", n))
	}
}
