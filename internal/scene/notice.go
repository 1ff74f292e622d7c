package scene

import "fmt"

// NoticeKind classifies a degraded load outcome.
type NoticeKind int

const (
	// NoticeFallbackRaster: the elevation source failed and the flat
	// fallback dataset was used.
	NoticeFallbackRaster NoticeKind = iota
	// NoticeOverlayUnavailable: the overlay source failed to load.
	NoticeOverlayUnavailable
	// NoticeOverlaySkipped: the overlay loaded but has no usable range.
	NoticeOverlaySkipped
	// NoticePartialTiles: some basemap tiles failed.
	NoticePartialTiles
	// NoticeFallbackMesh: the terrain build failed and the flat plane is shown.
	NoticeFallbackMesh
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeFallbackRaster:
		return "fallback-raster"
	case NoticeOverlayUnavailable:
		return "overlay-unavailable"
	case NoticeOverlaySkipped:
		return "overlay-skipped"
	case NoticePartialTiles:
		return "partial-tiles"
	case NoticeFallbackMesh:
		return "fallback-mesh"
	default:
		return fmt.Sprintf("notice(%d)", int(k))
	}
}

// Notice reports a degraded outcome of one load.
type Notice struct {
	Kind       NoticeKind
	Generation uint64
	Source     string
	Err        error
}

func (n Notice) String() string {
	if n.Err == nil {
		return n.Kind.String()
	}
	return fmt.Sprintf("%s: %v", n.Kind, n.Err)
}
