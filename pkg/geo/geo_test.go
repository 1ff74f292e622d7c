package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

func TestTileRoundTrip(t *testing.T) {
	lats := []float64{-80, -45.5, -12.25, 0, 0.001, 27.5355556, 51.5, 79.9}
	lngs := []float64{-179.9, -120, -0.5, 0, 13.4, 85.1708333, 179.9}

	for z := 0; z <= 18; z++ {
		n := math.Exp2(float64(z))
		tileLng := 360 / n
		for _, lat := range lats {
			for _, lng := range lngs {
				tile := LatLngToTile(lat, lng, z)
				cornerLat, cornerLng := TileToLatLng(tile.X, tile.Y, z)
				nextLat, _ := TileToLatLng(tile.X, tile.Y+1, z)
				tileLat := cornerLat - nextLat

				if lng < cornerLng || lng-cornerLng > tileLng+1e-9 {
					t.Errorf("z=%d (%v,%v): lng %v not within one tile of corner %v", z, lat, lng, lng, cornerLng)
				}
				if lat > cornerLat || cornerLat-lat > tileLat+1e-9 {
					t.Errorf("z=%d (%v,%v): lat %v not within one tile of corner %v", z, lat, lng, lat, cornerLat)
				}
			}
		}
	}
}

func TestTileCornersAreExactInverse(t *testing.T) {
	for z := 2; z <= 14; z++ {
		for _, idx := range [][2]uint32{{0, 1}, {1, 1}, {3, 2}} {
			x := idx[0] << (z - 2)
			y := idx[1] << (z - 2)
			lat, lng := TileToLatLng(x, y, z)
			// Nudge into the tile to avoid landing on the shared edge.
			tile := LatLngToTile(lat-1e-9, lng+1e-9, z)
			if tile.X != x || tile.Y != y {
				t.Errorf("z=%d: corner of (%d,%d) maps back to (%d,%d)", z, x, y, tile.X, tile.Y)
			}
		}
	}
}

func TestLatLngToTileMatchesMaptile(t *testing.T) {
	points := []orb.Point{{85.17, 27.53}, {-73.98, 40.75}, {2.35, 48.85}, {151.2, -33.86}}
	for _, p := range points {
		for z := 0; z <= 16; z++ {
			want := maptile.At(p, maptile.Zoom(z))
			got := LatLngToTile(p.Lat(), p.Lon(), z)
			if got.X != want.X || got.Y != want.Y {
				t.Errorf("%v z=%d: got (%d,%d), maptile (%d,%d)", p, z, got.X, got.Y, want.X, want.Y)
			}
		}
	}
}

func TestDegreesToMetersPositive(t *testing.T) {
	boxes := []BBox{
		NewBBox(85.0, 27.0, 85.1, 27.1),
		NewBBox(85.1708333, 27.5355556, 85.5519444, 27.8505556),
		NewBBox(-0.5, -0.5, 0.5, 0.5),
		NewBBox(10, 60, 12, 65),
	}

	for _, b := range boxes {
		w, h := DegreesToMeters(b)
		if w <= 0 || h <= 0 {
			t.Fatalf("%v: expected positive extents, got %v x %v", b, w, h)
		}

		// Halving the longitude span keeps the mid latitude unchanged.
		halfLon := b
		halfLon.East = b.West + b.Width()/2
		hw, hh := DegreesToMeters(halfLon)
		if math.Abs(hw-w/2) > 1e-6*w {
			t.Errorf("%v: half lon span width %v, want %v", b, hw, w/2)
		}
		if math.Abs(hh-h) > 1e-9*h {
			t.Errorf("%v: half lon span changed height %v -> %v", b, h, hh)
		}

		// Halving the latitude span around the same middle keeps the cosine factor.
		halfLat := b
		quarter := b.Height() / 4
		halfLat.South = b.South + quarter
		halfLat.North = b.North - quarter
		_, lh := DegreesToMeters(halfLat)
		if math.Abs(lh-h/2) > 1e-6*h {
			t.Errorf("%v: half lat span height %v, want %v", b, lh, h/2)
		}
	}
}

func TestApproximateAreaMatchesMeters(t *testing.T) {
	b := NewBBox(85.1708333, 27.5355556, 85.5519444, 27.8505556)
	w, h := DegreesToMeters(b)
	want := w * h / 1e6
	got := AreaKm2(b)
	if math.Abs(got-want) > 1e-6*want {
		t.Errorf("AreaKm2 = %v, want %v", got, want)
	}
	if ExceedsAreaLimit(b) {
		t.Errorf("small box reported above the upload limit")
	}
	if !ExceedsAreaLimit(NewBBox(0, 0, 10, 10)) {
		t.Errorf("10x10 degree box should exceed the upload limit")
	}
}

func TestCoveringTiles(t *testing.T) {
	r := CoveringTiles(NewBBox(-170, -80, 170, 80), 1)
	if r.CountX() != 2 || r.CountY() != 2 {
		t.Fatalf("expected 2x2 tiles at zoom 1, got %dx%d", r.CountX(), r.CountY())
	}
	if len(r.Tiles()) != 4 {
		t.Errorf("expected 4 tiles, got %d", len(r.Tiles()))
	}

	one := CoveringTiles(NewBBox(10, 10, 20, 20), 1)
	if one.CountX() != 1 || one.CountY() != 1 {
		t.Fatalf("expected one tile, got %dx%d", one.CountX(), one.CountY())
	}
	if one.MinX != 1 || one.MinY != 0 {
		t.Errorf("expected tile (1,0), got (%d,%d)", one.MinX, one.MinY)
	}
}

func TestBBoxBoundRoundTrip(t *testing.T) {
	b := NewBBox(85.0, 27.0, 85.1, 27.1)
	if got := FromBound(b.Bound()); got != b {
		t.Errorf("FromBound(Bound()) = %v, want %v", got, b)
	}
	if !b.Valid() {
		t.Error("expected valid box")
	}
	if NewBBox(1, 0, 0, 1).Valid() {
		t.Error("west > east should be invalid")
	}
	if NewBBox(0, math.NaN(), 1, 1).Valid() {
		t.Error("NaN corner should be invalid")
	}
}
