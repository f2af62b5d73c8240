// Package tilemath maps slippy-map tile requests onto the elevation
// provider's tile addressing.
package tilemath

import (
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Offset is a fractional tile coordinate.
type Offset struct {
	X, Y float64
}

// Anchor is the geographic reference point that requested tiles are
// expressed relative to.
type Anchor struct {
	Lon      float64
	Lat      float64
	BaseZoom maptile.Zoom
}

// DefaultAnchor is Chamonix at zoom 10.
var DefaultAnchor = Anchor{Lon: 7.3087, Lat: 45.8671, BaseZoom: 10}

// LonToTileX returns the fractional tile column of a longitude.
func LonToTileX(lon float64, zoom maptile.Zoom) float64 {
	return maptile.Fraction(orb.Point{lon, 0}, zoom)[0]
}

// LatToTileY returns the fractional tile row of a latitude.
func LatToTileY(lat float64, zoom maptile.Zoom) float64 {
	return maptile.Fraction(orb.Point{0, lat}, zoom)[1]
}

// Mapper resolves requested tile coordinates to provider tile addresses.
// It is safe for concurrent use.
type Mapper struct {
	anchor     Anchor
	anchorTile func() Offset
}

// NewMapper creates a mapper for the given anchor.
func NewMapper(anchor Anchor) *Mapper {
	return &Mapper{
		anchor: anchor,
		anchorTile: sync.OnceValue(func() Offset {
			p := maptile.Fraction(orb.Point{anchor.Lon, anchor.Lat}, anchor.BaseZoom)
			return Offset{X: p[0], Y: p[1]}
		}),
	}
}

// Anchor returns the mapper's anchor.
func (m *Mapper) Anchor() Anchor {
	return m.anchor
}

// AnchorTile returns the fractional tile coordinate of the anchor at the
// base zoom. Computed on first use.
func (m *Mapper) AnchorTile() Offset {
	return m.anchorTile()
}

// ReferenceOffset returns the anchor offset at zoom, halving per level
// below the base zoom and doubling per level above it.
func (m *Mapper) ReferenceOffset(zoom maptile.Zoom) Offset {
	base := m.anchorTile()
	exp := int(zoom) - int(m.anchor.BaseZoom)
	return Offset{
		X: math.Ldexp(base.X, exp),
		Y: math.Ldexp(base.Y, exp),
	}
}

// Resolve adds the reference offset to (x, y) and wraps the result into
// the valid tile range of zoom.
func (m *Mapper) Resolve(zoom maptile.Zoom, x, y int) maptile.Tile {
	off := m.ReferenceOffset(zoom)
	maxTile := int64(1) << zoom

	fx := int64(math.Floor(float64(x) + off.X))
	fy := int64(math.Floor(float64(y) + off.Y))

	return maptile.Tile{
		X: uint32(abs64(fx % maxTile)),
		Y: uint32(abs64(fy % maxTile)),
		Z: zoom,
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
