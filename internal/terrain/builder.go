package terrain

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb/maptile"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/elevation"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/pkg/tilemath"
)

// ErrCancelled is returned when a request's context ends before its mesh is
// finished. No buffers are produced in that case.
var ErrCancelled = errors.New("tile mesh cancelled")

// HeightSource provides decoded elevation tiles.
type HeightSource interface {
	FetchHeightField(ctx context.Context, zoom maptile.Zoom, x, y int) (*elevation.Tile, error)
}

// Settings holds the fixed parameters applied to every mesh.
type Settings struct {
	// WorldTileSize is the world extent of one anchor-zoom tile. It ties the
	// anchor tile into world space independently of the requested size.
	WorldTileSize  float64
	Scale          float64
	VerticalOffset float64
}

// DefaultSettings returns the settings used by the viewer.
func DefaultSettings() Settings {
	return Settings{
		WorldTileSize:  800,
		Scale:          0.1,
		VerticalOffset: 0,
	}
}

// Builder turns tile requests into positioned, elevated meshes.
type Builder struct {
	mapper   *tilemath.Mapper
	source   HeightSource
	settings Settings
	log      *zap.Logger
}

// NewBuilder creates a mesh builder.
func NewBuilder(mapper *tilemath.Mapper, source HeightSource, settings Settings, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		mapper:   mapper,
		source:   source,
		settings: settings,
		log:      log,
	}
}

// Placement returns the world translation of the tile (x, y) at zoom for
// meshes of the given size. Y is north-up, so rows grow towards -Y.
func (b *Builder) Placement(zoom maptile.Zoom, x, y int, size float64) (dx, dy float64) {
	off := b.mapper.ReferenceOffset(zoom)
	anchor := b.mapper.AnchorTile()
	world := b.settings.WorldTileSize

	dx = float64(x)*size - (frac(off.X)-0.5)*size + frac(anchor.X-0.5)*world
	dy = -float64(y)*size + (frac(off.Y)-0.5)*size - frac(anchor.Y-0.5)*world
	return dx, dy
}

// Plane creates the flat, positioned grid for a request.
func (b *Builder) Plane(req Request) *Grid {
	grid := NewPlane(float32(req.Size), req.Segments)
	dx, dy := b.Placement(req.Zoom, req.X, req.Y, req.Size)
	grid.Translate(float32(dx), float32(dy), 0)
	return grid
}

// Build creates the grid for req, fetches its elevations and applies them.
// The context is checked before and after the fetch; once it is done the
// grid is discarded and ErrCancelled is returned.
func (b *Builder) Build(ctx context.Context, req Request) (*Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	grid := b.Plane(req)

	tile, err := b.source.FetchHeightField(ctx, req.Zoom, req.X, req.Y)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
	}
	if err != nil {
		return nil, err
	}

	ApplyHeightField(grid, tile.Field, b.settings.Scale, b.settings.VerticalOffset)

	mesh := &Mesh{
		Address:   tile.Address,
		Positions: grid.Positions,
		Indices:   grid.Indices,
		Bounds:    grid.Bounds(),
	}

	b.log.Debug("mesh built",
		logger.Tile(tile.Address),
		zap.Int("vertices", grid.VertexCount()),
		zap.Int("indices", len(grid.Indices)))

	return mesh, nil
}

// frac returns the fractional part of v with the sign of v.
func frac(v float64) float64 {
	return math.Mod(v, 1)
}
