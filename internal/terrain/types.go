// Package terrain builds tile meshes and applies elevation data to them.
package terrain

import "github.com/paulmach/orb/maptile"

// Grid is a square planar mesh of (Segments+1)^2 vertices.
// Positions holds x, y, z per vertex in row-major order from the top-left
// corner; Indices holds two triangles per quad.
type Grid struct {
	Size      float32
	Segments  int
	Positions []float32
	Indices   []uint32
}

// Bounds holds the axis-aligned bounding box of a grid.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Request describes one tile mesh to build.
type Request struct {
	Zoom     maptile.Zoom
	X, Y     int
	Segments int
	Size     float64
}

// Mesh is a finished tile mesh. The builder keeps no reference to its buffers.
type Mesh struct {
	Address   maptile.Tile
	Positions []float32
	Indices   []uint32
	Bounds    Bounds
}
