package terrain

// NewPlane creates a flat size x size grid subdivided into segments x segments
// quads, centred on the origin in the XY plane. Row 0 is the top (+Y) edge.
func NewPlane(size float32, segments int) *Grid {
	if segments < 1 {
		segments = 1
	}

	n := segments + 1
	half := size / 2
	step := size / float32(segments)

	positions := make([]float32, 0, n*n*3)
	for iy := range n {
		y := float32(iy)*step - half
		for ix := range n {
			x := float32(ix)*step - half
			positions = append(positions, x, -y, 0)
		}
	}

	indices := make([]uint32, 0, segments*segments*6)
	for iy := range segments {
		for ix := range segments {
			a := uint32(ix + n*iy)
			b := uint32(ix + n*(iy+1))
			c := uint32(ix + 1 + n*(iy+1))
			d := uint32(ix + 1 + n*iy)

			// Counter-clockwise seen from +Z
			indices = append(indices,
				a, b, d,
				b, c, d,
			)
		}
	}

	return &Grid{
		Size:      size,
		Segments:  segments,
		Positions: positions,
		Indices:   indices,
	}
}

// VertexCount returns the number of vertices.
func (g *Grid) VertexCount() int {
	return len(g.Positions) / 3
}

// Translate moves every vertex by (dx, dy, dz).
func (g *Grid) Translate(dx, dy, dz float32) {
	for i := 0; i < len(g.Positions); i += 3 {
		g.Positions[i] += dx
		g.Positions[i+1] += dy
		g.Positions[i+2] += dz
	}
}

// Bounds returns the bounding box of the grid's current positions.
func (g *Grid) Bounds() Bounds {
	if len(g.Positions) == 0 {
		return Bounds{}
	}

	bounds := Bounds{
		Min: [3]float32{1e10, 1e10, 1e10},
		Max: [3]float32{-1e10, -1e10, -1e10},
	}
	for i := 0; i < len(g.Positions); i += 3 {
		updateBounds(&bounds, [3]float32{g.Positions[i], g.Positions[i+1], g.Positions[i+2]})
	}
	return bounds
}

func updateBounds(b *Bounds, p [3]float32) {
	for axis := range 3 {
		if p[axis] < b.Min[axis] {
			b.Min[axis] = p[axis]
		}
		if p[axis] > b.Max[axis] {
			b.Max[axis] = p[axis]
		}
	}
}
