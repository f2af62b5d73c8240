package terrain

import (
	"math"

	"github.com/Faultbox/midgard-terrain/pkg/formats"
)

// ApplyHeightField writes elevations from field into the z coordinate of
// every grid vertex, scaled by scale.
//
// Vertex i samples field index floor(col*ratio*nField + row*ratio - verticalOffset)
// where ratio = nField / (Segments+1), col = i / (Segments+1) and
// row = i % (Segments+1). This is a nearest-sample projection, not an
// interpolation. Indices falling outside the field are clamped to its ends.
//
// A nil grid or an empty field leaves everything untouched.
func ApplyHeightField(grid *Grid, field *formats.HeightField, scale, verticalOffset float64) {
	if grid == nil || field == nil || len(field.Samples) == 0 {
		return
	}

	nPosition := grid.Segments + 1
	nField := math.Sqrt(float64(len(field.Samples)))
	ratio := nField / float64(nPosition)
	last := len(field.Samples) - 1

	for i := range grid.VertexCount() {
		col := float64(i / nPosition)
		row := float64(i % nPosition)

		idx := int(math.Floor(col*ratio*nField + row*ratio - verticalOffset))
		idx = max(0, min(idx, last))

		grid.Positions[i*3+2] = float32(float64(field.Samples[idx]) * scale)
	}
}
