package terrain

import "testing"

func TestNewPlane_Counts(t *testing.T) {
	tests := []struct {
		segments int
		vertices int
		indices  int
	}{
		{1, 4, 6},
		{4, 25, 96},
		{255, 256 * 256, 255 * 255 * 6},
	}

	for _, tt := range tests {
		grid := NewPlane(800, tt.segments)
		if grid.VertexCount() != tt.vertices {
			t.Errorf("segments %d: expected %d vertices, got %d", tt.segments, tt.vertices, grid.VertexCount())
		}
		if len(grid.Positions) != tt.vertices*3 {
			t.Errorf("segments %d: expected %d floats, got %d", tt.segments, tt.vertices*3, len(grid.Positions))
		}
		if len(grid.Indices) != tt.indices {
			t.Errorf("segments %d: expected %d indices, got %d", tt.segments, tt.indices, len(grid.Indices))
		}
	}
}

func TestNewPlane_Layout(t *testing.T) {
	grid := NewPlane(10, 2)

	// Row-major from the top-left corner.
	want := [][3]float32{
		{-5, 5, 0}, {0, 5, 0}, {5, 5, 0},
		{-5, 0, 0}, {0, 0, 0}, {5, 0, 0},
		{-5, -5, 0}, {0, -5, 0}, {5, -5, 0},
	}
	for i, w := range want {
		got := [3]float32{grid.Positions[i*3], grid.Positions[i*3+1], grid.Positions[i*3+2]}
		if got != w {
			t.Errorf("vertex %d = %v, want %v", i, got, w)
		}
	}

	// First quad: (a, b, d), (b, c, d).
	first := grid.Indices[:6]
	wantIdx := []uint32{0, 3, 1, 3, 4, 1}
	for i := range wantIdx {
		if first[i] != wantIdx[i] {
			t.Errorf("index %d = %d, want %d", i, first[i], wantIdx[i])
		}
	}
}

func TestNewPlane_IndicesInRange(t *testing.T) {
	grid := NewPlane(1, 7)
	n := uint32(grid.VertexCount())
	for i, idx := range grid.Indices {
		if idx >= n {
			t.Fatalf("index %d = %d, out of range %d", i, idx, n)
		}
	}
}

func TestGridTranslateAndBounds(t *testing.T) {
	grid := NewPlane(4, 2)
	grid.Translate(10, -20, 3)

	b := grid.Bounds()
	if b.Min != [3]float32{8, -22, 3} {
		t.Errorf("Min = %v, want [8 -22 3]", b.Min)
	}
	if b.Max != [3]float32{12, -18, 3} {
		t.Errorf("Max = %v, want [12 -18 3]", b.Max)
	}

	if empty := (&Grid{}).Bounds(); empty != (Bounds{}) {
		t.Errorf("empty grid bounds = %v, want zero", empty)
	}
}
