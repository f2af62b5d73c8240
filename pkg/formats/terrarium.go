// Package formats decodes elevation tile formats.
package formats

import (
	"errors"
	"fmt"
)

// Terrarium tiles are fixed 256x256 RGBA rasters.
const (
	TerrariumTileSize = 256
	terrariumPixels   = TerrariumTileSize * TerrariumTileSize
)

// Terrarium format errors.
var (
	ErrInvalidPixelBuffer = errors.New("invalid terrarium pixel buffer")
)

// HeightField is a row-major grid of elevations in meters.
// Sample (i, j) lives at index i + Width*j.
type HeightField struct {
	Width   int
	Height  int
	Samples []float32
}

// At returns the elevation at column i, row j.
func (h *HeightField) At(i, j int) float32 {
	return h.Samples[i+h.Width*j]
}

// Len returns the number of samples.
func (h *HeightField) Len() int {
	return len(h.Samples)
}

// Range returns the minimum and maximum elevation.
func (h *HeightField) Range() (min, max float32) {
	if len(h.Samples) == 0 {
		return 0, 0
	}

	min = h.Samples[0]
	max = h.Samples[0]
	for _, v := range h.Samples {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// DecodeTerrarium converts raw RGBA bytes of a terrarium tile into
// elevations: R*256 + G + B/256 - 32768. Alpha is ignored.
func DecodeTerrarium(pixels []byte) (*HeightField, error) {
	if len(pixels) != terrariumPixels*4 {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPixelBuffer, len(pixels), terrariumPixels*4)
	}

	samples := make([]float32, terrariumPixels)
	for ij := range terrariumPixels {
		rgba := ij * 4
		r := float64(pixels[rgba])
		g := float64(pixels[rgba+1])
		b := float64(pixels[rgba+2])
		// Exact in float32: at most 16 integer and 8 fractional bits.
		samples[ij] = float32(r*256 + g + b/256 - 32768)
	}

	return &HeightField{
		Width:   TerrariumTileSize,
		Height:  TerrariumTileSize,
		Samples: samples,
	}, nil
}
