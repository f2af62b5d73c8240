package formats

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// Image decode errors.
var (
	ErrInvalidImage    = errors.New("invalid image data")
	ErrInvalidTileSize = errors.New("unexpected tile dimensions")
)

// PNGDecoder decodes PNG tiles into 8-bit non-premultiplied RGBA bytes.
// A zero Width/Height accepts any dimensions.
type PNGDecoder struct {
	Width  int
	Height int
}

// TerrariumPNG returns a decoder that only accepts 256x256 tiles.
func TerrariumPNG() PNGDecoder {
	return PNGDecoder{Width: TerrariumTileSize, Height: TerrariumTileSize}
}

// DecodeRGBA decodes PNG data and returns its pixels as RGBA bytes.
func (d PNGDecoder) DecodeRGBA(data []byte) ([]byte, int, int, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	size := img.Bounds().Size()
	if (d.Width > 0 && size.X != d.Width) || (d.Height > 0 && size.Y != d.Height) {
		return nil, 0, 0, fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrInvalidTileSize, size.X, size.Y, d.Width, d.Height)
	}

	return toNRGBA(img).Pix, size.X, size.Y, nil
}

// toNRGBA returns img as a tightly packed *image.NRGBA anchored at the origin.
// Channels stay non-premultiplied so alpha never alters the elevation bytes.
func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) && nrgba.Stride == 4*nrgba.Rect.Dx() {
		return nrgba
	}

	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	return nrgba
}
