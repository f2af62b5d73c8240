package formats

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// createTestPixels returns a terrarium RGBA buffer filled by fn.
func createTestPixels(fn func(ij int) [4]byte) []byte {
	pix := make([]byte, terrariumPixels*4)
	for ij := range terrariumPixels {
		c := fn(ij)
		copy(pix[ij*4:], c[:])
	}
	return pix
}

func TestDecodeTerrarium_Zero(t *testing.T) {
	pix := createTestPixels(func(int) [4]byte { return [4]byte{0, 0, 0, 255} })

	field, err := DecodeTerrarium(pix)
	if err != nil {
		t.Fatalf("DecodeTerrarium failed: %v", err)
	}
	if field.Len() != 256*256 {
		t.Fatalf("expected %d samples, got %d", 256*256, field.Len())
	}
	for i, v := range field.Samples {
		if v != -32768 {
			t.Fatalf("sample %d = %f, want -32768", i, v)
		}
	}
}

func TestDecodeTerrarium_Formula(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b byte
		want    float32
	}{
		{"sea level", 128, 0, 0, 0},
		{"mont blanc", 146, 177, 128, 4785.5},
		{"fraction", 128, 1, 64, 1.25},
		{"max", 255, 255, 255, 32767 + 255.0/256},
		{"below sea", 127, 255, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pix := createTestPixels(func(int) [4]byte { return [4]byte{tt.r, tt.g, tt.b, 0} })
			field, err := DecodeTerrarium(pix)
			if err != nil {
				t.Fatalf("DecodeTerrarium failed: %v", err)
			}
			if got := field.At(17, 200); got != tt.want {
				t.Errorf("height = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestDecodeTerrarium_Pointwise(t *testing.T) {
	base := createTestPixels(func(ij int) [4]byte {
		return [4]byte{byte(ij >> 8), byte(ij), byte(ij * 7), 255}
	})
	want, err := DecodeTerrarium(base)
	if err != nil {
		t.Fatalf("DecodeTerrarium failed: %v", err)
	}

	// Changing one pixel must only change that sample.
	changed := bytes.Clone(base)
	target := 1000 + 256*3
	changed[target*4] = 200
	got, err := DecodeTerrarium(changed)
	if err != nil {
		t.Fatalf("DecodeTerrarium failed: %v", err)
	}

	for i := range got.Samples {
		if i == target {
			if got.Samples[i] == want.Samples[i] {
				t.Errorf("sample %d did not change", i)
			}
			continue
		}
		if got.Samples[i] != want.Samples[i] {
			t.Fatalf("sample %d changed: %f -> %f", i, want.Samples[i], got.Samples[i])
		}
	}

	// Row-major layout: index i + 256*j.
	if got.At(1000%256, target/256) != got.Samples[target] {
		t.Error("At does not match row-major indexing")
	}
}

func TestDecodeTerrarium_InvalidLength(t *testing.T) {
	for _, n := range []int{0, 4, 256 * 256 * 3, 256*256*4 + 1} {
		_, err := DecodeTerrarium(make([]byte, n))
		if !errors.Is(err, ErrInvalidPixelBuffer) {
			t.Errorf("len %d: expected ErrInvalidPixelBuffer, got %v", n, err)
		}
	}
}

func TestHeightFieldRange(t *testing.T) {
	field := &HeightField{Width: 2, Height: 2, Samples: []float32{3, -1, 7, 0}}
	min, max := field.Range()
	if min != -1 || max != 7 {
		t.Errorf("Range() = (%f, %f), want (-1, 7)", min, max)
	}

	empty := &HeightField{}
	if min, max := empty.Range(); min != 0 || max != 0 {
		t.Errorf("empty Range() = (%f, %f), want (0, 0)", min, max)
	}
}

// encodeTestPNG encodes an image filled with c.
func encodeTestPNG(t *testing.T, img interface {
	image.Image
	Set(x, y int, c color.Color)
}, c color.Color) []byte {
	t.Helper()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPNGDecoder_RGB(t *testing.T) {
	c := color.NRGBA{R: 129, G: 2, B: 128, A: 255}
	data := encodeTestPNG(t, image.NewNRGBA(image.Rect(0, 0, 256, 256)), c)

	pix, w, h, err := TerrariumPNG().DecodeRGBA(data)
	if err != nil {
		t.Fatalf("DecodeRGBA failed: %v", err)
	}
	if w != 256 || h != 256 {
		t.Fatalf("expected 256x256, got %dx%d", w, h)
	}
	if len(pix) != 256*256*4 {
		t.Fatalf("expected %d bytes, got %d", 256*256*4, len(pix))
	}

	field, err := DecodeTerrarium(pix)
	if err != nil {
		t.Fatalf("DecodeTerrarium failed: %v", err)
	}
	if got := field.At(255, 255); got != 258.5 {
		t.Errorf("height = %f, want 258.5", got)
	}
}

func TestPNGDecoder_TranslucentKeepsChannels(t *testing.T) {
	// Alpha must not scale R, G or B.
	c := color.NRGBA{R: 131, G: 232, B: 64, A: 10}
	data := encodeTestPNG(t, image.NewNRGBA(image.Rect(0, 0, 256, 256)), c)

	pix, _, _, err := TerrariumPNG().DecodeRGBA(data)
	if err != nil {
		t.Fatalf("DecodeRGBA failed: %v", err)
	}
	if pix[0] != 131 || pix[1] != 232 || pix[2] != 64 || pix[3] != 10 {
		t.Errorf("expected [131 232 64 10], got %v", pix[:4])
	}

	field, err := DecodeTerrarium(pix)
	if err != nil {
		t.Fatalf("DecodeTerrarium failed: %v", err)
	}
	if got := field.At(0, 0); got != 1000.25 {
		t.Errorf("height = %f, want 1000.25", got)
	}
}

func TestPNGDecoder_Gray(t *testing.T) {
	data := encodeTestPNG(t, image.NewGray(image.Rect(0, 0, 256, 256)), color.Gray{Y: 128})

	pix, _, _, err := TerrariumPNG().DecodeRGBA(data)
	if err != nil {
		t.Fatalf("DecodeRGBA failed: %v", err)
	}
	if pix[0] != 128 || pix[1] != 128 || pix[2] != 128 || pix[3] != 255 {
		t.Errorf("expected gray expanded to RGBA, got %v", pix[:4])
	}
}

func TestPNGDecoder_WrongSize(t *testing.T) {
	data := encodeTestPNG(t, image.NewNRGBA(image.Rect(0, 0, 128, 256)), color.NRGBA{A: 255})

	_, _, _, err := TerrariumPNG().DecodeRGBA(data)
	if !errors.Is(err, ErrInvalidTileSize) {
		t.Errorf("expected ErrInvalidTileSize, got %v", err)
	}

	// Unconstrained decoder accepts it.
	pix, w, h, err := PNGDecoder{}.DecodeRGBA(data)
	if err != nil {
		t.Fatalf("DecodeRGBA failed: %v", err)
	}
	if w != 128 || h != 256 || len(pix) != 128*256*4 {
		t.Errorf("unexpected decode result %dx%d (%d bytes)", w, h, len(pix))
	}
}

func TestPNGDecoder_Garbage(t *testing.T) {
	_, _, _, err := TerrariumPNG().DecodeRGBA([]byte("not a png"))
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}
