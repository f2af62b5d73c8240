// Package elevation fetches provider tiles and decodes them into height fields.
package elevation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb/maptile"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/tilemath"
)

// DefaultBaseURL is the public terrarium elevation tile set.
const DefaultBaseURL = "https://s3.amazonaws.com/elevation-tiles-prod/terrarium"

// Fetch errors.
var (
	ErrFetch  = errors.New("tile fetch failed")
	ErrDecode = errors.New("tile decode failed")
)

// ByteFetcher retrieves raw bytes for a URL.
type ByteFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ImageDecoder turns compressed image bytes into RGBA pixels.
type ImageDecoder interface {
	DecodeRGBA(data []byte) (pixels []byte, width, height int, err error)
}

// Tile is a decoded provider tile.
type Tile struct {
	Address maptile.Tile
	URL     string
	Field   *formats.HeightField
}

// Fetcher resolves, downloads and decodes elevation tiles.
// Concurrent requests for the same provider tile share one download, which
// is bounded by the client's timeout rather than by any caller's context.
type Fetcher struct {
	baseURL string
	mapper  *tilemath.Mapper
	client  ByteFetcher
	decoder ImageDecoder
	log     *zap.Logger

	inflight singleflight.Group
}

// NewFetcher creates a fetcher. A nil decoder defaults to 256x256 PNG decoding.
func NewFetcher(baseURL string, mapper *tilemath.Mapper, client ByteFetcher, decoder ImageDecoder, log *zap.Logger) *Fetcher {
	if decoder == nil {
		decoder = formats.TerrariumPNG()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		mapper:  mapper,
		client:  client,
		decoder: decoder,
		log:     log,
	}
}

// TileURL returns the provider URL for a resolved tile address.
func (f *Fetcher) TileURL(addr maptile.Tile) string {
	return fmt.Sprintf("%s/%d/%d/%d.png", f.baseURL, addr.Z, addr.X, addr.Y)
}

// FetchHeightField resolves (zoom, x, y) to a provider tile, downloads it
// and decodes its elevations. Errors are returned without retry.
//
// The shared download is not tied to any one caller's cancellation; a
// cancelled caller returns ctx.Err() while the others keep waiting.
func (f *Fetcher) FetchHeightField(ctx context.Context, zoom maptile.Zoom, x, y int) (*Tile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := f.mapper.Resolve(zoom, x, y)
	url := f.TileURL(addr)

	loadCtx := context.WithoutCancel(ctx)
	ch := f.inflight.DoChan(url, func() (any, error) {
		return f.load(loadCtx, url)
	})

	select {
	case <-ctx.Done():
		f.log.Debug("left in-flight fetch", logger.Tile(addr), zap.Error(ctx.Err()))
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			f.log.Warn("tile unavailable", logger.Tile(addr), zap.String("url", url), zap.Error(res.Err))
			return nil, res.Err
		}
		if res.Shared {
			f.log.Debug("joined in-flight fetch", logger.Tile(addr))
		}
		return &Tile{Address: addr, URL: url, Field: res.Val.(*formats.HeightField)}, nil
	}
}

func (f *Fetcher) load(ctx context.Context, url string) (*formats.HeightField, error) {
	data, err := f.client.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	pixels, _, _, err := f.decoder.DecodeRGBA(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, url, err)
	}

	field, err := formats.DecodeTerrarium(pixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, url, err)
	}
	return field, nil
}
