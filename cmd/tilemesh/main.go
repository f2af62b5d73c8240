// tilemesh resolves, fetches and meshes terrarium elevation tiles.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/paulmach/orb/maptile"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/elevation"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/network"
	"github.com/Faultbox/midgard-terrain/internal/pipeline"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/tilemath"
)

func main() {
	config.ParseFlags()
	args := config.Args()

	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	app := newApp(cfg)

	switch command {
	case "anchor":
		err = app.cmdAnchor()
	case "resolve":
		err = app.cmdResolve(args)
	case "heights":
		err = app.cmdHeights(args)
	case "build":
		err = app.cmdBuild(args)
	case "config":
		err = app.cmdConfig(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tilemesh - terrarium elevation tile mesher

Usage:
  tilemesh [flags] <command> [options]

Commands:
  anchor                          Show the anchor and its base-zoom tile
  resolve <z> <x> <y>             Show the provider tile for a request
  heights <z> <x> <y>             Fetch a tile and summarize its elevations
  build [-o dir] <z> <x> <y> ...  Build meshes and write vertex/index buffers
  config [save [path]]            Print the effective config, or save it
  help                            Show this help

Flags:
  -config <file>    Config file (default ./terrain.yaml)
  -base-url <url>   Elevation tile base URL
  -segments <n>     Mesh segments per side
  -size <n>         Mesh size in world units
  -workers <n>      Maximum concurrent tile tasks
  -debug            Enable debug logging
  -log-file <file>  Write logs to this file

Examples:
  tilemesh resolve 10 533 365
  tilemesh heights 12 0 0
  tilemesh -segments 32 build -o ./meshes 10 0 0 10 1 0
  tilemesh -workers 2 config save`)
}

// app holds the components shared by all commands.
type app struct {
	cfg     *config.Config
	mapper  *tilemath.Mapper
	fetcher *elevation.Fetcher
	builder *terrain.Builder
}

func newApp(cfg *config.Config) *app {
	mapper := tilemath.NewMapper(cfg.TileAnchor())

	netOpts := cfg.NetworkOptions()
	netOpts.Logger = logger.Named("fetch")
	client := network.New(netOpts)

	fetcher := elevation.NewFetcher(cfg.Provider.BaseURL, mapper, client, nil, logger.Named("fetch"))
	builder := terrain.NewBuilder(mapper, fetcher, cfg.MeshSettings(), logger.Named("mesh"))

	return &app{
		cfg:     cfg,
		mapper:  mapper,
		fetcher: fetcher,
		builder: builder,
	}
}

func (a *app) cmdAnchor() error {
	anchor := a.mapper.Anchor()
	tile := a.mapper.AnchorTile()

	fmt.Printf("Anchor:    %.4f, %.4f\n", anchor.Lon, anchor.Lat)
	fmt.Printf("Base zoom: %d\n", anchor.BaseZoom)
	fmt.Printf("Tile:      %.7f, %.7f\n", tile.X, tile.Y)
	fmt.Printf("World:     %.0f units per tile\n", a.cfg.Anchor.WorldTileSize)
	return nil
}

func (a *app) cmdResolve(args []string) error {
	coords, err := parseCoords(args, "resolve")
	if err != nil {
		return err
	}
	z, x, y := coords[0][0], coords[0][1], coords[0][2]

	addr := a.mapper.Resolve(maptile.Zoom(z), x, y)
	dx, dy := a.builder.Placement(maptile.Zoom(z), x, y, a.cfg.Mesh.Size)

	fmt.Printf("Request:   %d/%d/%d\n", z, x, y)
	fmt.Printf("Provider:  %d/%d/%d\n", addr.Z, addr.X, addr.Y)
	fmt.Printf("URL:       %s\n", a.fetcher.TileURL(addr))
	fmt.Printf("Placement: %.3f, %.3f\n", dx, dy)
	return nil
}

func (a *app) cmdHeights(args []string) error {
	coords, err := parseCoords(args, "heights")
	if err != nil {
		return err
	}
	z, x, y := coords[0][0], coords[0][1], coords[0][2]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tile, err := a.fetcher.FetchHeightField(ctx, maptile.Zoom(z), x, y)
	if err != nil {
		return err
	}

	field := tile.Field
	lo, hi := field.Range()
	fmt.Printf("Tile:    %d/%d/%d\n", tile.Address.Z, tile.Address.X, tile.Address.Y)
	fmt.Printf("URL:     %s\n", tile.URL)
	fmt.Printf("Samples: %dx%d\n", field.Width, field.Height)
	fmt.Printf("Min:     %.2f m\n", lo)
	fmt.Printf("Max:     %.2f m\n", hi)
	fmt.Printf("Center:  %.2f m\n", field.At(field.Width/2, field.Height/2))
	return nil
}

func (a *app) cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	outputDir := fs.String("o", ".", "Output directory")
	fs.Parse(args)

	coords, err := parseCoords(fs.Args(), "build")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	pool := pipeline.NewPool(a.builder, pipeline.Options{
		MaxConcurrent: a.cfg.Workers.MaxConcurrent,
		ResultBuffer:  a.cfg.Workers.ResultBuffer,
		Logger:        logger.Named("pool"),
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		if _, ok := <-sig; ok {
			logger.Warn("interrupted, cancelling tasks")
			pool.CancelAll()
		}
	}()

	var submitErr error
	go func() {
		defer pool.Close()
		for _, c := range coords {
			task := pipeline.TileTask{
				Zoom:     c[0],
				X:        c[1],
				Y:        c[2],
				Segments: a.cfg.Mesh.Segments,
				Size:     a.cfg.Mesh.Size,
				Key:      fmt.Sprintf("%d_%d_%d", c[0], c[1], c[2]),
			}
			if _, err := pool.Submit(task); err != nil {
				submitErr = multierr.Append(submitErr, fmt.Errorf("task %s: %w", task.Key, err))
			}
		}
	}()

	var errs error
	built := 0
	for res := range pool.Results() {
		if res.Err != nil {
			errs = multierr.Append(errs, res.Err)
			continue
		}
		if err := writeResult(*outputDir, &res); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		built++
		logger.Info("mesh written",
			logger.Key(res.Key),
			logger.Tile(res.Address),
			zap.Int("vertices", len(res.Positions)/3),
			zap.Int("triangles", len(res.Indices)/3))
	}

	// Results is closed only after the submitting goroutine has returned.
	errs = multierr.Append(submitErr, errs)

	failed := len(multierr.Errors(errs))
	fmt.Fprintf(os.Stderr, "\nBuilt %d meshes, %d failed\n", built, failed)

	if errors.Is(errs, pipeline.ErrCancelled) {
		logger.Warn("build cancelled")
	}
	return errs
}

func (a *app) cmdConfig(args []string) error {
	if len(args) == 0 {
		data, err := yaml.Marshal(a.cfg)
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		os.Stdout.Write(data)
		return nil
	}

	if args[0] != "save" || len(args) > 2 {
		return errors.New("usage: tilemesh config [save [path]]")
	}

	if len(args) == 2 {
		if err := a.cfg.SaveTo(args[1]); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Saved: %s\n", args[1])
		return nil
	}

	if err := a.cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Saved: %s\n", filepath.Join(config.ConfigDir(), "terrain.yaml"))
	return nil
}

func writeResult(dir string, res *pipeline.Result) error {
	base := filepath.Join(dir, res.Key)

	if err := os.WriteFile(base+".positions.bin", res.PositionBytes(), 0644); err != nil {
		return fmt.Errorf("writing %s positions: %w", res.Key, err)
	}
	if err := os.WriteFile(base+".indices.bin", res.IndexBytes(), 0644); err != nil {
		return fmt.Errorf("writing %s indices: %w", res.Key, err)
	}
	return nil
}

// parseCoords reads args as consecutive z x y triples.
func parseCoords(args []string, command string) ([][3]int, error) {
	if len(args) == 0 || len(args)%3 != 0 {
		return nil, fmt.Errorf("usage: tilemesh %s <z> <x> <y>", command)
	}
	if command != "build" && len(args) != 3 {
		return nil, fmt.Errorf("usage: tilemesh %s <z> <x> <y>", command)
	}

	coords := make([][3]int, 0, len(args)/3)
	for i := 0; i < len(args); i += 3 {
		var c [3]int
		for j := range 3 {
			v, err := strconv.Atoi(strings.TrimSpace(args[i+j]))
			if err != nil {
				return nil, fmt.Errorf("invalid coordinate %q: %w", args[i+j], err)
			}
			c[j] = v
		}
		if c[0] < 0 || c[0] > 31 {
			return nil, fmt.Errorf("zoom %d out of range [0, 31]", c[0])
		}
		coords = append(coords, c)
	}
	return coords, nil
}
