// Package pipeline runs tile mesh tasks on a bounded pool of workers and
// delivers one result per task.
package pipeline

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb/maptile"

	"github.com/Faultbox/midgard-terrain/internal/terrain"
)

// Pipeline errors.
var (
	ErrInvalidTask  = errors.New("invalid tile task")
	ErrPoolClosed   = errors.New("pool is closed")
	ErrDuplicateKey = errors.New("task key already in flight")
)

// ErrCancelled is reported for tasks whose token was cancelled.
var ErrCancelled = terrain.ErrCancelled

// TileTask requests the mesh of one tile. Key correlates the task with
// its result; when empty it is derived from the other fields.
type TileTask struct {
	Zoom     int     `json:"zoom" yaml:"zoom"`
	X        int     `json:"x" yaml:"x"`
	Y        int     `json:"y" yaml:"y"`
	Segments int     `json:"segments" yaml:"segments"`
	Size     float64 `json:"size" yaml:"size"`
	Key      string  `json:"key,omitempty" yaml:"key,omitempty"`
}

// DefaultKey returns "zoom,x,y,segments,size".
func (t TileTask) DefaultKey() string {
	return fmt.Sprintf("%d,%d,%d,%d,%s", t.Zoom, t.X, t.Y, t.Segments,
		strconv.FormatFloat(t.Size, 'f', -1, 64))
}

// Validate checks the task fields.
func (t TileTask) Validate() error {
	switch {
	case t.Zoom < 0 || t.Zoom > maxZoom:
		return fmt.Errorf("%w: zoom %d out of range [0, %d]", ErrInvalidTask, t.Zoom, maxZoom)
	case t.Segments < 1:
		return fmt.Errorf("%w: segments must be positive, got %d", ErrInvalidTask, t.Segments)
	case t.Size <= 0 || math.IsNaN(t.Size) || math.IsInf(t.Size, 0):
		return fmt.Errorf("%w: size must be positive, got %v", ErrInvalidTask, t.Size)
	}
	return nil
}

// maxZoom keeps 2^zoom and tile indices within uint32.
const maxZoom = 31

func (t TileTask) request() terrain.Request {
	return terrain.Request{
		Zoom:     maptile.Zoom(t.Zoom),
		X:        t.X,
		Y:        t.Y,
		Segments: t.Segments,
		Size:     t.Size,
	}
}

// TaskError ties a failure to the task that produced it.
type TaskError struct {
	Key string
	Err error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Key, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one task. On success Positions holds x, y, z per
// vertex and Indices the triangle list; on failure Err is a *TaskError.
// The receiver owns the buffers.
type Result struct {
	Key       string
	Address   maptile.Tile
	Positions []float32
	Indices   []uint32
	Bounds    terrain.Bounds
	Err       error
}

// PositionBytes serializes Positions as little-endian float32.
func (r *Result) PositionBytes() []byte {
	buf := make([]byte, 4*len(r.Positions))
	for i, v := range r.Positions {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// IndexBytes serializes Indices as little-endian uint32.
func (r *Result) IndexBytes() []byte {
	buf := make([]byte, 4*len(r.Indices))
	for i, v := range r.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}
