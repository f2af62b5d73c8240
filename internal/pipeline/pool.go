package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
)

// MeshBuilder builds the mesh for one request.
type MeshBuilder interface {
	Build(ctx context.Context, req terrain.Request) (*terrain.Mesh, error)
}

// Options configures a Pool.
type Options struct {
	MaxConcurrent int
	ResultBuffer  int
	Logger        *zap.Logger
}

// Pool runs tile tasks with at most MaxConcurrent in flight. Every accepted
// task produces exactly one Result; results arrive in completion order.
// Results must be drained while tasks are submitted.
type Pool struct {
	builder MeshBuilder
	log     *zap.Logger
	results chan Result

	group   errgroup.Group
	pending sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	tokens map[string]context.CancelFunc
}

// NewPool creates a pool around builder.
func NewPool(builder MeshBuilder, opts Options) *Pool {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.ResultBuffer < 0 {
		opts.ResultBuffer = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		builder: builder,
		log:     opts.Logger,
		results: make(chan Result, opts.ResultBuffer),
		ctx:     ctx,
		cancel:  cancel,
		tokens:  make(map[string]context.CancelFunc),
	}
	p.group.SetLimit(opts.MaxConcurrent)
	return p
}

// Results returns the channel results are delivered on. It is closed by Close.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Submit queues a task and returns its key. It blocks while the pool is full.
// Invalid tasks are rejected here and produce no result.
func (p *Pool) Submit(task TileTask) (string, error) {
	if err := task.Validate(); err != nil {
		return "", err
	}
	key := task.Key
	if key == "" {
		key = task.DefaultKey()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrPoolClosed
	}
	if _, exists := p.tokens[key]; exists {
		p.mu.Unlock()
		return "", ErrDuplicateKey
	}
	ctx, cancel := context.WithCancel(p.ctx)
	p.tokens[key] = cancel
	p.pending.Add(1)
	p.mu.Unlock()

	p.log.Debug("task queued", logger.Key(key))

	p.group.Go(func() error {
		p.run(ctx, key, task)
		return nil
	})
	p.pending.Done()

	return key, nil
}

// Cancel cancels the token of an in-flight task. The task still reports a
// result carrying ErrCancelled unless it already finished building.
func (p *Pool) Cancel(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	cancel, ok := p.tokens[key]
	if ok {
		cancel()
	}
	return ok
}

// CancelAll cancels every queued and in-flight task.
func (p *Pool) CancelAll() {
	p.cancel()
}

// InFlight returns the number of accepted tasks without a delivered result.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tokens)
}

// Close stops accepting tasks, waits for accepted ones to deliver their
// results and closes the results channel. Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.pending.Wait()
	_ = p.group.Wait()
	p.cancel()
	close(p.results)
}

func (p *Pool) run(ctx context.Context, key string, task TileTask) {
	mesh, err := p.builder.Build(ctx, task.request())

	// Release the token before delivering so the key can be resubmitted
	// as soon as its result is observed.
	p.release(key)

	if err != nil {
		if errors.Is(err, ErrCancelled) {
			p.log.Debug("task cancelled", logger.Key(key))
		} else {
			p.log.Warn("task failed", logger.Key(key), zap.Error(err))
		}
		p.results <- Result{Key: key, Err: &TaskError{Key: key, Err: err}}
		return
	}

	p.log.Debug("task done", logger.Key(key), logger.Tile(mesh.Address))
	p.results <- Result{
		Key:       key,
		Address:   mesh.Address,
		Positions: mesh.Positions,
		Indices:   mesh.Indices,
		Bounds:    mesh.Bounds,
	}
}

func (p *Pool) release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cancel, ok := p.tokens[key]; ok {
		cancel()
		delete(p.tokens, key)
	}
}
