// Package worker bounds how many report renders run at once. Rendering is
// CPU-bound and holds whole documents in memory, so the gateway hands every
// render to a Pool instead of running it on the request goroutine unchecked.
// The api package depends only on the Executor interface.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

var (
	// ErrBusy is returned when no slot frees up before the caller's context
	// is done.
	ErrBusy = errors.New("worker: render pool is busy")

	// ErrTimeout is returned when a render outlives its deadline. The render
	// itself keeps its slot until it finishes.
	ErrTimeout = errors.New("worker: render timed out")
)

// ─── EXECUTOR INTERFACE ───────────────────────────────────────────────────────

// Executor is the narrow interface the api package uses. The concrete
// implementation is *Pool; tests can use any struct with a Do method.
type Executor interface {
	Do(ctx context.Context, label string, fn func() error) error
}

// ─── POOL ─────────────────────────────────────────────────────────────────────

// PoolConfig holds tuning parameters for the Pool. Zero fields take the value
// from DefaultPoolConfig.
type PoolConfig struct {
	// Workers is the number of renders allowed to run at once. Default: 4.
	Workers int

	// RenderTimeout is the per-render deadline, measured from the moment a
	// slot is acquired. Default: 30s.
	RenderTimeout time.Duration
}

// DefaultPoolConfig returns production defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:       4,
		RenderTimeout: 30 * time.Second,
	}
}

// Pool runs functions on a fixed number of slots.
type Pool struct {
	cfg    PoolConfig
	logger *slog.Logger

	slots chan struct{}
	wg    sync.WaitGroup
}

// NewPool constructs a Pool.
func NewPool(cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultPoolConfig().Workers
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = DefaultPoolConfig().RenderTimeout
	}
	return &Pool{
		cfg:    cfg,
		logger: logger,
		slots:  make(chan struct{}, cfg.Workers),
	}
}

// Config returns the effective configuration.
func (p *Pool) Config() PoolConfig { return p.cfg }

// InFlight reports how many slots are taken.
func (p *Pool) InFlight() int { return len(p.slots) }

// Do waits for a free slot, then runs fn on its own goroutine under the
// render deadline. fn cannot be interrupted: when the deadline or ctx ends
// first, Do returns and the slot is released once fn returns. A panic in fn
// is recovered and returned as an error.
func (p *Pool) Do(ctx context.Context, label string, fn func() error) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", ErrBusy, label, ctx.Err())
	}

	renderCtx, cancel := context.WithTimeout(ctx, p.cfg.RenderTimeout)
	defer cancel()

	done := make(chan error, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.slots }()
		defer func() {
			if rec := recover(); rec != nil {
				p.logger.Error("worker: render panicked", "label", label, "panic", rec, "stack", string(debug.Stack()))
				done <- fmt.Errorf("worker: %s panicked: %v", label, rec)
			}
		}()
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-renderCtx.Done():
		p.logger.Warn("worker: render abandoned", "label", label, "timeout", p.cfg.RenderTimeout, "error", renderCtx.Err())
		if errors.Is(renderCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %s", ErrTimeout, label, p.cfg.RenderTimeout)
		}
		return renderCtx.Err()
	}
}

// Drain blocks until every started render has finished or ctx is done.
// Call it during shutdown after the HTTP server has stopped accepting work.
func (p *Pool) Drain(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		p.logger.Info("worker: drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker: drain: %w", ctx.Err())
	}
}

// Run is Do for functions that produce a value.
func Run[T any](ctx context.Context, ex Executor, label string, fn func() (T, error)) (T, error) {
	var out T
	err := ex.Do(ctx, label, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
