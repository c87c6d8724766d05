// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// Task is one unit of work. Errors are logged by the pool; callers that need
// per-task results capture them in the closure.
type Task func(ctx context.Context) error

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool bounds the number of tasks running at once. Submit blocks while all
// slots are busy, so a batch applies back-pressure instead of dropping work.
type Pool struct {
	sem    chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	log    *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pool{sem: make(chan struct{}, workers), log: logger}
}

// Size is the number of concurrent slots.
func (p *Pool) Size() int { return cap(p.sem) }

// Submit waits for a free slot and runs task on its own goroutine.
// It returns ctx.Err() if ctx ends first.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		p.wg.Done()
		return ctx.Err()
	}

	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		if err := p.run(ctx, task); err != nil {
			p.log.Warn().Err(err).Msg("worker task failed")
		}
	}()
	return nil
}

func (p *Pool) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker task panic: %v", r)
		}
	}()
	return task(ctx)
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() { p.wg.Wait() }

// Close rejects further submissions and waits for running tasks.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
