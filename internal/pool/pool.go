// Package pool provides the two bounded worker pools of a build and a
// barrier for batches of fatal work.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"clasp/internal/logging"
)

// Pool runs functions with bounded concurrency.
type Pool struct {
	name string
	size int
	sem  *semaphore.Weighted
	wg   sync.WaitGroup
}

// New returns a pool running at most size functions at once. size < 1 means
// GOMAXPROCS.
func New(name string, size int) *Pool {
	if size < 1 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{name: name, size: size, sem: semaphore.NewWeighted(int64(size))}
}

func (p *Pool) Name() string { return p.name }
func (p *Pool) Size() int    { return p.size }

// Go runs fn as detached work. Its panics are logged and dropped.
func (p *Pool) Go(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				logging.L().Error("detached task panicked", "pool", p.name, "panic", r)
			}
		}()
		fn()
	}()
}

// Quiesce blocks until every function started with Go has returned,
// including functions started while waiting.
func (p *Pool) Quiesce() { p.wg.Wait() }

// Tasks starts a barrier whose work runs on p.
func (p *Pool) Tasks(ctx context.Context) *Tasks {
	g, ctx := errgroup.WithContext(ctx)
	return &Tasks{p: p, g: g, ctx: ctx}
}

// Tasks is a batch of work that fails as a whole: Wait returns the first
// error or panic of any member.
type Tasks struct {
	p   *Pool
	g   *errgroup.Group
	ctx context.Context
}

func (t *Tasks) Go(fn func() error) {
	t.g.Go(func() (err error) {
		if err := t.p.sem.Acquire(t.ctx, 1); err != nil {
			return err
		}
		defer t.p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("pool %s: task panicked: %v", t.p.name, r)
			}
		}()
		return fn()
	})
}

// Wait blocks until every member returned.
func (t *Tasks) Wait() error { return t.g.Wait() }

// Resources are the pools shared by one build.
type Resources struct {
	CPU *Pool
	IO  *Pool
}

func NewResources(cpu, io int) *Resources {
	if io < 1 {
		io = 4
	}
	return &Resources{CPU: New("cpu", cpu), IO: New("io", io)}
}
