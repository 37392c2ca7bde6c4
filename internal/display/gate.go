package display

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// Gate gives one writer at a time ownership of a Display.
type Gate struct {
	sem *semaphore.Weighted
}

func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the gate is held or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// TryAcquire waits at most timeout for the gate. A timeout yields ErrBusy and
// is never retried here.
func (g *Gate) TryAcquire(timeout time.Duration) error {
	if g.sem.TryAcquire(1) {
		return nil
	}
	if timeout <= 0 {
		return ErrBusy
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrBusy
		}
		return err
	}
	return nil
}

// Release gives the gate back. It panics if the gate is not held.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Do runs fn while holding the gate, blocking on ctx for acquisition.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}

// DoTimeout runs fn while holding the gate, giving up with ErrBusy after timeout.
func (g *Gate) DoTimeout(timeout time.Duration, fn func() error) error {
	if err := g.TryAcquire(timeout); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}
