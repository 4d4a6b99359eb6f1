package main

import (
	"context"
	"runtime"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/semaphore"
)

// workerPool bounds how much CPU/disk-heavy work (decode, encode, recolor)
// runs at once. Callers must never hold one slot while acquiring another.
type workerPool struct {
	sem *semaphore.Weighted
}

// newWorkerPool creates a pool with size slots, or NumCPU slots if size <= 0
func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &workerPool{sem: semaphore.NewWeighted(int64(size))}
}

// Do runs fn while holding a pool slot. It returns ctx.Err() if the context
// is cancelled before a slot becomes free.
func (p *workerPool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// task is a handle to background work producing a T.
// It is owned by exactly one fetcher and is either cancelled or consumed.
type task[T any] struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	// Written by the worker goroutine before done is closed
	result T
	err    error
}

// startTask runs fn on its own goroutine with a cancellable child of parent
func startTask[T any](parent context.Context, fn func(ctx context.Context) (T, error)) *task[T] {
	ctx, cancel := context.WithCancel(parent)
	t := &task[T]{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()

		var pc panics.Catcher
		pc.Try(func() {
			t.result, t.err = fn(ctx)
		})
		if r := pc.Recovered(); r != nil {
			t.err = r.AsError()
		}
		// A cancelled task never reports success
		if t.err == nil && ctx.Err() != nil {
			t.err = ctx.Err()
		}
	}()

	return t
}

// Cancel signals the task to stop. Its result, if any, must not be used.
func (t *task[T]) Cancel() {
	t.cancel()
}

// Done reports whether the task has finished, without blocking
func (t *task[T]) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task finishes or ctx is done
func (t *task[T]) Wait(ctx context.Context) bool {
	select {
	case <-t.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Result returns the task's outcome. Only valid once Done reports true.
func (t *task[T]) Result() (T, error) {
	return t.result, t.err
}
