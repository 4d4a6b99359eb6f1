package main

import (
	"context"

	"github.com/sirupsen/logrus"
)

// fetchState is the lifecycle of an asset lookup for the current track
type fetchState int

const (
	stateIdle fetchState = iota
	stateLoading
	stateReady
	stateFailed
)

func (s fetchState) String() string {
	switch s {
	case stateLoading:
		return "loading"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// fetcher keeps one asset (artwork, lyrics) in step with the current track.
// It is driven from the UI loop only: Sync on every status poll, Poll on every tick.
// At most one task is active, and a new one is started only after the
// previous one has been cancelled and dropped, so a stale result is never installed.
type fetcher[T any] struct {
	name string
	ctx  context.Context
	log  *logrus.Entry

	identity string
	state    fetchState
	value    T
	active   *task[T]
}

func newFetcher[T any](ctx context.Context, name string) *fetcher[T] {
	return &fetcher[T]{
		name: name,
		ctx:  ctx,
		log:  logger.WithField("fetcher", name),
	}
}

// Sync points the fetcher at identity. If it differs from the current one the
// in-flight task is cancelled and, for a non-empty identity, load is started
// in the background. Returns true if a transition happened.
func (f *fetcher[T]) Sync(identity string, load func(ctx context.Context) (T, error)) bool {
	if identity == f.identity {
		return false
	}

	f.cancelActive()
	f.identity = identity
	f.clearValue()

	if identity == "" {
		f.state = stateIdle
		return true
	}

	f.active = startTask(f.ctx, load)
	f.state = stateLoading
	f.log.WithFields(logrus.Fields{"task": f.active.id, "identity": identity}).Debug("fetch started")
	return true
}

// Poll installs the active task's result once it has finished.
// Never blocks. Returns true if the state changed.
func (f *fetcher[T]) Poll() bool {
	if f.active == nil || !f.active.Done() {
		return false
	}

	t := f.active
	f.active = nil

	value, err := t.Result()
	entry := f.log.WithFields(logrus.Fields{"task": t.id, "identity": f.identity})
	if err != nil {
		f.clearValue()
		f.state = stateFailed
		if isRecoverable(err) {
			entry.WithError(err).Debug("fetch found nothing")
		} else {
			entry.WithError(err).Warn("fetch failed")
		}
		return true
	}

	f.value = value
	f.state = stateReady
	entry.Debug("fetch ready")
	return true
}

// Invalidate forgets the current identity so that the next Sync starts over
func (f *fetcher[T]) Invalidate() {
	f.cancelActive()
	f.identity = ""
	f.clearValue()
	f.state = stateIdle
}

// State returns the current lifecycle state
func (f *fetcher[T]) State() fetchState {
	return f.state
}

// Value returns the installed artifact; ok is false unless the state is Ready
func (f *fetcher[T]) Value() (value T, ok bool) {
	if f.state != stateReady {
		var zero T
		return zero, false
	}
	return f.value, true
}

// Identity returns the identity of the installed or loading artifact
func (f *fetcher[T]) Identity() string {
	return f.identity
}

// Close cancels any in-flight work
func (f *fetcher[T]) Close() {
	f.cancelActive()
}

func (f *fetcher[T]) cancelActive() {
	if f.active == nil {
		return
	}
	f.active.Cancel()
	f.log.WithField("task", f.active.id).Debug("fetch cancelled")
	f.active = nil
}

func (f *fetcher[T]) clearValue() {
	var zero T
	f.value = zero
}
