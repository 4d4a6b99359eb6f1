package main

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskResult(t *testing.T) {
	tk := startTask(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	if !tk.Wait(context.Background()) {
		t.Fatal("Wait returned before the task finished")
	}
	assertEqual(t, tk.Done(), true, "done")
	got, err := tk.Result()
	assertNoError(t, err)
	assertEqual(t, got, 42, "result")
	if tk.id == "" {
		t.Error("Expected the task to have an ID")
	}
}

func TestTaskCancel(t *testing.T) {
	started := make(chan struct{})
	tk := startTask(context.Background(), func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		// Returning a value after cancellation must still report the cancellation
		return "stale", nil
	})

	<-started
	assertEqual(t, tk.Done(), false, "done before cancel")
	tk.Cancel()
	waitFor(t, time.Second, tk.Done)

	_, err := tk.Result()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTaskPanicBecomesError(t *testing.T) {
	tk := startTask(context.Background(), func(ctx context.Context) (int, error) {
		panic("decoder blew up")
	})

	waitFor(t, time.Second, tk.Done)
	_, err := tk.Result()
	if err == nil || !strings.Contains(err.Error(), "decoder blew up") {
		t.Errorf("Expected the panic as an error, got %v", err)
	}
}

func TestTaskWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	tk := startTask(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 0, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if tk.Wait(ctx) {
		t.Error("Wait reported completion for a task that is still running")
	}
}

func TestWorkerPoolBound(t *testing.T) {
	pool := newWorkerPool(2)

	var running, peak atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			pool.Do(context.Background(), func() error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if peak.Load() > 2 {
		t.Errorf("Expected at most 2 concurrent jobs, saw %d", peak.Load())
	}
}

func TestWorkerPoolCancelledWhileWaiting(t *testing.T) {
	pool := newWorkerPool(1)
	hold := make(chan struct{})
	go pool.Do(context.Background(), func() error {
		<-hold
		return nil
	})
	defer close(hold)

	// Give the first job time to take the only slot
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	err := pool.Do(ctx, func() error {
		ran = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	assertEqual(t, ran, false, "job ran without a slot")
}
