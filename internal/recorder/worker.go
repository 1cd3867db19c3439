// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
worker.go - Boundary Worker

BoundaryWorker runs blocking calls on one dedicated goroutine. Callers hand a
job over a buffered channel with Call and wait on the returned Future. The
worker bounds every job with its own timeout on top of the caller's context,
so a stuck login or form post never outlives SubmitTimeout.

Jobs still queued when the worker stops are completed with ErrWorkerStopped.
A panic inside a job is recovered and returned as that job's error.
*/

//nolint:staticcheck // File documentation, not package doc
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/bggsync/internal/logging"
)

var (
	// ErrWorkerStopped is returned for jobs the worker will never run.
	ErrWorkerStopped = errors.New("boundary worker stopped")

	// ErrQueueFull is returned by Call when the hand-off queue is full.
	ErrQueueFull = errors.New("boundary worker queue is full")
)

type job struct {
	ctx   context.Context
	run   func(ctx context.Context)
	abort func(err error)
}

// BoundaryWorker executes handed-off calls one at a time.
type BoundaryWorker struct {
	jobs    chan job
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// NewBoundaryWorker creates a worker with a queue of queueSize pending jobs.
// A non-positive timeout leaves jobs bounded only by the caller's context.
func NewBoundaryWorker(queueSize int, timeout time.Duration) *BoundaryWorker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &BoundaryWorker{
		jobs:    make(chan job, queueSize),
		timeout: timeout,
	}
}

// Serve runs jobs until ctx is canceled. It implements suture.Service.
func (w *BoundaryWorker) Serve(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("boundary worker is already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	logging.Debug().Int("queue", cap(w.jobs)).Dur("timeout", w.timeout).Msg("Boundary worker started")
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case j := <-w.jobs:
			w.execute(j)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (w *BoundaryWorker) String() string {
	return "boundary-worker"
}

// Running reports whether Serve is active.
func (w *BoundaryWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Pending returns the number of queued jobs.
func (w *BoundaryWorker) Pending() int {
	return len(w.jobs)
}

func (w *BoundaryWorker) execute(j job) {
	if err := j.ctx.Err(); err != nil {
		j.abort(err)
		return
	}

	ctx := j.ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logging.CtxError(ctx).Interface("panic", r).Msg("Boundary call panicked")
			j.abort(fmt.Errorf("boundary call panicked: %v", r))
		}
	}()
	j.run(ctx)
}

func (w *BoundaryWorker) drain() {
	for {
		select {
		case j := <-w.jobs:
			j.abort(ErrWorkerStopped)
		default:
			return
		}
	}
}

type outcome[T any] struct {
	val T
	err error
}

// Future is the pending result of a Call.
type Future[T any] struct {
	ch chan outcome[T]
}

// Wait blocks until the job finished or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case o := <-f.ch:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Call queues fn on w. The job runs with ctx's values and cancellation plus
// the worker timeout. It fails fast with ErrQueueFull instead of blocking.
func Call[T any](ctx context.Context, w *BoundaryWorker, fn func(ctx context.Context) (T, error)) (*Future[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := &Future[T]{ch: make(chan outcome[T], 1)}
	j := job{
		ctx: ctx,
		run: func(jctx context.Context) {
			v, err := fn(jctx)
			f.ch <- outcome[T]{val: v, err: err}
		},
		abort: func(err error) {
			f.ch <- outcome[T]{err: err}
		},
	}

	select {
	case w.jobs <- j:
		return f, nil
	default:
		return nil, ErrQueueFull
	}
}
