// Package dispatch serializes work per key: at most one task per key runs at
// a time, later tasks for the same key wait in arrival order, and distinct
// keys run in parallel.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"saldo/internal/platform/privacy"
)

// Task is one unit of orchestration work.
type Task func(ctx context.Context) (any, error)

type result struct {
	value any
	err   error
}

type job struct {
	ctx  context.Context
	run  Task
	done chan result
}

// keyState exists only while a task for the key is in flight; its presence
// in Queue.keys is the in-flight flag.
type keyState struct {
	waiting []*job
}

// Queue is a per-key FIFO dispatcher. The zero value is not usable; use New.
type Queue struct {
	mu       sync.Mutex
	keys     map[string]*keyState
	inflight sync.WaitGroup
	logger   *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used to report recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// New creates an empty Queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		keys:   make(map[string]*keyState),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit enqueues task under key and waits for its result.
//
// The task runs with a context detached from ctx's cancellation: once
// accepted, a task always runs to completion so its side effects land in
// order. If ctx ends first, Submit returns ctx.Err() and the task's result
// is discarded.
func (q *Queue) Submit(ctx context.Context, key string, task Task) (any, error) {
	j := &job{
		ctx:  context.WithoutCancel(ctx),
		run:  task,
		done: make(chan result, 1),
	}

	q.inflight.Add(1)
	q.mu.Lock()
	st, busy := q.keys[key]
	if busy {
		st.waiting = append(st.waiting, j)
		q.mu.Unlock()
	} else {
		q.keys[key] = &keyState{}
		q.mu.Unlock()
		go q.execute(key, j)
	}

	select {
	case res := <-j.done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do is a typed wrapper around Queue.Submit.
func Do[T any](ctx context.Context, q *Queue, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := q.Submit(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T) //nolint:errcheck // v always comes from fn
	return out, nil
}

func (q *Queue) execute(key string, j *job) {
	defer q.inflight.Done()

	j.done <- q.run(key, j)

	q.mu.Lock()
	st := q.keys[key]
	if len(st.waiting) == 0 {
		delete(q.keys, key)
		q.mu.Unlock()
		return
	}
	next := st.waiting[0]
	st.waiting[0] = nil
	st.waiting = st.waiting[1:]
	q.mu.Unlock()

	// The successor starts on its own goroutine so completion never nests.
	go q.execute(key, next)
}

func (q *Queue) run(key string, j *job) (res result) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(j.ctx, "dispatch task panicked", "key_hash", privacy.HashDocument(key), "panic", r)
			res = result{err: fmt.Errorf("dispatch task panicked: %v", r)}
		}
	}()
	v, err := j.run(j.ctx)
	return result{value: v, err: err}
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	// ActiveKeys counts keys with a task in flight.
	ActiveKeys int
	// Waiting counts tasks queued behind an in-flight task.
	Waiting int
}

// Stats returns the current queue occupancy.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := Stats{ActiveKeys: len(q.keys)}
	for _, st := range q.keys {
		s.Waiting += len(st.waiting)
	}
	return s
}

// Wait blocks until every accepted task has finished or ctx ends.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
