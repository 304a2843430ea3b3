package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForWaiting(t *testing.T, q *Queue, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return q.Stats().Waiting == n }, time.Second, time.Millisecond)
}

func TestQueue_SameKeyRunsInArrivalOrder(t *testing.T) {
	q := New()
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		order []int
	)
	var running, maxRunning atomic.Int32

	task := func(n int) Task {
		return func(context.Context) (any, error) {
			cur := running.Add(1)
			for {
				old := maxRunning.Load()
				if cur <= old || maxRunning.CompareAndSwap(old, cur) {
					break
				}
			}
			if n == 0 {
				<-release
			}
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			running.Add(-1)
			return n, nil
		}
	}

	var wg sync.WaitGroup
	submit := func(n int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := q.Submit(context.Background(), "k", task(n))
			assert.NoError(t, err)
			assert.Equal(t, n, v)
		}()
	}

	submit(0)
	require.Eventually(t, func() bool { return q.Stats().ActiveKeys == 1 }, time.Second, time.Millisecond)
	for n := 1; n <= 4; n++ {
		submit(n)
		waitForWaiting(t, q, n)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestQueue_DistinctKeysRunInParallel(t *testing.T) {
	q := New()
	var barrier sync.WaitGroup
	barrier.Add(2)

	task := func(context.Context) (any, error) {
		barrier.Done()
		barrier.Wait()
		return nil, nil
	}

	errs := make(chan error, 2)
	for _, key := range []string{"a", "b"} {
		go func() {
			_, err := q.Submit(context.Background(), key, task)
			errs <- err
		}()
	}

	for range 2 {
		select {
		case err := <-errs:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("tasks for distinct keys did not run concurrently")
		}
	}
}

func TestQueue_ErrorReachesCallerAndQueueContinues(t *testing.T) {
	q := New()
	boom := errors.New("boom")

	_, err := q.Submit(context.Background(), "k", func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	v, err := q.Submit(context.Background(), "k", func(context.Context) (any, error) { return "next", nil })
	require.NoError(t, err)
	assert.Equal(t, "next", v)
}

func TestQueue_PanicBecomesError(t *testing.T) {
	q := New()

	_, err := q.Submit(context.Background(), "k", func(context.Context) (any, error) { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	_, err = q.Submit(context.Background(), "k", func(context.Context) (any, error) { return nil, nil })
	assert.NoError(t, err)
}

func TestQueue_DrainedKeysAreForgotten(t *testing.T) {
	q := New()
	for _, key := range []string{"a", "b", "c"} {
		_, err := q.Submit(context.Background(), key, func(context.Context) (any, error) { return nil, nil })
		require.NoError(t, err)
	}

	require.NoError(t, q.Wait(context.Background()))
	assert.Equal(t, Stats{}, q.Stats())
}

func TestQueue_CancelledCallerStillCompletesTask(t *testing.T) {
	q := New()
	release := make(chan struct{})
	var sideEffects atomic.Int32

	go func() {
		_, _ = q.Submit(context.Background(), "k", func(context.Context) (any, error) {
			<-release
			return nil, nil
		})
	}()
	require.Eventually(t, func() bool { return q.Stats().ActiveKeys == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := q.Submit(ctx, "k", func(taskCtx context.Context) (any, error) {
			sideEffects.Add(1)
			return nil, taskCtx.Err()
		})
		result <- err
	}()
	waitForWaiting(t, q, 1)

	cancel()
	assert.ErrorIs(t, <-result, context.Canceled)

	close(release)
	require.NoError(t, q.Wait(context.Background()))
	assert.Equal(t, int32(1), sideEffects.Load())
}

func TestDo_Typed(t *testing.T) {
	q := New()

	n, err := Do(context.Background(), q, "k", func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Do(context.Background(), q, "k", func(context.Context) (int, error) { return 0, errors.New("nope") })
	assert.Error(t, err)
}

func TestQueue_WaitHonoursContext(t *testing.T) {
	q := New()
	release := make(chan struct{})
	defer close(release)
	go func() {
		_, _ = q.Submit(context.Background(), "k", func(context.Context) (any, error) {
			<-release
			return nil, nil
		})
	}()
	require.Eventually(t, func() bool { return q.Stats().ActiveKeys == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Wait(ctx), context.DeadlineExceeded)
}
