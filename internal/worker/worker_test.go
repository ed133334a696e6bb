package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerRunsUntilStopped(t *testing.T) {
	var calls int64
	w := New(func(ctx context.Context) error {
		atomic.AddInt64(&calls, 1)
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Millisecond):
		}
		return nil
	})

	w.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt64(&calls) > 2 }, time.Second, time.Millisecond)

	w.Stop()
	require.NoError(t, w.Wait())
	require.False(t, w.IsRunning())
}

func TestWorkerPauseResume(t *testing.T) {
	var calls int64
	w := New(func(ctx context.Context) error {
		atomic.AddInt64(&calls, 1)
		time.Sleep(time.Millisecond)
		return nil
	})
	w.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt64(&calls) > 0 }, time.Second, time.Millisecond)

	w.Pause()
	n := atomic.LoadInt64(&calls)
	time.Sleep(20 * time.Millisecond)
	require.LessOrEqual(t, atomic.LoadInt64(&calls), n+1) // at most the in-flight call completes

	w.Resume()
	require.Eventually(t, func() bool { return atomic.LoadInt64(&calls) > n+1 }, time.Second, time.Millisecond)

	w.Stop()
	require.NoError(t, w.Wait())
}

func TestWorkerPropagatesFuncError(t *testing.T) {
	sentinel := errors.New("boom")
	w := New(func(ctx context.Context) error { return sentinel })
	w.Start(context.Background())
	require.ErrorIs(t, w.Wait(), sentinel)
	require.False(t, w.IsRunning())
}

func TestWorkerStopDetachesOnSlowFunc(t *testing.T) {
	release := make(chan struct{})
	w := New(func(ctx context.Context) error {
		<-release
		<-ctx.Done()
		return nil
	})
	w.Start(context.Background())
	require.Eventually(t, func() bool { return w.IsRunning() }, time.Second, time.Millisecond)

	w.Stop()
	require.True(t, w.Detached())

	close(release)
	require.NoError(t, w.Wait())
}

func TestWorkerStartTwicePanics(t *testing.T) {
	w := New(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	w.Start(context.Background())
	defer func() {
		w.Stop()
		w.Wait()
	}()

	require.Panics(t, func() { w.Start(context.Background()) })
}
