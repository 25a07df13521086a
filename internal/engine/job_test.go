package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	engineerrors "github.com/riftlane/jobforge/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, j *Job) {
	t.Helper()
	select {
	case <-j.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("job did not complete in time")
	}
}

// S1: a single Step whose handle_run resolves immediately reaches
// COMPLETED with success=true, and (with auto_cleanup on) runs CLEANUP
// exactly once.
func TestJob_SingleSuccess(t *testing.T) {
	var runCount, cleanupCount int
	var mu sync.Mutex

	step := resolvingStep("devicesim")
	step.run = func(ctx context.Context, shared *SharedContext, done Completer) error {
		mu.Lock()
		runCount++
		mu.Unlock()
		done.Resolve()
		return nil
	}
	step.clean = func(ctx context.Context, shared *SharedContext, done Completer) error {
		mu.Lock()
		cleanupCount++
		mu.Unlock()
		done.Resolve()
		return nil
	}

	j := NewJob(step, nil)
	require.NoError(t, j.Run(context.Background(), true))
	waitDone(t, j)

	assert.True(t, j.Success())
	assert.NoError(t, j.Err())
	assert.Equal(t, PhaseCompleted, j.Phase())
	assert.Equal(t, 1, runCount)
	assert.Equal(t, 1, cleanupCount)
}

// S2: handle_run rejects with a concrete error and default max_retries
// (1 attempt): the Job makes exactly one RUN and one CANCEL attempt and
// preserves the real failure reason, rather than the retries-exhausted
// sentinel (that sentinel applies only when the budget actually spanned
// more than one attempt).
func TestJob_SingleRejection_PreservesRealError(t *testing.T) {
	var runCount, cancelCount, cleanupCount int
	var mu sync.Mutex

	step := rejectingStep("devicesim", errBoom)
	step.run = func(ctx context.Context, shared *SharedContext, done Completer) error {
		mu.Lock()
		runCount++
		mu.Unlock()
		return errBoom
	}
	step.cancel = func(ctx context.Context, shared *SharedContext, done Completer) error {
		mu.Lock()
		cancelCount++
		mu.Unlock()
		done.Resolve()
		return nil
	}
	step.clean = func(ctx context.Context, shared *SharedContext, done Completer) error {
		mu.Lock()
		cleanupCount++
		mu.Unlock()
		done.Resolve()
		return nil
	}

	j := NewJob(step, nil)
	require.NoError(t, j.Run(context.Background(), true))
	waitDone(t, j)

	assert.False(t, j.Success())
	require.Error(t, j.Err())
	assert.True(t, errors.Is(j.Err(), errBoom))
	assert.Equal(t, 1, runCount)
	assert.Equal(t, 1, cancelCount)
	assert.Equal(t, 1, cleanupCount)
}

// S3: max_retries=3, handle_run never completes. The Job retries via its
// own timeout three times, cancels three times, runs CLEANUP once, and
// the top-level error is the retries-exhausted sentinel.
func TestJob_RetriesExhausted(t *testing.T) {
	var runCount, cancelCount, cleanupCount int
	var mu sync.Mutex

	step := hangingStep("devicesim", 20*time.Millisecond, 3)
	step.run = func(ctx context.Context, shared *SharedContext, done Completer) error {
		mu.Lock()
		runCount++
		mu.Unlock()
		<-ctx.Done()
		return nil
	}
	step.cancel = func(ctx context.Context, shared *SharedContext, done Completer) error {
		mu.Lock()
		cancelCount++
		mu.Unlock()
		done.Resolve()
		return nil
	}
	step.clean = func(ctx context.Context, shared *SharedContext, done Completer) error {
		mu.Lock()
		cleanupCount++
		mu.Unlock()
		done.Resolve()
		return nil
	}

	j := NewJob(step, nil)
	require.NoError(t, j.Run(context.Background(), true))

	select {
	case <-j.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("job did not complete in time")
	}

	assert.False(t, j.Success())
	assert.True(t, engineerrors.IsRetriesExhausted(j.Err()))
	assert.Equal(t, 3, runCount)
	assert.Equal(t, 3, cancelCount)
	assert.Equal(t, 1, cleanupCount)
}

// P1: Run() resolves exactly once regardless of how many goroutines wait
// on Done(); every waiter observes the same terminal result.
func TestJob_TerminalResultIsStable(t *testing.T) {
	step := resolvingStep("devicesim")
	j := NewJob(step, nil)
	require.NoError(t, j.Run(context.Background(), true))

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-j.Done()
			results[idx] = j.Success()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r)
	}
}

// P2: a handler that calls Resolve/Reject more than once only has its
// first call take effect.
func TestCompleter_AtMostOnce(t *testing.T) {
	step := resolvingStep("devicesim")
	step.run = func(ctx context.Context, shared *SharedContext, done Completer) error {
		done.Resolve()
		done.Reject(errBoom)
		done.Resolve()
		return nil
	}

	j := NewJob(step, nil)
	require.NoError(t, j.Run(context.Background(), true))
	waitDone(t, j)

	assert.True(t, j.Success())
	assert.NoError(t, j.Err())
}

// Run() is invalid once the Job has left NEW.
func TestJob_RunTwiceIsInvalid(t *testing.T) {
	step := resolvingStep("devicesim")
	j := NewJob(step, nil)
	require.NoError(t, j.Run(context.Background(), true))
	waitDone(t, j)

	err := j.Run(context.Background(), true)
	assert.ErrorIs(t, err, engineerrors.ErrInvalidTransition)
}

// P5: a second Abort() before COMPLETED is a silent no-op and does not
// overwrite the first reason; Abort() after COMPLETED is rejected.
func TestJob_AbortIdempotent(t *testing.T) {
	releaseRun := make(chan struct{})
	cancelEntered := make(chan struct{})
	releaseCancel := make(chan struct{})

	step := newStubStep("devicesim")
	step.run = func(ctx context.Context, shared *SharedContext, done Completer) error {
		<-releaseRun
		return nil
	}
	step.cancel = func(ctx context.Context, shared *SharedContext, done Completer) error {
		close(cancelEntered)
		<-releaseCancel
		done.Resolve()
		return nil
	}

	j := NewJob(step, nil)
	require.NoError(t, j.Run(context.Background(), true))

	require.NoError(t, j.Abort("user"))
	<-cancelEntered
	require.NoError(t, j.Abort("user again"))

	close(releaseRun)
	close(releaseCancel)
	waitDone(t, j)

	assert.Equal(t, "user", j.AbortReason())
	assert.False(t, j.Success())
	assert.True(t, engineerrors.IsAborted(j.Err()))

	err := j.Abort("too late")
	assert.ErrorIs(t, err, engineerrors.ErrInvalidTransition)
}

// Explicit Cleanup() is valid exactly once, only in COMPLETED, only when
// auto_cleanup was off.
func TestJob_ExplicitCleanup(t *testing.T) {
	var cleanupCount int
	var mu sync.Mutex

	step := resolvingStep("assetserver")
	step.clean = func(ctx context.Context, shared *SharedContext, done Completer) error {
		mu.Lock()
		cleanupCount++
		mu.Unlock()
		done.Resolve()
		return nil
	}

	j := NewJob(step, nil)
	require.NoError(t, j.Run(context.Background(), false))
	waitDone(t, j)

	assert.True(t, j.Success())
	assert.NoError(t, j.Cleanup(context.Background()))
	assert.Equal(t, 1, cleanupCount)

	err := j.Cleanup(context.Background())
	assert.ErrorIs(t, err, engineerrors.ErrInvalidTransition)
}

func TestJob_CleanupInvalidWhenAutoCleanupOn(t *testing.T) {
	step := resolvingStep("assetserver")
	j := NewJob(step, nil)
	require.NoError(t, j.Run(context.Background(), true))
	waitDone(t, j)

	err := j.Cleanup(context.Background())
	assert.ErrorIs(t, err, engineerrors.ErrInvalidTransition)
}
