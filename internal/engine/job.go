package engine

import (
	"context"
	"sync"
	"time"

	engineerrors "github.com/riftlane/jobforge/pkg/errors"
	"github.com/riftlane/jobforge/pkg/logger"
)

// Runnable is the surface a Scheduler needs to drive a queued entry to
// completion. Both *Job and *CompositeJob satisfy it through the
// embedded *engineCore.
type Runnable interface {
	ID() string
	Run(ctx context.Context, autoCleanup bool) error
	Done() <-chan struct{}
	Phase() Phase
	Success() bool
	Err() error
}

// engineCore drives the NEW -> RUN -> (CANCEL -> RUN)* -> CLEANUP ->
// COMPLETED state machine for a single Step. Job embeds it directly;
// CompositeJob embeds it over a synthetic Step (compositeDriver) that
// fans the same three hooks out across an ordered list of children, so
// the whole FSM is written exactly once.
type engineCore struct {
	step   Step
	shared *SharedContext
	log    *logger.Logger

	timeout    time.Duration
	maxRetries int

	mu               sync.Mutex
	id               string
	phase            Phase
	retriesRemaining int
	runAttempts      int
	autoCleanup      bool
	started          bool

	success bool
	err     error

	aborted     bool
	abortReason string

	successCancel bool
	errCancel     error

	cleanupRan     bool
	successCleanup bool
	errCleanup     error

	abortCh chan string
	doneCh  chan struct{}
	once    sync.Once
}

func newEngineCore(step Step, shared *SharedContext, timeout time.Duration, maxRetries int, log *logger.Logger) *engineCore {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if shared == nil {
		shared = NewSharedContext()
	}
	return &engineCore{
		step:             step,
		shared:           shared,
		log:              log,
		timeout:          timeout,
		maxRetries:       maxRetries,
		phase:            PhaseNew,
		retriesRemaining: maxRetries,
		abortCh:          make(chan string, 1),
		doneCh:           make(chan struct{}),
	}
}

// ID returns the job_id assigned by the Scheduler, or "" if the Job was
// never enqueued.
func (j *engineCore) ID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.id
}

// SetID assigns the opaque identity a Scheduler hands out on enqueue.
func (j *engineCore) SetID(id string) {
	j.mu.Lock()
	j.id = id
	j.mu.Unlock()
}

func (j *engineCore) Phase() Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase
}

func (j *engineCore) Success() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.success
}

func (j *engineCore) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *engineCore) IsAborted() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.aborted
}

func (j *engineCore) AbortReason() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.abortReason
}

func (j *engineCore) SuccessCancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.successCancel
}

func (j *engineCore) ErrorCancel() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errCancel
}

func (j *engineCore) SuccessCleanup() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.successCleanup
}

func (j *engineCore) ErrorCleanup() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errCleanup
}

// Done closes when the Job reaches COMPLETED. Any number of callers may
// wait on it; every one observes the same terminal Success()/Err().
func (j *engineCore) Done() <-chan struct{} {
	return j.doneCh
}

// Run starts the Job from NEW. It returns ErrInvalidTransition if the Job
// has already been run. The FSM executes on its own goroutine; callers
// observe completion via Done().
func (j *engineCore) Run(ctx context.Context, autoCleanup bool) error {
	j.mu.Lock()
	if j.phase != PhaseNew || j.started {
		j.mu.Unlock()
		return engineerrors.ErrInvalidTransition
	}
	j.started = true
	j.autoCleanup = autoCleanup
	j.phase = PhaseRun
	j.mu.Unlock()

	go j.loop(ctx)
	return nil
}

// Abort requests cancellation from whichever phase the Job is currently
// in. It is idempotent: the first call wins, every later call before
// COMPLETED is a silent no-op, and a call after COMPLETED is rejected
// with ErrInvalidTransition so a caller can tell the Job already finished.
func (j *engineCore) Abort(reason string) error {
	j.mu.Lock()
	if j.phase == PhaseCompleted {
		j.mu.Unlock()
		return engineerrors.ErrInvalidTransition
	}
	if j.abortReason != "" {
		j.mu.Unlock()
		return nil
	}
	j.abortReason = reason
	j.aborted = true
	j.retriesRemaining = 0
	j.mu.Unlock()

	select {
	case j.abortCh <- reason:
	default:
	}
	return nil
}

// Cleanup runs CLEANUP explicitly. It is only valid once, in COMPLETED,
// for a Job that was run with auto_cleanup off.
func (j *engineCore) Cleanup(ctx context.Context) error {
	j.mu.Lock()
	if j.phase != PhaseCompleted || j.autoCleanup || j.cleanupRan {
		j.mu.Unlock()
		return engineerrors.ErrInvalidTransition
	}
	j.cleanupRan = true
	j.phase = PhaseCleanup
	j.mu.Unlock()

	j.cleanupPhase(ctx)

	j.mu.Lock()
	j.phase = PhaseCompleted
	err := j.errCleanup
	j.mu.Unlock()
	return err
}

func (j *engineCore) loop(ctx context.Context) {
	phase := PhaseRun
	for {
		switch phase {
		case PhaseRun:
			phase = j.runPhase(ctx)
		case PhaseCancel:
			phase = j.cancelPhase(ctx)
		case PhaseCleanup:
			j.mu.Lock()
			j.cleanupRan = true
			j.mu.Unlock()
			j.cleanupPhase(ctx)
			phase = PhaseCompleted
		case PhaseCompleted:
			j.complete()
			return
		}
	}
}

func (j *engineCore) setPhase(p Phase) {
	j.mu.Lock()
	j.phase = p
	j.mu.Unlock()
}

func (j *engineCore) runPhase(ctx context.Context) Phase {
	j.setPhase(PhaseRun)
	j.mu.Lock()
	j.runAttempts++
	j.mu.Unlock()

	err, aborted := j.invokeHandler(ctx, j.step.HandleRun, j.timeout, engineerrors.ErrRunTimedOut)

	if !aborted && err == nil {
		j.mu.Lock()
		j.success = true
		j.err = nil
		j.mu.Unlock()
		if j.autoCleanup {
			return PhaseCleanup
		}
		return PhaseCompleted
	}

	if !aborted {
		j.mu.Lock()
		j.err = engineerrors.WrapRunFailed(j.step.Name(), err)
		j.mu.Unlock()
		j.log.Warn("run failed", "step", j.step.Name(), "err", err)
	}
	return PhaseCancel
}

func (j *engineCore) cancelPhase(ctx context.Context) Phase {
	j.setPhase(PhaseCancel)

	err, aborted := j.invokeHandler(ctx, j.step.HandleCancel, j.timeout, engineerrors.ErrCancelTimedOut)
	j.mu.Lock()
	switch {
	case aborted:
		j.successCancel = false
	case err != nil:
		j.successCancel = false
		j.errCancel = engineerrors.WrapCancelFailed(j.step.Name(), err)
	default:
		j.successCancel = true
	}
	j.mu.Unlock()
	if err != nil {
		j.log.Warn("cancel failed", "step", j.step.Name(), "err", err)
	}

	return j.afterCancel()
}

func (j *engineCore) afterCancel() Phase {
	j.mu.Lock()
	retry := !j.aborted && j.retriesRemaining > 1
	if retry {
		j.retriesRemaining--
		j.mu.Unlock()
		return PhaseRun
	}

	switch {
	case j.aborted:
		j.err = engineerrors.NewAborted(j.abortReason)
	case j.runAttempts > 1:
		j.err = engineerrors.ErrRetriesExhausted
	}
	j.success = false
	autoCleanup := j.autoCleanup
	j.mu.Unlock()

	if autoCleanup {
		return PhaseCleanup
	}
	return PhaseCompleted
}

func (j *engineCore) cleanupPhase(ctx context.Context) {
	j.setPhase(PhaseCleanup)

	err, aborted := j.invokeHandler(ctx, j.step.HandleCleanup, j.timeout, engineerrors.ErrCleanupTimedOut)
	j.mu.Lock()
	switch {
	case aborted:
		j.successCleanup = false
	case err != nil:
		j.successCleanup = false
		j.errCleanup = engineerrors.WrapCleanupFailed(j.step.Name(), err)
	default:
		j.successCleanup = true
	}
	j.mu.Unlock()
	if err != nil {
		j.log.Warn("cleanup failed", "step", j.step.Name(), "err", err)
	}
}

func (j *engineCore) complete() {
	j.setPhase(PhaseCompleted)
	j.once.Do(func() { close(j.doneCh) })
}

// invokeHandler runs fn on its own goroutine and waits for it to signal
// the completer, for the phase timeout to elapse, or for an Abort() to
// land, whichever comes first. It never waits for fn's goroutine to
// actually return: a handler that never completes is the engine's
// documented way of modeling work the Job gives up waiting on.
func (j *engineCore) invokeHandler(parentCtx context.Context, fn Handler, timeout time.Duration, timeoutErr error) (err error, aborted bool) {
	phaseCtx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	done := newCompleter()
	go func() {
		if e := fn(phaseCtx, j.shared, done); e != nil {
			done.Reject(e)
		}
	}()

	var timerCh <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timerCh = t.C
	}

	select {
	case out := <-done.result:
		return out.err, false
	case <-timerCh:
		return timeoutErr, false
	case reason := <-j.abortCh:
		j.mu.Lock()
		if j.abortReason == "" {
			j.abortReason = reason
		}
		j.aborted = true
		j.retriesRemaining = 0
		j.mu.Unlock()
		return nil, true
	}
}

// Job wraps a single Step in the engine's state machine.
type Job struct {
	*engineCore
}

// NewJob constructs a Job around step. shared may be nil, in which case
// the Job gets its own private SharedContext.
func NewJob(step Step, shared *SharedContext, opts ...Option) *Job {
	o := applyOptions(opts)
	return &Job{newEngineCore(step, shared, step.Timeout(), step.MaxRetries(), o.logger)}
}
