package engine

import (
	"context"
	"time"
)

// Handler is the shape of a Step's three lifecycle hooks. It is invoked
// with a context.Context for cancellation propagation, the run's
// SharedContext for value passing, and a Completer it must eventually
// signal exactly once. A Handler may instead return a non-nil error
// directly; the engine treats that identically to calling done.Reject
// with the same error.
type Handler func(ctx context.Context, shared *SharedContext, done Completer) error

//counterfeiter:generate . Step

// Step is a unit of work a Job or CompositeJob child drives through
// RUN, and on failure or abort, CANCEL, and finally CLEANUP. Concrete
// steps embed BaseStep to inherit the default handle_cancel/handle_cleanup
// behavior and only implement HandleRun.
type Step interface {
	// Name identifies the step in logs and wrapped errors.
	Name() string

	// Timeout bounds each phase's wait for this step's completer. Zero
	// means no timeout.
	Timeout() time.Duration

	// MaxRetries is the number of RUN attempts the Job will make before
	// giving up. Values <= 0 are treated as 1.
	MaxRetries() int

	HandleRun(ctx context.Context, shared *SharedContext, done Completer) error
	HandleCancel(ctx context.Context, shared *SharedContext, done Completer) error
	HandleCleanup(ctx context.Context, shared *SharedContext, done Completer) error
}

// BaseStep gives a concrete step the engine's default CANCEL and CLEANUP
// behavior (resolve immediately, nothing to compensate) along with its
// name/timeout/retry configuration. Embed it and implement HandleRun.
type BaseStep struct {
	StepName       string
	StepTimeout    time.Duration
	StepMaxRetries int
}

func (s BaseStep) Name() string { return s.StepName }

func (s BaseStep) Timeout() time.Duration { return s.StepTimeout }

func (s BaseStep) MaxRetries() int {
	if s.StepMaxRetries <= 0 {
		return 1
	}
	return s.StepMaxRetries
}

func (s BaseStep) HandleCancel(ctx context.Context, shared *SharedContext, done Completer) error {
	done.Resolve()
	return nil
}

func (s BaseStep) HandleCleanup(ctx context.Context, shared *SharedContext, done Completer) error {
	done.Resolve()
	return nil
}
