package engine

import (
	"context"
	"errors"
	"time"
)

// stubStep is a hand-rolled Step test double (the engine avoids
// counterfeiter-generated fakes in its own tests, reserving those for
// packages that consume Step from the outside).
type stubStep struct {
	BaseStep

	run    func(ctx context.Context, shared *SharedContext, done Completer) error
	cancel func(ctx context.Context, shared *SharedContext, done Completer) error
	clean  func(ctx context.Context, shared *SharedContext, done Completer) error
}

func newStubStep(name string) *stubStep {
	return &stubStep{BaseStep: BaseStep{StepName: name}}
}

func (s *stubStep) HandleRun(ctx context.Context, shared *SharedContext, done Completer) error {
	if s.run != nil {
		return s.run(ctx, shared, done)
	}
	done.Resolve()
	return nil
}

func (s *stubStep) HandleCancel(ctx context.Context, shared *SharedContext, done Completer) error {
	if s.cancel != nil {
		return s.cancel(ctx, shared, done)
	}
	return s.BaseStep.HandleCancel(ctx, shared, done)
}

func (s *stubStep) HandleCleanup(ctx context.Context, shared *SharedContext, done Completer) error {
	if s.clean != nil {
		return s.clean(ctx, shared, done)
	}
	return s.BaseStep.HandleCleanup(ctx, shared, done)
}

// resolvingStep immediately resolves its RUN handler.
func resolvingStep(name string) *stubStep {
	return newStubStep(name)
}

// rejectingStep immediately rejects its RUN handler with err.
func rejectingStep(name string, err error) *stubStep {
	s := newStubStep(name)
	s.run = func(ctx context.Context, shared *SharedContext, done Completer) error {
		return err
	}
	return s
}

// hangingStep never signals its completer, relying on the Job's timeout
// to force a transition.
func hangingStep(name string, timeout time.Duration, maxRetries int) *stubStep {
	s := newStubStep(name)
	s.StepTimeout = timeout
	s.StepMaxRetries = maxRetries
	s.run = func(ctx context.Context, shared *SharedContext, done Completer) error {
		<-ctx.Done()
		return nil
	}
	return s
}

var errBoom = errors.New("boom")
