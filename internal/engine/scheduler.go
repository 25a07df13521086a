package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riftlane/jobforge/pkg/logger"
)

// JobConfig describes a unit of work to hand to a Scheduler. Supplying
// Steps (more than zero) produces a CompositeJob; otherwise Step
// produces a plain Job. Timeout and MaxRetries apply to the composite
// wrapper as a whole when Steps is set — a single Job instead draws its
// timeout/retries from its Step.
type JobConfig struct {
	Step       Step
	Steps      []Step
	Timeout    time.Duration
	MaxRetries int
	FailOnBusy bool
	// AutoCleanup controls whether the scheduled job runs CLEANUP
	// automatically on completion (the zero value runs the job without
	// auto-cleanup, leaving an explicit Cleanup() call to the caller).
	// CompositeJob children always run with auto_cleanup off regardless
	// of this field, since the composite owns their cleanup ordering.
	AutoCleanup bool
}

type queuedJob struct {
	job         Runnable
	autoCleanup bool
}

// Scheduler is a single-consumer FIFO queue: Enqueue appends,
// ProcessQueue pops and runs the head job to completion before the next
// one starts. At most one job is ever in flight.
type Scheduler struct {
	shared *SharedContext
	log    *logger.Logger

	mu      sync.Mutex
	queue   []queuedJob
	running bool
	nextID  uint64

	pushedObservers    []func(PushedEvent)
	progressObservers  []func(job Runnable, p Progress)
	completedObservers []func(CompletedEvent)
}

// NewScheduler builds a Scheduler whose jobs share shared. A nil
// shared gets a fresh, empty one.
func NewScheduler(shared *SharedContext, opts ...Option) *Scheduler {
	o := applyOptions(opts)
	if shared == nil {
		shared = NewSharedContext()
	}
	return &Scheduler{shared: shared, log: o.logger}
}

// IsBusy reports whether the queue holds any job waiting to run.
// ProcessQueue removes a job from the queue when it starts it, so a
// running job is not counted; see Running for that.
func (s *Scheduler) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) > 0
}

// Running reports whether a job is currently executing.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Enqueue appends a job built from cfg to the queue. If cfg.FailOnBusy
// is set and the queue is already non-empty, it returns (nil, false)
// without mutating the queue.
func (s *Scheduler) Enqueue(cfg JobConfig) (Runnable, bool) {
	s.mu.Lock()
	if cfg.FailOnBusy && len(s.queue) > 0 {
		s.mu.Unlock()
		return nil, false
	}

	id := fmt.Sprintf("job-%d", atomic.AddUint64(&s.nextID, 1))
	var job Runnable
	if len(cfg.Steps) > 0 {
		cj := NewCompositeJob(cfg.Steps, s.shared, cfg.Timeout, cfg.MaxRetries, WithLogger(s.log))
		cj.SetID(id)
		job = cj
	} else {
		j := NewJob(cfg.Step, s.shared, WithLogger(s.log))
		j.SetID(id)
		job = j
	}
	s.queue = append(s.queue, queuedJob{job: job, autoCleanup: cfg.AutoCleanup})
	s.mu.Unlock()

	s.emitPushed(PushedEvent{Job: job})
	return job, true
}

// ProcessQueue pops the head of the queue, if any, and runs it to
// completion on its own goroutine. It is a no-op if a job is already
// running or the queue is empty. Call it again (e.g. from a
// CompletedEvent observer) to drain the rest of the queue.
func (s *Scheduler) ProcessQueue(ctx context.Context) {
	s.mu.Lock()
	if s.running || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	qj := s.queue[0]
	s.queue = s.queue[1:]
	s.running = true
	s.mu.Unlock()

	job := qj.job
	if cj, ok := job.(*CompositeJob); ok {
		cj.OnProgress(func(p Progress) { s.emitProgress(job, p) })
	}

	go func() {
		if err := job.Run(ctx, qj.autoCleanup); err != nil {
			s.log.Error("job failed to start", "job_id", job.ID(), "err", err)
		}
		<-job.Done()

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		s.emitCompleted(CompletedEvent{Job: job, Success: job.Success(), Err: job.Err()})
	}()
}

// OnPushed registers an observer invoked when Enqueue accepts a job.
func (s *Scheduler) OnPushed(fn func(PushedEvent)) {
	s.mu.Lock()
	s.pushedObservers = append(s.pushedObservers, fn)
	s.mu.Unlock()
}

// OnProgress registers an observer invoked as a running CompositeJob
// advances through its children.
func (s *Scheduler) OnProgress(fn func(job Runnable, p Progress)) {
	s.mu.Lock()
	s.progressObservers = append(s.progressObservers, fn)
	s.mu.Unlock()
}

// OnCompleted registers an observer invoked once a running job reaches
// COMPLETED.
func (s *Scheduler) OnCompleted(fn func(CompletedEvent)) {
	s.mu.Lock()
	s.completedObservers = append(s.completedObservers, fn)
	s.mu.Unlock()
}

func (s *Scheduler) emitPushed(e PushedEvent) {
	s.mu.Lock()
	observers := append([]func(PushedEvent){}, s.pushedObservers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(e)
	}
}

func (s *Scheduler) emitProgress(job Runnable, p Progress) {
	s.mu.Lock()
	observers := append([]func(Runnable, Progress){}, s.progressObservers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(job, p)
	}
}

func (s *Scheduler) emitCompleted(e CompletedEvent) {
	s.mu.Lock()
	observers := append([]func(CompletedEvent){}, s.completedObservers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(e)
	}
}
