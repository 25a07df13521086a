package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riftlane/jobforge/pkg/logger"
)

// CompositeJob runs an ordered sequence of Steps as children, each
// wrapped in its own Job with auto_cleanup off so the composite owns
// cleanup ordering. Its own RUN/CANCEL/CLEANUP hooks are delegated to an
// inner compositeDriver that walks the children forward and, on cleanup,
// in exact reverse.
type CompositeJob struct {
	*engineCore
	driver *compositeDriver
}

// NewCompositeJob builds a CompositeJob over steps. timeout and
// maxRetries apply to the composite as a whole, not to individual
// children (each child keeps its own Step's timeout/max_retries).
func NewCompositeJob(steps []Step, shared *SharedContext, timeout time.Duration, maxRetries int, opts ...Option) *CompositeJob {
	o := applyOptions(opts)
	if shared == nil {
		shared = NewSharedContext()
	}

	driver := &compositeDriver{
		shared: shared,
		log:    o.logger,
		total:  len(steps),
	}
	driver.children = make([]*Job, len(steps))
	for i, st := range steps {
		driver.children[i] = NewJob(st, shared, opts...)
	}

	core := newEngineCore(driver, shared, timeout, maxRetries, o.logger)
	return &CompositeJob{engineCore: core, driver: driver}
}

// SetID assigns the composite's own id and, since children are never
// independently enqueued, derives a stable per-child id for logging.
func (c *CompositeJob) SetID(id string) {
	c.engineCore.SetID(id)
	for i, child := range c.driver.children {
		child.SetID(fmt.Sprintf("%s.%d", id, i))
	}
}

// OnProgress registers a callback invoked after each child's forward
// RUN attempt, in order, before the composite transitions phase.
func (c *CompositeJob) OnProgress(fn func(Progress)) {
	c.driver.mu.Lock()
	c.driver.progressObservers = append(c.driver.progressObservers, fn)
	c.driver.mu.Unlock()
}

// OnCleanupProgress registers a callback invoked after each child's
// cleanup pass, in reverse order.
func (c *CompositeJob) OnCleanupProgress(fn func(Progress)) {
	c.driver.mu.Lock()
	c.driver.cleanupObservers = append(c.driver.cleanupObservers, fn)
	c.driver.mu.Unlock()
}

// compositeDriver is the synthetic Step the embedded engineCore drives.
// It never appears outside this package; its three handlers implement
// the composite's forward and cleanup passes over real Steps.
type compositeDriver struct {
	shared *SharedContext
	log    *logger.Logger

	children []*Job
	total    int

	mu              sync.Mutex
	currentIndex    int
	inFlightChild   *Job
	firstCleanupErr error

	progressObservers []func(Progress)
	cleanupObservers  []func(Progress)
}

func (d *compositeDriver) Name() string           { return "composite" }
func (d *compositeDriver) Timeout() time.Duration { return 0 }
func (d *compositeDriver) MaxRetries() int        { return 1 }

func (d *compositeDriver) emitProgress(p Progress) {
	d.mu.Lock()
	observers := append([]func(Progress){}, d.progressObservers...)
	d.mu.Unlock()
	for _, fn := range observers {
		fn(p)
	}
}

func (d *compositeDriver) emitCleanupProgress(p Progress) {
	d.mu.Lock()
	observers := append([]func(Progress){}, d.cleanupObservers...)
	d.mu.Unlock()
	for _, fn := range observers {
		fn(p)
	}
}

// HandleRun walks children forward from index 0, one at a time. It stops
// and rejects at the first child failure, leaving current_index at the
// failing child so the cleanup pass starts there. A full success leaves
// current_index at the last child.
func (d *compositeDriver) HandleRun(ctx context.Context, shared *SharedContext, done Completer) error {
	go func() {
		for i := 0; i < d.total; i++ {
			d.mu.Lock()
			d.currentIndex = i
			child := d.children[i]
			d.inFlightChild = child
			d.mu.Unlock()

			if err := child.Run(ctx, false); err != nil {
				d.mu.Lock()
				d.inFlightChild = nil
				d.mu.Unlock()
				done.Reject(err)
				return
			}
			<-child.Done()

			d.mu.Lock()
			d.inFlightChild = nil
			d.mu.Unlock()

			if !child.Success() {
				d.emitProgress(Progress{Index: i, Total: d.total, Success: false, Err: child.Err()})
				done.Reject(child.Err())
				return
			}
			d.emitProgress(Progress{Index: i, Total: d.total, Success: true})
		}

		d.mu.Lock()
		d.currentIndex = d.total - 1
		d.mu.Unlock()
		done.Resolve()
	}()
	return nil
}

// HandleCancel aborts whichever child is still in flight when the
// composite itself is aborted or times out, excludes that child from
// the cleanup walk (its own handle_cancel already released what its
// handle_run acquired), and propagates upward. When there is no
// in-flight child (the ordinary case: a child already rejected on its
// own) this is a no-op so cleanup still starts at the failing child.
func (d *compositeDriver) HandleCancel(ctx context.Context, shared *SharedContext, done Completer) error {
	d.mu.Lock()
	child := d.inFlightChild
	d.mu.Unlock()

	if child != nil {
		_ = child.Abort("composite cancel")
		<-child.Done()
		d.mu.Lock()
		d.currentIndex--
		d.mu.Unlock()
	}

	done.Resolve()
	return nil
}

// HandleCleanup walks children from current_index down to 0, calling
// each child's explicit Cleanup regardless of earlier failures
// (best-effort, exhaustive), and records only the first error.
func (d *compositeDriver) HandleCleanup(ctx context.Context, shared *SharedContext, done Completer) error {
	d.mu.Lock()
	start := d.currentIndex
	d.mu.Unlock()

	for i := start; i >= 0; i-- {
		child := d.children[i]
		err := child.Cleanup(ctx)
		if err != nil {
			d.mu.Lock()
			if d.firstCleanupErr == nil {
				d.firstCleanupErr = err
			}
			d.mu.Unlock()
			d.log.Warn("child cleanup failed", "index", i, "err", err)
		}
		d.emitCleanupProgress(Progress{Index: i, Total: d.total, Success: err == nil, Err: err})
	}

	d.mu.Lock()
	d.currentIndex = -1
	firstErr := d.firstCleanupErr
	d.mu.Unlock()

	if firstErr != nil {
		return firstErr
	}
	done.Resolve()
	return nil
}
