package steps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riftlane/jobforge/internal/engine"
)

// registry is a process-wide table of named advisory locks, standing in
// for whatever coordination resource a real step might acquire (a file
// lock, a distributed lease, a hardware interlock).
var registry = struct {
	mu   sync.Mutex
	held map[string]bool
}{held: make(map[string]bool)}

func tryAcquire(name string) bool {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.held[name] {
		return false
	}
	registry.held[name] = true
	return true
}

func release(name string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.held, name)
}

// Lockscreen acquires a named advisory lock in handle_run and releases
// it in handle_cleanup, illustrating an acquisition that must outlive a
// successful RUN and be compensated for explicitly, rather than undone
// by handle_cancel.
type Lockscreen struct {
	engine.BaseStep

	Name string
}

// NewLockscreen builds a Lockscreen step guarding the named resource.
func NewLockscreen(name string, timeout time.Duration, maxRetries int) *Lockscreen {
	return &Lockscreen{
		BaseStep: engine.BaseStep{
			StepName:       fmt.Sprintf("lockscreen:%s", name),
			StepTimeout:    timeout,
			StepMaxRetries: maxRetries,
		},
		Name: name,
	}
}

func (l *Lockscreen) HandleRun(ctx context.Context, shared *engine.SharedContext, done engine.Completer) error {
	if !tryAcquire(l.Name) {
		return fmt.Errorf("lockscreen: %s already held", l.Name)
	}
	shared.Set(l.Name+".locked", true)
	done.Resolve()
	return nil
}

func (l *Lockscreen) HandleCleanup(ctx context.Context, shared *engine.SharedContext, done engine.Completer) error {
	release(l.Name)
	shared.Set(l.Name+".locked", false)
	done.Resolve()
	return nil
}
