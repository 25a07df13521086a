package engine

import "sync"

// Completer is the one-shot capability a Step handler uses to signal its
// own outcome. Resolve and Reject are idempotent: only the first call
// takes effect, every later call is silently ignored. This replaces the
// promise/deferred idiom the handler contract is described with in terms
// a Go handler can actually hold onto across goroutines.
type Completer interface {
	Resolve()
	Reject(err error)
}

type outcome struct {
	err error
}

type completer struct {
	once   sync.Once
	result chan outcome
}

func newCompleter() *completer {
	return &completer{result: make(chan outcome, 1)}
}

func (c *completer) Resolve() {
	c.once.Do(func() { c.result <- outcome{} })
}

func (c *completer) Reject(err error) {
	c.once.Do(func() { c.result <- outcome{err: err} })
}
