package domain

import "sync"

// Completion is the delivery signal attached to an OutgoingEvent. It
// settles exactly once: either Resolve (the send succeeded) or Fail (the
// send errored or timed out). Waiters select on Done and then read Err.
type Completion struct {
	done chan struct{}
	once sync.Once

	mu  sync.Mutex
	err error
}

// NewCompletion creates an unsettled completion signal.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Resolve settles the completion successfully. Later calls to Resolve or
// Fail are no-ops.
func (c *Completion) Resolve() {
	c.once.Do(func() { close(c.done) })
}

// Fail settles the completion with the given error. Later calls to
// Resolve or Fail are no-ops.
func (c *Completion) Fail(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// Done is closed once the completion has settled.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the failure cause, or nil if the completion resolved
// successfully or has not settled yet.
func (c *Completion) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Settled reports whether the completion has resolved or failed.
func (c *Completion) Settled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
