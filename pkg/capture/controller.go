package capture

import (
	"context"
	"sync"
)

// Controller gates the recorder's sample loop. The loop calls Wait at the
// top of every tick; Pause parks it there, Resume releases it, and Kill
// ends the session. A Kill with a nil cause is the cooperative operator
// stop and maps to TerminationStopped; a non-nil cause surfaces as the
// recording failure.
type Controller struct {
	mu       sync.Mutex
	paused   bool
	stopping bool
	cause    error
	// wake is closed and replaced whenever parked waiters must recheck.
	wake chan struct{}
}

// NewController returns a controller in the running state.
func NewController() *Controller {
	return &Controller{wake: make(chan struct{})}
}

// Pause parks subsequent Wait calls until Resume or Kill.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume releases paused waiters.
func (c *Controller) Resume() {
	c.mu.Lock()
	if c.paused {
		c.paused = false
		c.broadcastLocked()
	}
	c.mu.Unlock()
}

// Kill ends the session. The first non-nil cause wins; later calls are
// no-ops apart from recording a cause if none was set.
func (c *Controller) Kill(err error) {
	c.mu.Lock()
	if err != nil && c.cause == nil {
		c.cause = err
	}
	if !c.stopping {
		c.stopping = true
		c.broadcastLocked()
	}
	c.mu.Unlock()
}

// Wait returns nil while the session is running, blocks while it is
// paused, and returns the stop cause once it is ending. A stop without a
// recorded cause reports context.Canceled so callers always get a non-nil
// signal to break on.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		stopping, paused, cause, wake := c.stopping, c.paused, c.cause, c.wake
		c.mu.Unlock()

		if stopping {
			if cause != nil {
				return cause
			}
			if ctx != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return context.Canceled
		}
		if !paused {
			return nil
		}

		if ctx == nil {
			<-wake
			continue
		}
		select {
		case <-ctx.Done():
			c.Kill(ctx.Err())
			return ctx.Err()
		case <-wake:
		}
	}
}

// State reports running, paused or stopping for diagnostics.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.stopping:
		return "stopping"
	case c.paused:
		return "paused"
	default:
		return "running"
	}
}

func (c *Controller) broadcastLocked() {
	close(c.wake)
	c.wake = make(chan struct{})
}
