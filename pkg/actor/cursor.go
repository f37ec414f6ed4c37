package actor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/episodic/pkg/rate"
)

// CursorMode selects how a CursorActor drives the cursor. The mode is fixed
// at construction.
type CursorMode int

const (
	// CursorModePosition applies absolute positions synchronously.
	CursorModePosition CursorMode = iota
	// CursorModeVelocity integrates a settable velocity into continuous
	// relative moves on a fixed-rate background loop.
	CursorModeVelocity
)

// ErrWrongMode reports an operation not supported by the constructed mode.
var ErrWrongMode = errors.New("actor: operation not available in this cursor mode")

// CursorOptions configure a cursor actor.
type CursorOptions struct {
	Mode     CursorMode
	Injector Injector
	// Hz paces the velocity integration loop; ignored in position mode.
	Hz     float64
	Clock  func() time.Time
	Sleep  func(time.Duration)
	Logger *slog.Logger
}

// CursorActor drives the cursor through the injection collaborator.
type CursorActor struct {
	mode     CursorMode
	injector Injector
	hz       float64
	logger   *slog.Logger

	mu sync.Mutex
	vx float64
	vy float64

	done      chan struct{}
	loopEnded chan struct{}
	closeOnce sync.Once
}

// NewCursorActor validates options and, in velocity mode, starts the
// integration loop.
func NewCursorActor(opts CursorOptions) (*CursorActor, error) {
	if opts.Injector == nil {
		return nil, errors.New("actor: injector must be provided")
	}
	switch opts.Mode {
	case CursorModePosition, CursorModeVelocity:
	default:
		return nil, fmt.Errorf("actor: invalid cursor mode %d", opts.Mode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &CursorActor{
		mode:     opts.Mode,
		injector: opts.Injector,
		hz:       opts.Hz,
		logger:   logger,
		done:     make(chan struct{}),
	}

	if opts.Mode == CursorModeVelocity {
		if a.hz == 0 {
			a.hz = 50
		}
		limiter, err := rate.NewLimiter(rate.Options{Hz: a.hz, Clock: opts.Clock, Sleep: opts.Sleep})
		if err != nil {
			return nil, err
		}
		a.loopEnded = make(chan struct{})
		go a.velocityLoop(limiter)
	}
	return a, nil
}

// Mode reports the constructed mode.
func (a *CursorActor) Mode() CursorMode {
	return a.mode
}

func (a *CursorActor) velocityLoop(limiter *rate.Limiter) {
	defer close(a.loopEnded)
	for {
		select {
		case <-a.done:
			return
		default:
		}
		limiter.Wait()

		a.mu.Lock()
		dx := int(a.vx / a.hz)
		dy := int(a.vy / a.hz)
		a.mu.Unlock()
		if dx == 0 && dy == 0 {
			continue
		}
		if err := a.injector.Move(dx, dy); err != nil {
			a.logger.Error("cursor move failed", "error", err)
		}
	}
}

// SetPosition warps the cursor to an absolute position. Available in both
// modes; in velocity mode the loop continues integrating from there.
func (a *CursorActor) SetPosition(x, y int) error {
	return a.injector.SetPosition(x, y)
}

// SetVelocity updates the integrated velocity in pixels per second.
func (a *CursorActor) SetVelocity(vx, vy float64) error {
	if a.mode != CursorModeVelocity {
		return ErrWrongMode
	}
	a.mu.Lock()
	a.vx, a.vy = vx, vy
	a.mu.Unlock()
	return nil
}

// Close stops the velocity loop, if any, and waits for it to end. Safe to
// call repeatedly.
func (a *CursorActor) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		if a.loopEnded != nil {
			<-a.loopEnded
		}
	})
	return nil
}
