package actor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/episodic/pkg/input"
	"github.com/offlinefirst/episodic/pkg/rate"
)

// EventMode selects how an EventActor executes commands. The mode is fixed
// at construction.
type EventMode int

const (
	// EventModeImmediate executes each command synchronously on call.
	EventModeImmediate EventMode = iota
	// EventModeBuffered enqueues commands into a FIFO drained by a
	// fixed-rate background loop, pacing dispatch independently of the
	// caller.
	EventModeBuffered
)

// EventOptions configure an event actor.
type EventOptions struct {
	Mode     EventMode
	Injector Injector
	// Hz paces the buffered drain loop; ignored in immediate mode.
	Hz     float64
	Clock  func() time.Time
	Sleep  func(time.Duration)
	Logger *slog.Logger
}

type command struct {
	device input.Device
	action input.Action
	key    string
}

// EventActor executes discrete press/release/scroll commands through the
// injection collaborator, validating identifiers before any buffering or
// dispatch.
type EventActor struct {
	mode     EventMode
	injector Injector
	hz       float64
	logger   *slog.Logger

	mu    sync.Mutex
	queue []command

	done      chan struct{}
	loopEnded chan struct{}
	closeOnce sync.Once
}

// NewEventActor validates options and, in buffered mode, starts the drain
// loop.
func NewEventActor(opts EventOptions) (*EventActor, error) {
	if opts.Injector == nil {
		return nil, errors.New("actor: injector must be provided")
	}
	switch opts.Mode {
	case EventModeImmediate, EventModeBuffered:
	default:
		return nil, fmt.Errorf("actor: invalid event mode %d", opts.Mode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &EventActor{
		mode:     opts.Mode,
		injector: opts.Injector,
		hz:       opts.Hz,
		logger:   logger,
		done:     make(chan struct{}),
	}

	if opts.Mode == EventModeBuffered {
		if a.hz == 0 {
			a.hz = 25
		}
		limiter, err := rate.NewLimiter(rate.Options{Hz: a.hz, Clock: opts.Clock, Sleep: opts.Sleep})
		if err != nil {
			return nil, err
		}
		a.loopEnded = make(chan struct{})
		go a.drainLoop(limiter)
	}
	return a, nil
}

// Mode reports the constructed mode.
func (a *EventActor) Mode() EventMode {
	return a.mode
}

func (a *EventActor) drainLoop(limiter *rate.Limiter) {
	defer close(a.loopEnded)
	for {
		select {
		case <-a.done:
			return
		default:
		}
		limiter.Wait()

		a.mu.Lock()
		var next *command
		if len(a.queue) > 0 {
			cmd := a.queue[0]
			a.queue = a.queue[1:]
			next = &cmd
		}
		a.mu.Unlock()
		if next == nil {
			continue
		}
		if err := a.execute(*next); err != nil {
			a.logger.Error("buffered event dispatch failed", "device", next.device, "key", next.key, "action", next.action, "error", err)
		}
	}
}

func (a *EventActor) execute(cmd command) error {
	switch cmd.action {
	case input.ActionPress:
		if cmd.device == input.DeviceKeyboard {
			return a.injector.PressKey(cmd.key)
		}
		return a.injector.PressButton(cmd.key)
	case input.ActionRelease:
		if cmd.device == input.DeviceKeyboard {
			return a.injector.ReleaseKey(cmd.key)
		}
		return a.injector.ReleaseButton(cmd.key)
	case input.ActionScrollUp:
		return a.injector.Scroll(0, 1)
	case input.ActionScrollDown:
		return a.injector.Scroll(0, -1)
	default:
		return fmt.Errorf("actor: unsupported action %q", cmd.action)
	}
}

func (a *EventActor) submit(cmd command) error {
	if a.mode == EventModeImmediate {
		return a.execute(cmd)
	}
	a.mu.Lock()
	a.queue = append(a.queue, cmd)
	a.mu.Unlock()
	return nil
}

// Press validates the identifier and dispatches (or enqueues) a press.
func (a *EventActor) Press(device input.Device, key string) error {
	canonical, err := input.NormalizeIdentifier(device, key)
	if err != nil {
		return err
	}
	return a.submit(command{device: device, action: input.ActionPress, key: canonical})
}

// Release validates the identifier and dispatches (or enqueues) a release.
func (a *EventActor) Release(device input.Device, key string) error {
	canonical, err := input.NormalizeIdentifier(device, key)
	if err != nil {
		return err
	}
	return a.submit(command{device: device, action: input.ActionRelease, key: canonical})
}

// Scroll dispatches (or enqueues) a wheel scroll; action must be
// scroll_up or scroll_down.
func (a *EventActor) Scroll(action input.Action) error {
	if action != input.ActionScrollUp && action != input.ActionScrollDown {
		return fmt.Errorf("actor: invalid scroll action %q", action)
	}
	return a.submit(command{device: input.DeviceMouse, action: action})
}

// Pending reports the number of queued commands in buffered mode.
func (a *EventActor) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// Close stops the drain loop, if any, and waits for it. Queued commands
// not yet dispatched are discarded. Safe to call repeatedly.
func (a *EventActor) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		if a.loopEnded != nil {
			<-a.loopEnded
		}
	})
	return nil
}
