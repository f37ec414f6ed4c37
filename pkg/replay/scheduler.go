// Package replay schedules a recorded event timeline against the wall
// clock and dispatches it through the actors, aborting on operator input.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/offlinefirst/episodic/pkg/actor"
	"github.com/offlinefirst/episodic/pkg/episode"
	"github.com/offlinefirst/episodic/pkg/input"
)

// ErrNoEvents reports a replay attempt against an empty timeline.
var ErrNoEvents = errors.New("replay: no events to schedule")

// Outcome classifies how a replay run ended.
type Outcome string

const (
	// OutcomeCompleted means every event was dispatched.
	OutcomeCompleted Outcome = "completed"
	// OutcomeAborted means operator input interrupted the run.
	OutcomeAborted Outcome = "aborted"
	// OutcomeFailed means a dispatch or setup error ended the run.
	OutcomeFailed Outcome = "failed"
)

// DefaultKeyDelay is the settle pause after each keyboard dispatch.
const DefaultKeyDelay = 10 * time.Millisecond

// Options configure a scheduler.
type Options struct {
	Cursor *actor.CursorActor
	Events *actor.EventActor
	// Safety delivers operator keyboard activity; any externally
	// originated key press aborts the run. Nil disables the abort.
	Safety input.Listener
	// KeyDelay follows each keyboard dispatch. Defaults to
	// DefaultKeyDelay.
	KeyDelay time.Duration
	Clock    func() time.Time
	Sleep    func(time.Duration)
	Logger   *slog.Logger
}

type heldKey struct {
	device input.Device
	key    string
}

// Scheduler drives one replay run. Timing is drift-free: each event's
// dispatch target is computed from the wall start and the recorded
// offset, never from the previous dispatch.
type Scheduler struct {
	cursor   *actor.CursorActor
	events   *actor.EventActor
	safety   input.Listener
	keyDelay time.Duration
	clock    func() time.Time
	sleep    func(time.Duration)
	logger   *slog.Logger

	injecting atomic.Bool
	aborted   atomic.Bool

	mu   sync.Mutex
	held map[heldKey]struct{}
}

// NewScheduler validates options and returns a ready scheduler.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Cursor == nil {
		return nil, errors.New("replay: cursor actor must be provided")
	}
	if opts.Events == nil {
		return nil, errors.New("replay: event actor must be provided")
	}
	if opts.KeyDelay < 0 {
		return nil, fmt.Errorf("replay: key delay must not be negative, got %v", opts.KeyDelay)
	}
	if opts.KeyDelay == 0 {
		opts.KeyDelay = DefaultKeyDelay
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cursor:   opts.Cursor,
		events:   opts.Events,
		safety:   opts.Safety,
		keyDelay: opts.KeyDelay,
		clock:    clock,
		sleep:    sleep,
		logger:   logger,
		held:     make(map[heldKey]struct{}),
	}, nil
}

// watch is the safety listener callback. A key press that did not
// originate from our own injection aborts the run once.
func (s *Scheduler) watch(ev input.Event) {
	if ev.Device != input.DeviceKeyboard || ev.Action != input.ActionPress {
		return
	}
	if s.injecting.Load() {
		return
	}
	if s.aborted.CompareAndSwap(false, true) {
		s.logger.Info("operator input detected, aborting replay", "key", ev.Key)
		if s.safety != nil {
			if err := s.safety.Stop(); err != nil {
				s.logger.Warn("stop safety listener", "error", err)
			}
		}
	}
}

// Run dispatches the timeline. The first event's log time anchors the
// schedule at the current wall clock. On every exit path held keys are
// released and the safety listener is stopped.
func (s *Scheduler) Run(ctx context.Context, events []episode.Event) (Outcome, error) {
	if len(events) == 0 {
		return OutcomeFailed, ErrNoEvents
	}

	if s.safety != nil {
		if err := s.safety.Start(s.watch); err != nil {
			return OutcomeFailed, fmt.Errorf("start safety listener: %w", err)
		}
	}
	defer func() {
		if s.safety != nil {
			if err := s.safety.Stop(); err != nil {
				s.logger.Warn("stop safety listener", "error", err)
			}
		}
		s.releaseHeld()
	}()

	origin := events[0].LogTime
	wallStart := s.clock()
	s.logger.Info("replay started", "events", len(events))

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return OutcomeFailed, err
		}
		if s.aborted.Load() {
			return OutcomeAborted, nil
		}

		target := wallStart.Add(time.Duration(ev.LogTime - origin))
		if remaining := target.Sub(s.clock()); remaining > 0 {
			s.sleep(remaining)
		}
		if s.aborted.Load() {
			return OutcomeAborted, nil
		}

		if err := s.dispatch(ev); err != nil {
			return OutcomeFailed, err
		}
	}

	s.logger.Info("replay completed", "events", len(events))
	return OutcomeCompleted, nil
}

func (s *Scheduler) dispatch(ev episode.Event) error {
	switch ev.Kind {
	case episode.KindCursor:
		if err := s.cursor.SetPosition(ev.Cursor.X, ev.Cursor.Y); err != nil {
			return fmt.Errorf("set cursor position: %w", err)
		}
		return nil
	case episode.KindInput:
		return s.dispatchInput(ev.Input)
	default:
		return fmt.Errorf("replay: unknown event kind %d", ev.Kind)
	}
}

func (s *Scheduler) dispatchInput(ev episode.InputEvent) error {
	if ev.Device == input.DeviceKeyboard {
		s.injecting.Store(true)
		defer s.injecting.Store(false)
	}

	var err error
	switch ev.Action {
	case input.ActionPress:
		if err = s.events.Press(ev.Device, ev.Key); err == nil {
			s.trackHeld(ev.Device, ev.Key, true)
		}
	case input.ActionRelease:
		s.trackHeld(ev.Device, ev.Key, false)
		err = s.events.Release(ev.Device, ev.Key)
	case input.ActionScrollUp, input.ActionScrollDown:
		err = s.events.Scroll(ev.Action)
	default:
		err = fmt.Errorf("replay: unsupported action %q", ev.Action)
	}
	if err != nil {
		return fmt.Errorf("dispatch %s %s %s: %w", ev.Device, ev.Action, ev.Key, err)
	}

	if ev.Device == input.DeviceKeyboard {
		s.sleep(s.keyDelay)
	}
	return nil
}

func (s *Scheduler) trackHeld(device input.Device, key string, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hk := heldKey{device: device, key: key}
	if down {
		s.held[hk] = struct{}{}
	} else {
		delete(s.held, hk)
	}
}

// releaseHeld releases every still-held key and button so an interrupted
// run never leaves the machine with a stuck modifier.
func (s *Scheduler) releaseHeld() {
	s.mu.Lock()
	held := make([]heldKey, 0, len(s.held))
	for hk := range s.held {
		held = append(held, hk)
	}
	s.held = make(map[heldKey]struct{})
	s.mu.Unlock()

	for _, hk := range held {
		if err := s.events.Release(hk.device, hk.key); err != nil {
			s.logger.Warn("release held key", "device", hk.device, "key", hk.key, "error", err)
		}
	}
}
