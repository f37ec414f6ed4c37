package input

import (
	"errors"
	"sync"
	"time"
)

// ScriptStep is one entry in a synthetic listener timeline.
type ScriptStep struct {
	// Delay before the event is delivered, relative to the previous step.
	Delay time.Duration
	Event Event
}

// SyntheticListener delivers a scripted timeline (and any manually emitted
// events) to the registered callback on its own goroutine. It stands in for
// the OS listener off-darwin and in tests, mirroring the deterministic
// synthetic sources used elsewhere in this codebase.
type SyntheticListener struct {
	script []ScriptStep

	mu      sync.Mutex
	emit    func(Event)
	started bool
	stopped bool
	done    chan struct{}
}

// NewSyntheticListener returns a listener that plays script after Start.
// An empty script makes a purely manual listener driven by Emit.
func NewSyntheticListener(script []ScriptStep) *SyntheticListener {
	return &SyntheticListener{script: script, done: make(chan struct{})}
}

// Start registers the callback and begins playing the script.
func (l *SyntheticListener) Start(emit func(Event)) error {
	if emit == nil {
		return errors.New("input: emit callback must be provided")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return errors.New("input: listener already started")
	}
	l.started = true
	l.emit = emit
	go l.play()
	return nil
}

func (l *SyntheticListener) play() {
	for _, step := range l.script {
		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			select {
			case <-l.done:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		if !l.Emit(step.Event) {
			return
		}
	}
}

// Emit delivers one event to the callback, reporting whether the listener
// was accepting events. Safe for concurrent use.
func (l *SyntheticListener) Emit(ev Event) bool {
	l.mu.Lock()
	emit := l.emit
	running := l.started && !l.stopped
	l.mu.Unlock()
	if !running || emit == nil {
		return false
	}
	emit(ev)
	return true
}

// Stop ends delivery. Safe to call repeatedly and before Start.
func (l *SyntheticListener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return nil
	}
	l.stopped = true
	close(l.done)
	return nil
}
