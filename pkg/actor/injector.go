// Package actor provides the command surface over the input-injection
// collaborator: cursor control in position or velocity mode, and discrete
// event control in immediate or buffered mode.
package actor

import "sync"

// Injector is the low-level input synthesis collaborator. Identifiers
// passed to it are already canonical (validated by the actors).
type Injector interface {
	PressKey(key string) error
	ReleaseKey(key string) error
	PressButton(button string) error
	ReleaseButton(button string) error
	SetPosition(x, y int) error
	Move(dx, dy int) error
	Scroll(dx, dy int) error
}

// Op records one injector invocation, for the synthetic backend.
type Op struct {
	Name string
	Key  string
	X    int
	Y    int
}

// SyntheticInjector records operations instead of synthesising input. It is
// the default backend off-darwin and the test double everywhere, and also
// serves as a position reader for the recorder.
type SyntheticInjector struct {
	mu  sync.Mutex
	ops []Op
	x   int
	y   int
}

// NewSyntheticInjector returns an empty recording injector.
func NewSyntheticInjector() *SyntheticInjector {
	return &SyntheticInjector{}
}

func (s *SyntheticInjector) record(op Op) error {
	s.mu.Lock()
	s.ops = append(s.ops, op)
	s.mu.Unlock()
	return nil
}

func (s *SyntheticInjector) PressKey(key string) error {
	return s.record(Op{Name: "press_key", Key: key})
}

func (s *SyntheticInjector) ReleaseKey(key string) error {
	return s.record(Op{Name: "release_key", Key: key})
}

func (s *SyntheticInjector) PressButton(button string) error {
	return s.record(Op{Name: "press_button", Key: button})
}

func (s *SyntheticInjector) ReleaseButton(button string) error {
	return s.record(Op{Name: "release_button", Key: button})
}

func (s *SyntheticInjector) SetPosition(x, y int) error {
	s.mu.Lock()
	s.x, s.y = x, y
	s.mu.Unlock()
	return s.record(Op{Name: "set_position", X: x, Y: y})
}

func (s *SyntheticInjector) Move(dx, dy int) error {
	s.mu.Lock()
	s.x += dx
	s.y += dy
	s.mu.Unlock()
	return s.record(Op{Name: "move", X: dx, Y: dy})
}

func (s *SyntheticInjector) Scroll(dx, dy int) error {
	return s.record(Op{Name: "scroll", X: dx, Y: dy})
}

// Position reports the tracked cursor position.
func (s *SyntheticInjector) Position() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y, nil
}

// Ops returns a copy of the recorded operations.
func (s *SyntheticInjector) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Op, len(s.ops))
	copy(out, s.ops)
	return out
}
