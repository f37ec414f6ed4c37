// Package input defines the discrete input event model, the OS listener
// collaborator interface, and the canonical key/button identifier maps
// shared by the recorder bridge and the replay actors.
package input

import (
	"fmt"
	"time"
)

// Device identifies the input device a discrete event belongs to.
type Device string

const (
	DeviceKeyboard Device = "keyboard"
	DeviceMouse    Device = "mouse"
)

// Action is the discrete event kind.
type Action string

const (
	ActionPress      Action = "press"
	ActionRelease    Action = "release"
	ActionScrollUp   Action = "scroll_up"
	ActionScrollDown Action = "scroll_down"
)

// Event is one discrete notification delivered by a listener.
type Event struct {
	Device Device
	Key    string
	Action Action
	At     time.Time
}

// Listener is the OS-level subscription collaborator. Start registers the
// callback and begins delivering events on a dedicated goroutine until Stop.
// Stop must be idempotent.
type Listener interface {
	Start(emit func(Event)) error
	Stop() error
}

// PositionReader reports the current absolute cursor position.
type PositionReader interface {
	Position() (x, y int, err error)
}

// ValidateDevice rejects anything other than keyboard or mouse.
func ValidateDevice(device Device) error {
	switch device {
	case DeviceKeyboard, DeviceMouse:
		return nil
	default:
		return fmt.Errorf("input: invalid device %q (use %q or %q)", device, DeviceKeyboard, DeviceMouse)
	}
}
