package input

import "fmt"

// keyAliases folds identifiers onto their canonical form. Left/right
// modifier variants collapse onto the left key: recordings made before the
// distinction existed replay identically either way.
var keyAliases = map[string]string{
	"alt":     "alt_l",
	"alt_r":   "alt_l",
	"cmd":     "cmd_l",
	"cmd_r":   "cmd_l",
	"ctrl":    "ctrl_l",
	"ctrl_r":  "ctrl_l",
	"shift":   "shift_l",
	"shift_r": "shift_l",
}

// namedKeys are the non-printable keys addressable by name.
var namedKeys = map[string]struct{}{
	"alt_l": {}, "backspace": {}, "caps_lock": {}, "cmd_l": {}, "ctrl_l": {},
	"delete": {}, "down": {}, "end": {}, "enter": {}, "esc": {},
	"f1": {}, "f2": {}, "f3": {}, "f4": {}, "f5": {}, "f6": {},
	"f7": {}, "f8": {}, "f9": {}, "f10": {}, "f11": {}, "f12": {},
	"home": {}, "left": {}, "page_down": {}, "page_up": {}, "right": {},
	"shift_l": {}, "space": {}, "tab": {}, "up": {},
}

// printableKeys covers single printable ASCII characters.
const printableKeys = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"`~!@#$%^&*()-_=+[]{}\\|;:'\",<.>/? "

// buttons are the addressable mouse buttons.
var buttons = map[string]struct{}{
	"L": {}, "R": {}, "M": {},
}

// NormalizeKey validates a keyboard identifier and returns its canonical
// form, applying the modifier fold.
func NormalizeKey(key string) (string, error) {
	if alias, ok := keyAliases[key]; ok {
		return alias, nil
	}
	if _, ok := namedKeys[key]; ok {
		return key, nil
	}
	if len(key) == 1 && containsRune(printableKeys, rune(key[0])) {
		return key, nil
	}
	return "", fmt.Errorf("input: invalid keyboard key %q", key)
}

// NormalizeButton validates a mouse button identifier (L, R or M).
func NormalizeButton(button string) (string, error) {
	if _, ok := buttons[button]; ok {
		return button, nil
	}
	return "", fmt.Errorf("input: invalid mouse button %q (use L, R or M)", button)
}

// NormalizeIdentifier validates a key-or-button against its device.
func NormalizeIdentifier(device Device, id string) (string, error) {
	if err := ValidateDevice(device); err != nil {
		return "", err
	}
	if device == DeviceKeyboard {
		return NormalizeKey(id)
	}
	return NormalizeButton(id)
}

// IsAltKey reports whether the identifier is any spelling of Alt; the
// recorder's stop combination is Alt held plus the stop letter.
func IsAltKey(key string) bool {
	normalized, err := NormalizeKey(key)
	return err == nil && normalized == "alt_l"
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
