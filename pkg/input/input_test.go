package input

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeKeyCollapsesModifierSides(t *testing.T) {
	for _, spelling := range []string{"alt", "alt_l", "alt_r"} {
		got, err := NormalizeKey(spelling)
		require.NoError(t, err)
		require.Equal(t, "alt_l", got)
	}
	got, err := NormalizeKey("ctrl_r")
	require.NoError(t, err)
	require.Equal(t, "ctrl_l", got)
}

func TestNormalizeKeyAcceptsNamedAndPrintable(t *testing.T) {
	for _, key := range []string{"enter", "f11", "page_down", "a", "Z", "7", "?", " "} {
		got, err := NormalizeKey(key)
		require.NoError(t, err)
		require.NotEmpty(t, got)
	}
}

func TestNormalizeKeyRejectsUnknown(t *testing.T) {
	for _, key := range []string{"", "super", "ab", "f13"} {
		_, err := NormalizeKey(key)
		require.Error(t, err, "key %q", key)
	}
}

func TestNormalizeButton(t *testing.T) {
	for _, button := range []string{"L", "R", "M"} {
		got, err := NormalizeButton(button)
		require.NoError(t, err)
		require.Equal(t, button, got)
	}
	_, err := NormalizeButton("X")
	require.Error(t, err)
}

func TestNormalizeIdentifierChecksDeviceFirst(t *testing.T) {
	_, err := NormalizeIdentifier(Device("touchpad"), "a")
	require.Error(t, err)

	got, err := NormalizeIdentifier(DeviceMouse, "L")
	require.NoError(t, err)
	require.Equal(t, "L", got)
}

func TestIsAltKey(t *testing.T) {
	require.True(t, IsAltKey("alt"))
	require.True(t, IsAltKey("alt_r"))
	require.False(t, IsAltKey("ctrl"))
	require.False(t, IsAltKey("x"))
}

func TestSyntheticListenerPlaysScript(t *testing.T) {
	script := []ScriptStep{
		{Event: Event{Device: DeviceKeyboard, Key: "a", Action: ActionPress}},
		{Delay: time.Millisecond, Event: Event{Device: DeviceKeyboard, Key: "a", Action: ActionRelease}},
	}
	listener := NewSyntheticListener(script)

	var mu sync.Mutex
	var seen []Event
	require.NoError(t, listener.Start(func(ev Event) {
		mu.Lock()
		seen = append(seen, ev)
		mu.Unlock()
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, time.Millisecond)
	require.NoError(t, listener.Stop())
}

func TestSyntheticListenerStopIsIdempotentAndHaltsDelivery(t *testing.T) {
	listener := NewSyntheticListener(nil)
	var count int
	require.NoError(t, listener.Start(func(Event) { count++ }))

	require.True(t, listener.Emit(Event{Device: DeviceMouse, Key: "L", Action: ActionPress}))
	require.NoError(t, listener.Stop())
	require.NoError(t, listener.Stop())
	require.False(t, listener.Emit(Event{Device: DeviceMouse, Key: "L", Action: ActionRelease}))
	require.Equal(t, 1, count)
}

func TestSyntheticListenerRequiresCallbackAndSingleStart(t *testing.T) {
	listener := NewSyntheticListener(nil)
	require.Error(t, listener.Start(nil))
	require.NoError(t, listener.Start(func(Event) {}))
	require.Error(t, listener.Start(func(Event) {}))
}

func TestDetectEnvironmentReportsProvider(t *testing.T) {
	env := DetectEnvironment()
	require.NotEmpty(t, env.Provider)
	require.NotEmpty(t, env.Permission)
}
