package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeLookup map[string]string

func (f fakeLookup) get(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func TestInterpretPermissionFlag(t *testing.T) {
	cases := map[string]struct {
		value    string
		expected Status
	}{
		"granted":     {"granted", StatusGranted},
		"denied":      {"denied", StatusDenied},
		"prompt":      {"prompt", StatusPromptRequired},
		"unsupported": {"unsupported", StatusUnavailable},
		"unknown":     {"", StatusUnknown},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := interpretPermissionFlag("test", tc.value)
			require.Equal(t, tc.expected, res.Status)
		})
	}
}

func TestProbeScreenRecordingHonoursEnv(t *testing.T) {
	lookup := fakeLookup{"EPISODIC_SCREEN_RECORDING": "denied"}
	res := ProbeScreenRecording(lookup.get)
	require.Equal(t, StatusDenied, res.Status)
	require.NotEmpty(t, res.Guidance)
}

func TestProbeAccessibilityDefaults(t *testing.T) {
	res := ProbeAccessibility(nil)
	require.NotEqual(t, StatusUnknown, res.Status)
}
