package episode

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/episodic/pkg/container"
	"github.com/offlinefirst/episodic/pkg/input"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFrameCodecRoundTrip(t *testing.T) {
	frame := Frame{Width: 1920, Height: 1080, JPEG: []byte{0xFF, 0xD8, 0xFF, 0xD9}}
	decoded, err := DecodeFrame(EncodeFrame(frame))
	require.NoError(t, err)
	require.Equal(t, frame, decoded)

	_, err = DecodeFrame([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestInputCodecValidatesOnDecode(t *testing.T) {
	ev := InputEvent{Device: input.DeviceKeyboard, Key: "a", Action: input.ActionPress}
	payload, err := EncodeInput(ev)
	require.NoError(t, err)
	decoded, err := DecodeInput(payload)
	require.NoError(t, err)
	require.Equal(t, ev, decoded)

	_, err = DecodeInput([]byte(`{"device":"gamepad","key":"a","action":"press"}`))
	require.Error(t, err)
	_, err = DecodeInput([]byte(`{"device":"mouse","key":"L","action":"wiggle"}`))
	require.Error(t, err)
	_, err = DecodeInput([]byte(`not json`))
	require.Error(t, err)
}

func TestMetadataRoundTrip(t *testing.T) {
	created := time.Date(2025, 2, 3, 10, 30, 0, 123456789, time.UTC)
	entries := map[string]string{
		"id":         "ep-1",
		"context":    "open settings and toggle dark mode",
		"hz":         "12.5",
		"created_at": created.Format(time.RFC3339Nano),
	}
	meta := MetadataFromEntries(entries)
	require.Equal(t, "ep-1", meta.ID)
	require.Equal(t, 12.5, meta.Hz)
	require.True(t, meta.CreatedAt.Equal(created))

	// Malformed numeric fields degrade to zero values.
	meta = MetadataFromEntries(map[string]string{"hz": "fast"})
	require.Zero(t, meta.Hz)
}

func writeEpisode(t *testing.T, path string) {
	t.Helper()
	w, err := container.Create(path)
	require.NoError(t, err)
	channels, err := RegisterChannels(w)
	require.NoError(t, err)
	require.NoError(t, WriteMetadata(w, Metadata{
		ID:        "ep-test",
		Context:   "demo",
		Hz:        10,
		CreatedAt: time.Now(),
	}))

	// Interleave channels out of global timestamp order to exercise sorting.
	frame := EncodeFrame(Frame{Width: 4, Height: 2, JPEG: []byte{1, 2, 3}})
	require.NoError(t, w.Append(channels.Screen, 0, 0, frame))

	cursor, err := EncodeCursor(CursorSample{X: 100, Y: 200})
	require.NoError(t, err)
	require.NoError(t, w.Append(channels.Cursor, 50_000_000, 50_000_000, cursor))

	press, err := EncodeInput(InputEvent{Device: input.DeviceKeyboard, Key: "a", Action: input.ActionPress})
	require.NoError(t, err)
	require.NoError(t, w.Append(channels.Events, 10_000_000, 10_000_000, press))

	release, err := EncodeInput(InputEvent{Device: input.DeviceKeyboard, Key: "a", Action: input.ActionRelease})
	require.NoError(t, err)
	require.NoError(t, w.Append(channels.Events, 50_000_000, 50_000_000, release))

	require.NoError(t, w.Close())
}

func TestLoadEventsSortsAndSkipsFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode.epc")
	writeEpisode(t, path)

	meta, events, err := LoadEvents(path, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "demo", meta.Context)
	require.Equal(t, "ep-test", meta.ID)

	require.Len(t, events, 3)
	require.Equal(t, KindInput, events[0].Kind)
	require.Equal(t, int64(10_000_000), events[0].LogTime)

	// Equal timestamps keep file order: cursor sample before the release.
	require.Equal(t, KindCursor, events[1].Kind)
	require.Equal(t, KindInput, events[2].Kind)
	require.Equal(t, input.ActionRelease, events[2].Input.Action)
}

func TestLoadEventsMissingFile(t *testing.T) {
	_, _, err := LoadEvents(filepath.Join(t.TempDir(), "absent.epc"), discardLogger())
	require.Error(t, err)
}

func TestLoadEventsSkipsMalformedPayloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode.epc")
	w, err := container.Create(path)
	require.NoError(t, err)
	channels, err := RegisterChannels(w)
	require.NoError(t, err)

	require.NoError(t, w.Append(channels.Events, 1, 1, []byte(`{"device":"mouse","key":"L","action":"press"}`)))
	require.NoError(t, w.Append(channels.Events, 2, 2, []byte(`{"device":"spaceship"}`)))
	require.NoError(t, w.Close())

	_, events, err := LoadEvents(path, discardLogger())
	require.NoError(t, err)
	require.Len(t, events, 1)
}
