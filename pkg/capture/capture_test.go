package capture

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/offlinefirst/episodic/pkg/actor"
	"github.com/offlinefirst/episodic/pkg/episode"
	"github.com/offlinefirst/episodic/pkg/eventbuf"
	"github.com/offlinefirst/episodic/pkg/input"
	"github.com/offlinefirst/episodic/pkg/screen"
)

func testOptions(t *testing.T, listener input.Listener) Options {
	t.Helper()
	provider, err := screen.NewSyntheticProvider(screen.SyntheticOptions{Width: 32, Height: 24, Quality: 50})
	require.NoError(t, err)
	return Options{
		Context:       "open the settings pane",
		Hz:            200,
		DataDir:       t.TempDir(),
		FlushInterval: 10 * time.Millisecond,
		Screen:        provider,
		Cursor:        actor.NewSyntheticInjector(),
		Listener:      listener,
		Logger:        slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

func TestNewRecorderValidation(t *testing.T) {
	listener := input.NewSyntheticListener(nil)
	opts := testOptions(t, listener)

	bad := opts
	bad.Hz = 0
	_, err := NewRecorder(bad)
	require.Error(t, err)

	bad = opts
	bad.Screen = nil
	_, err = NewRecorder(bad)
	require.Error(t, err)

	bad = opts
	bad.Cursor = nil
	_, err = NewRecorder(bad)
	require.Error(t, err)

	bad = opts
	bad.Listener = nil
	_, err = NewRecorder(bad)
	require.Error(t, err)

	bad = opts
	bad.DataDir = ""
	_, err = NewRecorder(bad)
	require.Error(t, err)
}

func TestRecorderRecordsFramesAndEvents(t *testing.T) {
	listener := input.NewSyntheticListener(nil)
	opts := testOptions(t, listener)
	rec, err := NewRecorder(opts)
	require.NoError(t, err)

	results := make(chan Result, 1)
	go func() {
		res, runErr := rec.Run(context.Background())
		require.NoError(t, runErr)
		results <- res
	}()

	require.Eventually(t, func() bool {
		return listener.Emit(input.Event{Device: input.DeviceKeyboard, Key: "a", Action: input.ActionPress})
	}, 2*time.Second, time.Millisecond)
	listener.Emit(input.Event{Device: input.DeviceKeyboard, Key: "a", Action: input.ActionRelease})
	listener.Emit(input.Event{Device: input.DeviceMouse, Key: "L", Action: input.ActionPress})
	listener.Emit(input.Event{Device: input.DeviceMouse, Key: "L", Action: input.ActionRelease})

	time.Sleep(50 * time.Millisecond)
	rec.Stop()

	var res Result
	select {
	case res = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not stop")
	}

	require.Equal(t, TerminationStopped, res.Termination)
	require.Greater(t, res.Frames, 0)
	require.Equal(t, 4, res.Events)
	require.NotEmpty(t, res.EpisodeID)

	meta, events, err := episode.LoadEvents(res.Path, opts.Logger)
	require.NoError(t, err)
	require.Equal(t, res.EpisodeID, meta.ID)
	require.Equal(t, "open the settings pane", meta.Context)
	require.InDelta(t, 200.0, meta.Hz, 0.001)

	var inputs, cursors int
	for _, ev := range events {
		switch ev.Kind {
		case episode.KindInput:
			inputs++
		case episode.KindCursor:
			cursors++
		}
	}
	require.Equal(t, 4, inputs)
	require.Equal(t, res.Frames, cursors)

	link := filepath.Join(opts.DataDir, LatestName)
	target, err := os.Readlink(link)
	require.NoError(t, err)
	require.Equal(t, filepath.Base(res.Path), target)
}

func TestRecorderStopComboEndsRecordingWithoutRecordingIt(t *testing.T) {
	listener := input.NewSyntheticListener(nil)
	opts := testOptions(t, listener)
	rec, err := NewRecorder(opts)
	require.NoError(t, err)

	results := make(chan Result, 1)
	go func() {
		res, runErr := rec.Run(context.Background())
		require.NoError(t, runErr)
		results <- res
	}()

	require.Eventually(t, func() bool {
		return listener.Emit(input.Event{Device: input.DeviceKeyboard, Key: "alt_r", Action: input.ActionPress})
	}, 2*time.Second, time.Millisecond)
	listener.Emit(input.Event{Device: input.DeviceKeyboard, Key: "x", Action: input.ActionPress})

	var res Result
	select {
	case res = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("stop combination did not end the recording")
	}

	require.Equal(t, TerminationStopped, res.Termination)
	// The alt press is recorded; the stop letter is not.
	require.Equal(t, 1, res.Events)
}

func TestRecorderCompletesWhenContextEnds(t *testing.T) {
	listener := input.NewSyntheticListener(nil)
	rec, err := NewRecorder(testOptions(t, listener))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := rec.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, TerminationCompleted, res.Termination)
	require.Greater(t, res.Frames, 0)
}

type failingScreen struct{}

func (failingScreen) Grab(context.Context, *screen.Point) (screen.Frame, error) {
	return screen.Frame{}, errors.New("backend unavailable")
}

func TestRecorderFailsOnProviderError(t *testing.T) {
	listener := input.NewSyntheticListener(nil)
	opts := testOptions(t, listener)
	opts.Screen = failingScreen{}
	rec, err := NewRecorder(opts)
	require.NoError(t, err)

	res, err := rec.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, TerminationFailed, res.Termination)

	// The partial episode is still finalized and readable.
	_, _, err = episode.LoadEvents(res.Path, opts.Logger)
	require.NoError(t, err)
}

func TestRecorderNamesDoNotCollideWithinOneSecond(t *testing.T) {
	frozen := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dataDir := t.TempDir()
	var paths []string
	for i := 0; i < 2; i++ {
		opts := testOptions(t, input.NewSyntheticListener(nil))
		opts.DataDir = dataDir
		opts.Clock = func() time.Time { return frozen }
		rec, err := NewRecorder(opts)
		require.NoError(t, err)

		res, err := rec.Run(ctx)
		require.NoError(t, err)
		require.Equal(t, TerminationCompleted, res.Termination)
		paths = append(paths, res.Path)
	}

	require.NotEqual(t, paths[0], paths[1])
	for _, p := range paths {
		_, err := os.Stat(p)
		require.NoError(t, err)
	}
}

func TestRecorderIsSingleUse(t *testing.T) {
	listener := input.NewSyntheticListener(nil)
	rec, err := NewRecorder(testOptions(t, listener))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = rec.Run(ctx)
	require.NoError(t, err)

	_, err = rec.Run(context.Background())
	require.Error(t, err)
}

func TestBridgeDropsUnknownIdentifiers(t *testing.T) {
	buffer := eventbuf.NewBuffer(0)
	b := newBridge(bridgeOptions{
		Buffer:  buffer,
		Channel: 3,
		Start:   time.Now(),
		Clock:   time.Now,
		OnStop:  func() {},
		Logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})

	b.Handle(input.Event{Device: input.DeviceKeyboard, Key: "mystery", Action: input.ActionPress})
	require.Zero(t, b.Count())
	require.Zero(t, buffer.Len())

	b.Handle(input.Event{Device: input.DeviceMouse, Action: input.ActionScrollUp})
	require.Equal(t, 1, b.Count())
	require.Equal(t, 1, buffer.Len())
}

func TestBridgeStopComboRequiresHeldAlt(t *testing.T) {
	stopped := false
	b := newBridge(bridgeOptions{
		Buffer:  eventbuf.NewBuffer(0),
		Channel: 3,
		Start:   time.Now(),
		Clock:   time.Now,
		OnStop:  func() { stopped = true },
		Logger:  slog.Default(),
	})

	b.Handle(input.Event{Device: input.DeviceKeyboard, Key: "x", Action: input.ActionPress})
	require.False(t, stopped)

	b.Handle(input.Event{Device: input.DeviceKeyboard, Key: "alt", Action: input.ActionPress})
	b.Handle(input.Event{Device: input.DeviceKeyboard, Key: "alt", Action: input.ActionRelease})
	b.Handle(input.Event{Device: input.DeviceKeyboard, Key: "x", Action: input.ActionPress})
	require.False(t, stopped)

	b.Handle(input.Event{Device: input.DeviceKeyboard, Key: "alt_r", Action: input.ActionPress})
	b.Handle(input.Event{Device: input.DeviceKeyboard, Key: "x", Action: input.ActionPress})
	require.True(t, stopped)
}
