// Package capture orchestrates a recording session: a rate-paced sample
// loop appending screen frames and cursor positions, a listener bridge
// buffering input events, and a controller for pause/resume/stop.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/offlinefirst/episodic/pkg/container"
	"github.com/offlinefirst/episodic/pkg/episode"
	"github.com/offlinefirst/episodic/pkg/eventbuf"
	"github.com/offlinefirst/episodic/pkg/input"
	"github.com/offlinefirst/episodic/pkg/rate"
	"github.com/offlinefirst/episodic/pkg/screen"
)

// LatestName is the symlink repointed at the newest episode after each
// recording.
const LatestName = "latest.epc"

// Termination explains why a recording ended.
type Termination string

const (
	// TerminationCompleted means the session context ended the recording.
	TerminationCompleted Termination = "completed"
	// TerminationStopped means an operator stop (stop combination or
	// Stop call) ended the recording. Still a success.
	TerminationStopped Termination = "stopped"
	// TerminationFailed means a collaborator error ended the recording.
	TerminationFailed Termination = "failed"
)

// Options configure a recording session.
type Options struct {
	// Context is the free-form task description stored in metadata.
	Context string
	// Hz is the sample loop frequency.
	Hz      float64
	DataDir string
	// FlushInterval paces the background event flusher. Defaults to 1s.
	FlushInterval time.Duration
	// IncludeCursor asks the screen provider to mark the cursor position
	// on each frame.
	IncludeCursor bool
	// BufferCapacity bounds the event buffer; zero means unbounded.
	BufferCapacity int

	Screen   screen.Provider
	Cursor   input.PositionReader
	Listener input.Listener
	Control  *Controller
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Result summarises a finished recording.
type Result struct {
	Path        string
	EpisodeID   string
	Frames      int
	Events      int
	Termination Termination
}

type recorderState int

const (
	stateIdle recorderState = iota
	stateRecording
	stateStopped
)

// Recorder runs one recording session from Idle through Recording to
// Stopped. A Recorder is single use.
type Recorder struct {
	opts    Options
	control *Controller
	clock   func() time.Time
	logger  *slog.Logger

	state recorderState
}

// NewRecorder validates options and returns an idle recorder.
func NewRecorder(opts Options) (*Recorder, error) {
	if opts.Hz <= 0 {
		return nil, fmt.Errorf("capture: hz must be positive, got %v", opts.Hz)
	}
	if opts.DataDir == "" {
		return nil, errors.New("capture: data dir must be provided")
	}
	if opts.Screen == nil {
		return nil, errors.New("capture: screen provider must be provided")
	}
	if opts.Cursor == nil {
		return nil, errors.New("capture: cursor position reader must be provided")
	}
	if opts.Listener == nil {
		return nil, errors.New("capture: input listener must be provided")
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	control := opts.Control
	if control == nil {
		control = NewController()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{opts: opts, control: control, clock: clock, logger: logger}, nil
}

// Control exposes the session controller for pause/resume.
func (r *Recorder) Control() *Controller {
	return r.control
}

// Stop requests a cooperative stop. Safe to call from any goroutine,
// repeatedly, including from the listener callback.
func (r *Recorder) Stop() {
	r.control.Kill(nil)
}

// Run records until the context ends, Stop is called, or a collaborator
// fails. It returns a Result in every case; the error is non-nil only for
// the failure outcome.
func (r *Recorder) Run(ctx context.Context) (Result, error) {
	if r.state != stateIdle {
		return Result{}, errors.New("capture: recorder already used")
	}
	r.state = stateRecording
	defer func() { r.state = stateStopped }()

	if err := os.MkdirAll(r.opts.DataDir, 0o755); err != nil {
		return Result{Termination: TerminationFailed}, fmt.Errorf("create data dir: %w", err)
	}
	episodeID := uuid.NewString()
	// The short id suffix keeps names unique when two recordings start
	// within the same second.
	name := r.clock().UTC().Format("20060102T150405") + "-" + episodeID[:8] + ".epc"
	path := filepath.Join(r.opts.DataDir, name)
	writer, err := container.Create(path)
	if err != nil {
		return Result{Termination: TerminationFailed}, fmt.Errorf("create episode: %w", err)
	}

	result := Result{Path: path, EpisodeID: episodeID}

	channels, err := episode.RegisterChannels(writer)
	if err != nil {
		writer.Close()
		result.Termination = TerminationFailed
		return result, err
	}
	meta := episode.Metadata{
		ID:        result.EpisodeID,
		Context:   r.opts.Context,
		Hz:        r.opts.Hz,
		CreatedAt: r.clock().UTC(),
	}
	if err := episode.WriteMetadata(writer, meta); err != nil {
		writer.Close()
		result.Termination = TerminationFailed
		return result, err
	}

	buffer := eventbuf.NewBuffer(r.opts.BufferCapacity)
	flusher, err := eventbuf.NewFlusher(eventbuf.FlushOptions{
		Buffer:   buffer,
		Sink:     writer,
		Interval: r.opts.FlushInterval,
		KeepLast: true,
		Logger:   r.logger,
	})
	if err != nil {
		writer.Close()
		result.Termination = TerminationFailed
		return result, err
	}

	start := r.clock()
	bridge := newBridge(bridgeOptions{
		Buffer:  buffer,
		Channel: channels.Events,
		Start:   start,
		Clock:   r.clock,
		OnStop:  r.Stop,
		Logger:  r.logger,
	})

	teardown := func() {
		if err := r.opts.Listener.Stop(); err != nil {
			r.logger.Warn("stop listener", "error", err)
		}
		if err := flusher.Close(); err != nil {
			r.logger.Warn("close flusher", "error", err)
		}
		if err := writer.Close(); err != nil {
			r.logger.Warn("close episode", "error", err)
		}
		r.repointLatest(path)
		result.Events = bridge.Count()
		if dropped := buffer.Dropped(); dropped > 0 {
			r.logger.Warn("event buffer overflowed", "dropped", dropped)
		}
	}

	if err := r.opts.Listener.Start(bridge.Handle); err != nil {
		teardown()
		result.Termination = TerminationFailed
		return result, fmt.Errorf("start listener: %w", err)
	}
	if err := flusher.Start(); err != nil {
		teardown()
		result.Termination = TerminationFailed
		return result, err
	}

	limiter, err := rate.NewLimiter(rate.Options{Hz: r.opts.Hz, Clock: r.clock})
	if err != nil {
		teardown()
		result.Termination = TerminationFailed
		return result, err
	}

	r.logger.Info("recording started",
		"path", path, "episode_id", result.EpisodeID, "hz", r.opts.Hz, "context", r.opts.Context)

	var loopErr error
loop:
	for {
		select {
		case <-ctx.Done():
			result.Termination = TerminationCompleted
			break loop
		default:
		}
		if err := r.control.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				result.Termination = TerminationCompleted
			} else {
				result.Termination = TerminationStopped
			}
			break loop
		}
		limiter.Wait()

		x, y, err := r.opts.Cursor.Position()
		if err != nil {
			loopErr = fmt.Errorf("read cursor position: %w", err)
			break loop
		}
		var overlay *screen.Point
		if r.opts.IncludeCursor {
			overlay = &screen.Point{X: x, Y: y}
		}
		frame, err := r.opts.Screen.Grab(ctx, overlay)
		if err != nil {
			if ctx.Err() != nil {
				result.Termination = TerminationCompleted
				break loop
			}
			loopErr = fmt.Errorf("grab frame: %w", err)
			break loop
		}

		ts := r.clock().Sub(start).Nanoseconds()
		if err := writer.Append(channels.Screen, ts, ts, episode.EncodeFrame(episode.Frame{
			Width:  frame.Width,
			Height: frame.Height,
			JPEG:   frame.JPEG,
		})); err != nil {
			loopErr = fmt.Errorf("append frame: %w", err)
			break loop
		}
		cursorPayload, err := episode.EncodeCursor(episode.CursorSample{X: x, Y: y})
		if err != nil {
			loopErr = fmt.Errorf("encode cursor sample: %w", err)
			break loop
		}
		if err := writer.Append(channels.Cursor, ts, ts, cursorPayload); err != nil {
			loopErr = fmt.Errorf("append cursor sample: %w", err)
			break loop
		}
		result.Frames++
	}

	if loopErr != nil {
		r.logger.Error("recording aborted", "error", loopErr)
		result.Termination = TerminationFailed
	}
	teardown()
	if ferr := flusher.Err(); ferr != nil && loopErr == nil {
		loopErr = ferr
		result.Termination = TerminationFailed
	}

	r.logger.Info("recording finished",
		"path", path, "frames", result.Frames, "events", result.Events, "termination", result.Termination)
	return result, loopErr
}

// repointLatest makes <data>/latest.epc point at the newest episode. Best
// effort; some filesystems refuse symlinks.
func (r *Recorder) repointLatest(path string) {
	link := filepath.Join(r.opts.DataDir, LatestName)
	_ = os.Remove(link)
	if err := os.Symlink(filepath.Base(path), link); err != nil {
		r.logger.Warn("repoint latest episode", "error", err)
	}
}
