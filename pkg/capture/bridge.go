package capture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/episodic/pkg/episode"
	"github.com/offlinefirst/episodic/pkg/eventbuf"
	"github.com/offlinefirst/episodic/pkg/input"
)

// stopKey is the letter that, pressed while Alt is held, ends a recording.
const stopKey = "x"

type bridgeOptions struct {
	Buffer  *eventbuf.Buffer
	Channel uint16
	Start   time.Time
	Clock   func() time.Time
	OnStop  func()
	Logger  *slog.Logger
}

// bridge adapts listener notifications into buffered episode records. The
// callback path is map lookup, encode, push; nothing blocks on I/O.
type bridge struct {
	buffer  *eventbuf.Buffer
	channel uint16
	start   time.Time
	clock   func() time.Time
	onStop  func()
	logger  *slog.Logger

	mu      sync.Mutex
	altHeld bool
	count   int
}

func newBridge(opts bridgeOptions) *bridge {
	return &bridge{
		buffer:  opts.Buffer,
		channel: opts.Channel,
		start:   opts.Start,
		clock:   opts.Clock,
		onStop:  opts.OnStop,
		logger:  opts.Logger,
	}
}

// Handle is the listener callback. Unknown identifiers are logged and
// skipped; the stop combination triggers the stop hook without being
// recorded.
func (b *bridge) Handle(ev input.Event) {
	key := ev.Key
	if ev.Action == input.ActionPress || ev.Action == input.ActionRelease {
		canonical, err := input.NormalizeIdentifier(ev.Device, ev.Key)
		if err != nil {
			b.logger.Warn("dropping unrecognised input event", "device", ev.Device, "key", ev.Key, "error", err)
			return
		}
		key = canonical
	}

	if ev.Device == input.DeviceKeyboard {
		if stop := b.trackStopCombo(key, ev.Action); stop {
			b.onStop()
			return
		}
	}

	at := ev.At
	if at.IsZero() {
		at = b.clock()
	}
	ts := at.Sub(b.start).Nanoseconds()

	payload, err := episode.EncodeInput(episode.InputEvent{Device: ev.Device, Key: key, Action: ev.Action})
	if err != nil {
		b.logger.Warn("dropping unencodable input event", "device", ev.Device, "key", key, "error", err)
		return
	}
	b.buffer.Push(eventbuf.Entry{Channel: b.channel, LogTime: ts, PublishTime: ts, Payload: payload})

	b.mu.Lock()
	b.count++
	b.mu.Unlock()
}

// trackStopCombo maintains the Alt-held flag and reports whether this
// event completes the stop combination.
func (b *bridge) trackStopCombo(key string, action input.Action) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if input.IsAltKey(key) {
		b.altHeld = action == input.ActionPress
		return false
	}
	return action == input.ActionPress && key == stopKey && b.altHeld
}

// Count reports how many events were recorded.
func (b *bridge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
