package episode

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/offlinefirst/episodic/pkg/container"
)

// EventKind discriminates loaded replay events.
type EventKind int

const (
	// KindCursor is an absolute cursor position sample.
	KindCursor EventKind = iota
	// KindInput is a discrete keyboard or mouse event.
	KindInput
)

// Event is one replayable record loaded from a sealed episode.
type Event struct {
	LogTime int64
	Kind    EventKind
	Cursor  CursorSample
	Input   InputEvent
}

// LoadEvents reads a sealed episode and returns its metadata plus the
// cursor and input events sorted ascending by log time. The sort is stable,
// so records sharing a timestamp keep their file order. Screen frames are
// not loaded; replay does not reconstruct the display. Individual malformed
// messages are logged and skipped.
func LoadEvents(path string, logger *slog.Logger) (Metadata, []Event, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader, err := container.OpenReader(path, container.ReaderOptions{Logger: logger})
	if err != nil {
		return Metadata{}, nil, err
	}
	defer reader.Close()

	var meta Metadata
	err = reader.IterMetadata(func(m container.Metadata) error {
		if m.Name == MetadataName {
			meta = MetadataFromEntries(m.Entries)
			return container.ErrStopIteration
		}
		return nil
	})
	if err != nil {
		return Metadata{}, nil, fmt.Errorf("read episode metadata: %w", err)
	}

	var events []Event
	err = reader.IterMessages(func(c container.Channel, m container.Message) error {
		switch c.Topic {
		case TopicScreen:
			// Frames are replayed by nobody; skip without decoding.
		case TopicCursor:
			sample, decodeErr := DecodeCursor(m.Payload)
			if decodeErr != nil {
				logger.Warn("skipping malformed cursor sample", "log_time", m.LogTime, "error", decodeErr)
				return nil
			}
			events = append(events, Event{LogTime: m.LogTime, Kind: KindCursor, Cursor: sample})
		case TopicEvents:
			ev, decodeErr := DecodeInput(m.Payload)
			if decodeErr != nil {
				logger.Warn("skipping malformed input event", "log_time", m.LogTime, "error", decodeErr)
				return nil
			}
			events = append(events, Event{LogTime: m.LogTime, Kind: KindInput, Input: ev})
		default:
			logger.Warn("skipping message on unknown topic", "topic", c.Topic)
		}
		return nil
	})
	if err != nil {
		return Metadata{}, nil, fmt.Errorf("read episode messages: %w", err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].LogTime < events[j].LogTime
	})
	return meta, events, nil
}
