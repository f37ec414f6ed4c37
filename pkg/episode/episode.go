// Package episode defines the typed record model stored in an episode
// container: screen frames, cursor samples, and discrete input events, plus
// the session metadata block and the replay event loader.
package episode

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/offlinefirst/episodic/pkg/container"
	"github.com/offlinefirst/episodic/pkg/input"
)

// Channel topics within an episode container.
const (
	TopicScreen = "/screen_capture"
	TopicCursor = "/cursor_position"
	TopicEvents = "/events"
)

// Schema names and encodings.
const (
	schemaScreen = "screen_frame"
	schemaCursor = "cursor_position"
	schemaInput  = "input_event"

	encodingFrame = "frame"
	encodingJSON  = "json"
)

// MetadataName is the session metadata block name.
const MetadataName = "episode"

// Frame is one compressed screen capture.
type Frame struct {
	Width  int
	Height int
	JPEG   []byte
}

// CursorSample is one absolute cursor position.
type CursorSample struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InputEvent is one discrete keyboard or mouse event.
type InputEvent struct {
	Device input.Device `json:"device"`
	Key    string       `json:"key"`
	Action input.Action `json:"action"`
}

// Channels holds the identifiers returned by RegisterChannels.
type Channels struct {
	Screen uint16
	Cursor uint16
	Events uint16
}

var cursorSchemaDoc = []byte(`{"type":"object","properties":{"x":{"type":"integer"},"y":{"type":"integer"}}}`)

var inputSchemaDoc = []byte(`{"type":"object","properties":{"device":{"type":"string"},"key":{"type":"string"},"action":{"type":"string"}}}`)

// RegisterChannels declares the three episode schemas and channels on a
// fresh writer. It must run before any record is appended.
func RegisterChannels(w *container.Writer) (Channels, error) {
	screenSchema, err := w.RegisterSchema(schemaScreen, encodingFrame, nil)
	if err != nil {
		return Channels{}, fmt.Errorf("register screen schema: %w", err)
	}
	cursorSchema, err := w.RegisterSchema(schemaCursor, encodingJSON, cursorSchemaDoc)
	if err != nil {
		return Channels{}, fmt.Errorf("register cursor schema: %w", err)
	}
	inputSchema, err := w.RegisterSchema(schemaInput, encodingJSON, inputSchemaDoc)
	if err != nil {
		return Channels{}, fmt.Errorf("register input schema: %w", err)
	}

	var channels Channels
	if channels.Screen, err = w.RegisterChannel(screenSchema, TopicScreen, encodingFrame); err != nil {
		return Channels{}, fmt.Errorf("register screen channel: %w", err)
	}
	if channels.Cursor, err = w.RegisterChannel(cursorSchema, TopicCursor, encodingJSON); err != nil {
		return Channels{}, fmt.Errorf("register cursor channel: %w", err)
	}
	if channels.Events, err = w.RegisterChannel(inputSchema, TopicEvents, encodingJSON); err != nil {
		return Channels{}, fmt.Errorf("register events channel: %w", err)
	}
	return channels, nil
}

// EncodeFrame lays out width and height ahead of the compressed bytes.
func EncodeFrame(f Frame) []byte {
	payload := make([]byte, 8, 8+len(f.JPEG))
	binary.LittleEndian.PutUint32(payload[0:], uint32(f.Width))
	binary.LittleEndian.PutUint32(payload[4:], uint32(f.Height))
	return append(payload, f.JPEG...)
}

// DecodeFrame parses a frame payload.
func DecodeFrame(payload []byte) (Frame, error) {
	if len(payload) < 8 {
		return Frame{}, fmt.Errorf("episode: frame payload of %d bytes too short", len(payload))
	}
	return Frame{
		Width:  int(binary.LittleEndian.Uint32(payload[0:])),
		Height: int(binary.LittleEndian.Uint32(payload[4:])),
		JPEG:   payload[8:],
	}, nil
}

// EncodeCursor serialises a cursor sample.
func EncodeCursor(s CursorSample) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeCursor parses a cursor payload.
func DecodeCursor(payload []byte) (CursorSample, error) {
	var s CursorSample
	if err := json.Unmarshal(payload, &s); err != nil {
		return CursorSample{}, fmt.Errorf("episode: decode cursor sample: %w", err)
	}
	return s, nil
}

// EncodeInput serialises an input event.
func EncodeInput(e InputEvent) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeInput parses and validates an input event payload.
func DecodeInput(payload []byte) (InputEvent, error) {
	var e InputEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return InputEvent{}, fmt.Errorf("episode: decode input event: %w", err)
	}
	if err := input.ValidateDevice(e.Device); err != nil {
		return InputEvent{}, err
	}
	switch e.Action {
	case input.ActionPress, input.ActionRelease, input.ActionScrollUp, input.ActionScrollDown:
	default:
		return InputEvent{}, fmt.Errorf("episode: invalid action %q", e.Action)
	}
	return e, nil
}

// Metadata describes one recording session.
type Metadata struct {
	ID        string
	Context   string
	Hz        float64
	CreatedAt time.Time
}

// WriteMetadata persists the session block on the writer.
func WriteMetadata(w *container.Writer, meta Metadata) error {
	return w.WriteMetadata(MetadataName, map[string]string{
		"id":         meta.ID,
		"context":    meta.Context,
		"hz":         strconv.FormatFloat(meta.Hz, 'f', -1, 64),
		"created_at": meta.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// MetadataFromEntries parses a stored session block. Missing or malformed
// fields degrade to zero values rather than failing the load.
func MetadataFromEntries(entries map[string]string) Metadata {
	meta := Metadata{
		ID:      entries["id"],
		Context: entries["context"],
	}
	if hz, err := strconv.ParseFloat(entries["hz"], 64); err == nil {
		meta.Hz = hz
	}
	if at, err := time.Parse(time.RFC3339Nano, entries["created_at"]); err == nil {
		meta.CreatedAt = at
	}
	return meta
}
