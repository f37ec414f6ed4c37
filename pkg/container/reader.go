package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
)

// ReaderOptions configure a reader.
type ReaderOptions struct {
	// Logger receives warnings about skipped records; defaults to slog.Default.
	Logger *slog.Logger
}

// Reader scans an episode container. Iteration is lazy and in file order;
// each Iter call rewinds and scans from the start. Records that fail the
// CRC or do not decode are skipped with a logged warning.
type Reader struct {
	src    io.ReadSeeker
	closer io.Closer
	logger *slog.Logger
}

// NewReader validates the magic and returns a reader over src.
func NewReader(src io.ReadSeeker, opts ReaderOptions) (*Reader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reader{src: src, logger: logger}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek container start: %w", err)
	}
	var magic [4]byte
	if _, err := io.ReadFull(src, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != Magic {
		return nil, ErrBadMagic
	}
	return r, nil
}

// OpenReader opens path and returns a reader that owns the file handle.
func OpenReader(path string, opts ReaderOptions) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open container file: %w", err)
	}
	reader, err := NewReader(file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closer = file
	return reader, nil
}

// Close releases the file handle when the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// ErrStopIteration may be returned from an iteration callback to end the
// scan early without an error.
var ErrStopIteration = errors.New("container: stop iteration")

// IterMetadata invokes fn for every metadata block in file order.
func (r *Reader) IterMetadata(fn func(Metadata) error) error {
	return r.scan(func(op byte, body []byte) error {
		if op != opMetadata {
			return nil
		}
		dec := decoder{buf: body}
		meta := Metadata{Name: dec.stringField("metadata name"), Entries: make(map[string]string)}
		count := int(dec.uint32Field("metadata count"))
		for i := 0; i < count; i++ {
			key := dec.stringField("metadata key")
			meta.Entries[key] = dec.stringField("metadata value")
		}
		if dec.err != nil {
			r.logger.Warn("skipping malformed metadata record", "error", dec.err)
			return nil
		}
		return fn(meta)
	})
}

// IterMessages invokes fn for every message in file order with its channel.
// Cross-channel ordering follows the file, not the timestamps; consumers
// needing global order must sort.
func (r *Reader) IterMessages(fn func(Channel, Message) error) error {
	schemas := make(map[uint16]Schema)
	channels := make(map[uint16]Channel)
	return r.scan(func(op byte, body []byte) error {
		dec := decoder{buf: body}
		switch op {
		case opSchema:
			schema := Schema{
				ID:       dec.uint16Field("schema id"),
				Name:     dec.stringField("schema name"),
				Encoding: dec.stringField("schema encoding"),
				Data:     dec.bytesField("schema data"),
			}
			if dec.err != nil {
				r.logger.Warn("skipping malformed schema record", "error", dec.err)
				return nil
			}
			schemas[schema.ID] = schema
		case opChannel:
			channel := Channel{
				ID:              dec.uint16Field("channel id"),
				SchemaID:        dec.uint16Field("channel schema id"),
				Topic:           dec.stringField("channel topic"),
				MessageEncoding: dec.stringField("channel encoding"),
			}
			if dec.err != nil {
				r.logger.Warn("skipping malformed channel record", "error", dec.err)
				return nil
			}
			if _, ok := schemas[channel.SchemaID]; !ok {
				r.logger.Warn("channel references unknown schema", "topic", channel.Topic, "schema_id", channel.SchemaID)
			}
			channels[channel.ID] = channel
		case opMessage:
			msg := Message{
				ChannelID:   dec.uint16Field("message channel id"),
				LogTime:     int64(dec.uint64Field("message log time")),
				PublishTime: int64(dec.uint64Field("message publish time")),
			}
			msg.Payload = dec.rest()
			if dec.err != nil {
				r.logger.Warn("skipping malformed message record", "error", dec.err)
				return nil
			}
			channel, ok := channels[msg.ChannelID]
			if !ok {
				r.logger.Warn("skipping message on unregistered channel", "channel_id", msg.ChannelID)
				return nil
			}
			return fn(channel, msg)
		}
		return nil
	})
}

// Summary returns the trailing statistics record, or nil when the file was
// never finalized.
func (r *Reader) Summary() (*Statistics, error) {
	var stats *Statistics
	err := r.scan(func(op byte, body []byte) error {
		if op != opStatistics {
			return nil
		}
		dec := decoder{buf: body}
		s := Statistics{
			MessageCount:         dec.uint64Field("statistics total"),
			ChannelMessageCounts: make(map[uint16]uint64),
		}
		count := int(dec.uint32Field("statistics channel count"))
		for i := 0; i < count; i++ {
			id := dec.uint16Field("statistics channel id")
			s.ChannelMessageCounts[id] = dec.uint64Field("statistics channel total")
		}
		if dec.err != nil {
			r.logger.Warn("skipping malformed statistics record", "error", dec.err)
			return nil
		}
		stats = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// scan walks the record stream from the first record, handing each body to
// visit. CRC failures are logged and skipped. A length that cannot be read
// in full terminates the scan with an error; a missing footer is tolerated
// (crash-truncated files remain readable up to the damage).
func (r *Reader) scan(visit func(op byte, body []byte) error) error {
	if _, err := r.src.Seek(int64(len(Magic)), io.SeekStart); err != nil {
		return fmt.Errorf("seek records: %w", err)
	}

	var frame [5]byte
	for {
		if _, err := io.ReadFull(r.src, frame[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read record frame: %w", err)
		}
		op := frame[0]
		length := binary.LittleEndian.Uint32(frame[1:])
		if length > maxRecordSize {
			return fmt.Errorf("container: record of %d bytes exceeds limit", length)
		}

		body := make([]byte, int(length))
		if _, err := io.ReadFull(r.src, body); err != nil {
			return fmt.Errorf("read record body: %w", err)
		}
		var crcBuf [4]byte
		if _, err := io.ReadFull(r.src, crcBuf[:]); err != nil {
			return fmt.Errorf("read record crc: %w", err)
		}

		if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(crcBuf[:]) {
			r.logger.Warn("skipping record with bad checksum", "opcode", op, "length", length)
			continue
		}
		if op == opFooter {
			return nil
		}
		if err := visit(op, body); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
}
