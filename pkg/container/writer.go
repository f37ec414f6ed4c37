package container

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"sync"
)

// Writer appends records to an episode container. It is safe for use from
// multiple goroutines: the capture loop and the event flusher both append.
type Writer struct {
	mu     sync.Mutex
	out    *bufio.Writer
	closer io.Closer

	schemas       map[uint16]Schema
	channels      map[uint16]Channel
	messageCounts map[uint16]uint64
	nextSchemaID  uint16
	nextChannelID uint16
	finished      bool
	closed        bool

	enc encoder
}

// NewWriter wraps w and writes the file magic and header record.
func NewWriter(w io.Writer) (*Writer, error) {
	writer := &Writer{
		out:           bufio.NewWriter(w),
		schemas:       make(map[uint16]Schema),
		channels:      make(map[uint16]Channel),
		messageCounts: make(map[uint16]uint64),
		nextSchemaID:  1,
		nextChannelID: 1,
	}
	if closer, ok := w.(io.Closer); ok {
		writer.closer = closer
	}
	if _, err := writer.out.Write(Magic[:]); err != nil {
		return nil, fmt.Errorf("write magic: %w", err)
	}
	writer.enc.reset()
	if err := writer.enc.putString("episodic"); err != nil {
		return nil, err
	}
	if err := writer.enc.putString("ux-episode"); err != nil {
		return nil, err
	}
	if err := writer.writeRecord(opHeader, writer.enc.buf); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return writer, nil
}

// Create opens path for exclusive writing and returns a writer over it.
func Create(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create container file: %w", err)
	}
	writer, err := NewWriter(file)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	return writer, nil
}

func (w *Writer) writeRecord(op byte, body []byte) error {
	var frame [5]byte
	frame[0] = op
	binary.LittleEndian.PutUint32(frame[1:], uint32(len(body)))
	if _, err := w.out.Write(frame[:]); err != nil {
		return err
	}
	if _, err := w.out.Write(body); err != nil {
		return err
	}
	var crc [4]byte
	binary.LittleEndian.PutUint32(crc[:], crc32.ChecksumIEEE(body))
	_, err := w.out.Write(crc[:])
	return err
}

// RegisterSchema declares a payload schema and returns its identifier.
func (w *Writer) RegisterSchema(name, encoding string, data []byte) (uint16, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return 0, ErrFinished
	}
	id := w.nextSchemaID
	w.nextSchemaID++

	w.enc.reset()
	w.enc.putUint16(id)
	if err := w.enc.putString(name); err != nil {
		return 0, err
	}
	if err := w.enc.putString(encoding); err != nil {
		return 0, err
	}
	w.enc.putBytes(data)
	if err := w.writeRecord(opSchema, w.enc.buf); err != nil {
		return 0, fmt.Errorf("write schema %q: %w", name, err)
	}
	w.schemas[id] = Schema{ID: id, Name: name, Encoding: encoding, Data: data}
	return id, nil
}

// RegisterChannel declares a message channel for a registered schema and
// returns its identifier. It must be called before any Append for that
// channel.
func (w *Writer) RegisterChannel(schemaID uint16, topic, messageEncoding string) (uint16, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return 0, ErrFinished
	}
	if _, ok := w.schemas[schemaID]; !ok {
		return 0, fmt.Errorf("%w: schema id %d for topic %q", ErrUnknownSchema, schemaID, topic)
	}
	id := w.nextChannelID
	w.nextChannelID++

	w.enc.reset()
	w.enc.putUint16(id)
	w.enc.putUint16(schemaID)
	if err := w.enc.putString(topic); err != nil {
		return 0, err
	}
	if err := w.enc.putString(messageEncoding); err != nil {
		return 0, err
	}
	if err := w.writeRecord(opChannel, w.enc.buf); err != nil {
		return 0, fmt.Errorf("write channel %q: %w", topic, err)
	}
	w.channels[id] = Channel{ID: id, SchemaID: schemaID, Topic: topic, MessageEncoding: messageEncoding}
	return id, nil
}

// WriteMetadata attaches a session-level key/value block. Keys are written
// in sorted order so identical inputs produce identical bytes.
func (w *Writer) WriteMetadata(name string, entries map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return ErrFinished
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w.enc.reset()
	if err := w.enc.putString(name); err != nil {
		return err
	}
	w.enc.putUint32(uint32(len(keys)))
	for _, k := range keys {
		if err := w.enc.putString(k); err != nil {
			return err
		}
		if err := w.enc.putString(entries[k]); err != nil {
			return err
		}
	}
	if err := w.writeRecord(opMetadata, w.enc.buf); err != nil {
		return fmt.Errorf("write metadata %q: %w", name, err)
	}
	return nil
}

// Append writes one message record. The channel must have been registered
// and the writer must not be finished.
func (w *Writer) Append(channelID uint16, logTime, publishTime int64, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return ErrFinished
	}
	if _, ok := w.channels[channelID]; !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownChannel, channelID)
	}

	w.enc.reset()
	w.enc.putUint16(channelID)
	w.enc.putUint64(uint64(logTime))
	w.enc.putUint64(uint64(publishTime))
	w.enc.buf = append(w.enc.buf, payload...)
	if err := w.writeRecord(opMessage, w.enc.buf); err != nil {
		return fmt.Errorf("write message on channel %d: %w", channelID, err)
	}
	w.messageCounts[channelID]++
	return nil
}

// Finish writes the trailing statistics and footer records and flushes.
// Further writes fail with ErrFinished; calling Finish again is a no-op.
func (w *Writer) Finish() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finishLocked()
}

func (w *Writer) finishLocked() error {
	if w.finished {
		return nil
	}

	ids := make([]int, 0, len(w.messageCounts))
	var total uint64
	for id, count := range w.messageCounts {
		ids = append(ids, int(id))
		total += count
	}
	sort.Ints(ids)

	w.enc.reset()
	w.enc.putUint64(total)
	w.enc.putUint32(uint32(len(ids)))
	for _, id := range ids {
		w.enc.putUint16(uint16(id))
		w.enc.putUint64(w.messageCounts[uint16(id)])
	}
	if err := w.writeRecord(opStatistics, w.enc.buf); err != nil {
		return fmt.Errorf("write statistics: %w", err)
	}
	if err := w.writeRecord(opFooter, nil); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("flush container: %w", err)
	}
	w.finished = true
	return nil
}

// Close finishes the container if needed and closes the underlying file.
// It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	finishErr := w.finishLocked()
	w.closed = true
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			return fmt.Errorf("close container file: %w", err)
		}
	}
	return finishErr
}
