package container

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic identifies an episode container file.
var Magic = [4]byte{'E', 'P', 'C', '1'}

const (
	opHeader     byte = 0x01
	opSchema     byte = 0x02
	opChannel    byte = 0x03
	opMessage    byte = 0x04
	opMetadata   byte = 0x05
	opStatistics byte = 0x06
	opFooter     byte = 0x07
)

// maxRecordSize bounds a single record body; anything larger is treated as
// a corrupt length rather than an allocation request.
const maxRecordSize = 256 << 20

var (
	// ErrFinished reports an operation on a finalized writer.
	ErrFinished = errors.New("container: writer already finished")
	// ErrUnknownChannel reports a message append for an unregistered channel.
	ErrUnknownChannel = errors.New("container: unknown channel")
	// ErrUnknownSchema reports a channel registration naming an unregistered schema.
	ErrUnknownSchema = errors.New("container: unknown schema")
	// ErrBadMagic reports a file that is not an episode container.
	ErrBadMagic = errors.New("container: bad magic")
)

// Schema declares a named payload encoding for one or more channels.
type Schema struct {
	ID       uint16
	Name     string
	Encoding string
	Data     []byte
}

// Channel binds a topic to a schema and message encoding.
type Channel struct {
	ID              uint16
	SchemaID        uint16
	Topic           string
	MessageEncoding string
}

// Message is one timestamped record on a channel.
type Message struct {
	ChannelID   uint16
	LogTime     int64
	PublishTime int64
	Payload     []byte
}

// Metadata is a named key/value block independent of any channel.
type Metadata struct {
	Name    string
	Entries map[string]string
}

// Statistics is the trailing summary written by Finish.
type Statistics struct {
	MessageCount         uint64
	ChannelMessageCounts map[uint16]uint64
}

type encoder struct {
	buf []byte
}

func (e *encoder) reset() { e.buf = e.buf[:0] }

func (e *encoder) putUint16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

func (e *encoder) putUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) putUint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *encoder) putString(s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("container: string of %d bytes exceeds frame limit", len(s))
	}
	e.putUint16(uint16(len(s)))
	e.buf = append(e.buf, s...)
	return nil
}

func (e *encoder) putBytes(b []byte) {
	e.putUint32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fail(what string) {
	if d.err == nil {
		d.err = fmt.Errorf("container: truncated %s field", what)
	}
}

func (d *decoder) uint16Field(what string) uint16 {
	if d.err != nil || d.off+2 > len(d.buf) {
		d.fail(what)
		return 0
	}
	v := binary.LittleEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v
}

func (d *decoder) uint32Field(what string) uint32 {
	if d.err != nil || d.off+4 > len(d.buf) {
		d.fail(what)
		return 0
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *decoder) uint64Field(what string) uint64 {
	if d.err != nil || d.off+8 > len(d.buf) {
		d.fail(what)
		return 0
	}
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *decoder) stringField(what string) string {
	n := int(d.uint16Field(what))
	if d.err != nil || d.off+n > len(d.buf) {
		d.fail(what)
		return ""
	}
	s := string(d.buf[d.off : d.off+n])
	d.off += n
	return s
}

func (d *decoder) bytesField(what string) []byte {
	n := int(d.uint32Field(what))
	if d.err != nil || d.off+n > len(d.buf) {
		d.fail(what)
		return nil
	}
	b := make([]byte, n)
	copy(b, d.buf[d.off:d.off+n])
	d.off += n
	return b
}

func (d *decoder) rest() []byte {
	if d.err != nil {
		return nil
	}
	b := make([]byte, len(d.buf)-d.off)
	copy(b, d.buf[d.off:])
	d.off = len(d.buf)
	return b
}
