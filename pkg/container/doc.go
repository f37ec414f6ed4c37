// Package container implements the append-only episode log format.
//
// A file starts with the 4-byte magic "EPC1" followed by a sequence of
// records, each framed as
//
//	opcode  uint8
//	length  uint32 (little endian, body size in bytes)
//	body    length bytes
//	crc     uint32 (IEEE CRC-32 of the body)
//
// Record kinds: a header naming the writing library and profile, schema
// declarations, channel declarations binding a topic to a schema, timestamped
// messages carrying a channel-specific payload, session metadata key/value
// blocks, a trailing statistics record with per-channel message counts, and a
// footer marking the end of the stream.
//
// Strings are encoded as uint16 length + bytes. All integers are little
// endian. Timestamps are nanoseconds relative to the episode start.
//
// The framing lets a reader skip any record it cannot decode: a corrupt body
// costs one warning, not the file.
package container
