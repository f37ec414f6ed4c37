// Package eventbuf decouples low-latency listener callbacks from batched
// container writes. Producers push entries under a short lock; a flusher
// goroutine periodically drains the buffer and hands batches to a sink
// outside the lock.
package eventbuf

import "sync"

// Entry is a buffered record awaiting flush. Ownership transfers to the
// caller of Drain/DrainExceptLast.
type Entry struct {
	Channel     uint16
	LogTime     int64
	PublishTime int64
	Payload     []byte
}

// Buffer is a mutex-guarded FIFO of pending entries.
type Buffer struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	dropped  uint64
}

// NewBuffer returns a buffer holding at most capacity entries. When full,
// Push evicts the oldest entry and counts the drop. Capacity <= 0 means
// unbounded.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{capacity: capacity}
}

// Push appends an entry in O(1) amortised time. It never blocks on I/O.
func (b *Buffer) Push(e Entry) {
	b.mu.Lock()
	if b.capacity > 0 && len(b.entries) >= b.capacity {
		b.entries = b.entries[1:]
		b.dropped++
	}
	b.entries = append(b.entries, e)
	b.mu.Unlock()
}

// Drain atomically detaches and returns every buffered entry in insertion
// order, leaving the buffer empty.
func (b *Buffer) Drain() []Entry {
	b.mu.Lock()
	batch := b.entries
	b.entries = nil
	b.mu.Unlock()
	return batch
}

// DrainExceptLast detaches all but the most recently pushed entry, which
// stays buffered. Recordings use this for periodic flushes so an event that
// may still be in progress is not persisted prematurely; the stop path
// drains it with Drain.
func (b *Buffer) DrainExceptLast() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) <= 1 {
		return nil
	}
	batch := b.entries[:len(b.entries)-1]
	b.entries = []Entry{b.entries[len(b.entries)-1]}
	return batch
}

// Len reports the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Dropped reports how many entries were evicted due to the capacity bound.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
