package eventbuf

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sink receives drained entries. *container.Writer satisfies it.
type Sink interface {
	Append(channelID uint16, logTime, publishTime int64, payload []byte) error
}

// FlushOptions configure a flusher.
type FlushOptions struct {
	Buffer   *Buffer
	Sink     Sink
	Interval time.Duration
	// KeepLast selects the drain-except-last policy for periodic flushes.
	// The final drain performed by Close always takes everything.
	KeepLast bool
	Logger   *slog.Logger
}

// Flusher periodically drains a buffer into a sink on its own goroutine.
type Flusher struct {
	buffer   *Buffer
	sink     Sink
	interval time.Duration
	keepLast bool
	logger   *slog.Logger

	mu      sync.Mutex
	err     error
	stop    chan struct{}
	done    chan struct{}
	started bool
	closed  bool
}

// NewFlusher validates options and returns a flusher; Start launches it.
func NewFlusher(opts FlushOptions) (*Flusher, error) {
	if opts.Buffer == nil {
		return nil, errors.New("eventbuf: buffer must be provided")
	}
	if opts.Sink == nil {
		return nil, errors.New("eventbuf: sink must be provided")
	}
	if opts.Interval <= 0 {
		return nil, errors.New("eventbuf: flush interval must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Flusher{
		buffer:   opts.Buffer,
		sink:     opts.Sink,
		interval: opts.Interval,
		keepLast: opts.KeepLast,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the periodic flush goroutine. Calling it twice is an error.
func (f *Flusher) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return errors.New("eventbuf: flusher already started")
	}
	f.started = true
	go f.run()
	return nil
}

func (f *Flusher) run() {
	defer close(f.done)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			if err := f.Flush(); err != nil {
				f.logger.Error("periodic flush failed", "error", err)
				return
			}
			if dropped := f.buffer.Dropped(); dropped > 0 {
				f.logger.Warn("event buffer at capacity", "dropped_total", dropped)
			}
		}
	}
}

// Flush drains the buffer per the configured policy and writes the batch to
// the sink. The buffer lock is never held during sink I/O. The first sink
// error is retained and reported by Err.
func (f *Flusher) Flush() error {
	var batch []Entry
	if f.keepLast {
		batch = f.buffer.DrainExceptLast()
	} else {
		batch = f.buffer.Drain()
	}
	return f.write(batch)
}

func (f *Flusher) write(batch []Entry) error {
	for _, entry := range batch {
		if err := f.sink.Append(entry.Channel, entry.LogTime, entry.PublishTime, entry.Payload); err != nil {
			wrapped := fmt.Errorf("flush entry to sink: %w", err)
			f.mu.Lock()
			if f.err == nil {
				f.err = wrapped
			}
			f.mu.Unlock()
			return wrapped
		}
	}
	return nil
}

// Err reports the first sink error observed by any flush.
func (f *Flusher) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close stops the goroutine, performs a final full drain (the keep-last
// policy does not apply at teardown), and is safe to call more than once.
func (f *Flusher) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	started := f.started
	f.mu.Unlock()

	close(f.stop)
	if started {
		<-f.done
	}
	return f.write(f.buffer.Drain())
}
