// Package rate provides the fixed-frequency pacing primitive used by the
// sampling and actor loops.
package rate

import (
	"fmt"
	"time"
)

// Options configure a limiter.
type Options struct {
	// Hz is the target frequency; must be positive.
	Hz float64
	// Clock reports the current time; defaults to time.Now. The limiter only
	// ever uses differences between readings, so a monotonic source is assumed.
	Clock func() time.Time
	// Sleep blocks for the given duration; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Limiter spaces consecutive Wait calls 1/hz apart.
//
// Each Wait re-anchors from "now" after sleeping, so a slow caller does not
// accumulate debt: if the caller already spent more than one interval, Wait
// returns immediately instead of bursting to catch up.
type Limiter struct {
	interval time.Duration
	clock    func() time.Time
	sleep    func(time.Duration)
	last     time.Time
}

// NewLimiter validates options and returns a limiter anchored at now.
func NewLimiter(opts Options) (*Limiter, error) {
	if opts.Hz <= 0 {
		return nil, fmt.Errorf("rate: frequency must be positive, got %v", opts.Hz)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Limiter{
		interval: time.Duration(float64(time.Second) / opts.Hz),
		clock:    clock,
		sleep:    sleep,
		last:     clock(),
	}, nil
}

// Interval returns the period between ticks.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until one interval has elapsed since the previous anchor,
// then re-anchors at the current time.
func (l *Limiter) Wait() {
	elapsed := l.clock().Sub(l.last)
	if remaining := l.interval - elapsed; remaining > 0 {
		l.sleep(remaining)
	}
	l.last = l.clock()
}
