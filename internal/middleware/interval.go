// Package middleware coalesces bursts of job notifications.
package middleware

import (
	"sync"
	"time"
)

// FlushFunc receives the distinct job names collected since the last flush
type FlushFunc func(jobs []string)

// IntervalCollector flushes collected job names once the interval after the
// first notification has elapsed. A zero interval flushes on every notification.
type IntervalCollector struct {
	mu       sync.Mutex
	jobs     []string
	seen     map[string]struct{}
	interval time.Duration
	timer    *time.Timer
	started  bool
	closed   bool
	onFlush  FlushFunc
}

// NewIntervalCollector creates a new IntervalCollector
func NewIntervalCollector(interval time.Duration, onFlush FlushFunc) *IntervalCollector {
	return &IntervalCollector{
		interval: interval,
		seen:     make(map[string]struct{}),
		onFlush:  onFlush,
	}
}

// Add collects a job name and starts the interval timer if not already started
func (c *IntervalCollector) Add(job string) {
	if c.interval <= 0 {
		c.onFlush([]string{job})
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if _, dup := c.seen[job]; !dup {
		c.seen[job] = struct{}{}
		c.jobs = append(c.jobs, job)
	}

	if !c.started {
		c.timer = time.AfterFunc(c.interval, c.flush)
		c.started = true
	}
}

func (c *IntervalCollector) flush() {
	c.mu.Lock()
	jobs := c.jobs
	c.jobs = nil
	c.seen = make(map[string]struct{})
	c.started = false
	c.mu.Unlock()

	if len(jobs) > 0 {
		c.onFlush(jobs)
	}
}

// Close stops the timer. Pending job names are dropped.
func (c *IntervalCollector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
}
