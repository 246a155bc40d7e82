// Package eventbus routes build notifications to handlers through a bounded worker pool.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeJobNotification is published when Jenkins reports build progress for a job
	EventTypeJobNotification EventType = "job_notification"
)

// Default configuration
const (
	DefaultWorkerCount = 4
	DefaultQueueSize   = 100
)

// Event represents an event in the system
type Event struct {
	Type       EventType
	Job        string
	Phase      string // STARTED, COMPLETED, FINALIZED
	Status     string // SUCCESS, FAILURE, UNSTABLE, ABORTED (empty while running)
	ReceivedAt time.Time
}

// Handler is a function that handles events
type Handler func(Event)

type work struct {
	event   Event
	handler Handler
}

// Bus provides event routing with a bounded worker pool
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler

	workQueue chan work
	wg        sync.WaitGroup

	// Closing this channel tells publishers to stop
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a new event bus with default settings
func New() *Bus {
	return NewWithConfig(DefaultWorkerCount, DefaultQueueSize)
}

// NewWithConfig creates a new event bus with custom worker count and queue size
func NewWithConfig(workerCount, queueSize int) *Bus {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	b := &Bus{
		handlers:  make(map[EventType][]Handler),
		workQueue: make(chan work, queueSize),
		closing:   make(chan struct{}),
	}

	for i := 0; i < workerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}

	log.Debug().Int("workers", workerCount).Int("queue_size", queueSize).Msg("Event bus worker pool started")
	return b
}

func (b *Bus) worker(id int) {
	defer b.wg.Done()

	for w := range b.workQueue {
		b.handle(id, w)
	}
}

func (b *Bus) handle(id int, w work) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("event_type", string(w.event.Type)).
				Str("job", w.event.Job).
				Int("worker", id).
				Msg("Event handler panicked")
		}
	}()
	w.handler(w.event)
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish queues the event for every subscribed handler. It never blocks:
// events are dropped when the queue is full or the bus is closing.
// Returns the number of handlers the event was queued for.
func (b *Bus) Publish(event Event) int {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	// Held for the whole loop so Close cannot close the queue mid-send
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := b.handlers[event.Type]

	queued := 0
	for _, handler := range handlers {
		select {
		case <-b.closing:
			log.Warn().Str("event_type", string(event.Type)).Msg("Event bus closing, dropping event")
			return queued
		default:
		}

		select {
		case b.workQueue <- work{event: event, handler: handler}:
			queued++
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Str("job", event.Job).
				Msg("Event bus queue full, dropping event")
		}
	}
	return queued
}

// Close shuts down the worker pool, waiting for queued events until ctx is done.
func (b *Bus) Close(ctx context.Context) {
	b.closeOnce.Do(func() {
		close(b.closing)
		b.mu.Lock()
		close(b.workQueue)
		b.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Event bus workers stopped gracefully")
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}
