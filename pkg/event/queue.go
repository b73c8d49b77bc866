// pkg/event/queue.go
package event

import (
	"errors"
	"sync"
)

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("event queue full")

// Queue is a bounded FIFO that defers delivery until Drain. It lets the
// tick loop publish without running handlers inline.
type Queue struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	dropped  uint64
}

// NewQueue creates a queue holding at most capacity events
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}
}

// Enqueue appends an event, or returns ErrQueueFull
func (q *Queue) Enqueue(event Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) >= q.capacity {
		return ErrQueueFull
	}
	q.events = append(q.events, event)
	return nil
}

// Publish enqueues event, counting it as dropped when the queue is full
func (q *Queue) Publish(event Event) {
	if err := q.Enqueue(event); err != nil {
		q.mu.Lock()
		q.dropped++
		q.mu.Unlock()
	}
}

// Drain delivers every queued event to dst in FIFO order and returns how
// many were delivered. Events published by handlers during the drain are
// kept for the next one.
func (q *Queue) Drain(dst interface{ Publish(Event) }) int {
	q.mu.Lock()
	pending := q.events
	q.events = make([]Event, 0, q.capacity)
	q.mu.Unlock()

	for _, e := range pending {
		dst.Publish(e)
	}
	return len(pending)
}

// Len returns the number of queued events
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns how many events Publish discarded
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
