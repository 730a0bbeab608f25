package queue

import (
	"sync"
	"time"

	"github.com/tradewatch/floodgate/internal/queue/config"
)

// EventType names a queue notification.
type EventType string

const (
	EventEnqueued          EventType = "enqueued"
	EventProcessed         EventType = "processed"
	EventBatchProcessed    EventType = "batch-processed"
	EventDropped           EventType = "dropped"
	EventBackpressureStart EventType = "backpressure-start"
	EventBackpressureEnd   EventType = "backpressure-end"
	EventStateChange       EventType = "state-change"
	EventQueueEmpty        EventType = "queue-empty"
	EventProcessingError   EventType = "processing-error"
)

// DropReason explains why a message left the store without being processed.
type DropReason string

const (
	DropReasonBackpressure DropReason = "backpressure"
	DropReasonCleared      DropReason = "cleared"
)

// Event is the notification delivered to listeners. Only the fields relevant
// to the event type are populated; Message always carries a copy, never a
// reference into the store.
type Event struct {
	Type EventType
	At   time.Time

	// Message is set on enqueued, processed, dropped and processing-error.
	Message *QueuedMessage
	// Size is the store size after the transition that produced the event.
	Size int
	// Position is the insertion index for enqueued events.
	Position int

	// BatchSize is set on batch-processed and cleared drops.
	BatchSize int

	// WaitTime and ProcessingTime are set on processed and processing-error.
	WaitTime       time.Duration
	ProcessingTime time.Duration

	// Err is set on processing-error.
	Err error

	// Reason is set on dropped.
	Reason DropReason
	// Strategy is set on dropped and backpressure-start.
	Strategy config.Strategy
	// Duration is the elapsed active time on backpressure-end.
	Duration time.Duration

	// From and To are set on state-change.
	From State
	To   State
}

// Listener receives queue events. Listeners run synchronously on the
// goroutine that produced the event, outside the queue mutex, so they may
// call back into the queue for non-lifecycle operations (Enqueue, Stats,
// Peek). A listener fired from the scheduler goroutine must not call Stop or
// Dispose, which wait for that goroutine to exit.
type Listener func(Event)

type subscription struct {
	id uint64
	fn Listener
}

// emitter is a per-event-type listener registry.
type emitter struct {
	mu        sync.Mutex
	listeners map[EventType][]subscription
	nextID    uint64
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[EventType][]subscription)}
}

// on registers fn for eventType and returns an unsubscribe func. Calling the
// returned func more than once is a no-op.
func (e *emitter) on(eventType EventType, fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.listeners[eventType] = append(e.listeners[eventType], subscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(eventType, id) })
	}
}

// once registers fn to run for at most one event of the given type.
func (e *emitter) once(eventType EventType, fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	var unsubscribe func()
	var fired sync.Once
	unsubscribe = e.on(eventType, func(ev Event) {
		fired.Do(func() {
			unsubscribe()
			fn(ev)
		})
	})
	return unsubscribe
}

func (e *emitter) remove(eventType EventType, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.listeners[eventType]
	for i, sub := range subs {
		if sub.id == id {
			e.listeners[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// removeAll drops every listener for the given types, or for every type when
// none are given.
func (e *emitter) removeAll(types ...EventType) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(types) == 0 {
		e.listeners = make(map[EventType][]subscription)
		return
	}
	for _, t := range types {
		delete(e.listeners, t)
	}
}

// emit delivers ev to every listener registered for its type. The listener
// list is copied under the lock; delivery happens outside it.
func (e *emitter) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	e.mu.Lock()
	subs := e.listeners[ev.Type]
	copied := make([]subscription, len(subs))
	copy(copied, subs)
	e.mu.Unlock()

	for _, sub := range copied {
		sub.fn(ev)
	}
}

func (e *emitter) emitAll(events []Event) {
	for _, ev := range events {
		e.emit(ev)
	}
}
