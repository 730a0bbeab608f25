// Package floodgate is a bounded in-process message queue that sits between a
// fast producer and a slower consumer: a market data firehose feeding a
// dashboard, a webhook burst feeding a database writer, or any other hot path
// that must absorb spikes without falling over. Messages are buffered up to a
// configured capacity, drained in batches on a fixed tick, and shed according
// to a configurable overflow strategy once the buffer is full.
//
// A minimal setup fills a Config, creates a Queue, registers a processor, and
// calls Start; see README.md for a copy/paste quick start snippet.
//
// # Overflow strategies
//
// Four strategies decide what happens when an enqueue finds the queue full:
//   - dropOldest: evict the oldest buffered message and accept the new one
//   - dropNewest: reject the incoming message, leaving the buffer untouched
//   - block: suspend the caller until a drain tick or Clear frees space
//   - error: fail the enqueue immediately with ErrQueueFull
//
// Blocked enqueues honour context cancellation, so producers can bound how
// long they are willing to wait.
//
// # Backpressure
//
// Independently of the overflow strategy, the queue tracks occupancy against
// high and low water marks. Crossing the high mark starts an active
// backpressure condition (surfaced as an event, in statistics and in the
// health score); the condition ends only when occupancy falls back to the low
// mark, so it cannot flap around a single threshold.
//
// # Priority
//
// With PriorityEnabled, messages drain by priority class (high before normal
// before low) while FIFO order is preserved inside each class. Without it the
// queue is strict FIFO.
//
// # Middleware
//
// The default middleware chain wraps the processor with correlation ID
// injection, structured logging, OpenTelemetry tracing and panic recovery.
// Custom middleware can be added via Dependencies.Middlewares, and
// ProcessingHooks provide OnMessageStart, OnMessageDone and OnMessageError
// callbacks for custom logging, metrics collection and alerting around
// processor execution.
//
// # Observability
//
// Statistics accumulate throughput, drop and error counters, wait times and
// cumulative backpressure time; Health derives a 0-100 score from them. The
// metrics facade exposes the same figures as Prometheus collectors fed from
// queue events.
//
// Processor calls have no built-in timeout; a handler that needs one should
// derive a deadline from the context it receives.
//
// The queue is strictly in-process. Sources under ingest/ bridge external
// streams (NATS subjects, Watermill channels) onto Enqueue, but the buffer
// itself never leaves the process and nothing is persisted.
package floodgate
