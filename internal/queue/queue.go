package queue

import (
	"context"
	"sync"
	"time"

	"github.com/tradewatch/floodgate/internal/queue/config"
	errspkg "github.com/tradewatch/floodgate/internal/queue/errors"
	"github.com/tradewatch/floodgate/internal/queue/logging"
)

// State is the queue's lifecycle state. Exactly one state holds at any
// instant; StateDisposed is terminal.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StatePaused     State = "paused"
	// StateBlocked is visible only while a block-strategy enqueue is
	// pending; the prior state is restored once the waiters are gone.
	StateBlocked  State = "blocked"
	StateDisposed State = "disposed"
)

// Handler consumes one drained message. It may do its work synchronously or
// hand off elsewhere; an error (or panic, converted by the recoverer
// middleware) is counted and surfaced via a processing-error event without
// stopping the batch.
type Handler func(ctx context.Context, msg QueuedMessage) error

// Dependencies holds the optional collaborators a Queue can use. Leave fields
// zero-valued to take the defaults.
type Dependencies struct {
	// Middlewares are appended after the default middleware chain.
	Middlewares []MiddlewareRegistration
	// DisableDefaultMiddlewares skips the default chain when true.
	DisableDefaultMiddlewares bool
	// Hooks, when any callback is set, is bound around processor execution
	// after all other middleware.
	Hooks ProcessingHooks
}

// Queue is the bounded in-process buffer between a fast producer and a slower
// consumer: priority-aware ordering, water-mark backpressure with four
// overload strategies, a tick-driven batch scheduler, and typed events.
//
// All public operations are safe for concurrent use. The store, statistics
// and state are private to the instance; Peek and Messages return copies.
type Queue struct {
	cfg    config.Config
	logger logging.ServiceLogger

	stats  *Statistics
	events *emitter

	mu               sync.Mutex
	store            *store
	state            State
	stateBeforeBlock State
	blockedWaiters   int
	bp               *backpressureController
	// spaceCh is closed and replaced whenever space is freed, waking every
	// block-strategy waiter at once.
	spaceCh chan struct{}

	handler     Handler
	wrapped     Handler
	middlewares []ProcessorMiddleware

	running  bool
	stopCh   chan struct{}
	loopDone chan struct{}
}

// New constructs a Queue for the supplied configuration, panicking on invalid
// configuration. Use TryNew when you prefer an error.
func New(cfg *config.Config, log logging.ServiceLogger, deps Dependencies) *Queue {
	q, err := TryNew(cfg, log, deps)
	if err != nil {
		panic(err)
	}
	return q
}

// TryNew constructs a Queue, validating the configuration first. Register a
// processor and call Start before expecting messages to drain.
func TryNew(cfg *config.Config, log logging.ServiceLogger, deps Dependencies) (*Queue, error) {
	normalised, err := config.ValidateConfig(cfg)
	if err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}
	if log == nil {
		log = logging.NopLogger{}
	}

	q := &Queue{
		cfg:     normalised,
		logger:  log,
		stats:   newStatistics(),
		events:  newEmitter(),
		store:   newStore(normalised.MaxSize, normalised.PriorityEnabled),
		state:   StateIdle,
		bp:      newBackpressureController(normalised),
		spaceCh: make(chan struct{}),
	}

	if err := q.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}

	log.Info("Creating message queue", logging.LogFields{
		"max_size":            normalised.MaxSize,
		"batch_size":          normalised.BatchSize,
		"processing_interval": normalised.ProcessingInterval.String(),
		"strategy":            string(normalised.Strategy),
		"high_water_mark":     normalised.HighWaterMark,
		"low_water_mark":      normalised.LowWaterMark,
		"priority_enabled":    normalised.PriorityEnabled,
	})

	return q, nil
}

func (q *Queue) registerConfiguredMiddlewares(deps Dependencies) error {
	var registrations []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		registrations = DefaultMiddlewares()
	}
	registrations = append(registrations, deps.Middlewares...)
	if deps.Hooks.OnMessageStart != nil || deps.Hooks.OnMessageDone != nil || deps.Hooks.OnMessageError != nil {
		registrations = append(registrations, HooksMiddleware(deps.Hooks))
	}

	for _, reg := range registrations {
		if err := q.RegisterMiddleware(reg); err != nil {
			return err
		}
	}
	return nil
}

// Config returns a copy of the normalised configuration.
func (q *Queue) Config() config.Config {
	return q.cfg
}

// Logger exposes the queue's logger so middleware builders can reuse it.
func (q *Queue) Logger() logging.ServiceLogger {
	return q.logger
}

// Enqueue buffers payload. The returned result carries the message ID and
// insertion position on success, or a typed reason on failure. Under the
// block strategy the call suspends until space is freed by a drain tick or
// Clear, the context is cancelled, or the queue is disposed.
func (q *Queue) Enqueue(ctx context.Context, payload any, opts ...EnqueueOption) (EnqueueResult, error) {
	msg := buildMessage(payload, opts)
	blocked := false

	for {
		q.mu.Lock()

		if q.state == StateDisposed {
			events := q.leaveBlockedLocked(&blocked)
			q.mu.Unlock()
			q.events.emitAll(events)
			return EnqueueResult{Reason: ReasonDisposed}, errspkg.ErrDisposed
		}

		if q.store.size() < q.cfg.MaxSize {
			result, events := q.acceptLocked(msg)
			events = append(events, q.leaveBlockedLocked(&blocked)...)
			q.mu.Unlock()
			q.events.emitAll(events)
			return result, nil
		}

		switch q.cfg.Strategy {
		case config.StrategyDropOldest:
			evicted := q.store.evictOldest()
			q.stats.recordDropped(1)
			result, events := q.acceptLocked(msg)
			q.mu.Unlock()

			dropped := *evicted
			q.events.emit(Event{
				Type:     EventDropped,
				Message:  &dropped,
				Reason:   DropReasonBackpressure,
				Strategy: config.StrategyDropOldest,
				Size:     q.cfg.MaxSize, // evicted one, accepted one
			})
			q.events.emitAll(events)
			q.logger.Debug("Evicted oldest message", logging.LogFields{
				"evicted_id": dropped.ID,
				"message_id": result.MessageID,
			})
			return result, nil

		case config.StrategyDropNewest:
			q.stats.recordDropped(1)
			size := q.store.size()
			q.mu.Unlock()

			rejected := *msg
			q.events.emit(Event{
				Type:     EventDropped,
				Message:  &rejected,
				Reason:   DropReasonBackpressure,
				Strategy: config.StrategyDropNewest,
				Size:     size,
			})
			return EnqueueResult{MessageID: msg.ID, Reason: ReasonQueueFull}, errspkg.ErrQueueFull

		case config.StrategyError:
			q.mu.Unlock()
			return EnqueueResult{MessageID: msg.ID, Reason: ReasonQueueFull}, errspkg.ErrQueueFull

		case config.StrategyBlock:
			events := q.enterBlockedLocked(&blocked)
			waitCh := q.spaceCh
			q.mu.Unlock()
			q.events.emitAll(events)

			select {
			case <-ctx.Done():
				q.mu.Lock()
				events := q.leaveBlockedLocked(&blocked)
				q.mu.Unlock()
				q.events.emitAll(events)
				return EnqueueResult{MessageID: msg.ID, Reason: ReasonCancelled}, ctx.Err()
			case <-waitCh:
				// Space may already be taken again; re-check under the lock.
			}

		default:
			// Validation rejects unknown strategies at construction.
			q.mu.Unlock()
			return EnqueueResult{MessageID: msg.ID, Reason: ReasonQueueFull}, errspkg.ErrQueueFull
		}
	}
}

// EnqueueBatch buffers payloads in order, stopping at the first failure. The
// returned slice holds one result per attempted payload.
func (q *Queue) EnqueueBatch(ctx context.Context, payloads []any, opts ...EnqueueOption) ([]EnqueueResult, error) {
	results := make([]EnqueueResult, 0, len(payloads))
	for _, payload := range payloads {
		result, err := q.Enqueue(ctx, payload, opts...)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// acceptLocked inserts msg, stamping its acceptance time, and returns the
// result plus the events to emit after unlocking.
func (q *Queue) acceptLocked(msg *QueuedMessage) (EnqueueResult, []Event) {
	msg.EnqueuedAt = time.Now()
	pos := q.store.insert(msg)
	q.stats.recordEnqueued(1)
	size := q.store.size()

	accepted := *msg
	events := []Event{{
		Type:     EventEnqueued,
		Message:  &accepted,
		Position: pos,
		Size:     size,
	}}
	events = append(events, q.bp.evaluate(size, q.stats)...)

	return EnqueueResult{Success: true, MessageID: msg.ID, Position: pos}, events
}

// enterBlockedLocked registers a block-strategy waiter, surfacing
// StateBlocked on the first one.
func (q *Queue) enterBlockedLocked(blocked *bool) []Event {
	if *blocked {
		return nil
	}
	*blocked = true
	q.blockedWaiters++
	if q.blockedWaiters == 1 && q.state != StateBlocked {
		prev := q.state
		q.stateBeforeBlock = prev
		q.state = StateBlocked
		return []Event{{Type: EventStateChange, From: prev, To: StateBlocked}}
	}
	return nil
}

// leaveBlockedLocked deregisters a waiter, restoring the prior state when the
// last one leaves.
func (q *Queue) leaveBlockedLocked(blocked *bool) []Event {
	if !*blocked {
		return nil
	}
	*blocked = false
	q.blockedWaiters--
	if q.blockedWaiters == 0 && q.state == StateBlocked {
		restored := q.stateBeforeBlock
		q.state = restored
		return []Event{{Type: EventStateChange, From: StateBlocked, To: restored}}
	}
	return nil
}

// signalSpaceLocked wakes every pending block-strategy waiter.
func (q *Queue) signalSpaceLocked() {
	close(q.spaceCh)
	q.spaceCh = make(chan struct{})
}

// SetProcessor registers the handler the scheduler feeds drained messages to.
// Calling it again rebinds the handler.
func (q *Queue) SetProcessor(h Handler) error {
	if h == nil {
		return errspkg.ErrProcessorRequired
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state == StateDisposed {
		return errspkg.ErrDisposed
	}
	q.handler = h
	q.wrapped = q.buildChainLocked(h)
	return nil
}

// RegisterMiddleware attaches the supplied middleware around processor
// execution. Middleware registered earlier runs outermost.
func (q *Queue) RegisterMiddleware(reg MiddlewareRegistration) error {
	var mw ProcessorMiddleware
	switch {
	case reg.Middleware != nil:
		mw = reg.Middleware
	case reg.Builder != nil:
		var err error
		mw, err = reg.Builder(q)
		if err != nil {
			return err
		}
	default:
		return errspkg.ErrMiddlewareRequired
	}

	if mw == nil {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.middlewares = append(q.middlewares, mw)
	if q.handler != nil {
		q.wrapped = q.buildChainLocked(q.handler)
	}
	return nil
}

func (q *Queue) buildChainLocked(h Handler) Handler {
	wrapped := h
	for i := len(q.middlewares) - 1; i >= 0; i-- {
		wrapped = q.middlewares[i](wrapped)
	}
	return wrapped
}

// Start moves the queue to processing and launches the scheduler loop. It is
// a no-op when already running.
func (q *Queue) Start() error {
	q.mu.Lock()
	if q.state == StateDisposed {
		q.mu.Unlock()
		return errspkg.ErrDisposed
	}
	if q.running {
		q.mu.Unlock()
		return nil
	}

	events := q.transitionLocked(StateProcessing)
	q.running = true
	q.stopCh = make(chan struct{})
	q.loopDone = make(chan struct{})
	stopCh, loopDone := q.stopCh, q.loopDone
	interval := q.cfg.ProcessingInterval
	q.mu.Unlock()

	go q.run(stopCh, loopDone, interval)

	q.events.emitAll(events)
	q.logger.Info("Queue started", logging.LogFields{"interval": interval.String()})
	return nil
}

// Pause keeps the scheduler loop alive but makes its ticks no-ops.
func (q *Queue) Pause() error {
	q.mu.Lock()
	if q.state == StateDisposed {
		q.mu.Unlock()
		return errspkg.ErrDisposed
	}
	if q.effectiveStateLocked() != StateProcessing {
		q.mu.Unlock()
		return nil
	}
	events := q.transitionLocked(StatePaused)
	q.mu.Unlock()

	q.events.emitAll(events)
	q.logger.Info("Queue paused", nil)
	return nil
}

// Resume reverses Pause.
func (q *Queue) Resume() error {
	q.mu.Lock()
	if q.state == StateDisposed {
		q.mu.Unlock()
		return errspkg.ErrDisposed
	}
	if q.effectiveStateLocked() != StatePaused {
		q.mu.Unlock()
		return nil
	}
	events := q.transitionLocked(StateProcessing)
	q.mu.Unlock()

	q.events.emitAll(events)
	q.logger.Info("Queue resumed", nil)
	return nil
}

// Stop halts the scheduler and returns the queue to idle. Buffered messages
// stay in the store; an in-flight batch finishes its current handler calls.
func (q *Queue) Stop() error {
	q.mu.Lock()
	if q.state == StateDisposed {
		q.mu.Unlock()
		return errspkg.ErrDisposed
	}
	if !q.running {
		q.mu.Unlock()
		return nil
	}

	q.running = false
	stopCh, loopDone := q.stopCh, q.loopDone
	events := q.transitionLocked(StateIdle)
	q.mu.Unlock()

	close(stopCh)
	<-loopDone

	q.events.emitAll(events)
	q.logger.Info("Queue stopped", nil)
	return nil
}

// Dispose stops the scheduler, discards every buffered message, wakes blocked
// producers with ErrDisposed and transitions to the terminal state. It is
// idempotent; statistics keep their history.
func (q *Queue) Dispose() {
	q.mu.Lock()
	if q.state == StateDisposed {
		q.mu.Unlock()
		return
	}

	discarded := q.store.clear()
	events := q.bp.deactivate(q.stats)

	prev := q.state
	q.state = StateDisposed
	events = append(events, Event{Type: EventStateChange, From: prev, To: StateDisposed})

	wasRunning := q.running
	q.running = false
	stopCh, loopDone := q.stopCh, q.loopDone
	q.signalSpaceLocked()
	q.mu.Unlock()

	if wasRunning {
		close(stopCh)
		<-loopDone
	}

	q.events.emitAll(events)
	q.logger.Info("Queue disposed", logging.LogFields{"discarded": discarded})
}

// transitionLocked moves to the target state and returns the state-change
// event. While blocked, only the state to restore afterwards is updated; the
// externally visible state stays blocked.
func (q *Queue) transitionLocked(to State) []Event {
	if q.state == StateBlocked {
		q.stateBeforeBlock = to
		return nil
	}
	if q.state == to {
		return nil
	}
	from := q.state
	q.state = to
	return []Event{{Type: EventStateChange, From: from, To: to}}
}

func (q *Queue) effectiveStateLocked() State {
	if q.state == StateBlocked {
		return q.stateBeforeBlock
	}
	return q.state
}

func (q *Queue) run(stopCh, done chan struct{}, interval time.Duration) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			q.drainOnce(ctx)
		}
	}
}

// drainOnce pulls one batch and feeds it to the processor sequentially. Ticks
// are serialised by the scheduler goroutine, so a slow handler delays later
// ticks rather than overlapping them.
func (q *Queue) drainOnce(ctx context.Context) {
	q.mu.Lock()
	if q.effectiveStateLocked() != StateProcessing {
		q.mu.Unlock()
		return
	}
	handler := q.wrapped
	if handler == nil {
		q.mu.Unlock()
		return
	}

	batch := q.store.dequeueBatch(q.cfg.BatchSize)
	if len(batch) == 0 {
		q.mu.Unlock()
		return
	}
	size := q.store.size()
	events := q.bp.evaluate(size, q.stats)
	q.signalSpaceLocked()
	q.mu.Unlock()

	q.events.emitAll(events)

	dequeuedAt := time.Now()
	for _, msg := range batch {
		wait := dequeuedAt.Sub(msg.EnqueuedAt)
		started := time.Now()
		err := handler(ctx, *msg)
		elapsed := time.Since(started)

		delivered := *msg
		if err != nil {
			q.stats.recordError(wait)
			q.events.emit(Event{
				Type:           EventProcessingError,
				Message:        &delivered,
				Err:            err,
				WaitTime:       wait,
				ProcessingTime: elapsed,
			})
			q.logger.Error("Processor failed", err, logging.LogFields{
				"message_id": msg.ID,
				"priority":   msg.Priority.String(),
			})
			continue
		}

		q.stats.recordProcessed(wait, elapsed)
		q.events.emit(Event{
			Type:           EventProcessed,
			Message:        &delivered,
			WaitTime:       wait,
			ProcessingTime: elapsed,
		})
	}

	q.events.emit(Event{Type: EventBatchProcessed, BatchSize: len(batch), Size: size})
	if size == 0 {
		q.events.emit(Event{Type: EventQueueEmpty})
	}
}

// State returns the externally visible lifecycle state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Size returns the number of buffered messages.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.size()
}

// Peek returns a copy of the head message without removing it.
func (q *Queue) Peek() (QueuedMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	msg, ok := q.store.peek()
	if !ok {
		return QueuedMessage{}, false
	}
	copied := *msg
	copied.Metadata = msg.Metadata.Clone()
	return copied, true
}

// Messages returns copies of every buffered message in drain order.
func (q *Queue) Messages() []QueuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.snapshot()
}

// Clear discards every buffered message, counting them as dropped, and wakes
// blocked producers. Returns how many messages were removed.
func (q *Queue) Clear() int {
	q.mu.Lock()
	removed := q.store.clear()
	if removed > 0 {
		q.stats.recordDropped(removed)
	}
	events := q.bp.evaluate(0, q.stats)
	q.signalSpaceLocked()
	q.mu.Unlock()

	if removed > 0 {
		q.events.emit(Event{
			Type:      EventDropped,
			BatchSize: removed,
			Reason:    DropReasonCleared,
		})
	}
	q.events.emitAll(events)
	return removed
}

// Stats returns a point-in-time snapshot of the statistics including current
// occupancy.
func (q *Queue) Stats() StatsSnapshot {
	q.mu.Lock()
	size := q.store.size()
	q.mu.Unlock()

	snap := q.stats.snapshot(time.Now())
	snap.Size = size
	snap.MaxSize = q.cfg.MaxSize
	snap.Utilization = float64(size) / float64(q.cfg.MaxSize) * 100
	return snap
}

// ResetStats clears the statistics counters. It never happens implicitly.
func (q *Queue) ResetStats() {
	q.stats.Reset()
}

// Health derives the 0-100 health score from the current statistics.
func (q *Queue) Health() int {
	return CalculateHealth(q.Stats())
}

// On registers a listener for the event type and returns an idempotent
// unsubscribe func.
func (q *Queue) On(eventType EventType, fn Listener) func() {
	return q.events.on(eventType, fn)
}

// Once registers a listener that fires for at most one event.
func (q *Queue) Once(eventType EventType, fn Listener) func() {
	return q.events.once(eventType, fn)
}

// RemoveAllListeners drops every listener for the given event types, or all
// listeners when called without arguments.
func (q *Queue) RemoveAllListeners(types ...EventType) {
	q.events.removeAll(types...)
}
