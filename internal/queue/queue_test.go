package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tradewatch/floodgate/internal/queue/config"
	errspkg "github.com/tradewatch/floodgate/internal/queue/errors"
)

func newTestQueue(t *testing.T, cfg config.Config) *Queue {
	t.Helper()
	q, err := TryNew(&cfg, nil, Dependencies{DisableDefaultMiddlewares: true})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}
	t.Cleanup(q.Dispose)
	return q
}

// forceProcessing puts the queue into the processing state without launching
// the scheduler goroutine so tests can drive ticks deterministically.
func forceProcessing(q *Queue) {
	q.mu.Lock()
	q.state = StateProcessing
	q.mu.Unlock()
}

func TestTryNewInvalidConfig(t *testing.T) {
	cfg := &config.Config{MaxSize: 10, HighWaterMark: 5, LowWaterMark: 8}
	_, err := TryNew(cfg, nil, Dependencies{})
	if err == nil {
		t.Fatal("expected validation error for lowWaterMark above highWaterMark")
	}
	var cv errspkg.ConfigValidationError
	if !errors.As(err, &cv) {
		t.Fatalf("error type = %T, want ConfigValidationError", err)
	}
}

func TestNewPanicsOnInvalidConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New did not panic on invalid config")
		}
	}()
	New(&config.Config{MaxSize: 10, HighWaterMark: 20}, nil, Dependencies{})
}

func TestEnqueueResult(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 4})

	result, err := q.Enqueue(context.Background(), "payload")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !result.Success {
		t.Error("result.Success = false, want true")
	}
	if result.MessageID == "" {
		t.Error("result.MessageID is empty, want generated ULID")
	}
	if result.Position != 0 {
		t.Errorf("result.Position = %d, want 0", result.Position)
	}
	if q.Size() != 1 {
		t.Errorf("Size() = %d, want 1", q.Size())
	}

	msg, ok := q.Peek()
	if !ok {
		t.Fatal("Peek returned no message")
	}
	if msg.Payload != "payload" {
		t.Errorf("Peek payload = %v, want %q", msg.Payload, "payload")
	}
	if msg.EnqueuedAt.IsZero() {
		t.Error("EnqueuedAt not stamped")
	}
}

func TestEnqueueOptions(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 4, PriorityEnabled: true})

	result, err := q.Enqueue(context.Background(), 42,
		WithID("custom-id"),
		WithPriority(PriorityHigh),
		WithMetadataValue("source", "test"),
	)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if result.MessageID != "custom-id" {
		t.Errorf("MessageID = %q, want %q", result.MessageID, "custom-id")
	}

	msg, _ := q.Peek()
	if msg.Priority != PriorityHigh {
		t.Errorf("Priority = %v, want high", msg.Priority)
	}
	if msg.Metadata["source"] != "test" {
		t.Errorf("Metadata[source] = %q, want %q", msg.Metadata["source"], "test")
	}
}

func TestEnqueueEmitsEvent(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 4})

	var got Event
	q.On(EventEnqueued, func(ev Event) { got = ev })

	result, err := q.Enqueue(context.Background(), "x")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if got.Type != EventEnqueued {
		t.Fatal("enqueued event not delivered")
	}
	if got.Message == nil || got.Message.ID != result.MessageID {
		t.Errorf("event message = %+v, want ID %s", got.Message, result.MessageID)
	}
	if got.Size != 1 {
		t.Errorf("event size = %d, want 1", got.Size)
	}
}

func TestDropOldestStrategy(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:       3,
		Strategy:      config.StrategyDropOldest,
		HighWaterMark: 3,
		LowWaterMark:  1,
	})

	var dropped []Event
	q.On(EventDropped, func(ev Event) { dropped = append(dropped, ev) })

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := q.Enqueue(ctx, id, WithID(id)); err != nil {
			t.Fatalf("Enqueue %s: %v", id, err)
		}
	}

	result, err := q.Enqueue(ctx, "d", WithID("d"))
	if err != nil {
		t.Fatalf("Enqueue over capacity: %v", err)
	}
	if !result.Success {
		t.Error("dropOldest enqueue did not succeed")
	}

	got := q.Messages()
	want := []string{"b", "c", "d"}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("store order = %v, want %v", messageIDs(got), want)
		}
	}

	if len(dropped) != 1 {
		t.Fatalf("dropped events = %d, want 1", len(dropped))
	}
	if dropped[0].Message.ID != "a" {
		t.Errorf("evicted message = %s, want a", dropped[0].Message.ID)
	}
	if dropped[0].Reason != DropReasonBackpressure {
		t.Errorf("drop reason = %s, want %s", dropped[0].Reason, DropReasonBackpressure)
	}
	if q.Stats().TotalDropped != 1 {
		t.Errorf("TotalDropped = %d, want 1", q.Stats().TotalDropped)
	}
}

func TestDropNewestStrategy(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:       2,
		Strategy:      config.StrategyDropNewest,
		HighWaterMark: 2,
		LowWaterMark:  1,
	})

	ctx := context.Background()
	q.Enqueue(ctx, "a", WithID("a"))
	q.Enqueue(ctx, "b", WithID("b"))

	result, err := q.Enqueue(ctx, "c", WithID("c"))
	if !errors.Is(err, errspkg.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if result.Success {
		t.Error("rejected enqueue reported success")
	}
	if result.Reason != ReasonQueueFull {
		t.Errorf("reason = %s, want %s", result.Reason, ReasonQueueFull)
	}

	got := q.Messages()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("store changed by dropNewest: %v", messageIDs(got))
	}
	if q.Stats().TotalDropped != 1 {
		t.Errorf("TotalDropped = %d, want 1", q.Stats().TotalDropped)
	}
}

func TestErrorStrategy(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:       1,
		Strategy:      config.StrategyError,
		HighWaterMark: 1, // not relevant, must just be valid
	})

	ctx := context.Background()
	q.Enqueue(ctx, "a")

	_, err := q.Enqueue(ctx, "b")
	if !errors.Is(err, errspkg.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	// Rejections under the error strategy are not drops.
	if q.Stats().TotalDropped != 0 {
		t.Errorf("TotalDropped = %d, want 0", q.Stats().TotalDropped)
	}
	if q.Size() != 1 {
		t.Errorf("Size() = %d, want 1", q.Size())
	}
}

func TestBlockStrategyResolvesOnClear(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:       1,
		Strategy:      config.StrategyBlock,
		HighWaterMark: 1,
	})

	ctx := context.Background()
	q.Enqueue(ctx, "a")

	results := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(ctx, "b", WithID("b"))
		results <- err
	}()

	waitForState(t, q, StateBlocked)

	if cleared := q.Clear(); cleared != 1 {
		t.Errorf("Clear() = %d, want 1", cleared)
	}

	select {
	case err := <-results:
		if err != nil {
			t.Fatalf("blocked enqueue: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked enqueue did not resolve after Clear")
	}

	if got := q.State(); got != StateIdle {
		t.Errorf("state after unblock = %s, want idle", got)
	}
	msg, _ := q.Peek()
	if msg.ID != "b" {
		t.Errorf("head = %s, want b", msg.ID)
	}
}

func TestBlockStrategyResolvesOnDrain(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:            1,
		Strategy:           config.StrategyBlock,
		HighWaterMark:      1,
		ProcessingInterval: time.Millisecond,
	})
	if err := q.SetProcessor(func(context.Context, QueuedMessage) error { return nil }); err != nil {
		t.Fatalf("SetProcessor: %v", err)
	}

	ctx := context.Background()
	q.Enqueue(ctx, "a")

	results := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(ctx, "b", WithID("b"))
		results <- err
	}()

	waitForState(t, q, StateBlocked)

	if err := q.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case err := <-results:
		if err != nil {
			t.Fatalf("blocked enqueue: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked enqueue did not resolve after a drain tick")
	}
}

func TestBlockStrategyHonoursContext(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:       1,
		Strategy:      config.StrategyBlock,
		HighWaterMark: 1,
	})

	q.Enqueue(context.Background(), "a")

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan EnqueueResult, 1)
	errs := make(chan error, 1)
	go func() {
		result, err := q.Enqueue(ctx, "b")
		results <- result
		errs <- err
	}()

	waitForState(t, q, StateBlocked)
	cancel()

	select {
	case result := <-results:
		if err := <-errs; !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
		if result.Reason != ReasonCancelled {
			t.Errorf("reason = %s, want %s", result.Reason, ReasonCancelled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked enqueue did not observe cancellation")
	}

	if got := q.State(); got != StateIdle {
		t.Errorf("state after cancellation = %s, want idle", got)
	}
}

func TestBlockStrategyDisposeWakesWaiter(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:       1,
		Strategy:      config.StrategyBlock,
		HighWaterMark: 1,
	})

	q.Enqueue(context.Background(), "a")

	errs := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(context.Background(), "b")
		errs <- err
	}()

	waitForState(t, q, StateBlocked)
	q.Dispose()

	select {
	case err := <-errs:
		if !errors.Is(err, errspkg.ErrDisposed) {
			t.Fatalf("err = %v, want ErrDisposed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked enqueue did not observe dispose")
	}
}

func TestPriorityDrainOrder(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8, PriorityEnabled: true})

	ctx := context.Background()
	q.Enqueue(ctx, nil, WithID("low"), WithPriority(PriorityLow))
	q.Enqueue(ctx, nil, WithID("normal"), WithPriority(PriorityNormal))
	q.Enqueue(ctx, nil, WithID("high-1"), WithPriority(PriorityHigh))
	q.Enqueue(ctx, nil, WithID("high-2"), WithPriority(PriorityHigh))

	got := messageIDs(q.Messages())
	want := []string{"high-1", "high-2", "normal", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("drain order = %v, want %v", got, want)
		}
	}
}

func TestEnqueueBatchStopsAtFirstFailure(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:       2,
		Strategy:      config.StrategyError,
		HighWaterMark: 2,
	})

	results, err := q.EnqueueBatch(context.Background(), []any{"a", "b", "c", "d"})
	if !errors.Is(err, errspkg.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3 (two accepted, one failed)", len(results))
	}
	if !results[0].Success || !results[1].Success || results[2].Success {
		t.Errorf("result successes = %v %v %v, want true true false",
			results[0].Success, results[1].Success, results[2].Success)
	}
}

func TestDrainBatches(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 16, BatchSize: 3})

	var mu sync.Mutex
	var processed []string
	if err := q.SetProcessor(func(_ context.Context, msg QueuedMessage) error {
		mu.Lock()
		processed = append(processed, msg.ID)
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("SetProcessor: %v", err)
	}

	var batches []int
	q.On(EventBatchProcessed, func(ev Event) { batches = append(batches, ev.BatchSize) })
	emptied := 0
	q.On(EventQueueEmpty, func(Event) { emptied++ })

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		q.Enqueue(ctx, id, WithID(id))
	}

	forceProcessing(q)
	q.drainOnce(ctx)
	q.drainOnce(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(processed) != 5 {
		t.Fatalf("processed %d messages, want 5", len(processed))
	}
	want := []string{"a", "b", "c", "d", "e"}
	for i := range want {
		if processed[i] != want[i] {
			t.Fatalf("processed order = %v, want %v", processed, want)
		}
	}
	if len(batches) != 2 || batches[0] != 3 || batches[1] != 2 {
		t.Errorf("batch sizes = %v, want [3 2]", batches)
	}
	if emptied != 1 {
		t.Errorf("queue-empty events = %d, want 1", emptied)
	}

	snap := q.Stats()
	if snap.TotalProcessed != 5 {
		t.Errorf("TotalProcessed = %d, want 5", snap.TotalProcessed)
	}
}

func TestDrainContinuesPastProcessorError(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8, BatchSize: 10})

	boom := errors.New("boom")
	q.SetProcessor(func(_ context.Context, msg QueuedMessage) error {
		if msg.ID == "bad" {
			return boom
		}
		return nil
	})

	var errEvents []Event
	q.On(EventProcessingError, func(ev Event) { errEvents = append(errEvents, ev) })

	ctx := context.Background()
	q.Enqueue(ctx, nil, WithID("good-1"))
	q.Enqueue(ctx, nil, WithID("bad"))
	q.Enqueue(ctx, nil, WithID("good-2"))

	forceProcessing(q)
	q.drainOnce(ctx)

	if q.Size() != 0 {
		t.Errorf("Size() = %d, want 0 (batch continues past the error)", q.Size())
	}
	if len(errEvents) != 1 {
		t.Fatalf("processing-error events = %d, want 1", len(errEvents))
	}
	if !errors.Is(errEvents[0].Err, boom) {
		t.Errorf("event error = %v, want boom", errEvents[0].Err)
	}

	snap := q.Stats()
	if snap.TotalProcessed != 2 {
		t.Errorf("TotalProcessed = %d, want 2", snap.TotalProcessed)
	}
	if snap.TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1", snap.TotalErrors)
	}
}

func TestBackpressureLifecycle(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:       10,
		BatchSize:     4,
		HighWaterMark: 8,
		LowWaterMark:  4,
	})
	q.SetProcessor(func(context.Context, QueuedMessage) error { return nil })

	var starts, ends int
	q.On(EventBackpressureStart, func(Event) { starts++ })
	q.On(EventBackpressureEnd, func(Event) { ends++ })

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		q.Enqueue(ctx, i)
	}
	if starts != 1 {
		t.Fatalf("backpressure-start events after reaching high mark = %d, want 1", starts)
	}
	if !q.Stats().BackpressureActive {
		t.Error("BackpressureActive = false, want true")
	}

	// One batch leaves 4 buffered, exactly the low mark: condition must end.
	forceProcessing(q)
	q.drainOnce(ctx)

	if ends != 1 {
		t.Fatalf("backpressure-end events after draining to low mark = %d, want 1", ends)
	}
	if q.Stats().BackpressureActive {
		t.Error("BackpressureActive = true after falling to low mark")
	}

	// Climbing back above the low mark but below the high mark must not
	// restart the condition.
	for i := 0; i < 3; i++ {
		q.Enqueue(ctx, i)
	}
	if starts != 1 {
		t.Errorf("backpressure restarted below high mark, starts = %d", starts)
	}
}

func TestPauseAndResume(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8, BatchSize: 8})
	q.SetProcessor(func(context.Context, QueuedMessage) error { return nil })

	ctx := context.Background()
	q.Enqueue(ctx, "a")

	forceProcessing(q)
	if err := q.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if got := q.State(); got != StatePaused {
		t.Fatalf("state = %s, want paused", got)
	}

	q.drainOnce(ctx)
	if q.Size() != 1 {
		t.Error("paused queue drained a message")
	}

	if err := q.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	q.drainOnce(ctx)
	if q.Size() != 0 {
		t.Error("resumed queue did not drain")
	}
}

func TestStartAndStop(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:            8,
		BatchSize:          8,
		ProcessingInterval: time.Millisecond,
	})

	done := make(chan struct{})
	q.SetProcessor(func(_ context.Context, msg QueuedMessage) error {
		close(done)
		return nil
	})

	if err := q.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := q.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	q.Enqueue(context.Background(), "a")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never processed the message")
	}

	if err := q.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := q.State(); got != StateIdle {
		t.Errorf("state after Stop = %s, want idle", got)
	}
}

func TestStopKeepsBufferedMessages(t *testing.T) {
	q := newTestQueue(t, config.Config{
		MaxSize:            8,
		ProcessingInterval: time.Hour, // no tick fires during the test
	})
	q.SetProcessor(func(context.Context, QueuedMessage) error { return nil })

	q.Start()
	q.Enqueue(context.Background(), "a")
	q.Stop()

	if q.Size() != 1 {
		t.Errorf("Size() after Stop = %d, want 1", q.Size())
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8})
	ctx := context.Background()
	q.Enqueue(ctx, "a")
	q.Enqueue(ctx, "b")

	stateChanges := 0
	q.On(EventStateChange, func(Event) { stateChanges++ })

	q.Dispose()
	q.Dispose()

	if got := q.State(); got != StateDisposed {
		t.Fatalf("state = %s, want disposed", got)
	}
	if q.Size() != 0 {
		t.Errorf("Size() = %d, want 0", q.Size())
	}
	if stateChanges != 1 {
		t.Errorf("state-change events = %d, want 1 (second Dispose is a no-op)", stateChanges)
	}

	// History survives dispose.
	if q.Stats().TotalEnqueued != 2 {
		t.Errorf("TotalEnqueued = %d, want 2", q.Stats().TotalEnqueued)
	}

	if _, err := q.Enqueue(ctx, "c"); !errors.Is(err, errspkg.ErrDisposed) {
		t.Errorf("Enqueue after dispose: err = %v, want ErrDisposed", err)
	}
	if err := q.Start(); !errors.Is(err, errspkg.ErrDisposed) {
		t.Errorf("Start after dispose: err = %v, want ErrDisposed", err)
	}
	if err := q.SetProcessor(func(context.Context, QueuedMessage) error { return nil }); !errors.Is(err, errspkg.ErrDisposed) {
		t.Errorf("SetProcessor after dispose: err = %v, want ErrDisposed", err)
	}
}

func TestClearCountsDrops(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8})
	ctx := context.Background()
	q.Enqueue(ctx, "a")
	q.Enqueue(ctx, "b")
	q.Enqueue(ctx, "c")

	var dropEvents []Event
	q.On(EventDropped, func(ev Event) { dropEvents = append(dropEvents, ev) })

	if got := q.Clear(); got != 3 {
		t.Fatalf("Clear() = %d, want 3", got)
	}
	if q.Size() != 0 {
		t.Errorf("Size() = %d, want 0", q.Size())
	}
	if len(dropEvents) != 1 {
		t.Fatalf("dropped events = %d, want 1 aggregated event", len(dropEvents))
	}
	if dropEvents[0].BatchSize != 3 || dropEvents[0].Reason != DropReasonCleared {
		t.Errorf("drop event = %+v, want BatchSize 3 reason cleared", dropEvents[0])
	}
	if q.Stats().TotalDropped != 3 {
		t.Errorf("TotalDropped = %d, want 3", q.Stats().TotalDropped)
	}
}

func TestSetProcessorNil(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8})
	if err := q.SetProcessor(nil); !errors.Is(err, errspkg.ErrProcessorRequired) {
		t.Fatalf("err = %v, want ErrProcessorRequired", err)
	}
}

func TestOnceListener(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8})

	fired := 0
	q.Once(EventEnqueued, func(Event) { fired++ })

	ctx := context.Background()
	q.Enqueue(ctx, "a")
	q.Enqueue(ctx, "b")

	if fired != 1 {
		t.Errorf("once listener fired %d times, want 1", fired)
	}
}

func TestRemoveAllListeners(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8})

	enq, drops := 0, 0
	q.On(EventEnqueued, func(Event) { enq++ })
	q.On(EventDropped, func(Event) { drops++ })

	q.RemoveAllListeners(EventEnqueued)
	q.Enqueue(context.Background(), "a")
	q.Clear()

	if enq != 0 {
		t.Errorf("removed listener fired %d times", enq)
	}
	if drops != 1 {
		t.Errorf("surviving listener fired %d times, want 1", drops)
	}
}

func TestMessagesReturnsCopies(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8})
	q.Enqueue(context.Background(), "a", WithMetadataValue("k", "v"))

	snap := q.Messages()
	snap[0].Metadata["k"] = "mutated"

	msg, _ := q.Peek()
	if msg.Metadata["k"] != "v" {
		t.Error("snapshot mutation reached the stored message")
	}
}

func TestStatsUtilization(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 4, HighWaterMark: 4, LowWaterMark: 2})
	ctx := context.Background()
	q.Enqueue(ctx, "a")
	q.Enqueue(ctx, "b")

	snap := q.Stats()
	if snap.Size != 2 || snap.MaxSize != 4 {
		t.Errorf("snapshot occupancy = %d/%d, want 2/4", snap.Size, snap.MaxSize)
	}
	if snap.Utilization != 50 {
		t.Errorf("Utilization = %.1f, want 50", snap.Utilization)
	}
}

func TestHealthOfFreshQueue(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8})
	if got := q.Health(); got != 100 {
		t.Errorf("Health() = %d, want 100", got)
	}
}

func messageIDs(msgs []QueuedMessage) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

func waitForState(t *testing.T, q *Queue, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("queue never reached state %s, still %s", want, q.State())
}
