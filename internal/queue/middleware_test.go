package queue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/tradewatch/floodgate/internal/queue/config"
	errspkg "github.com/tradewatch/floodgate/internal/queue/errors"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	mw := CorrelationIDMiddleware()

	var seen Metadata
	handler := mw.Middleware(func(_ context.Context, msg QueuedMessage) error {
		seen = msg.Metadata
		return nil
	})

	if err := handler(context.Background(), QueuedMessage{ID: "m1"}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if seen[MetadataKeyCorrelationID] == "" {
		t.Error("correlation id not set on message without one")
	}

	// An existing correlation id is preserved.
	msg := QueuedMessage{ID: "m2", Metadata: Metadata{MetadataKeyCorrelationID: "existing"}}
	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if seen[MetadataKeyCorrelationID] != "existing" {
		t.Errorf("correlation id = %q, want existing", seen[MetadataKeyCorrelationID])
	}
}

func TestCorrelationIDMiddlewareDoesNotMutateOriginal(t *testing.T) {
	mw := CorrelationIDMiddleware()
	handler := mw.Middleware(func(context.Context, QueuedMessage) error { return nil })

	original := Metadata{"k": "v"}
	msg := QueuedMessage{ID: "m1", Metadata: original}
	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if _, ok := original[MetadataKeyCorrelationID]; ok {
		t.Error("middleware mutated the caller's metadata map")
	}
}

func TestRecovererMiddleware(t *testing.T) {
	mw := RecovererMiddleware()
	handler := mw.Middleware(func(context.Context, QueuedMessage) error {
		panic("boom")
	})

	err := handler(context.Background(), QueuedMessage{ID: "m1"})
	if err == nil {
		t.Fatal("panic was not converted to an error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %q, want panic value included", err)
	}
}

func TestRecovererMiddlewarePassesThroughErrors(t *testing.T) {
	mw := RecovererMiddleware()
	want := errors.New("handler failed")
	handler := mw.Middleware(func(context.Context, QueuedMessage) error { return want })

	if err := handler(context.Background(), QueuedMessage{}); !errors.Is(err, want) {
		t.Errorf("err = %v, want pass-through of handler error", err)
	}
}

func TestRegisterMiddlewareOrder(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8})

	var order []string
	tag := func(name string) MiddlewareRegistration {
		return MiddlewareRegistration{
			Name: name,
			Middleware: func(h Handler) Handler {
				return func(ctx context.Context, msg QueuedMessage) error {
					order = append(order, name)
					return h(ctx, msg)
				}
			},
		}
	}

	if err := q.RegisterMiddleware(tag("outer")); err != nil {
		t.Fatalf("RegisterMiddleware: %v", err)
	}
	if err := q.RegisterMiddleware(tag("inner")); err != nil {
		t.Fatalf("RegisterMiddleware: %v", err)
	}
	q.SetProcessor(func(context.Context, QueuedMessage) error {
		order = append(order, "handler")
		return nil
	})

	q.Enqueue(context.Background(), "x")
	forceProcessing(q)
	q.drainOnce(context.Background())

	want := []string{"outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("call order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("call order = %v, want %v", order, want)
		}
	}
}

func TestRegisterMiddlewareRequiresMiddlewareOrBuilder(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8})
	err := q.RegisterMiddleware(MiddlewareRegistration{Name: "empty"})
	if !errors.Is(err, errspkg.ErrMiddlewareRequired) {
		t.Fatalf("err = %v, want ErrMiddlewareRequired", err)
	}
}

func TestRegisterMiddlewareBuilderError(t *testing.T) {
	q := newTestQueue(t, config.Config{MaxSize: 8})
	want := errors.New("build failed")
	err := q.RegisterMiddleware(MiddlewareRegistration{
		Name:    "broken",
		Builder: func(*Queue) (ProcessorMiddleware, error) { return nil, want },
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want builder error", err)
	}
}

func TestDefaultMiddlewaresApplied(t *testing.T) {
	cfg := config.Config{MaxSize: 8}
	q, err := TryNew(&cfg, nil, Dependencies{})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}
	t.Cleanup(q.Dispose)

	var seen Metadata
	q.SetProcessor(func(_ context.Context, msg QueuedMessage) error {
		seen = msg.Metadata
		return nil
	})

	q.Enqueue(context.Background(), "x")
	forceProcessing(q)
	q.drainOnce(context.Background())

	if seen[MetadataKeyCorrelationID] == "" {
		t.Error("default chain did not stamp a correlation id")
	}
}

func TestTracerMiddlewareAttachesSpan(t *testing.T) {
	mw := TracerMiddleware()

	var observed trace.Span
	handler := mw.Middleware(func(ctx context.Context, _ QueuedMessage) error {
		observed = trace.SpanFromContext(ctx)
		return nil
	})

	msg := QueuedMessage{ID: "traced", Priority: PriorityHigh}
	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if observed == nil {
		t.Fatal("expected span to be attached to context")
	}
}

func TestDefaultChainRecoversPanics(t *testing.T) {
	cfg := config.Config{MaxSize: 8}
	q, err := TryNew(&cfg, nil, Dependencies{})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}
	t.Cleanup(q.Dispose)

	q.SetProcessor(func(context.Context, QueuedMessage) error {
		panic("processor exploded")
	})

	var errEvent Event
	q.On(EventProcessingError, func(ev Event) { errEvent = ev })

	q.Enqueue(context.Background(), "x")
	forceProcessing(q)
	q.drainOnce(context.Background())

	if errEvent.Err == nil {
		t.Fatal("panic did not surface as a processing-error event")
	}
	if q.Stats().TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1", q.Stats().TotalErrors)
	}
}
