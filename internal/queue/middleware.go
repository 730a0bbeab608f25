package queue

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tradewatch/floodgate/internal/queue/ids"
	"github.com/tradewatch/floodgate/internal/queue/logging"
)

// MetadataKeyCorrelationID is where the correlation ID middleware stores the
// generated identifier.
const MetadataKeyCorrelationID = "correlation_id"

// ProcessorMiddleware wraps processor execution. Middleware registered
// earlier runs outermost.
type ProcessorMiddleware func(Handler) Handler

// MiddlewareBuilder constructs a middleware using the owning queue instance.
type MiddlewareBuilder func(*Queue) (ProcessorMiddleware, error)

// MiddlewareRegistration captures how a middleware should be registered on a
// queue.
type MiddlewareRegistration struct {
	Name       string
	Middleware ProcessorMiddleware
	Builder    MiddlewareBuilder
}

// DefaultMiddlewares returns the standard chain used by the queue
// constructor: correlation IDs, debug logging, tracing, panic recovery.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogMessagesMiddleware(nil),
		TracerMiddleware(),
		RecovererMiddleware(),
	}
}

// CorrelationIDMiddleware ensures each processed message carries a
// correlation identifier. The message's metadata is cloned before mutation so
// the stored envelope stays untouched.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "correlation_id",
		Middleware: func(h Handler) Handler {
			return func(ctx context.Context, msg QueuedMessage) error {
				if _, ok := msg.Metadata[MetadataKeyCorrelationID]; !ok {
					msg.Metadata = msg.Metadata.With(MetadataKeyCorrelationID, ids.CreateULID())
				}
				return h(ctx, msg)
			}
		},
	}
}

// LogMessagesMiddleware logs every handled message at debug level. Passing a
// nil logger uses the queue's own.
func LogMessagesMiddleware(logger logging.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_messages",
		Builder: func(q *Queue) (ProcessorMiddleware, error) {
			l := logger
			if l == nil {
				l = q.Logger()
			}
			return func(h Handler) Handler {
				return func(ctx context.Context, msg QueuedMessage) error {
					l.Debug("Processing message", logging.LogFields{
						"message_id": msg.ID,
						"priority":   msg.Priority.String(),
						"metadata":   msg.Metadata,
					})
					return h(ctx, msg)
				}
			}, nil
		},
	}
}

// TracerMiddleware wraps processor execution in an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Middleware: func(h Handler) Handler {
			return func(ctx context.Context, msg QueuedMessage) error {
				tracer := otel.Tracer("floodgate-queue-tracer")
				ctx, span := tracer.Start(ctx, "ProcessMessage")
				defer span.End()

				span.SetAttributes(
					attribute.String("message.id", msg.ID),
					attribute.String("message.priority", msg.Priority.String()),
				)
				return h(ctx, msg)
			}
		},
	}
}

// RecovererMiddleware converts processor panics into errors so they are
// counted and surfaced like any other processing failure.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "recoverer",
		Middleware: func(h Handler) Handler {
			return func(ctx context.Context, msg QueuedMessage) (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("floodgate: processor panicked: %v", r)
					}
				}()
				return h(ctx, msg)
			}
		},
	}
}
