package queue

import (
	"context"
	"time"

	"github.com/tradewatch/floodgate/internal/queue/logging"
)

// MessageContext provides information about a message execution to hooks.
type MessageContext struct {
	// MessageID is the unique identifier of the message.
	MessageID string
	// Priority is the priority class the message was enqueued with.
	Priority Priority
	// Metadata contains the message metadata.
	Metadata Metadata
	// StartedAt is when the processor began handling the message.
	StartedAt time.Time
	// WaitTime is how long the message sat in the queue before processing.
	WaitTime time.Duration
	// Duration is how long the processor took (only set in OnMessageDone and
	// OnMessageError).
	Duration time.Duration
}

// ProcessingHooks defines callbacks for message lifecycle events.
// All hooks are optional - nil hooks are simply not called.
type ProcessingHooks struct {
	// OnMessageStart is called when the processor begins handling a message.
	OnMessageStart func(ctx MessageContext)

	// OnMessageDone is called when the processor completes successfully.
	// Duration will be set to how long the processor took.
	OnMessageDone func(ctx MessageContext)

	// OnMessageError is called when the processor returns an error.
	// Duration will be set to how long the processor took before failing.
	OnMessageError func(ctx MessageContext, err error)
}

// Merge combines two ProcessingHooks, creating a new ProcessingHooks that
// calls both. The hooks from 'other' are called after the hooks from 'h'.
func (h ProcessingHooks) Merge(other ProcessingHooks) ProcessingHooks {
	return ProcessingHooks{
		OnMessageStart: chainStartHooks(h.OnMessageStart, other.OnMessageStart),
		OnMessageDone:  chainDoneHooks(h.OnMessageDone, other.OnMessageDone),
		OnMessageError: chainErrorHooks(h.OnMessageError, other.OnMessageError),
	}
}

func chainStartHooks(a, b func(MessageContext)) func(MessageContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx MessageContext) {
		a(ctx)
		b(ctx)
	}
}

func chainDoneHooks(a, b func(MessageContext)) func(MessageContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx MessageContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(MessageContext, error)) func(MessageContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx MessageContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// HooksMiddleware creates a middleware that invokes the provided hooks at the
// appropriate points around processor execution.
func HooksMiddleware(hooks ProcessingHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "processing_hooks",
		Middleware: hooksMiddleware(hooks),
	}
}

func hooksMiddleware(hooks ProcessingHooks) ProcessorMiddleware {
	return func(h Handler) Handler {
		return func(ctx context.Context, msg QueuedMessage) error {
			startTime := time.Now()

			msgCtx := MessageContext{
				MessageID: msg.ID,
				Priority:  msg.Priority,
				Metadata:  msg.Metadata,
				StartedAt: startTime,
				WaitTime:  startTime.Sub(msg.EnqueuedAt),
			}

			if hooks.OnMessageStart != nil {
				hooks.OnMessageStart(msgCtx)
			}

			err := h(ctx, msg)

			msgCtx.Duration = time.Since(startTime)

			if err != nil {
				if hooks.OnMessageError != nil {
					hooks.OnMessageError(msgCtx, err)
				}
			} else {
				if hooks.OnMessageDone != nil {
					hooks.OnMessageDone(msgCtx)
				}
			}

			return err
		}
	}
}

// LoggingHooks returns pre-built hooks that log message lifecycle events.
func LoggingHooks(logger logging.ServiceLogger) ProcessingHooks {
	return ProcessingHooks{
		OnMessageStart: func(ctx MessageContext) {
			logger.Debug("Message processing started", logging.LogFields{
				"message_id": ctx.MessageID,
				"priority":   ctx.Priority.String(),
				"wait_ms":    ctx.WaitTime.Milliseconds(),
			})
		},
		OnMessageDone: func(ctx MessageContext) {
			logger.Info("Message processed", logging.LogFields{
				"message_id":  ctx.MessageID,
				"priority":    ctx.Priority.String(),
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
		OnMessageError: func(ctx MessageContext, err error) {
			logger.Error("Message processing failed", err, logging.LogFields{
				"message_id":  ctx.MessageID,
				"priority":    ctx.Priority.String(),
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
	}
}

// MetricsHooks returns pre-built hooks that forward lifecycle events to
// counter callbacks.
func MetricsHooks(onStart, onDone, onError func(priority string)) ProcessingHooks {
	return ProcessingHooks{
		OnMessageStart: func(ctx MessageContext) {
			if onStart != nil {
				onStart(ctx.Priority.String())
			}
		},
		OnMessageDone: func(ctx MessageContext) {
			if onDone != nil {
				onDone(ctx.Priority.String())
			}
		},
		OnMessageError: func(ctx MessageContext, err error) {
			if onError != nil {
				onError(ctx.Priority.String())
			}
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on processing
// errors.
func AlertingHooks(alertFunc func(ctx MessageContext, err error)) ProcessingHooks {
	return ProcessingHooks{
		OnMessageError: alertFunc,
	}
}
