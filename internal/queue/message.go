package queue

import (
	"time"

	"github.com/tradewatch/floodgate/internal/queue/ids"
	"github.com/tradewatch/floodgate/internal/queue/metadata"
)

// Metadata re-exposes the metadata map type alongside the message envelope.
type Metadata = metadata.Metadata

// Priority orders messages across classes when priority ordering is enabled.
// The zero value is PriorityNormal so callers that never think about priority
// get FIFO behaviour.
type Priority int8

const (
	PriorityLow    Priority = -1
	PriorityNormal Priority = 0
	PriorityHigh   Priority = 1
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}

// ParsePriority maps the wire names "high", "normal" and "low" onto Priority.
// Unknown names fall back to PriorityNormal.
func ParsePriority(s string) Priority {
	switch s {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// QueuedMessage is the immutable envelope around a caller-supplied payload.
// Once accepted, ID, Payload, Priority and EnqueuedAt never change; only the
// message's position in the store does.
type QueuedMessage struct {
	ID         string
	Payload    any
	Priority   Priority
	EnqueuedAt time.Time
	Metadata   Metadata
}

// FailureReason classifies why an enqueue did not accept a message.
type FailureReason string

const (
	ReasonQueueFull FailureReason = "queueFull"
	ReasonDisposed  FailureReason = "disposed"
	ReasonCancelled FailureReason = "cancelled"
)

// EnqueueResult reports the outcome of a single enqueue call.
type EnqueueResult struct {
	Success   bool
	MessageID string
	// Position is the index the message was inserted at, counted from the
	// head of the store. Only meaningful when Success is true.
	Position int
	Reason   FailureReason
}

type enqueueOptions struct {
	id       string
	priority Priority
	metadata Metadata
}

// EnqueueOption customises a single enqueue call.
type EnqueueOption func(*enqueueOptions)

// WithID supplies the message identifier instead of generating a ULID.
func WithID(id string) EnqueueOption {
	return func(o *enqueueOptions) { o.id = id }
}

// WithPriority assigns the message's priority class.
func WithPriority(p Priority) EnqueueOption {
	return func(o *enqueueOptions) { o.priority = p }
}

// WithMetadata attaches caller metadata to the message. The map is cloned so
// later caller mutations do not reach the stored envelope.
func WithMetadata(md Metadata) EnqueueOption {
	return func(o *enqueueOptions) { o.metadata = md.Clone() }
}

// WithMetadataValue attaches a single metadata key/value pair.
func WithMetadataValue(key, value string) EnqueueOption {
	return func(o *enqueueOptions) {
		if o.metadata == nil {
			o.metadata = metadata.New()
		}
		o.metadata[key] = value
	}
}

func buildMessage(payload any, opts []EnqueueOption) *QueuedMessage {
	var o enqueueOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = ids.CreateULID()
	}
	return &QueuedMessage{
		ID:       o.id,
		Payload:  payload,
		Priority: o.priority,
		Metadata: o.metadata,
	}
}
