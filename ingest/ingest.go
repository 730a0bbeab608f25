// Package ingest defines the producer-boundary sources that feed a floodgate
// queue from external streams. Each source implementation (nats, channel)
// lives in its own sub-package and registers itself with the source registry.
package ingest

import (
	"context"
	"time"

	"github.com/tradewatch/floodgate"
)

// Source bridges an external stream onto a queue. Run blocks until the
// context is cancelled or the stream ends; Close releases the underlying
// connection and makes a blocked Run return.
type Source interface {
	Run(ctx context.Context, q *floodgate.Queue) error
	Close() error
}

// Builder is the function signature for creating a source from config.
// Each source package should provide a Builder function that can be
// registered.
type Builder func(ctx context.Context, cfg Config, logger floodgate.ServiceLogger) (Source, error)

// Config provides the configuration values needed by sources. The interface
// lets each source access only the settings it needs without depending on a
// full config struct.
type Config interface {
	// GetSourceSystem returns the source type name.
	GetSourceSystem() string

	// NATS
	GetNATSURL() string
	GetNATSSubjects() []string
	GetNATSQueueGroup() string

	// Channel
	GetChannelTopic() string
}

// StaticConfig is a plain-struct Config implementation for applications that
// do not carry their own configuration layer.
type StaticConfig struct {
	SourceSystem string

	NATSURL        string
	NATSSubjects   []string
	NATSQueueGroup string

	ChannelTopic string
}

func (c StaticConfig) GetSourceSystem() string   { return c.SourceSystem }
func (c StaticConfig) GetNATSURL() string        { return c.NATSURL }
func (c StaticConfig) GetNATSSubjects() []string { return c.NATSSubjects }
func (c StaticConfig) GetNATSQueueGroup() string { return c.NATSQueueGroup }
func (c StaticConfig) GetChannelTopic() string   { return c.ChannelTopic }

// TradeEvent is the wire model for one executed trade on a market feed.
type TradeEvent struct {
	TradeID   string    `json:"trade_id"`
	Market    string    `json:"market"`
	Side      string    `json:"side"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

// Notional is the traded value in quote currency.
func (e TradeEvent) Notional() float64 {
	return e.Price * e.Quantity
}

// Notional thresholds for the default priority mapping.
const (
	LargeNotional = 100_000
	SmallNotional = 1_000
)

// PriorityFor maps a trade onto a queue priority class: large-notional trades
// jump the line, dust trades yield to everything else.
func PriorityFor(e TradeEvent) floodgate.Priority {
	notional := e.Notional()
	switch {
	case notional >= LargeNotional:
		return floodgate.PriorityHigh
	case notional < SmallNotional:
		return floodgate.PriorityLow
	default:
		return floodgate.PriorityNormal
	}
}

// DecodeTradeEvent parses the JSON wire form of a trade.
func DecodeTradeEvent(data []byte) (TradeEvent, error) {
	var ev TradeEvent
	if err := floodgate.UnmarshalJSON(data, &ev); err != nil {
		return TradeEvent{}, err
	}
	return ev, nil
}

// EnqueueTrade decodes data and enqueues the trade with its derived priority
// and identifying metadata. Malformed payloads are returned as errors without
// touching the queue.
func EnqueueTrade(ctx context.Context, q *floodgate.Queue, data []byte) (floodgate.EnqueueResult, error) {
	if q == nil {
		return floodgate.EnqueueResult{}, floodgate.ErrSinkRequired
	}

	ev, err := DecodeTradeEvent(data)
	if err != nil {
		return floodgate.EnqueueResult{}, err
	}

	opts := []floodgate.EnqueueOption{
		floodgate.WithPriority(PriorityFor(ev)),
		floodgate.WithMetadataValue("market", ev.Market),
	}
	if ev.TradeID != "" {
		opts = append(opts, floodgate.WithID(ev.TradeID))
	}
	return q.Enqueue(ctx, ev, opts...)
}
