// Package channel provides an in-memory Watermill channel source for
// floodgate. This source is useful for testing and local development.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tradewatch/floodgate"
	"github.com/tradewatch/floodgate/ingest"
)

// SourceName is the name used to register this source.
const SourceName = "channel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	ingest.RegisterWithCapabilities(SourceName, Build, ingest.ChannelCapabilities)
}

// Source forwards trades published on an in-memory topic into a queue.
type Source struct {
	topic      string
	logger     floodgate.ServiceLogger
	publisher  message.Publisher
	subscriber message.Subscriber
}

// Build creates a new channel source.
func Build(_ context.Context, cfg ingest.Config, logger floodgate.ServiceLogger) (ingest.Source, error) {
	if cfg == nil {
		return nil, floodgate.ErrConfigRequired
	}
	if logger == nil {
		logger = floodgate.NopLogger{}
	}

	pub, sub := Factory(gochannel.Config{}, floodgate.NewWatermillAdapter(logger))
	return &Source{
		topic:      cfg.GetChannelTopic(),
		logger:     logger,
		publisher:  pub,
		subscriber: sub,
	}, nil
}

// Publisher exposes the in-memory publisher so tests and local producers can
// push trades into the source.
func (s *Source) Publisher() message.Publisher {
	return s.publisher
}

// Run subscribes to the configured topic and enqueues every trade until the
// context is cancelled or the source is closed.
func (s *Source) Run(ctx context.Context, q *floodgate.Queue) error {
	if q == nil {
		return floodgate.ErrSinkRequired
	}

	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.deliver(ctx, q, msg)
		}
	}
}

func (s *Source) deliver(ctx context.Context, q *floodgate.Queue, msg *message.Message) {
	if _, err := ingest.EnqueueTrade(ctx, q, msg.Payload); err != nil {
		s.logger.Error("Dropping channel message", err, floodgate.LogFields{
			"topic":        s.topic,
			"message_uuid": msg.UUID,
		})
	}
	// In-memory streams have no redelivery worth waiting for.
	msg.Ack()
}

// Close shuts the underlying pubsub down, ending a blocked Run.
func (s *Source) Close() error {
	return s.subscriber.Close()
}

// Capabilities returns the capabilities of this source.
func Capabilities() ingest.Capabilities {
	return ingest.ChannelCapabilities
}
