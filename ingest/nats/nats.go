// Package nats provides a NATS Core source for floodgate.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/tradewatch/floodgate"
	"github.com/tradewatch/floodgate/ingest"
)

// SourceName is the name used to register this source.
const SourceName = "nats"

// ConnectFactory allows overriding the connection creation for testing.
var ConnectFactory = func(url string, opts ...nats.Option) (*nats.Conn, error) {
	return nats.Connect(url, opts...)
}

// Register registers the NATS source with the default registry. This should
// be called from an init() function in an importing package, or explicitly
// before using the source.
func Register() {
	ingest.RegisterWithCapabilities(SourceName, Build, ingest.NATSCapabilities)
}

// Source subscribes to trade subjects on a NATS connection and enqueues every
// received trade.
type Source struct {
	conn       *nats.Conn
	subjects   []string
	queueGroup string
	logger     floodgate.ServiceLogger
}

// Build creates a new NATS source.
func Build(_ context.Context, cfg ingest.Config, logger floodgate.ServiceLogger) (ingest.Source, error) {
	if cfg == nil {
		return nil, floodgate.ErrConfigRequired
	}
	if logger == nil {
		logger = floodgate.NopLogger{}
	}

	subjects := cfg.GetNATSSubjects()
	if len(subjects) == 0 {
		return nil, fmt.Errorf("nats: at least one subject is required")
	}

	conn, err := ConnectFactory(cfg.GetNATSURL())
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}

	return &Source{
		conn:       conn,
		subjects:   subjects,
		queueGroup: cfg.GetNATSQueueGroup(),
		logger:     logger,
	}, nil
}

// Run subscribes to the configured subjects and blocks until the context is
// cancelled or the connection is closed.
func (s *Source) Run(ctx context.Context, q *floodgate.Queue) error {
	if q == nil {
		return floodgate.ErrSinkRequired
	}

	handler := func(msg *nats.Msg) {
		if _, err := ingest.EnqueueTrade(ctx, q, msg.Data); err != nil {
			s.logger.Error("Dropping NATS message", err, floodgate.LogFields{
				"subject": msg.Subject,
			})
		}
	}

	subs := make([]*nats.Subscription, 0, len(s.subjects))
	for _, subject := range s.subjects {
		var (
			sub *nats.Subscription
			err error
		)
		if s.queueGroup != "" {
			sub, err = s.conn.QueueSubscribe(subject, s.queueGroup, handler)
		} else {
			sub, err = s.conn.Subscribe(subject, handler)
		}
		if err != nil {
			for _, active := range subs {
				_ = active.Unsubscribe()
			}
			return fmt.Errorf("nats: subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	s.logger.Info("NATS source running", floodgate.LogFields{
		"subjects":    s.subjects,
		"queue_group": s.queueGroup,
	})

	<-ctx.Done()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return ctx.Err()
}

// Close drains the connection so in-flight handlers finish before it closes.
func (s *Source) Close() error {
	if s.conn == nil || s.conn.IsClosed() {
		return nil
	}
	return s.conn.Drain()
}

// Capabilities returns the capabilities of this source.
func Capabilities() ingest.Capabilities {
	return ingest.NATSCapabilities
}
