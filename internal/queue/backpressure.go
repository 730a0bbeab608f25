package queue

import (
	"time"

	"github.com/tradewatch/floodgate/internal/queue/config"
)

// backpressureController tracks utilization against the water marks and owns
// the active/inactive hysteresis: the condition starts the instant the size
// reaches the high mark and ends only when it falls to the low mark, so it
// cannot flap at a single threshold. All methods run under the queue mutex.
type backpressureController struct {
	highWaterMark int
	lowWaterMark  int
	strategy      config.Strategy

	active bool
	since  time.Time
}

func newBackpressureController(cfg config.Config) *backpressureController {
	return &backpressureController{
		highWaterMark: cfg.HighWaterMark,
		lowWaterMark:  cfg.LowWaterMark,
		strategy:      cfg.Strategy,
	}
}

// evaluate re-checks the condition for the given store size and returns the
// transition events to emit, if any. stats is kept in sync so snapshots see
// the active flag and cumulative active time.
func (b *backpressureController) evaluate(size int, stats *Statistics) []Event {
	now := time.Now()

	if !b.active && size >= b.highWaterMark {
		b.active = true
		b.since = now
		stats.setBackpressure(true, now)
		return []Event{{
			Type:     EventBackpressureStart,
			At:       now,
			Size:     size,
			Strategy: b.strategy,
		}}
	}

	if b.active && size <= b.lowWaterMark {
		b.active = false
		elapsed := stats.setBackpressure(false, now)
		return []Event{{
			Type:     EventBackpressureEnd,
			At:       now,
			Size:     size,
			Duration: elapsed,
		}}
	}

	return nil
}

// deactivate force-ends an active condition, returning the end event. Used on
// dispose so the cumulative active time is folded in.
func (b *backpressureController) deactivate(stats *Statistics) []Event {
	if !b.active {
		return nil
	}
	now := time.Now()
	b.active = false
	elapsed := stats.setBackpressure(false, now)
	return []Event{{
		Type:     EventBackpressureEnd,
		At:       now,
		Duration: elapsed,
	}}
}
