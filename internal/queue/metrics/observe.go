package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradewatch/floodgate/internal/queue"
)

// Observe wires m to q's events so the collectors stay current without
// polling. The returned func detaches every listener again.
func Observe(q *queue.Queue, m *QueueMetrics) func() {
	unsubs := []func(){
		q.On(queue.EventEnqueued, func(ev queue.Event) {
			priority := queue.PriorityNormal.String()
			if ev.Message != nil {
				priority = ev.Message.Priority.String()
			}
			m.RecordEnqueued(priority, ev.Size)
			m.SetHealth(q.Health())
		}),
		q.On(queue.EventProcessed, func(ev queue.Event) {
			priority := queue.PriorityNormal.String()
			if ev.Message != nil {
				priority = ev.Message.Priority.String()
			}
			m.RecordProcessed(priority, ev.WaitTime.Seconds(), ev.ProcessingTime.Seconds())
		}),
		q.On(queue.EventProcessingError, func(ev queue.Event) {
			m.RecordError(ev.WaitTime.Seconds())
			m.SetHealth(q.Health())
		}),
		q.On(queue.EventDropped, func(ev queue.Event) {
			n := ev.BatchSize
			if n == 0 {
				n = 1
			}
			m.RecordDropped(string(ev.Reason), n)
		}),
		q.On(queue.EventBatchProcessed, func(ev queue.Event) {
			m.SetDepth(ev.Size)
			m.SetHealth(q.Health())
		}),
		q.On(queue.EventBackpressureStart, func(queue.Event) {
			m.SetBackpressure(true)
			m.SetHealth(q.Health())
		}),
		q.On(queue.EventBackpressureEnd, func(queue.Event) {
			m.SetBackpressure(false)
			m.SetHealth(q.Health())
		}),
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// Handler returns the Prometheus exposition handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
