// Package metrics exposes queue activity as Prometheus collectors. The
// collectors are fed from queue events, so enabling them costs one listener
// per event type and nothing on the hot path when disabled.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics tracks queue statistics as Prometheus collectors.
type QueueMetrics struct {
	mu sync.Mutex

	enqueuedTotal  *prometheus.CounterVec
	processedTotal *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	errorsTotal    prometheus.Counter

	depth              prometheus.Gauge
	health             prometheus.Gauge
	backpressureActive prometheus.Gauge

	waitSeconds       prometheus.Histogram
	processingSeconds prometheus.Histogram

	registerer prometheus.Registerer
	registered bool
}

// newQueueCounterVec creates a counter vec with the standard floodgate/queue
// namespace.
func newQueueCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "floodgate",
			Subsystem: "queue",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newQueueGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "floodgate",
		Subsystem: "queue",
		Name:      name,
		Help:      help,
	})
}

func newQueueHistogram(name, help string, buckets []float64) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "floodgate",
		Subsystem: "queue",
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

// NewQueueMetrics creates a queue metrics collector. A nil registerer falls
// back to the Prometheus default.
func NewQueueMetrics(registerer prometheus.Registerer) *QueueMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &QueueMetrics{
		registerer:     registerer,
		enqueuedTotal:  newQueueCounterVec("enqueued_total", "Total number of messages accepted into the queue", []string{"priority"}),
		processedTotal: newQueueCounterVec("processed_total", "Total number of messages handed to the processor successfully", []string{"priority"}),
		droppedTotal:   newQueueCounterVec("dropped_total", "Total number of messages dropped without processing", []string{"reason"}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodgate",
			Subsystem: "queue",
			Name:      "errors_total",
			Help:      "Total number of processor errors, including recovered panics",
		}),
		depth:              newQueueGauge("depth", "Current number of buffered messages"),
		health:             newQueueGauge("health", "Derived queue health score from 0 to 100"),
		backpressureActive: newQueueGauge("backpressure_active", "Whether the backpressure condition is currently active (0 or 1)"),
		waitSeconds:        newQueueHistogram("wait_seconds", "Time messages spent buffered before processing", []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}),
		processingSeconds:  newQueueHistogram("processing_seconds", "Time the processor spent per message", []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *QueueMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.enqueuedTotal,
		m.processedTotal,
		m.droppedTotal,
		m.errorsTotal,
		m.depth,
		m.health,
		m.backpressureActive,
		m.waitSeconds,
		m.processingSeconds,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordEnqueued records an accepted message and the resulting depth.
func (m *QueueMetrics) RecordEnqueued(priority string, depth int) {
	m.enqueuedTotal.WithLabelValues(priority).Inc()
	m.depth.Set(float64(depth))
}

// RecordProcessed records a successfully processed message.
func (m *QueueMetrics) RecordProcessed(priority string, waitSeconds, processingSeconds float64) {
	m.processedTotal.WithLabelValues(priority).Inc()
	m.waitSeconds.Observe(waitSeconds)
	m.processingSeconds.Observe(processingSeconds)
}

// RecordDropped records n messages leaving the queue unprocessed.
func (m *QueueMetrics) RecordDropped(reason string, n int) {
	m.droppedTotal.WithLabelValues(reason).Add(float64(n))
}

// RecordError records a processor failure.
func (m *QueueMetrics) RecordError(waitSeconds float64) {
	m.errorsTotal.Inc()
	m.waitSeconds.Observe(waitSeconds)
}

// SetDepth updates the depth gauge.
func (m *QueueMetrics) SetDepth(depth int) {
	m.depth.Set(float64(depth))
}

// SetHealth updates the health gauge.
func (m *QueueMetrics) SetHealth(score int) {
	m.health.Set(float64(score))
}

// SetBackpressure flips the backpressure gauge.
func (m *QueueMetrics) SetBackpressure(active bool) {
	if active {
		m.backpressureActive.Set(1)
	} else {
		m.backpressureActive.Set(0)
	}
}
