package queue

import (
	"encoding/json"
	"sync"
	"time"
)

const rateWindowHorizon = time.Minute

// Statistics accumulates queue counters. It carries its own mutex so the
// scheduler can update counters without holding the queue mutex.
type Statistics struct {
	mu sync.Mutex

	totalEnqueued  uint64
	totalProcessed uint64
	totalDropped   uint64
	totalErrors    uint64

	// Wait time is measured from EnqueuedAt to dequeue for every drained
	// message, successful or not.
	totalWait     time.Duration
	waitedCount   uint64
	maxWait       time.Duration
	totalHandling time.Duration

	rate *rateWindow

	backpressureActive bool
	backpressureSince  time.Time
	backpressureTotal  time.Duration

	resources *resourceSampler
	createdAt time.Time
}

// StatsSnapshot is a point-in-time copy of the statistics, enriched with the
// store occupancy known only to the queue.
type StatsSnapshot struct {
	TotalEnqueued  uint64 `json:"total_enqueued"`
	TotalProcessed uint64 `json:"total_processed"`
	TotalDropped   uint64 `json:"total_dropped"`
	TotalErrors    uint64 `json:"total_errors"`

	// ProcessingRate is messages per second over the rolling window.
	ProcessingRate float64 `json:"processing_rate"`

	AvgWaitTime time.Duration `json:"avg_wait_time_ns"`
	MaxWaitTime time.Duration `json:"max_wait_time_ns"`

	BackpressureActive bool `json:"backpressure_active"`
	// BackpressureTime is cumulative, including the currently active span.
	BackpressureTime time.Duration `json:"backpressure_time_ns"`

	Size    int `json:"size"`
	MaxSize int `json:"max_size"`
	// Utilization is Size/MaxSize expressed as 0-100.
	Utilization float64 `json:"utilization"`

	Resource ResourceUsage `json:"resource"`

	CreatedAt   time.Time `json:"created_at"`
	CollectedAt time.Time `json:"collected_at"`
}

// ResourceUsage is a coarse sample of process-level resource consumption.
type ResourceUsage struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryBytes uint64  `json:"memory_bytes"`
	Goroutines  int     `json:"goroutines"`
}

func newStatistics() *Statistics {
	return &Statistics{
		rate:      newRateWindow(rateWindowHorizon),
		resources: newResourceSampler(),
		createdAt: time.Now().UTC(),
	}
}

func (s *Statistics) recordEnqueued(n int) {
	s.mu.Lock()
	s.totalEnqueued += uint64(n)
	s.mu.Unlock()
}

func (s *Statistics) recordDropped(n int) {
	s.mu.Lock()
	s.totalDropped += uint64(n)
	s.mu.Unlock()
}

func (s *Statistics) recordProcessed(wait, handling time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalProcessed++
	s.totalHandling += handling
	s.recordWaitLocked(wait)
	s.rate.Add(time.Now())
}

func (s *Statistics) recordError(wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalErrors++
	s.recordWaitLocked(wait)
}

func (s *Statistics) recordWaitLocked(wait time.Duration) {
	if wait < 0 {
		wait = 0
	}
	s.totalWait += wait
	s.waitedCount++
	if wait > s.maxWait {
		s.maxWait = wait
	}
}

// setBackpressure flips the active flag, folding a finished active span into
// the cumulative total. Returns the elapsed span when deactivating.
func (s *Statistics) setBackpressure(active bool, now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active == s.backpressureActive {
		return 0
	}

	if active {
		s.backpressureActive = true
		s.backpressureSince = now
		return 0
	}

	elapsed := now.Sub(s.backpressureSince)
	if elapsed < 0 {
		elapsed = 0
	}
	s.backpressureActive = false
	s.backpressureTotal += elapsed
	return elapsed
}

// Reset clears every counter. The queue never resets implicitly; dispose
// keeps the history intact.
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.backpressureActive {
		// Keep the condition but restart its clock so BackpressureTime
		// starts from zero like every other counter.
		s.backpressureSince = now
	}
	s.totalEnqueued = 0
	s.totalProcessed = 0
	s.totalDropped = 0
	s.totalErrors = 0
	s.totalWait = 0
	s.waitedCount = 0
	s.maxWait = 0
	s.totalHandling = 0
	s.backpressureTotal = 0
	s.rate = newRateWindow(rateWindowHorizon)
}

// snapshot copies the counters. Size, MaxSize and Utilization are filled in
// by the queue, which owns the store.
func (s *Statistics) snapshot(now time.Time) StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		TotalEnqueued:      s.totalEnqueued,
		TotalProcessed:     s.totalProcessed,
		TotalDropped:       s.totalDropped,
		TotalErrors:        s.totalErrors,
		ProcessingRate:     s.rate.Rate(now),
		MaxWaitTime:        s.maxWait,
		BackpressureActive: s.backpressureActive,
		BackpressureTime:   s.backpressureTotal,
		Resource:           s.resources.usage(),
		CreatedAt:          s.createdAt,
		CollectedAt:        now.UTC(),
	}
	if s.waitedCount > 0 {
		snap.AvgWaitTime = s.totalWait / time.Duration(s.waitedCount)
	}
	if s.backpressureActive {
		active := now.Sub(s.backpressureSince)
		if active > 0 {
			snap.BackpressureTime += active
		}
	}
	return snap
}

// MarshalJSON serialises a snapshot of the live statistics.
func (s *Statistics) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.snapshot(time.Now()))
}

// Health score deductions. Deductions are independent and additive; the
// result is clamped to [0, 100].
const (
	healthMax = 100

	deductionCriticalUtilization = 40 // utilization > 90%
	deductionHighUtilization     = 20 // utilization > 70%
	deductionErrorRate           = 30 // errors/enqueued > 10%
	deductionSlowWait            = 20 // average wait > 5s
	deductionBackpressure        = 15 // backpressure active

	criticalUtilizationPct = 90
	highUtilizationPct     = 70
	errorRateThreshold     = 0.10
	slowWaitThreshold      = 5 * time.Second
)

// CalculateHealth derives a 0-100 health score from a snapshot.
func CalculateHealth(snap StatsSnapshot) int {
	score := healthMax

	switch {
	case snap.Utilization > criticalUtilizationPct:
		score -= deductionCriticalUtilization
	case snap.Utilization > highUtilizationPct:
		score -= deductionHighUtilization
	}

	if snap.TotalEnqueued > 0 {
		errorRate := float64(snap.TotalErrors) / float64(snap.TotalEnqueued)
		if errorRate > errorRateThreshold {
			score -= deductionErrorRate
		}
	}

	if snap.AvgWaitTime > slowWaitThreshold {
		score -= deductionSlowWait
	}

	if snap.BackpressureActive {
		score -= deductionBackpressure
	}

	if score < 0 {
		score = 0
	}
	return score
}

// rateWindow tracks event timestamps inside a rolling horizon to derive a
// throughput figure.
type rateWindow struct {
	horizon time.Duration
	samples []time.Time
}

func newRateWindow(horizon time.Duration) *rateWindow {
	return &rateWindow{
		horizon: horizon,
		samples: make([]time.Time, 0, 64),
	}
}

func (rw *rateWindow) Add(now time.Time) {
	rw.samples = append(rw.samples, now)
	rw.cleanup(now)
}

func (rw *rateWindow) cleanup(now time.Time) {
	if len(rw.samples) == 0 {
		return
	}
	cutoff := now.Add(-rw.horizon)
	idx := 0
	for idx < len(rw.samples) && rw.samples[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		copy(rw.samples, rw.samples[idx:])
		rw.samples = rw.samples[:len(rw.samples)-idx]
	}
}

// Rate returns events per second over the observed span of the window.
func (rw *rateWindow) Rate(now time.Time) float64 {
	rw.cleanup(now)
	if len(rw.samples) == 0 {
		return 0
	}
	span := now.Sub(rw.samples[0])
	if span <= 0 {
		span = time.Nanosecond
	}
	return float64(len(rw.samples)) / span.Seconds()
}
