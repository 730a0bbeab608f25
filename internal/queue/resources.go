package queue

import (
	"runtime"
	"runtime/metrics"
	"sync"
	"time"
)

// cpuMetric is the runtime/metrics sample backing the CPU estimate. The
// reading is cumulative scheduler CPU time for the whole process.
const cpuMetric = "/sched/cpu:seconds"

// resourceSampler derives process-level resource usage for stats snapshots.
// CPU is estimated from the delta between consecutive samples, so the first
// reading after construction reports zero.
type resourceSampler struct {
	mu      sync.Mutex
	samples []metrics.Sample
	prevCPU float64
	prevAt  time.Time
	numCPU  float64
}

func newResourceSampler() *resourceSampler {
	return &resourceSampler{
		samples: []metrics.Sample{{Name: cpuMetric}},
		numCPU:  float64(runtime.NumCPU()),
	}
}

// usage reads the current sample and folds it into a ResourceUsage. Safe on
// a nil sampler so snapshot paths never have to guard for one.
func (r *resourceSampler) usage() ResourceUsage {
	if r == nil {
		return ResourceUsage{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cpuPercent := r.cpuPercentLocked(time.Now())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return ResourceUsage{
		CPUPercent:  cpuPercent,
		MemoryBytes: mem.Alloc,
		Goroutines:  runtime.NumGoroutine(),
	}
}

// cpuPercentLocked converts the growth in cumulative CPU seconds since the
// previous call into a whole-process percentage normalised by NumCPU.
func (r *resourceSampler) cpuPercentLocked(now time.Time) float64 {
	if len(r.samples) == 0 {
		r.samples = []metrics.Sample{{Name: cpuMetric}}
	}
	metrics.Read(r.samples)

	sample := r.samples[0]
	if sample.Value.Kind() != metrics.KindFloat64 {
		// Metric unavailable on this runtime; keep the clock moving so a
		// later successful read still has a wall-time base.
		r.prevAt = now
		return 0
	}
	cpuSeconds := sample.Value.Float64()

	var percent float64
	if !r.prevAt.IsZero() {
		deltaCPU := cpuSeconds - r.prevCPU
		deltaWall := now.Sub(r.prevAt).Seconds()
		if deltaWall > 0 && r.numCPU > 0 {
			percent = (deltaCPU / deltaWall) / r.numCPU * 100
		}
	}
	r.prevCPU = cpuSeconds
	r.prevAt = now
	return percent
}
