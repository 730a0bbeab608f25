package queue

import (
	"sync"

	"github.com/tradewatch/floodgate/internal/queue/config"
	"github.com/tradewatch/floodgate/internal/queue/logging"
)

var (
	sharedMu sync.Mutex
	shared   *Queue
)

// Shared returns the process-wide queue, creating it with the default
// configuration on first use. Packages that want a common buffer without
// threading an instance around can use it; everything else should construct
// its own Queue.
func Shared() *Queue {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		shared = New(&config.Config{}, logging.NopLogger{}, Dependencies{})
	}
	return shared
}

// SetShared replaces the process-wide queue. The previous instance, if any, is
// returned so the caller can dispose of it.
func SetShared(q *Queue) *Queue {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	prev := shared
	shared = q
	return prev
}

// ResetShared discards the process-wide queue after disposing it. The next
// Shared call creates a fresh default instance.
func ResetShared() {
	sharedMu.Lock()
	prev := shared
	shared = nil
	sharedMu.Unlock()

	if prev != nil {
		prev.Dispose()
	}
}
