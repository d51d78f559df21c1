package swap

import (
	"sync"
	"time"
)

// EMA smoothing factor: heavy enough history to absorb one-off failures,
// adaptive over tens of calls.
const emaAlpha = 0.1

// Optimistic prior for strategies that have never run.
const (
	priorSuccessRate = 0.9
	priorAverageTime = 30.0
)

// Performance is the rolling record for one strategy.
type Performance struct {
	SuccessRate        float64
	AverageTimeSeconds float64
	LastUpdated        time.Time
}

// performanceTracker keeps per-strategy EMA records for the life of the
// process. Concurrent updates take the lock per call; a lost update under
// contention only nudges a soft ranking heuristic, so no stronger coordination
// is needed.
type performanceTracker struct {
	mu      sync.RWMutex
	records map[string]Performance
	now     func() time.Time
}

func newPerformanceTracker() *performanceTracker {
	return &performanceTracker{
		records: make(map[string]Performance),
		now:     time.Now,
	}
}

// snapshot returns the current record, or the prior for a strategy that has
// never been updated.
func (t *performanceTracker) snapshot(name string) Performance {
	t.mu.RLock()
	record, ok := t.records[name]
	t.mu.RUnlock()
	if !ok {
		return Performance{SuccessRate: priorSuccessRate, AverageTimeSeconds: priorAverageTime}
	}
	return record
}

// update folds one attempt into the strategy's EMA record.
func (t *performanceTracker) update(name string, success bool, elapsed time.Duration) {
	sample := 0.0
	if success {
		sample = 1.0
	}
	seconds := elapsed.Seconds()

	t.mu.Lock()
	record, ok := t.records[name]
	if !ok {
		record = Performance{SuccessRate: priorSuccessRate, AverageTimeSeconds: priorAverageTime}
	}
	record.SuccessRate = record.SuccessRate*(1-emaAlpha) + sample*emaAlpha
	record.AverageTimeSeconds = record.AverageTimeSeconds*(1-emaAlpha) + seconds*emaAlpha
	record.LastUpdated = t.now()
	t.records[name] = record
	t.mu.Unlock()
}
