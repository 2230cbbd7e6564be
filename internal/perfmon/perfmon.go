// Package perfmon keeps a bounded window of recent search timings.
package perfmon

import (
	"math"
	"sync"
	"time"
)

// Defaults for the monitor window.
const (
	DefaultCapacity      = 100
	DefaultSlowThreshold = 1000.0
	recentCount          = 10
)

// Sample is one recorded search.
type Sample struct {
	Query       string    `json:"query"`
	DurationMs  float64   `json:"duration_ms"`
	ResultCount int       `json:"result_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Snapshot is a read-only view of the monitor state.
type Snapshot struct {
	TotalSearches   int      `json:"total_searches"`
	AverageTimeMs   float64  `json:"average_time_ms"`
	SlowSearchCount int      `json:"slow_search_count"`
	RecentSearches  []Sample `json:"recent_searches"`
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithCapacity sets the ring size.
func WithCapacity(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithSlowThreshold sets the default slow threshold in milliseconds.
func WithSlowThreshold(ms float64) Option {
	return func(m *Monitor) {
		if ms > 0 {
			m.slowThreshold = ms
		}
	}
}

// WithClock overrides the sample timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithSlowHook registers a callback invoked for every sample above the slow threshold.
func WithSlowHook(fn func(Sample)) Option {
	return func(m *Monitor) { m.onSlow = fn }
}

// Monitor is a fixed-capacity FIFO of samples, safe for concurrent use.
// It never returns errors; malformed samples are dropped.
type Monitor struct {
	mu            sync.RWMutex
	ring          []Sample
	next          int
	full          bool
	capacity      int
	slowThreshold float64
	now           func() time.Time
	onSlow        func(Sample)
}

// New creates a monitor.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		capacity:      DefaultCapacity,
		slowThreshold: DefaultSlowThreshold,
		now:           time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.ring = make([]Sample, m.capacity)
	return m
}

// StartTimer returns a closure reporting elapsed milliseconds.
// time.Since reads the monotonic clock reading captured by time.Now.
func (m *Monitor) StartTimer() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start)) / float64(time.Millisecond)
	}
}

// RecordSearch appends a sample, evicting the oldest when the ring is full.
func (m *Monitor) RecordSearch(query string, durationMs float64, resultCount int) {
	if m == nil || durationMs < 0 || math.IsNaN(durationMs) || math.IsInf(durationMs, 0) || resultCount < 0 {
		return
	}
	s := Sample{Query: query, DurationMs: durationMs, ResultCount: resultCount, Timestamp: m.now()}

	m.mu.Lock()
	m.ring[m.next] = s
	m.next = (m.next + 1) % m.capacity
	if m.next == 0 {
		m.full = true
	}
	m.mu.Unlock()

	if m.onSlow != nil && durationMs > m.slowThreshold {
		m.onSlow(s)
	}
}

// AverageSearchTime returns the mean duration, 0 when empty.
func (m *Monitor) AverageSearchTime() float64 {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return average(m.ordered())
}

// SlowSearches returns retained samples strictly above thresholdMs, oldest first.
// A negative or NaN threshold uses the configured default; 0 returns every sample.
func (m *Monitor) SlowSearches(thresholdMs float64) []Sample {
	if m == nil {
		return []Sample{}
	}
	if thresholdMs < 0 || math.IsNaN(thresholdMs) {
		thresholdMs = m.slowThreshold
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slow(m.ordered(), thresholdMs)
}

// Metrics assembles a snapshot using the default slow threshold.
func (m *Monitor) Metrics() Snapshot {
	if m == nil {
		return Snapshot{RecentSearches: []Sample{}}
	}
	m.mu.RLock()
	samples := m.ordered()
	m.mu.RUnlock()

	recent := samples
	if len(recent) > recentCount {
		recent = recent[len(recent)-recentCount:]
	}
	return Snapshot{
		TotalSearches:   len(samples),
		AverageTimeMs:   average(samples),
		SlowSearchCount: len(slow(samples, m.slowThreshold)),
		RecentSearches:  append(make([]Sample, 0, len(recent)), recent...),
	}
}

// SlowThreshold returns the configured default threshold.
func (m *Monitor) SlowThreshold() float64 {
	if m == nil {
		return DefaultSlowThreshold
	}
	return m.slowThreshold
}

// ordered returns a copy of retained samples, oldest first. Caller holds the lock.
func (m *Monitor) ordered() []Sample {
	if !m.full {
		return append([]Sample(nil), m.ring[:m.next]...)
	}
	out := make([]Sample, 0, m.capacity)
	out = append(out, m.ring[m.next:]...)
	return append(out, m.ring[:m.next]...)
}

func average(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.DurationMs
	}
	return sum / float64(len(samples))
}

func slow(samples []Sample, threshold float64) []Sample {
	out := []Sample{}
	for _, s := range samples {
		if s.DurationMs > threshold {
			out = append(out, s)
		}
	}
	return out
}
