package gorun

import "sync/atomic"

// Metrics tracks low-overhead runtime statistics (grounded on the
// teacher's own optional counters in eventloop/metrics.go, scaled down to
// the handful of counters this runtime's components can cheaply maintain
// with plain atomics rather than the teacher's P-square latency
// histogram, which has no equivalent quantity here). Metrics are always
// safe to read concurrently. Builder.Build always creates one, enabled
// only if Builder.EnableMetrics was called; a disabled (or nil) *Metrics
// makes every increment a no-op, so disabled metrics cost nothing beyond
// a single atomic.Bool load per call site.
type Metrics struct {
	enabled atomic.Bool

	tasksSpawned   atomic.Uint64
	tasksCompleted atomic.Uint64
	parks          atomic.Uint64
	timerFires     atomic.Uint64
	blockingAlive  atomic.Int64
	blockingSpawns atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of a Runtime's counters,
// returned by value so callers can log or export it without holding onto
// driver internals.
type MetricsSnapshot struct {
	TasksSpawned         uint64
	TasksCompleted       uint64
	Parks                uint64
	TimerFires           uint64
	BlockingThreadsAlive int64
	BlockingThreadsSpawn uint64
}

func newMetrics(enabled bool) *Metrics {
	m := &Metrics{}
	m.enabled.Store(enabled)
	return m
}

func (m *Metrics) incTasksSpawned() {
	if m != nil && m.enabled.Load() {
		m.tasksSpawned.Add(1)
	}
}

func (m *Metrics) incTasksCompleted() {
	if m != nil && m.enabled.Load() {
		m.tasksCompleted.Add(1)
	}
}

func (m *Metrics) incParks() {
	if m != nil && m.enabled.Load() {
		m.parks.Add(1)
	}
}

func (m *Metrics) addTimerFires(n int) {
	if m != nil && m.enabled.Load() && n > 0 {
		m.timerFires.Add(uint64(n))
	}
}

func (m *Metrics) blockingThreadStarted() {
	if m != nil && m.enabled.Load() {
		m.blockingAlive.Add(1)
		m.blockingSpawns.Add(1)
	}
}

func (m *Metrics) blockingThreadStopped() {
	if m != nil && m.enabled.Load() {
		m.blockingAlive.Add(-1)
	}
}

// Snapshot returns the current counter values. Calling it on a nil or
// disabled Metrics returns a zero-valued snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		TasksSpawned:         m.tasksSpawned.Load(),
		TasksCompleted:       m.tasksCompleted.Load(),
		Parks:                m.parks.Load(),
		TimerFires:           m.timerFires.Load(),
		BlockingThreadsAlive: m.blockingAlive.Load(),
		BlockingThreadsSpawn: m.blockingSpawns.Load(),
	}
}

// Metrics returns the runtime's counters. Safe to call whether or not
// Builder.EnableMetrics was used; an unconfigured runtime just reports
// zeroes.
func (rt *Runtime) Metrics() MetricsSnapshot {
	return rt.metrics.Snapshot()
}

// Metrics returns the owning runtime's counters via the Handle, the same
// read path a supervising process reaches for without needing the
// Runtime value itself (SPEC_FULL.md's "ambient operability feature").
func (h *Handle) Metrics() MetricsSnapshot {
	return h.metrics.Snapshot()
}
