package corosched

import (
	"sync/atomic"
	"time"
)

// MetricsPolicy defines hooks the scheduler core reports cycle and job
// activity through. Implementations must be safe for the scheduler
// thread to call on every cycle, and are expected to be lightweight,
// mirroring metrics.go's MetricsPolicy contract ("non-blocking" on the
// hot path) one level up, at cycle granularity instead of per-job.
type MetricsPolicy interface {
	// IncExecuted increments the executed-jobs counter by n.
	IncExecuted(n int)
	// IncCycle increments the cycle counter by one.
	IncCycle()
	// SetQueueDepth records the current total pending-job count.
	SetQueueDepth(n int)
	// ObserveCycleTime records how long the most recent cycle took.
	ObserveCycleTime(d time.Duration)
}

// AtomicMetrics is a lock-free MetricsPolicy backed by atomics, the same
// hot-path-safe shape as metrics.go's AtomicMetrics.
type AtomicMetrics struct {
	executed  atomic.Uint64
	cycles    atomic.Uint64
	queued    atomic.Int64
	lastCycle atomic.Int64 // nanoseconds
}

func (m *AtomicMetrics) IncExecuted(n int)              { m.executed.Add(uint64(n)) }
func (m *AtomicMetrics) IncCycle()                       { m.cycles.Add(1) }
func (m *AtomicMetrics) SetQueueDepth(n int)             { m.queued.Store(int64(n)) }
func (m *AtomicMetrics) ObserveCycleTime(d time.Duration) { m.lastCycle.Store(int64(d)) }

// Executed returns the total number of jobs executed so far.
func (m *AtomicMetrics) Executed() uint64 { return m.executed.Load() }

// Cycles returns the total number of cycles run so far.
func (m *AtomicMetrics) Cycles() uint64 { return m.cycles.Load() }

// QueueDepth returns the most recently recorded total pending-job count.
func (m *AtomicMetrics) QueueDepth() int64 { return m.queued.Load() }

// LastCycleTime returns the duration of the most recently observed cycle.
func (m *AtomicMetrics) LastCycleTime() time.Duration {
	return time.Duration(m.lastCycle.Load())
}

// NoopMetrics discards every report. It is the default MetricsPolicy
// when Settings.Metrics is left nil, matching metrics.go's NoopMetrics
// zero-overhead default.
type NoopMetrics struct{}

func (NoopMetrics) IncExecuted(int)                {}
func (NoopMetrics) IncCycle()                       {}
func (NoopMetrics) SetQueueDepth(int)               {}
func (NoopMetrics) ObserveCycleTime(time.Duration) {}
