package corosched

import "time"

// TimingWheel is the interface the scheduler core assumes of its
// alarm structure. The wheel's own algorithm — how it buckets future
// instants, how it resizes its hierarchy, how it reclaims fired slots —
// is owned elsewhere; the core only ever needs to ask it to fire
// alarms up to a deadline and to report its pending state.
type TimingWheel interface {
	// IsEmpty reports whether any alarm is currently scheduled.
	IsEmpty() bool

	// NextAlarmFiresAt returns the deadline of the earliest pending
	// alarm and true, or the zero time and false if none is pending.
	NextAlarmFiresAt() (time.Time, bool)

	// AlarmPrecision reports the wheel's coarsest bucket granularity,
	// surfaced to callers as EventPrecision.
	AlarmPrecision() time.Duration

	// FirePast invokes fire for every alarm whose deadline is <= now,
	// removing each from the wheel as it fires. FirePast does not
	// itself enqueue jobs; the caller's fire callback is responsible
	// for that, which is how advanceClock turns fired alarms into Normal
	// (or whatever priority the alarm specifies) jobs.
	FirePast(now time.Time, fire func(Job))
}
