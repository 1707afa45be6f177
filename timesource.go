package corosched

import "time"

// TimeSource wraps a TimingWheel and exposes the two operations the
// scheduler core drives it with: Advance and FirePastAlarms. Both run the
// same fire pass, wheel.FirePast(now), firing every alarm due by now;
// TimeSource keeps no clock of its own. A nil wheel makes both
// operations no-ops, so a Scheduler can be built and driven purely by
// its job queues and inbox with no timer support at all.
type TimeSource struct {
	wheel TimingWheel
}

// NewTimeSource wraps wheel. wheel may be nil.
func NewTimeSource(wheel TimingWheel) *TimeSource {
	return &TimeSource{wheel: wheel}
}

// Advance fires, through fire, every alarm with a deadline <= now. The
// scheduler calls it once per cycle with the cycle's start time.
func (t *TimeSource) Advance(now time.Time, fire func(Job)) {
	if t.wheel == nil {
		return
	}
	t.wheel.FirePast(now, fire)
}

// FirePastAlarms runs the same fire pass as Advance. It is used by
// RunCyclesUntilNoJobsRemain between cycles, right after its own clock
// advance, to pick up alarms that came due during the cycle before
// deciding whether another cycle is needed.
func (t *TimeSource) FirePastAlarms(now time.Time, fire func(Job)) {
	if t.wheel == nil {
		return
	}
	t.wheel.FirePast(now, fire)
}

// HasUpcomingEvent reports whether the wheel has any alarm pending.
func (t *TimeSource) HasUpcomingEvent() bool {
	return t.wheel != nil && !t.wheel.IsEmpty()
}

// NextUpcomingEvent returns the earliest pending alarm's deadline.
func (t *TimeSource) NextUpcomingEvent() (time.Time, bool) {
	if t.wheel == nil {
		return time.Time{}, false
	}
	return t.wheel.NextAlarmFiresAt()
}

// EventPrecision reports the wheel's alarm-bucketing granularity.
func (t *TimeSource) EventPrecision() time.Duration {
	if t.wheel == nil {
		return 0
	}
	return t.wheel.AlarmPrecision()
}
