package corosched

import "time"

// Settings configures a Scheduler. Zero-valued fields are replaced with
// defaults by FillDefaults.
type Settings struct {
	// MaxNumJobsPerPriorityPerCycle bounds how many jobs each band
	// drains per cycle. Must be > 0.
	MaxNumJobsPerPriorityPerCycle int

	// VeryLowPriorityBudget is the step budget the very-low-priority
	// driver spends per slice.
	VeryLowPriorityBudget int

	// CheckInvariants enables the scheduler's internal invariant
	// assertions. Meant for tests and development, not hot production
	// paths.
	CheckInvariants bool

	// RecordBacktraces makes the main execution context (and any
	// context derived from it that doesn't override the field)
	// capture a backtrace when a job raises.
	RecordBacktraces bool

	// Metrics receives cycle/job counters. Defaults to NoopMetrics.
	Metrics MetricsPolicy

	// Wheel is the externally owned timing wheel. May be left nil for
	// a scheduler with no timer support.
	Wheel TimingWheel

	// Logger receives structured scheduler events. Defaults to a
	// zlog logger bound to context.Background().
	Logger Logger

	// Now returns the current wall-clock time. Overridable so tests can
	// drive cycles against a fake clock instead of real time.
	Now func() time.Time
}

const defaultMaxNumJobsPerPriorityPerCycle = 500

// FillDefaults replaces every zero-valued field with its default.
func (s *Settings) FillDefaults() {
	if s.MaxNumJobsPerPriorityPerCycle <= 0 {
		s.MaxNumJobsPerPriorityPerCycle = defaultMaxNumJobsPerPriorityPerCycle
	}
	if s.VeryLowPriorityBudget <= 0 {
		s.VeryLowPriorityBudget = DefaultVeryLowPriorityBudget
	}
	if s.Metrics == nil {
		s.Metrics = NoopMetrics{}
	}
	if s.Logger == nil {
		s.Logger = newDefaultLogger()
	}
	if s.Now == nil {
		s.Now = time.Now
	}
}
