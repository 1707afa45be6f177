package corosched

import "fmt"

// JobFailure wraps an error raised synchronously by a job's thunk,
// together with the backtrace captured for it (nil unless the job's
// context had RecordBacktraces set).
type JobFailure struct {
	Err       error
	Backtrace []byte
}

func (e *JobFailure) Error() string { return "corosched: job failed: " + e.Err.Error() }
func (e *JobFailure) Unwrap() error { return e.Err }

// UncaughtError is recorded into the scheduler's UncaughtExn once a
// JobFailure reaches the root monitor without being handled anywhere in
// the chain. Once set, the scheduler is dead.
type UncaughtError struct {
	Err error
}

func (e *UncaughtError) Error() string { return "corosched: uncaught error: " + e.Err.Error() }
func (e *UncaughtError) Unwrap() error { return e.Err }

// MisuseError reports invalid input to the core itself, e.g. YieldEvery
// called with n <= 0, or RunCyclesUntilNoJobsRemain called on a dead
// scheduler.
type MisuseError struct {
	Op  string
	Msg string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("corosched: misuse in %s: %s", e.Op, e.Msg)
}

// AccessDenied is raised by any entry point that consults
// Scheduler.checkAccess after MakeAsyncUnusable has installed one.
type AccessDenied struct {
	Op string
}

func (e *AccessDenied) Error() string {
	return fmt.Sprintf("corosched: access denied: %s is no longer usable", e.Op)
}
