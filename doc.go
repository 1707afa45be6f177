// Package corosched implements the core of a cooperative, single-threaded
// asynchronous scheduler.
//
// Design goals
//
// The package is designed around the following principles:
//
//   - All job execution happens on one OS thread; there is no preemption
//     and no work-stealing across threads.
//   - Other threads and the garbage collector may hand in work, but only
//     through a single thread-safe inbox drained at cycle boundaries.
//   - Jobs are grouped into priority bands (High, Normal, Low) and run
//     in strict band order, subject to a per-band per-cycle budget.
//   - Errors raised by a job never unwind the scheduler loop. They are
//     delivered to the job's monitor and the cycle continues.
//
// Architecture overview
//
// The scheduler core is composed of the following layers:
//
//  1. Job Queue (jobqueue.go)
//     A bounded-batch FIFO per priority band.
//
//  2. Execution Context & Monitor (context.go, monitor.go)
//     The ambient (monitor, priority, locals) a job runs under, and the
//     supervisor tree that receives its errors.
//
//  3. Barrier Variable (bvar.go)
//     A one-shot broadcast primitive used for yielding and quiescence
//     detection.
//
//  4. External Inbox (inbox.go) and Finalizer Bridge (finalizer.go)
//     The only concurrent structure in the package: a lock-free
//     multi-producer, single-consumer queue that other threads and
//     runtime finalizers use to hand work to the scheduler thread.
//
//  5. Time Source (timesource.go) and Timing Wheel (timingwheel.go)
//     A synchronous wall-clock driver over an externally supplied
//     alarm structure.
//
//  6. Very-Low-Priority Worker Pool (vlppool.go)
//     A deque of cooperative workers that make bounded progress
//     between yields.
//
//  7. Scheduler Core (scheduler.go)
//     Owns all of the above and exposes the top-level cycle-driving
//     operations.
//
// Error handling
//
// The core distinguishes four error kinds (errors.go): JobFailure,
// UncaughtError, MisuseError and AccessDenied. Job errors are reported to
// a Monitor and never stop the cycle; once an error reaches the root
// monitor unhandled, the scheduler is dead and further driving fails.
//
// Ambient stack
//
// Logging is structured and context-carried, via
// github.com/Andrej220/go-utils/zlog. Settings follow a
// zero-value-means-default convention with FillDefaults, mirroring the
// options pattern used throughout this package's lineage.
package corosched
