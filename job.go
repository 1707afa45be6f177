package corosched

// Thunk is a nullary action executed by the scheduler. It returns an
// error rather than panicking to signal failure; a panic raised inside a
// Thunk is still recovered by the scheduler and converted into the same
// JobFailure delivery path (see runOne in scheduler.go), but well-behaved
// jobs should simply return an error.
type Thunk func() error

// Job is a (context, thunk) pair: the unit of scheduling. Jobs are never
// reordered within their band and carry no payload of their own — unlike
// this package's worker-pool lineage, where a Job[T] carried a typed
// Payload for a fixed worker function, a scheduler job's thunk already
// closes over whatever data it needs.
type Job struct {
	Ctx   ExecutionContext
	Thunk Thunk
}
