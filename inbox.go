package corosched

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// externalJob is the (context, thunk, payload) triple threads outside
// the scheduler hand to it. Unlike a plain Job, an externalJob's thunk
// takes the payload as an explicit argument, because the finalizer
// bridge needs obj to stay reachable from the inbox entry itself
// until the thunk runs — folding it into a nullary closure would work
// too, but keeping payload a first-class field makes that
// reachability guarantee visible at the type level instead of buried
// inside a closure.
type externalJob struct {
	ctx     ExecutionContext
	thunk   func(payload any) error
	payload any
}

type inboxNode struct {
	next atomic.Pointer[inboxNode]
	job  externalJob
}

// externalInbox is the sole concurrent structure in this package: a
// lock-free, multi-producer, single-consumer FIFO built as a classic
// Michael & Scott linked list, with cache-line-padded head/tail
// pointers to keep producers on different cores from bouncing the
// same cache line. The inbox is fully drained every cycle rather than
// pipelined through a pool of workers, so there is no steady batch of
// in-flight consumers to amortize allocation against — a simpler
// linked list earns its keep here better than a segment-recycling
// design would.
type externalInbox struct {
	head atomic.Pointer[inboxNode]
	_    cpu.CacheLinePad

	tail atomic.Pointer[inboxNode]
	_    cpu.CacheLinePad

	size atomic.Int64
}

func newExternalInbox() *externalInbox {
	dummy := &inboxNode{}
	q := &externalInbox{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// Push appends job to the tail of the inbox. Safe to call from any
// thread, including concurrently with other Push calls.
func (q *externalInbox) Push(job externalJob) {
	n := &inboxNode{job: job}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(tail, n)
				q.size.Add(1)
				return
			}
		} else {
			// Tail lagged behind a completed insert by another
			// producer; help it along before retrying.
			q.tail.CompareAndSwap(tail, next)
		}
	}
}

// Drain appends every job currently in the inbox to dst, in arrival
// order, and empties the inbox. Drain must only be called from the
// scheduler thread: the consumer side of this queue is single-threaded
// by contract, so the head pointer is advanced without a CAS.
func (q *externalInbox) Drain(dst []externalJob) []externalJob {
	for {
		head := q.head.Load()
		next := head.next.Load()
		if next == nil {
			return dst
		}
		q.head.Store(next)
		dst = append(dst, next.job)
		q.size.Add(-1)
	}
}

// Len returns an approximate count of jobs currently queued. It is exact
// in the absence of concurrent Push calls. The scheduler reads it through
// NumPendingJobs, so that count is approximate too while other threads
// are pushing.
func (q *externalInbox) Len() int {
	return int(q.size.Load())
}
