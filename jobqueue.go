package corosched

// jobQueue is a bounded-batch FIFO holding the runnable jobs of one
// priority band. It is backed by a growable circular buffer: producers
// append at tail, the scheduler consumes at head, and the buffer doubles
// when full rather than dropping submissions, since dropping a
// scheduler job silently would violate the "multiset of dequeued jobs
// equals multiset of enqueued jobs" invariant.
//
// jobsLeftThisCycle tracks the per-band per-cycle budget. The scheduler
// resets it at the start of each cycle and decrements it by one for each
// job it dequeues from the band; once it reaches zero the scheduler stops
// dequeuing from the band for the remainder of the cycle, even though
// jobs may still be buffered. The queue itself never consults it.
type jobQueue struct {
	buf        []Job
	head, tail int
	size       int

	jobsLeftThisCycle int
}

const initialJobQueueCapacity = 64

func newJobQueue() *jobQueue {
	return &jobQueue{buf: make([]Job, initialJobQueueCapacity)}
}

// Len returns the number of jobs currently buffered, irrespective of the
// remaining per-cycle budget.
func (q *jobQueue) Len() int { return q.size }

// Enqueue appends a job to the tail of the queue, growing the backing
// buffer if it is full.
func (q *jobQueue) Enqueue(j Job) {
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[q.tail] = j
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++
}

func (q *jobQueue) grow() {
	newBuf := make([]Job, len(q.buf)*2)
	n := copy(newBuf, q.buf[q.head:])
	copy(newBuf[n:], q.buf[:q.head])
	q.head = 0
	q.tail = q.size
	q.buf = newBuf
}

// Dequeue removes and returns the oldest job, regardless of budget. The
// scheduler is responsible for consulting JobsLeftThisCycle before
// calling Dequeue; Dequeue itself neither checks nor decrements the
// budget.
func (q *jobQueue) Dequeue() (Job, bool) {
	if q.size == 0 {
		return Job{}, false
	}
	j := q.buf[q.head]
	q.buf[q.head] = Job{}
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return j, true
}

// SetJobsLeftThisCycle sets the remaining per-cycle budget. Called with
// 0 from within a running job (via the scheduler's
// ForceCurrentCycleToEnd), this is the mechanism by which the Normal
// band's drain is cut short for the rest of the current cycle.
func (q *jobQueue) SetJobsLeftThisCycle(n int) {
	if n < 0 {
		n = 0
	}
	q.jobsLeftThisCycle = n
}

// JobsLeftThisCycle returns the remaining per-cycle budget.
func (q *jobQueue) JobsLeftThisCycle() int { return q.jobsLeftThisCycle }
