package corosched

// Deferred is the minimal one-shot completion signal the core exposes to
// its embedding future/promise library: a channel closed exactly once,
// by the job the corresponding Bvar's next broadcast enqueues. Building combinators over
// it (map, bind, join...) is the embedding library's job, not this
// package's.
type Deferred = <-chan struct{}

type bvarWaiter struct {
	ctx ExecutionContext
	run func()
}

// Bvar is a barrier variable: a one-shot broadcast used by the
// scheduler for yielding and quiescence detection. Waiters are held in
// registration order and released all at once — the same
// register-then-release-all discipline used by runtime-style goroutine
// schedulers for their sudog waiter lists (e.g. the wait/release pattern
// over a linked list of blocked waiters) — except a Bvar is re-armable:
// each broadcast releases the waiters registered since the previous one,
// and new waiters may register for the next broadcast afterwards.
//
// Bvar never runs a waiter's callback itself. Broadcast turns every
// current waiter into a Normal-priority Job on the scheduler's run queue
// (via the enqueue function supplied at construction) and empties the
// waiter set; the scheduler runs those jobs in a later cycle like any
// other.
type Bvar struct {
	enqueue func(Job)
	waiters []bvarWaiter
}

func newBvar(enqueue func(Job)) *Bvar {
	return &Bvar{enqueue: enqueue}
}

// WaitFunc registers cb as a fresh waiter under ctx. cb runs as a
// Normal-priority job the next time Broadcast is called, under a context
// derived from ctx (so the job's monitor and locals survive the yield).
func (b *Bvar) WaitFunc(ctx ExecutionContext, cb func()) {
	b.waiters = append(b.waiters, bvarWaiter{ctx: ctx, run: cb})
}

// Wait registers a fresh waiter under ctx and returns a Deferred that
// becomes determined (closed) when the job the next Broadcast enqueues
// for this waiter runs.
func (b *Bvar) Wait(ctx ExecutionContext) Deferred {
	ch := make(chan struct{})
	b.WaitFunc(ctx, func() { close(ch) })
	return ch
}

// HasAnyWaiters reports, in O(1), whether any callback is currently
// registered.
func (b *Bvar) HasAnyWaiters() bool { return len(b.waiters) > 0 }

// Broadcast moves every currently registered waiter onto the run queue
// as a Normal-priority job, in the order the waiters registered, then
// clears the waiter set. Broadcasting with no waiters registered is a
// no-op, and two broadcasts with no intervening Wait are equivalent to
// one.
func (b *Bvar) Broadcast() {
	if len(b.waiters) == 0 {
		return
	}
	pending := b.waiters
	b.waiters = nil
	for _, w := range pending {
		w := w
		b.enqueue(Job{
			Ctx:   w.ctx.WithPriority(Normal),
			Thunk: func() error { w.run(); return nil },
		})
	}
}
