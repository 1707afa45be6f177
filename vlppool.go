package corosched

import "fmt"

// DefaultVeryLowPriorityBudget is the number of steps the very-low
// priority driver takes per slice before it yields.
const DefaultVeryLowPriorityBudget = 1000

// VLPStep is a very-low-priority worker's unit of progress. It returns
// true once the worker has nothing left to do, or a non-nil error if
// the step itself failed; a panic inside Step is also recovered and
// treated as a thrown error.
type VLPStep func() (finished bool, err error)

type vlpWorker struct {
	ctx  ExecutionContext
	step VLPStep
}

// vlpPool is a deque of cooperative very-low-priority workers, drained
// in FIFO order by a bounded-slice driver: it keeps stepping the front
// worker until that worker finishes or fails, then moves on to the next
// one, and yields only once its step budget is exhausted with work still
// queued (putting an unfinished worker back at the front).
type vlpPool struct {
	workers []vlpWorker
	budget  int

	enqueueLow func(Job)
	deliver    func(ExecutionContext, error)
	yield      *Bvar
	currentCtx func() ExecutionContext
	setCurrentCtx func(ExecutionContext)

	driverScheduled bool
	driverCtx       ExecutionContext
}

func newVLPPool(budget int, enqueueLow func(Job), deliver func(ExecutionContext, error), yield *Bvar, currentCtx func() ExecutionContext, setCurrentCtx func(ExecutionContext)) *vlpPool {
	if budget <= 0 {
		budget = DefaultVeryLowPriorityBudget
	}
	return &vlpPool{
		budget:        budget,
		enqueueLow:    enqueueLow,
		deliver:       deliver,
		yield:         yield,
		currentCtx:    currentCtx,
		setCurrentCtx: setCurrentCtx,
	}
}

// Enqueue places a new worker at the back of the deque. If the deque was
// previously empty and the driver is not already scheduled or awaiting a
// yield-resume, the driver is scheduled as a Low-priority job.
func (p *vlpPool) Enqueue(step VLPStep) {
	ctx := p.currentCtx().WithPriority(Low)
	p.workers = append(p.workers, vlpWorker{ctx: ctx, step: step})
	if len(p.workers) == 1 && !p.driverScheduled {
		p.scheduleDriver()
	}
}

// Len reports how many workers are currently queued.
func (p *vlpPool) Len() int { return len(p.workers) }

func (p *vlpPool) scheduleDriver() {
	p.driverScheduled = true
	p.driverCtx = p.currentCtx().WithPriority(Low)
	p.enqueueLow(Job{
		Ctx:   p.driverCtx,
		Thunk: func() error { p.run(); return nil },
	})
}

// run is the driver's bounded slice: it steps through queued workers,
// spending at most p.budget steps, and reschedules itself via the
// scheduler's yield Bvar if the deque still has work when the budget
// runs out.
func (p *vlpPool) run() {
	budget := p.budget

	for budget > 0 {
		if len(p.workers) == 0 {
			p.driverScheduled = false
			return
		}

		w := p.workers[0]
		p.workers = p.workers[1:]

		budget = p.runWorker(w, budget)
	}

	if len(p.workers) == 0 {
		p.driverScheduled = false
		return
	}

	resumeCtx := p.driverCtx
	p.yield.WaitFunc(resumeCtx, p.run)
}

// runWorker steps w under its own captured context until it finishes,
// fails, or the remaining budget hits zero, and returns the budget left
// afterward. The scheduler's current context is set to w.ctx for the
// duration of every step and restored on return, the same
// swap-then-defer-restore discipline runOne uses for ordinary jobs.
func (p *vlpPool) runWorker(w vlpWorker, budget int) int {
	prev := p.currentCtx()
	p.setCurrentCtx(w.ctx)
	defer p.setCurrentCtx(prev)

	for budget > 0 {
		finished, err := invokeVLPStep(w.step)
		if err != nil {
			p.deliver(w.ctx, err)
			return budget
		}
		if finished {
			return budget
		}
		budget--
		if budget == 0 {
			p.workers = append([]vlpWorker{w}, p.workers...)
		}
	}
	return budget
}

func invokeVLPStep(step VLPStep) (finished bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("very-low-priority worker panicked: %v", r)
		}
	}()
	return step()
}
