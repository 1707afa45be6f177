package corosched

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"go.uber.org/multierr"
)

// Scheduler owns every priority band, the external inbox, the time
// source, the very-low-priority pool, and the monitor tree, and
// exposes the cycle-driving operations that advance a cooperative
// run to completion. Callers are expected to hold an explicit
// *Scheduler rather than reach for an ambient global; Default and
// ResetInForkedProcess below exist only for callers that want the
// convenience of a singleton anyway.
type Scheduler struct {
	jobQueues  [numPriorities]*jobQueue
	timeSource *TimeSource
	inbox      *externalInbox
	inboxBuf   []externalJob
	vlp        *vlpPool

	mainMonitor             *Monitor
	currentExecutionContext ExecutionContext
	mainExecutionContext    ExecutionContext
	inJob                   bool

	cycleCount       int
	cycleStart       time.Time
	lastCycleTime    time.Duration
	lastCycleNumJobs int
	numJobsRun       int

	maxNumJobsPerPriorityPerCycle int
	checkInvariants               bool
	recordBacktraces              bool

	runEveryCycleStart           []func() error
	onStartOfCycle               func() error
	onEndOfCycle                 func() error
	threadSafeExternalJobHook    func()
	eventAddedHook               func()
	jobQueuedHook                func(Priority)
	advanceSynchronousWallClock  func(time.Time)

	yield                  *Bvar
	yieldUntilNoJobsRemain *Bvar

	uncaughtExn error
	unusable    atomic.Bool

	metrics MetricsPolicy
	logger  Logger
	nowFn   func() time.Time

	cycleTimeSubs    []func(time.Duration)
	cycleNumJobsSubs []func(int)
}

// NewScheduler constructs a Scheduler. Settings' zero fields are filled
// in with defaults.
func NewScheduler(settings Settings) *Scheduler {
	settings.FillDefaults()

	mainMonitor := NewMonitor("main", nil)
	mainCtx := NewRootContext(mainMonitor)
	if settings.RecordBacktraces {
		mainCtx = mainCtx.WithBacktraces(true)
	}

	s := &Scheduler{
		mainMonitor:                   mainMonitor,
		currentExecutionContext:       mainCtx,
		mainExecutionContext:          mainCtx,
		maxNumJobsPerPriorityPerCycle: settings.MaxNumJobsPerPriorityPerCycle,
		checkInvariants:               settings.CheckInvariants,
		recordBacktraces:              settings.RecordBacktraces,
		metrics:                       settings.Metrics,
		logger:                        settings.Logger,
		nowFn:                         settings.Now,
	}

	for p := High; p <= Low; p++ {
		s.jobQueues[p] = newJobQueue()
	}
	s.inbox = newExternalInbox()
	s.timeSource = NewTimeSource(settings.Wheel)
	s.yield = newBvar(s.rawEnqueue)
	s.yieldUntilNoJobsRemain = newBvar(s.rawEnqueue)
	s.vlp = newVLPPool(settings.VeryLowPriorityBudget, s.rawEnqueue, s.handleJobError, s.yield, s.CurrentExecutionContext, func(ctx ExecutionContext) { s.currentExecutionContext = ctx })

	return s
}

// --- singleton convenience -------------------------------------------------

var (
	singletonMu sync.Mutex
	singleton   *Scheduler
)

// Default returns the process-wide scheduler, constructing it with
// default Settings on first use.
func Default() *Scheduler {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton == nil {
		singleton = NewScheduler(Settings{})
	}
	return singleton
}

// ResetInForkedProcess replaces the process-wide scheduler with a freshly
// constructed one. Pre-existing references to the old scheduler are
// orphaned, not torn down.
func ResetInForkedProcess(settings Settings) *Scheduler {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	singleton = NewScheduler(settings)
	return singleton
}

// --- observables ------------------------------------------------------------

func (s *Scheduler) MainMonitor() *Monitor                     { return s.mainMonitor }
func (s *Scheduler) MainExecutionContext() ExecutionContext    { return s.mainExecutionContext }
func (s *Scheduler) CurrentExecutionContext() ExecutionContext { return s.currentExecutionContext }
func (s *Scheduler) CycleCount() int                           { return s.cycleCount }
func (s *Scheduler) CycleStart() time.Time                     { return s.cycleStart }
func (s *Scheduler) LastCycleTime() time.Duration              { return s.lastCycleTime }
func (s *Scheduler) LastCycleNumJobs() int                      { return s.lastCycleNumJobs }
func (s *Scheduler) NumJobsRun() int                            { return s.numJobsRun }
func (s *Scheduler) UncaughtExn() error                        { return s.uncaughtExn }
func (s *Scheduler) IsDead() bool                               { return s.uncaughtExn != nil }

// NumPendingJobs counts jobs sitting in every band plus jobs still
// waiting in the external inbox.
func (s *Scheduler) NumPendingJobs() int {
	n := s.inbox.Len()
	for p := High; p <= Low; p++ {
		n += s.jobQueues[p].Len()
	}
	return n
}

func (s *Scheduler) HasUpcomingEvent() bool                 { return s.timeSource.HasUpcomingEvent() }
func (s *Scheduler) NextUpcomingEvent() (time.Time, bool)   { return s.timeSource.NextUpcomingEvent() }
func (s *Scheduler) EventPrecision() time.Duration          { return s.timeSource.EventPrecision() }
func (s *Scheduler) NumVeryLowPriorityWorkers() int         { return s.vlp.Len() }

// SubscribeCycleTimes registers fn to be called with each cycle's
// elapsed time, once per RunCycle.
func (s *Scheduler) SubscribeCycleTimes(fn func(time.Duration)) {
	s.cycleTimeSubs = append(s.cycleTimeSubs, fn)
}

// SubscribeCycleNumJobs registers fn to be called with each cycle's
// job count, once per RunCycle.
func (s *Scheduler) SubscribeCycleNumJobs(fn func(int)) {
	s.cycleNumJobsSubs = append(s.cycleNumJobsSubs, fn)
}

// --- settings slots ----------------------------------------------------------

func (s *Scheduler) SetOnStartOfCycle(h func() error)   { s.onStartOfCycle = h }
func (s *Scheduler) SetOnEndOfCycle(h func() error)     { s.onEndOfCycle = h }
func (s *Scheduler) SetEventAddedHook(h func())         { s.eventAddedHook = h }
func (s *Scheduler) SetJobQueuedHook(h func(Priority))  { s.jobQueuedHook = h }
func (s *Scheduler) SetThreadSafeExternalJobHook(h func()) {
	s.threadSafeExternalJobHook = h
}
func (s *Scheduler) SetAdvanceSynchronousWallClock(h func(time.Time)) {
	s.advanceSynchronousWallClock = h
}

// PrependRunEveryCycleStart registers h to run at the start of every
// cycle, ahead of any hook registered earlier.
func (s *Scheduler) PrependRunEveryCycleStart(h func() error) {
	s.runEveryCycleStart = append([]func() error{h}, s.runEveryCycleStart...)
}

// --- entry-point guarding ----------------------------------------------------

// MakeAsyncUnusable makes every further call to Enqueue,
// ThreadSafeEnqueueExternalJob, EnqueueVeryLowPriority, RunCycle and
// RunCyclesUntilNoJobsRemain return AccessDenied. Other methods (WithLocal,
// Yield, YieldEvery, ForceCurrentCycleToEnd, AddFinalizerExn and the
// observables) do not check it.
func (s *Scheduler) MakeAsyncUnusable() { s.unusable.Store(true) }

func (s *Scheduler) checkAccess(op string) error {
	if s.unusable.Load() {
		return &AccessDenied{Op: op}
	}
	return nil
}

// --- submission --------------------------------------------------------------

// Enqueue submits a job to run under ctx, in ctx's priority band. It is
// only safe to call from the scheduler thread (from within a running job,
// or before the scheduler loop has started); other threads must use
// ThreadSafeEnqueueExternalJob.
func (s *Scheduler) Enqueue(ctx ExecutionContext, thunk Thunk) error {
	if err := s.checkAccess("Enqueue"); err != nil {
		return err
	}
	s.rawEnqueue(Job{Ctx: ctx, Thunk: thunk})
	return nil
}

func (s *Scheduler) rawEnqueue(job Job) {
	p := job.Ctx.Priority()
	if !p.valid() {
		p = Normal
		job.Ctx = job.Ctx.WithPriority(Normal)
	}
	s.jobQueues[p].Enqueue(job)
	if s.jobQueuedHook != nil {
		s.jobQueuedHook(p)
	}
}

// ThreadSafeEnqueueExternalJob may be called from any thread, including
// concurrently with a running cycle. It hands (ctx, thunk, payload) to
// the external inbox and invokes the thread-safe external job hook,
// intended to wake a blocked scheduler thread.
func (s *Scheduler) ThreadSafeEnqueueExternalJob(ctx ExecutionContext, thunk func(payload any) error, payload any) error {
	if err := s.checkAccess("ThreadSafeEnqueueExternalJob"); err != nil {
		return err
	}
	s.inbox.Push(externalJob{ctx: ctx, thunk: thunk, payload: payload})
	if s.threadSafeExternalJobHook != nil {
		s.threadSafeExternalJobHook()
	}
	return nil
}

func (s *Scheduler) drainInboxAtCycleStart() {
	s.inboxBuf = s.inbox.Drain(s.inboxBuf[:0])
	for _, ej := range s.inboxBuf {
		ej := ej
		job := Job{
			Ctx:   ej.ctx.WithPriority(Normal),
			Thunk: func() error { return ej.thunk(ej.payload) },
		}
		if s.eventAddedHook != nil {
			s.eventAddedHook()
		}
		s.rawEnqueue(job)
	}
}

// --- very-low-priority pool --------------------------------------------------

// EnqueueVeryLowPriority adds a cooperative worker to the very-low
// priority deque.
func (s *Scheduler) EnqueueVeryLowPriority(step VLPStep) error {
	if err := s.checkAccess("EnqueueVeryLowPriority"); err != nil {
		return err
	}
	s.vlp.Enqueue(step)
	return nil
}

// WithLocal installs a context derived from the current one with key
// bound to value, runs f under it, and restores the previous current
// execution context on every exit path, including a returned error or
// a recovered panic. Safe to call only from the scheduler thread (from
// within a running job, or before the scheduler loop has started).
func (s *Scheduler) WithLocal(key, value any, f func() error) error {
	prev := s.currentExecutionContext
	s.currentExecutionContext = WithLocal(prev, key, value)
	defer func() { s.currentExecutionContext = prev }()
	return f()
}

// --- yielding -----------------------------------------------------------------

// Yield returns a Deferred that becomes determined during the next
// cycle: that cycle's yield broadcast enqueues the Normal-priority job
// that closes it.
func (s *Scheduler) Yield(ctx ExecutionContext) Deferred {
	return s.yield.Wait(ctx)
}

// YieldUntilNoJobsRemain returns a Deferred tied to the first cycle that
// ends with High, Normal and Low all empty: that cycle's broadcast
// enqueues the Normal-priority job that closes it, which runs in the
// following cycle.
func (s *Scheduler) YieldUntilNoJobsRemain(ctx ExecutionContext) Deferred {
	return s.yieldUntilNoJobsRemain.Wait(ctx)
}

// YieldEvery returns a stateful callable: the first n-1 calls return an
// already-determined Deferred, the n-th calls Yield and resets the
// counter. It rejects n <= 0.
func (s *Scheduler) YieldEvery(n int) (func(ExecutionContext) Deferred, error) {
	if n <= 0 {
		return nil, &MisuseError{Op: "YieldEvery", Msg: "n must be > 0"}
	}
	immediate := closedDeferred()
	counter := 0
	return func(ctx ExecutionContext) Deferred {
		counter++
		if counter < n {
			return immediate
		}
		counter = 0
		return s.Yield(ctx)
	}, nil
}

func closedDeferred() Deferred {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// ForceCurrentCycleToEnd sets the Normal band's remaining budget to zero.
// After the currently running job returns, the drain proceeds to Low
// and then ends the cycle. Safe to call only from within a running job.
func (s *Scheduler) ForceCurrentCycleToEnd() {
	s.jobQueues[Normal].SetJobsLeftThisCycle(0)
}

// --- cycles -------------------------------------------------------------------

// RunCycle runs one scheduler cycle: draining the inbox, advancing the
// clock, firing cycle-start hooks, and draining all three priority bands
// in strict order subject to their per-cycle budgets.
func (s *Scheduler) RunCycle() error {
	if err := s.checkAccess("RunCycle"); err != nil {
		return err
	}
	if s.IsDead() {
		return &MisuseError{Op: "RunCycle", Msg: "scheduler is dead"}
	}

	if s.onStartOfCycle != nil {
		if err := invokeHookSafely(s.onStartOfCycle); err != nil {
			return s.die("on_start_of_cycle", err)
		}
	}

	now := s.nowFn()
	s.cycleCount++
	s.cycleStart = now

	s.drainInboxAtCycleStart()
	s.yield.Broadcast()

	jobsRunBefore := s.numJobsRun

	if err := s.runCycleStartHooks(); err != nil {
		return s.die("run_every_cycle_start", err)
	}

	s.advanceClock(now)

	for p := High; p <= Low; p++ {
		s.jobQueues[p].SetJobsLeftThisCycle(s.maxNumJobsPerPriorityPerCycle)
	}

	s.drainBands()

	s.lastCycleTime = s.nowFn().Sub(s.cycleStart)
	s.lastCycleNumJobs = s.numJobsRun - jobsRunBefore

	if s.yieldUntilNoJobsRemain.HasAnyWaiters() && s.allBandsEmpty() {
		s.yieldUntilNoJobsRemain.Broadcast()
	}

	if s.onEndOfCycle != nil {
		if err := invokeHookSafely(s.onEndOfCycle); err != nil {
			return s.die("on_end_of_cycle", err)
		}
	}

	if s.checkInvariants {
		if err := s.checkInvariantsNow(); err != nil {
			s.logger.Error("scheduler invariant violated", lg.Any("error", err))
		}
	}

	s.metrics.IncCycle()
	s.metrics.ObserveCycleTime(s.lastCycleTime)
	s.metrics.SetQueueDepth(s.NumPendingJobs())
	for _, sub := range s.cycleTimeSubs {
		sub(s.lastCycleTime)
	}
	for _, sub := range s.cycleNumJobsSubs {
		sub(s.lastCycleNumJobs)
	}

	s.logger.Info("cycle complete",
		lg.Any("cycle", s.cycleCount),
		lg.Any("jobs_run", s.lastCycleNumJobs),
		lg.Any("elapsed", s.lastCycleTime))

	return nil
}

func (s *Scheduler) runCycleStartHooks() error {
	var combined error
	for _, h := range s.runEveryCycleStart {
		if err := invokeHookSafely(h); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}

func invokeHookSafely(h func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corosched: hook panicked: %v", r)
		}
	}()
	return h()
}

func (s *Scheduler) die(hook string, err error) error {
	s.uncaughtExn = err
	s.logger.Error("scheduler hook failed; scheduler is now dead",
		lg.String("hook", hook), lg.Any("error", err))
	return err
}

func (s *Scheduler) advanceClock(now time.Time) {
	s.timeSource.Advance(now, s.onAlarmFired)
	if s.advanceSynchronousWallClock != nil {
		s.advanceSynchronousWallClock(now)
	}
}

func (s *Scheduler) onAlarmFired(job Job) {
	if s.eventAddedHook != nil {
		s.eventAddedHook()
	}
	s.rawEnqueue(job)
}

// drainBands executes jobs in strict priority order, re-checking High
// after every single job so that a High-priority job enqueued by a
// running Normal or Low job still runs before its siblings.
func (s *Scheduler) drainBands() {
	for {
		ran := false
		for p := High; p <= Low; p++ {
			q := s.jobQueues[p]
			if q.JobsLeftThisCycle() <= 0 {
				continue
			}
			job, ok := q.Dequeue()
			if !ok {
				continue
			}
			q.SetJobsLeftThisCycle(q.JobsLeftThisCycle() - 1)
			s.runOne(job)
			ran = true
			break
		}
		if !ran {
			return
		}
	}
}

func (s *Scheduler) runOne(job Job) {
	prev := s.currentExecutionContext
	s.currentExecutionContext = job.Ctx
	s.inJob = true
	defer func() {
		s.currentExecutionContext = prev
		s.inJob = false
	}()

	err := invokeJobThunk(job.Thunk)
	s.numJobsRun++
	s.metrics.IncExecuted(1)
	if err != nil {
		s.handleJobError(job.Ctx, err)
	}
}

func invokeJobThunk(t Thunk) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corosched: job panicked: %v", r)
		}
	}()
	return t()
}

func (s *Scheduler) handleJobError(ctx ExecutionContext, err error) {
	var bt []byte
	if ctx.RecordBacktraces() {
		bt = debug.Stack()
	}
	jf := &JobFailure{Err: err, Backtrace: bt}
	s.logger.Warn("job failed", lg.Any("error", jf))

	handled, diag := sendExn(ctx.Monitor(), jf)
	if !handled {
		s.uncaughtExn = &UncaughtError{Err: diag}
		s.logger.Error("uncaught error; scheduler is now dead", lg.Any("error", s.uncaughtExn))
	}
}

func (s *Scheduler) allBandsEmpty() bool {
	for p := High; p <= Low; p++ {
		if s.jobQueues[p].Len() > 0 {
			return false
		}
	}
	return true
}

func (s *Scheduler) canRunAJob() bool {
	return s.NumPendingJobs() > 0 || s.yield.HasAnyWaiters()
}

// RunCyclesUntilNoJobsRemain repeatedly runs cycles, firing past alarms
// between them, until no job remains pending and the yield Bvar has no
// waiters. It fails immediately if the scheduler is already dead, and
// re-raises UncaughtExn on return if a cycle killed the scheduler
// along the way.
func (s *Scheduler) RunCyclesUntilNoJobsRemain() error {
	if err := s.checkAccess("RunCyclesUntilNoJobsRemain"); err != nil {
		return err
	}
	if s.IsDead() {
		return &MisuseError{Op: "RunCyclesUntilNoJobsRemain", Msg: "scheduler is dead"}
	}

	for {
		if err := s.RunCycle(); err != nil {
			s.currentExecutionContext = s.mainExecutionContext
			return err
		}
		if s.uncaughtExn != nil {
			// A job in that cycle reached an unhandled error. Stop driving
			// further cycles even if jobs are still pending — the next
			// RunCycle would just reject with MisuseError since the
			// scheduler is now dead, masking the real failure below.
			break
		}
		now := s.nowFn()
		s.advanceClock(now)
		s.timeSource.FirePastAlarms(now, s.onAlarmFired)
		if !s.canRunAJob() {
			break
		}
	}

	s.currentExecutionContext = s.mainExecutionContext
	if s.uncaughtExn != nil {
		return s.uncaughtExn
	}
	return nil
}

// --- invariants --------------------------------------------------------------

func (s *Scheduler) checkInvariantsNow() error {
	var errs error
	if !s.inJob && s.currentExecutionContext != s.mainExecutionContext {
		errs = multierr.Append(errs, fmt.Errorf("current execution context diverged from main outside a job"))
	}
	for p := High; p <= Low; p++ {
		if s.jobQueues[p].JobsLeftThisCycle() < 0 {
			errs = multierr.Append(errs, fmt.Errorf("band %s jobs_left_this_cycle went negative", p))
		}
	}
	return errs
}
