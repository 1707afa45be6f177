package corosched

import (
	"reflect"
	"runtime"

	lg "github.com/Andrej220/go-utils/zlog"
)

// finalizable reports whether obj is of a kind runtime.SetFinalizer will
// accept. SetFinalizer requires a pointer to an object allocated by
// calling new, taking the address of a composite literal, or taking
// the address of a local variable; anything else (including map, chan,
// and func values, which are themselves reference kinds but not
// pointer kinds) makes it throw fatally and unrecoverably rather than
// panic, so this must be checked before ever calling it.
func finalizable(obj any) bool {
	if obj == nil {
		return false
	}
	switch reflect.ValueOf(obj).Kind() {
	case reflect.Ptr:
		return true
	default:
		return false
	}
}

// AddFinalizer arranges for f to run, as a job on this scheduler, after
// obj becomes unreachable and is collected. f receives obj itself, kept
// reachable by the external job the GC hands to the inbox until the
// thunk runs. The callback runs under the execution context active at
// the time AddFinalizer was called, delivered through
// ThreadSafeEnqueueExternalJob since the GC invokes finalizers on a
// goroutine of its own choosing, never the scheduler thread.
//
// Invalid obj (nil, or a kind runtime.SetFinalizer would reject) is
// reported by logging and doing nothing; use AddFinalizerExn to observe
// the failure instead.
func (s *Scheduler) AddFinalizer(obj any, f func(obj any)) {
	if err := s.AddFinalizerExn(obj, f); err != nil {
		s.logger.Warn("AddFinalizer rejected", lg.Any("error", err))
	}
}

// AddFinalizerExn is AddFinalizer, but reports a MisuseError for an
// unfinalizable obj instead of swallowing it.
func (s *Scheduler) AddFinalizerExn(obj any, f func(obj any)) error {
	if !finalizable(obj) {
		return &MisuseError{Op: "AddFinalizerExn", Msg: "obj has no heap identity runtime.SetFinalizer can track"}
	}

	ctx := s.currentExecutionContext
	runtime.SetFinalizer(obj, func(finalized any) {
		// Runs on a GC-owned goroutine. The only safe bridge back into
		// the scheduler is the thread-safe external inbox.
		_ = s.ThreadSafeEnqueueExternalJob(ctx, func(payload any) error {
			f(payload)
			return nil
		}, finalized)
	})
	return nil
}
